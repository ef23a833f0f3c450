// package face turns a camera photo into the small, face cropped and
// equalized image the line art generator expects.
package face

import (
	"errors"
	"fmt"
	"image"
	"log"
	"math"

	"drawbot.deeplocal.com/geom"
	"drawbot.deeplocal.com/lineart"
	"golang.org/x/image/draw"
)

// ErrNoFace is returned by Prepare when no face was found and the miss
// threshold has not yet been reached.
var ErrNoFace = errors.New("face: no face found")

// Locator finds faces in an image. The most prominent face comes first.
type Locator interface {
	Locate(img *image.Gray) []image.Rectangle
}

const (
	// Rows is the height of a prepared image.
	Rows = 40
	// MaxMisses is the number of consecutive photos without a face
	// after which the fallback crop is used.
	MaxMisses = 3
	// padding is the vertical scale applied to a face rectangle to
	// include hair and chin.
	padding = 1.4
)

// The fallback crop keeps the columns [34, 190) of a 224 pixel wide
// frame.
const (
	fallbackWidth = 224
	fallbackLeft  = 34
	fallbackRight = 190
)

// Pipeline prepares photos for drawing. It is not safe for concurrent
// use.
type Pipeline struct {
	Locator Locator
	// DisableAutoLevels skips the brightness and contrast search.
	DisableAutoLevels bool

	misses int
}

// Prepare rotates the photo a quarter turn counter-clockwise, levels
// and equalizes it, and crops it to the first located face. Photos
// without a face are rejected with ErrNoFace until MaxMisses photos in
// a row came up empty; then a fixed center band is used instead.
func (p *Pipeline) Prepare(photo *image.Gray) (*image.Gray, error) {
	if photo.Bounds().Empty() {
		return nil, errors.New("face: empty photo")
	}
	img := Rotate(photo)
	if !p.DisableAutoLevels {
		alpha, beta := lineart.AutoLevels(img)
		img = lineart.Levels(img, alpha, beta)
	}
	img = Equalize(img)

	var faces []image.Rectangle
	if p.Locator != nil {
		faces = p.Locator.Locate(img)
	}
	if len(faces) == 0 {
		p.misses++
		if p.misses < MaxMisses {
			return nil, fmt.Errorf("%w (%d of %d)", ErrNoFace, p.misses, MaxMisses)
		}
		log.Printf("face: no face in %d photos, using fallback crop", p.misses)
		p.misses = 0
		return Resize(img.SubImage(Fallback(img.Bounds())).(*image.Gray), Rows), nil
	}
	p.misses = 0
	r := Pad(faces[0], img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("face: face %v outside photo %v", faces[0], img.Bounds())
	}
	crop := Equalize(img.SubImage(r).(*image.Gray))
	return Resize(crop, Rows), nil
}

// Misses returns the number of consecutive photos without a face.
func (p *Pipeline) Misses() int {
	return p.misses
}

// Reset clears the miss counter.
func (p *Pipeline) Reset() {
	p.misses = 0
}

// Pad scales a face rectangle vertically and clamps it to bounds.
func Pad(face, bounds image.Rectangle) image.Rectangle {
	return geom.ScaleRect(face, padding, 1).Intersect(bounds)
}

// Fallback returns the crop used when no face can be found: the
// center band of the frame, at full height.
func Fallback(bounds image.Rectangle) image.Rectangle {
	w := bounds.Dx()
	return image.Rect(
		bounds.Min.X+fallbackLeft*w/fallbackWidth, bounds.Min.Y,
		bounds.Min.X+fallbackRight*w/fallbackWidth, bounds.Max.Y,
	)
}

// Rotate returns img rotated a quarter turn counter-clockwise.
func Rotate(img *image.Gray) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))
	// (x, y) maps to (y, w - x), relative to the source origin.
	s2d := geom.Mul(
		geom.Offsetting(geom.Pt(0, float64(w))),
		geom.Rotating(-math.Pi/2),
		geom.Offsetting(geom.Pt(-float64(b.Min.X), -float64(b.Min.Y))),
	)
	draw.NearestNeighbor.Transform(dst, s2d, img, b, draw.Src, nil)
	return dst
}

// Resize scales img to the given number of rows, preserving its aspect
// ratio.
func Resize(img *image.Gray, rows int) *image.Gray {
	b := img.Bounds()
	if b.Empty() {
		return image.NewGray(image.Rectangle{})
	}
	scale := float64(rows) / float64(b.Dy())
	cols := int(math.Floor(float64(b.Dx()) * scale))
	dst := image.NewGray(image.Rect(0, 0, max(cols, 1), rows))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Equalize spreads the gray levels of img over the full range using
// its cumulative histogram. A flat image is returned unchanged.
func Equalize(img *image.Gray) *image.Gray {
	b := img.Bounds()
	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
		}
	}
	total := b.Dx() * b.Dy()
	first := 0
	for first < 255 && hist[first] == 0 {
		first++
	}
	var lut [256]uint8
	if hist[first] == total {
		lut[first] = uint8(first)
	} else {
		scale := 255 / float64(total-hist[first])
		sum := 0
		for v := first + 1; v < 256; v++ {
			sum += hist[v]
			lut[v] = uint8(min(255, math.Round(float64(sum)*scale)))
		}
	}
	dst := image.NewGray(image.Rectangle{Max: b.Size()})
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Pix[dst.PixOffset(x-b.Min.X, y-b.Min.Y)] = lut[img.GrayAt(x, y).Y]
		}
	}
	return dst
}
