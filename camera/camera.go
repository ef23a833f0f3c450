// package camera implements still photo sources for the robot: a V4L2
// capture device and a file backed camera for tooling and tests.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// ErrNoImage is returned when a camera fails to deliver a usable photo.
var ErrNoImage = errors.New("camera: no image")

// Camera captures grayscale still photos.
type Camera interface {
	Capture(ctx context.Context) (*image.Gray, error)
}

// File is a camera that returns the contents of an image file.
type File struct {
	Path string
}

func (f *File) Capture(ctx context.Context) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoImage, err)
	}
	defer r.Close()
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoImage, f.Path, err)
	}
	return Gray(img), nil
}

// Gray converts img to an 8-bit grayscale image with its origin at
// (0, 0).
func Gray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	g := image.NewGray(image.Rectangle{Max: b.Size()})
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}
