package face

import (
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
)

// Cascade locates faces with a pixel intensity comparison cascade.
type Cascade struct {
	classifier *pigo.Pigo

	// MinSize and MaxSize bound the face size in pixels.
	MinSize, MaxSize int
	// Quality is the detection score below which faces are discarded.
	Quality float32
}

// LoadCascade reads a cascade file, such as the "facefinder" cascade
// shipped with pigo.
func LoadCascade(path string) (*Cascade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("face: %w", err)
	}
	return NewCascade(data)
}

func NewCascade(data []byte) (*Cascade, error) {
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("face: cascade: %w", err)
	}
	return &Cascade{
		classifier: classifier,
		MinSize:    20,
		MaxSize:    1000,
		Quality:    5,
	}, nil
}

func (c *Cascade) Locate(img *image.Gray) []image.Rectangle {
	b := img.Bounds()
	params := pigo.CascadeParams{
		MinSize:     c.MinSize,
		MaxSize:     c.MaxSize,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: img.Pix[img.PixOffset(b.Min.X, b.Min.Y):],
			Rows:   b.Dy(),
			Cols:   b.Dx(),
			Dim:    img.Stride,
		},
	}
	dets := c.classifier.RunCascade(params, 0)
	dets = c.classifier.ClusterDetections(dets, 0.2)
	sort.Slice(dets, func(i, j int) bool {
		return dets[i].Q > dets[j].Q
	})
	var faces []image.Rectangle
	for _, d := range dets {
		if d.Q < c.Quality {
			continue
		}
		half := d.Scale / 2
		faces = append(faces, image.Rect(d.Col-half, d.Row-half, d.Col+half, d.Row+half).Add(b.Min))
	}
	return faces
}
