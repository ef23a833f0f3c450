//go:build !linux || !cgo

package camera

import (
	"context"
	"fmt"
	"image"
)

type V4L2 struct {
	Device string
	Size   image.Point
	Warmup int
}

func (c *V4L2) Capture(ctx context.Context) (*image.Gray, error) {
	return nil, fmt.Errorf("%w: v4l2 not supported on this platform", ErrNoImage)
}
