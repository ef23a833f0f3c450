// package lineart converts grayscale portraits into serpentine raster
// line art suitable for drawing with a pen of four pressure levels.
package lineart

import (
	"image"

	"drawbot.deeplocal.com/geom"
)

// Bins partitions a range of gray values into four contiguous bins,
// dividing at B, C and D:
//
//	|       |       |       |       |
//	|   3   |   2   |   1   |   0   |
//	|_______|_______|_______|_______|
//	A       B       C       D       E
//
// Darker pixels land in heavier bins.
type Bins struct {
	A, B, C, D, E float64
}

// NewBins bisects [min, max] twice.
func NewBins(min, max float64) Bins {
	c := (min + max) / 2
	return Bins{
		A: min,
		B: (min + c) / 2,
		C: c,
		D: (c + max) / 2,
		E: max,
	}
}

// Weight returns the pen weight for the gray value v. Every bin includes
// its lower bound and excludes its upper bound, except for the lightest
// bin which includes both. Values outside [A, E] and values of a flat
// range map to weight 0.
func (b Bins) Weight(v float64) int {
	switch {
	case b.A == b.E:
		return 0
	case b.A <= v && v < b.B:
		return 3
	case b.B <= v && v < b.C:
		return 2
	case b.C <= v && v < b.D:
		return 1
	default:
		return 0
	}
}

// Range returns the minimum and maximum gray values of img.
func Range(img *image.Gray) (min, max uint8) {
	r := img.Bounds()
	if r.Empty() {
		return 0, 0
	}
	min, max = 255, 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := img.GrayAt(x, y).Y
			min = minu8(min, v)
			max = maxu8(max, v)
		}
	}
	return min, max
}

func minu8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

func maxu8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// Generate scans img in boustrophedon order and returns one unit-length
// horizontal stroke per pixel, weighted by the pixel's bin. Even rows are
// scanned left to right and odd rows right to left. Rows are joined by a
// vertical weight 0 end-cap from the last visited column. Coordinates are
// relative to the image's top left corner.
//
// The order of the result is the drawing order.
func Generate(img *image.Gray) []geom.Line {
	r := img.Bounds()
	rows, cols := r.Dy(), r.Dx()
	if rows == 0 || cols == 0 {
		return nil
	}
	lo, hi := Range(img)
	bins := NewBins(float64(lo), float64(hi))
	lines := make([]geom.Line, 0, rows*cols+rows-1)
	for row := range rows {
		start, end, inc := 0, cols, 1
		if row%2 != 0 {
			start, end, inc = cols-1, -1, -1
		}
		lastX := 0
		for col := start; col != end; col += inc {
			v := img.GrayAt(r.Min.X+col, r.Min.Y+row).Y
			x1, x2 := float64(col), float64(col+1)
			if inc < 0 {
				x1, x2 = x2, x1
			}
			y := float64(row)
			lines = append(lines, geom.L(geom.Pt(x1, y), geom.Pt(x2, y), bins.Weight(float64(v))))
			lastX = int(x2)
		}
		if row < rows-1 {
			x := float64(lastX)
			lines = append(lines, geom.L(geom.Pt(x, float64(row)), geom.Pt(x, float64(row+1)), 0))
		}
	}
	return lines
}
