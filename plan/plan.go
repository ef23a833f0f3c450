// package plan assembles drawing plans and converts them to and from
// their wire and preview representations.
package plan

import (
	"image"

	"drawbot.deeplocal.com/geom"
)

// Assemble returns the drawing plan for line art of the given size:
// three pen-up transition lines followed by lines. The robot is parked
// at the center of the drawing facing up. The transitions move it to
// the center, then to the left edge and finally to the start of the
// first stroke. Assemble returns nil for empty line art.
func Assemble(lines []geom.Line, size image.Point) []geom.Line {
	if len(lines) == 0 {
		return nil
	}
	center := geom.Pt(float64(size.X/2), float64(size.Y/2))
	parking := center.Add(geom.Pt(0, .1))
	leftCenter := geom.Pt(0, center.Y)
	plan := make([]geom.Line, 0, len(lines)+3)
	plan = append(plan,
		geom.L(parking, center, 0),
		geom.L(center, leftCenter, 0),
		geom.L(leftCenter, lines[0].P1, 0),
	)
	return append(plan, lines...)
}

// Transitions is the number of pen-up lines Assemble prepends.
const Transitions = 3

// SquareTest returns 100 squares of side 20 drawn with weights 1, 2, 3
// and 2, turning right at each corner if right is set and left
// otherwise. Each side stops one unit short of its corner so the
// gaps show how well the turn slop is calibrated.
func SquareTest(right bool) []geom.Line {
	const (
		n      = 100
		length = 20
	)
	var side [4]geom.Line
	if right {
		side = [4]geom.Line{
			geom.L(geom.Pt(0, 0), geom.Pt(length-1, 0), 1),
			geom.L(geom.Pt(length, 0), geom.Pt(length, length-1), 2),
			geom.L(geom.Pt(length, length), geom.Pt(1, length), 3),
			geom.L(geom.Pt(0, length), geom.Pt(0, 1), 2),
		}
	} else {
		side = [4]geom.Line{
			geom.L(geom.Pt(0, 0), geom.Pt(0, length-1), 1),
			geom.L(geom.Pt(0, length), geom.Pt(length-1, length), 2),
			geom.L(geom.Pt(length, length), geom.Pt(length, 1), 3),
			geom.L(geom.Pt(length, 0), geom.Pt(1, 0), 2),
		}
	}
	lines := make([]geom.Line, 0, n*len(side))
	for range n {
		lines = append(lines, side[:]...)
	}
	return lines
}

// PressureTest returns 100 rectangles whose long sides step through
// every pen weight, for tuning the servo angle of each level.
func PressureTest() []geom.Line {
	const n = 100
	rect := []geom.Line{
		geom.L(geom.Pt(0, 0), geom.Pt(5, 0), 0),
		geom.L(geom.Pt(5, 0), geom.Pt(10, 0), 1),
		geom.L(geom.Pt(10, 0), geom.Pt(15, 0), 2),
		geom.L(geom.Pt(15, 0), geom.Pt(20, 0), 3),
		geom.L(geom.Pt(20, 0), geom.Pt(20, 5), 0),
		geom.L(geom.Pt(20, 5), geom.Pt(15, 5), 0),
		geom.L(geom.Pt(15, 5), geom.Pt(10, 5), 1),
		geom.L(geom.Pt(10, 5), geom.Pt(5, 5), 2),
		geom.L(geom.Pt(5, 5), geom.Pt(0, 5), 3),
		geom.L(geom.Pt(0, 5), geom.Pt(0, 0), 0),
	}
	lines := make([]geom.Line, 0, n*len(rect))
	for range n {
		lines = append(lines, rect...)
	}
	return lines
}
