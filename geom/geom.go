// Package geom implements the plane geometry shared by the line art
// generator, the plan assembler and the motion controller.
//
// Coordinates follow image conventions: the origin is the top left
// corner, x grows to the right and y grows downwards.
package geom

import (
	"fmt"
	"image"
	"math"
)

type Point struct {
	X, Y float64
}

func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// MaxWeight is the heaviest pen pressure level.
const MaxWeight = 3

// Line is a directed, weighted segment from P1 to P2. Weight 0 means
// the pen is lifted.
type Line struct {
	P1, P2 Point
	Weight int

	angle    float64
	hasAngle bool
}

// L returns a line from p1 to p2 with the given weight, with its angle
// precomputed.
func L(p1, p2 Point, weight int) Line {
	l := Line{P1: p1, P2: p2, Weight: weight}
	l.angle = l.computeAngle()
	l.hasAngle = true
	return l
}

// Angle returns the angle of the line in degrees. Angles in [0, 90]
// turn clockwise from horizontal right, angles in (-90, 0) turn
// counter-clockwise. The angle of a zero length line is 0.
func (l Line) Angle() float64 {
	if l.hasAngle {
		return l.angle
	}
	return l.computeAngle()
}

func (l Line) computeAngle() float64 {
	theta := math.Atan2(l.P1.Y-l.P2.Y, l.P1.X-l.P2.X) * 180 / math.Pi
	if theta >= 180 {
		theta -= 180
	}
	return theta
}

func (l Line) Center() Point {
	return Point{X: (l.P1.X + l.P2.X) / 2, Y: (l.P1.Y + l.P2.Y) / 2}
}

func (l Line) Length() float64 {
	return l.P1.Dist(l.P2)
}

// Equal reports whether two lines have the same end points and weight.
func (l Line) Equal(o Line) bool {
	return l.P1 == o.P1 && l.P2 == o.P2 && l.Weight == o.Weight
}

func (l Line) String() string {
	return fmt.Sprintf("%v to %v (weight %d)", l.P1, l.P2, l.Weight)
}

// TurnAngle returns the signed number of degrees to pivot at p2 to go
// from heading p1→p2 to heading p2→p3. Positive angles are right
// (clockwise) turns, negative angles are left turns and collinear
// points result in exactly 0.
func TurnAngle(p1, p2, p3 Point) float64 {
	a := p1.Dist(p2)
	b := p2.Dist(p3)
	c := p1.Dist(p3)
	side := (p2.X-p1.X)*(p3.Y-p1.Y) - (p3.X-p1.X)*(p2.Y-p1.Y)
	if side == 0 || a == 0 || b == 0 {
		return 0
	}
	cos := (a*a + b*b - c*c) / (2 * a * b)
	cos = max(-1, min(1, cos))
	turn := 180 - math.Acos(cos)*180/math.Pi
	if side < 0 {
		turn = -turn
	}
	return turn
}

// ScaleRect scales r about its own center, independently along each
// axis. The result is truncated to integer coordinates.
func ScaleRect(r image.Rectangle, vertical, horizontal float64) image.Rectangle {
	w, h := float64(r.Dx()), float64(r.Dy())
	nw, nh := w*horizontal, h*vertical
	left := float64(r.Min.X) - (nw-w)/2
	top := float64(r.Min.Y) - (nh-h)/2
	min := image.Pt(int(left), int(top))
	return image.Rectangle{Min: min, Max: min.Add(image.Pt(int(nw), int(nh)))}
}
