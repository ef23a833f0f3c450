package geom

import (
	"image"
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTurnAngle(t *testing.T) {
	tests := []struct {
		name       string
		p1, p2, p3 Point
		want       float64
	}{
		{"Collinear", Pt(0, 0), Pt(5, 0), Pt(10, 0), 0},
		{"CollinearDiagonal", Pt(1, 1), Pt(2, 2), Pt(7, 7), 0},
		{"Right", Pt(0, 0), Pt(5, 0), Pt(5, 5), 90},
		{"Left", Pt(0, 0), Pt(5, 0), Pt(5, -5), -90},
		{"SharpRight", Pt(0, 0), Pt(5, 0), Pt(0, 5), 135},
		{"ShallowLeft", Pt(0, 0), Pt(5, 0), Pt(10, -5), -45},
		{"Degenerate", Pt(3, 3), Pt(3, 3), Pt(4, 5), 0},
		{"DegenerateEnd", Pt(0, 0), Pt(3, 3), Pt(3, 3), 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := TurnAngle(test.p1, test.p2, test.p3)
			if math.IsNaN(got) || !near(got, test.want) {
				t.Errorf("TurnAngle(%v, %v, %v) = %v, want %v", test.p1, test.p2, test.p3, got, test.want)
			}
		})
	}
}

func TestCollinearIsExactlyZero(t *testing.T) {
	for i := 1; i < 50; i++ {
		d := float64(i) / 7
		p1, p2 := Pt(d, 2*d), Pt(2*d, 4*d)
		p3 := Pt(3*d+float64(i), 6*d+2*float64(i))
		if got := TurnAngle(p1, p2, p3); got != 0 {
			t.Fatalf("TurnAngle(%v, %v, %v) = %v, want exactly 0", p1, p2, p3, got)
		}
	}
}

func TestLine(t *testing.T) {
	tests := []struct {
		l      Line
		angle  float64
		length float64
		center Point
	}{
		{L(Pt(0, 0), Pt(1, 0), 1), 0, 1, Pt(0.5, 0)},
		{L(Pt(1, 0), Pt(0, 0), 1), 0, 1, Pt(0.5, 0)},
		{L(Pt(0, 0), Pt(0, 1), 0), -90, 1, Pt(0, 0.5)},
		{L(Pt(0, 0), Pt(3, 4), 2), -126.86989764584402, 5, Pt(1.5, 2)},
		{L(Pt(2, 2), Pt(2, 2), 3), 0, 0, Pt(2, 2)},
	}
	for _, test := range tests {
		if got := test.l.Angle(); math.IsNaN(got) || !near(got, test.angle) {
			t.Errorf("%v: angle %v, want %v", test.l, got, test.angle)
		}
		if got := test.l.Length(); !near(got, test.length) {
			t.Errorf("%v: length %v, want %v", test.l, got, test.length)
		}
		if got := test.l.Center(); got != test.center {
			t.Errorf("%v: center %v, want %v", test.l, got, test.center)
		}
	}
	lit := Line{P1: Pt(0, 0), P2: Pt(0, 1)}
	if got, want := lit.Angle(), L(lit.P1, lit.P2, 0).Angle(); got != want {
		t.Errorf("literal line angle %v, want %v", got, want)
	}
}

func TestPositiveLength(t *testing.T) {
	for x := -3; x <= 3; x++ {
		for y := -3; y <= 3; y++ {
			if x == 0 && y == 0 {
				continue
			}
			l := L(Pt(1, 1), Pt(1+float64(x), 1+float64(y)), 0)
			if l.Length() <= 0 {
				t.Errorf("%v has length %v", l, l.Length())
			}
		}
	}
}

func TestScaleRect(t *testing.T) {
	tests := []struct {
		r      image.Rectangle
		vf, hf float64
		want   image.Rectangle
	}{
		{image.Rect(10, 10, 20, 30), 1.4, 1, image.Rect(10, 6, 20, 34)},
		{image.Rect(10, 10, 20, 30), 1, 2, image.Rect(5, 10, 25, 30)},
		{image.Rect(0, 0, 10, 10), 0.5, 0.5, image.Rect(2, 2, 7, 7)},
		{image.Rect(4, 4, 8, 8), 1, 1, image.Rect(4, 4, 8, 8)},
	}
	for _, test := range tests {
		if got := ScaleRect(test.r, test.vf, test.hf); got != test.want {
			t.Errorf("ScaleRect(%v, %v, %v) = %v, want %v", test.r, test.vf, test.hf, got, test.want)
		}
	}
}

func TestTransformRotate(t *testing.T) {
	p := Pt(-1, -1)
	m := Mul(Offsetting(Pt(1, 1)), Rotating(-math.Pi/2), Offsetting(Pt(-1, -1)))
	pt := Transform(m, p)
	target := Pt(-1, 3)
	if pt.Dist(target) > 1e-9 {
		t.Errorf("Rotate not as expected, got %v, want %v", pt, target)
	}
}

func TestTransformLine(t *testing.T) {
	l := L(Pt(1, 2), Pt(3, 2), 2)
	got := TransformLine(Mul(Offsetting(Pt(1, 1)), Scaling(2, 2)), l)
	want := L(Pt(3, 5), Pt(7, 5), 2)
	if !got.Equal(want) {
		t.Errorf("TransformLine = %v, want %v", got, want)
	}
}
