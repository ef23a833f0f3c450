package geom

import (
	"math"

	"golang.org/x/image/math/f64"
)

func mul(A, B f64.Aff3) (r f64.Aff3) {
	r[0] = A[0]*B[0] + A[1]*B[3]
	r[1] = A[0]*B[1] + A[1]*B[4]
	r[2] = A[0]*B[2] + A[1]*B[5] + A[2]
	r[3] = A[3]*B[0] + A[4]*B[3]
	r[4] = A[3]*B[1] + A[4]*B[4]
	r[5] = A[3]*B[2] + A[4]*B[5] + A[5]
	return r
}

// Mul returns the product of the matrices, applied right to left.
func Mul(M ...f64.Aff3) (r f64.Aff3) {
	r = M[0]
	for i := 1; i < len(M); i++ {
		r = mul(r, M[i])
	}
	return r
}

func Offsetting(p Point) f64.Aff3 {
	return f64.Aff3{
		1, 0, p.X,
		0, 1, p.Y,
	}
}

func Scaling(sx, sy float64) f64.Aff3 {
	return f64.Aff3{
		sx, 0, 0,
		0, sy, 0,
	}
}

func Rotating(radians float64) f64.Aff3 {
	s, c := math.Sincos(radians)
	return f64.Aff3{
		c, -s, 0,
		s, c, 0,
	}
}

func Transform(m f64.Aff3, p Point) Point {
	return Point{
		X: p.X*m[0] + p.Y*m[1] + m[2],
		Y: p.X*m[3] + p.Y*m[4] + m[5],
	}
}

// TransformLine transforms both end points of l, keeping its weight.
func TransformLine(m f64.Aff3, l Line) Line {
	return L(Transform(m, l.P1), Transform(m, l.P2), l.Weight)
}
