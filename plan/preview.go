package plan

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"drawbot.deeplocal.com/geom"
	"github.com/jung-kurt/gofpdf"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

// Bounds returns the smallest rectangle with integer corners containing
// every line end point.
func Bounds(lines []geom.Line) image.Rectangle {
	if len(lines) == 0 {
		return image.Rectangle{}
	}
	minx, miny := math.Inf(1), math.Inf(1)
	maxx, maxy := math.Inf(-1), math.Inf(-1)
	for _, l := range lines {
		for _, p := range []geom.Point{l.P1, l.P2} {
			minx, miny = min(minx, p.X), min(miny, p.Y)
			maxx, maxy = max(maxx, p.X), max(maxy, p.Y)
		}
	}
	return image.Rect(
		int(math.Floor(minx)), int(math.Floor(miny)),
		int(math.Ceil(maxx)), int(math.Ceil(maxy)),
	)
}

// strokeWidth is the preview stroke width of a weight, in plan units.
func strokeWidth(weight int) float64 {
	return float64(weight) / geom.MaxWeight
}

// Rasterize renders the inked lines of a plan as black strokes on a
// white image, scale pixels per plan unit. Heavier lines are drawn
// wider. Pen-up lines are not drawn.
func Rasterize(lines []geom.Line, scale float64) *image.Gray {
	b := Bounds(lines)
	const margin = 1
	width := int(math.Ceil(float64(b.Dx()+2*margin) * scale))
	height := int(math.Ceil(float64(b.Dy()+2*margin) * scale))
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	dasher.SetColor(color.Black)
	m := geom.Mul(
		geom.Scaling(scale, scale),
		geom.Offsetting(geom.Pt(float64(margin-b.Min.X), float64(margin-b.Min.Y))),
	)
	toFixed := func(p geom.Point) fixed.Point26_6 {
		p = geom.Transform(m, p)
		return rasterx.ToFixedP(p.X, p.Y)
	}
	for w := 1; w <= geom.MaxWeight; w++ {
		stroke := strokeWidth(w) * scale * 64
		dasher.SetStroke(fixed.Int26_6(stroke), 0, rasterx.ButtCap, rasterx.ButtCap, rasterx.RoundGap, rasterx.ArcClip, nil, 0)
		n := 0
		for _, l := range lines {
			if l.Weight != w {
				continue
			}
			dasher.Start(toFixed(l.P1))
			dasher.Line(toFixed(l.P2))
			dasher.Stop(false)
			n++
		}
		if n > 0 {
			dasher.Draw()
		}
		dasher.Clear()
	}
	return img
}

// WritePDF writes the inked lines of a plan to w as a single A4 page,
// scaled to fit within the page margins.
func WritePDF(w io.Writer, lines []geom.Line) error {
	const (
		pageW, pageH = 210., 297.
		margin       = 15.
	)
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("drawbot plan", true)
	pdf.AddPage()
	pdf.SetLineCapStyle("butt")
	pdf.SetDrawColor(0, 0, 0)
	b := Bounds(lines)
	scale := 1.
	if b.Dx() > 0 && b.Dy() > 0 {
		scale = min((pageW-2*margin)/float64(b.Dx()), (pageH-2*margin)/float64(b.Dy()))
	}
	m := geom.Mul(
		geom.Offsetting(geom.Pt(margin, margin)),
		geom.Scaling(scale, scale),
		geom.Offsetting(geom.Pt(-float64(b.Min.X), -float64(b.Min.Y))),
	)
	for _, l := range lines {
		if l.Weight == 0 {
			continue
		}
		l = geom.TransformLine(m, l)
		pdf.SetLineWidth(strokeWidth(l.Weight) * scale)
		pdf.Line(l.P1.X, l.P1.Y, l.P2.X, l.P2.Y)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("plan: pdf: %w", err)
	}
	return nil
}
