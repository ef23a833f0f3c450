// package golden compares drawing plans against gzipped CBOR golden
// files.
package golden

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"drawbot.deeplocal.com/geom"
	"drawbot.deeplocal.com/plan"
)

// ComparePlan compares lines against the golden plan stored at path, or
// replaces the golden plan if update is set. If dumpDir is not empty,
// PNG previews of the plan, and of the golden plan on mismatch, are
// written to it.
func ComparePlan(path string, update bool, dumpDir string, lines []geom.Line) error {
	bpath := filepath.Base(path)
	if dumpDir != "" {
		if err := dumpPNG(filepath.Join(dumpDir, bpath+".png"), lines); err != nil {
			return err
		}
	}
	if update {
		enc, err := plan.EncodeCBOR(lines)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		buf := new(bytes.Buffer)
		w, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		w.Write(enc)
		if err := w.Close(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return os.WriteFile(path, buf.Bytes(), 0o640)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	golden, err := plan.DecodeCBOR(b)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	mismatches := 0
	first := -1
	for i := range min(len(lines), len(golden)) {
		if !linesCloseEnough(lines[i], golden[i]) {
			if first == -1 {
				first = i
			}
			mismatches++
		}
	}
	if mismatches > 0 || len(lines) != len(golden) {
		if dumpDir != "" {
			if err := dumpPNG(filepath.Join(dumpDir, bpath+".orig.png"), golden); err != nil {
				return err
			}
		}
		return fmt.Errorf("plan lengths %d, %d, with %d/%d line mismatches (first at %d)", len(lines), len(golden), mismatches, len(golden), first)
	}
	return nil
}

func linesCloseEnough(l1, l2 geom.Line) bool {
	return l1.Weight == l2.Weight &&
		pointsCloseEnough(l1.P1, l2.P1) &&
		pointsCloseEnough(l1.P2, l2.P2)
}

func pointsCloseEnough(p1, p2 geom.Point) bool {
	const epsilon = 1e-9
	return math.Abs(p1.X-p2.X) <= epsilon && math.Abs(p1.Y-p2.Y) <= epsilon
}

func dumpPNG(path string, lines []geom.Line) error {
	const scale = 8
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, plan.Rasterize(lines, scale)); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o640)
}
