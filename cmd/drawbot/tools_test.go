package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"drawbot.deeplocal.com/plan"
)

func TestLinesAndPreview(t *testing.T) {
	dir := t.TempDir()
	photo := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range photo.Pix {
		photo.Pix[i] = uint8(i % 256)
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, photo); err != nil {
		t.Fatal(err)
	}
	photoPath := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(photoPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"plan.json", "plan.cbor"} {
		t.Run(name, func(t *testing.T) {
			planPath := filepath.Join(dir, name)
			lines := &LinesCommand{NoFace: true, Output: planPath}
			lines.Args.Photo = photoPath
			if err := lines.Execute(nil); err != nil {
				t.Fatal(err)
			}
			got, err := readPlan(planPath)
			if err != nil {
				t.Fatal(err)
			}
			// 40x40 pixels and 39 row changes.
			if want := 40*40 + 39 + plan.Transitions; len(got) != want {
				t.Fatalf("plan has %d lines, want %d", len(got), want)
			}

			pngPath := filepath.Join(dir, name+".png")
			preview := &PreviewCommand{Scale: 2, Output: pngPath}
			preview.Args.Plan = planPath
			if err := preview.Execute(nil); err != nil {
				t.Fatal(err)
			}
			f, err := os.Open(pngPath)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			img, err := png.Decode(f)
			if err != nil {
				t.Fatal(err)
			}
			if img.Bounds().Dx() < 80 || img.Bounds().Dy() < 80 {
				t.Errorf("preview is only %v", img.Bounds())
			}

			pdfPath := filepath.Join(dir, name+".pdf")
			preview = &PreviewCommand{Scale: 2, Output: pdfPath}
			preview.Args.Plan = planPath
			if err := preview.Execute(nil); err != nil {
				t.Fatal(err)
			}
			pdf, err := os.ReadFile(pdfPath)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
				t.Errorf("preview is not a PDF")
			}
		})
	}
}

func TestDropCalibration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drop")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := dropCalibration(dir, []byte(calibrationDoc)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "calibration.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != calibrationDoc {
		t.Errorf("dropped %q", data)
	}
	if err := dropCalibration("", nil); err == nil {
		t.Error("dropped a calibration without a directory")
	}
}
