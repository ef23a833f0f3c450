package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"drawbot.deeplocal.com/camera"
	"drawbot.deeplocal.com/face"
	"drawbot.deeplocal.com/geom"
	"drawbot.deeplocal.com/lineart"
	"drawbot.deeplocal.com/plan"
)

type LinesCommand struct {
	Cascade string `long:"cascade" description:"Face detection cascade (default from the configuration)"`
	NoFace  bool   `long:"no-face" description:"Draw the whole photo without looking for a face"`
	Output  string `short:"o" long:"output" description:"Plan file; a .cbor extension selects CBOR, otherwise JSON (default stdout)"`
	Args    struct {
		Photo string `positional-arg-name:"photo" required:"yes"`
	} `positional-args:"yes"`
}

func (c *LinesCommand) Execute(args []string) error {
	photo, err := (&camera.File{Path: c.Args.Photo}).Capture(context.Background())
	if err != nil {
		return err
	}
	var img *image.Gray
	if c.NoFace {
		img = face.Resize(face.Equalize(photo), face.Rows)
	} else {
		path := c.Cascade
		if path == "" {
			cfg, err := loadConfig(opts.Config)
			if err != nil {
				return err
			}
			path = cfg.Cascade
		}
		cascade, err := face.LoadCascade(path)
		if err != nil {
			return err
		}
		p := &face.Pipeline{Locator: cascade}
		img, err = p.Prepare(photo)
		if err != nil {
			return err
		}
	}
	lines := plan.Assemble(lineart.Generate(img), img.Bounds().Size())
	return writePlan(c.Output, lines)
}

func isCBOR(path string) bool {
	return filepath.Ext(path) == ".cbor"
}

// writePlan writes lines to path, or to stdout if path is empty.
func writePlan(path string, lines []geom.Line) error {
	encode := plan.EncodeJSON
	if isCBOR(path) {
		encode = plan.EncodeCBOR
	}
	data, err := encode(lines)
	if err != nil {
		return err
	}
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("lines: %w", err)
	}
	return nil
}

func readPlan(path string) ([]geom.Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	if isCBOR(path) {
		return plan.DecodeCBOR(data)
	}
	return plan.DecodeJSON(data)
}
