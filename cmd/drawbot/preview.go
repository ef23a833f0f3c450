package main

import (
	"bufio"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"drawbot.deeplocal.com/plan"
)

type PreviewCommand struct {
	Scale  float64 `long:"scale" default:"8" description:"PNG pixels per plan unit"`
	Output string  `short:"o" long:"output" required:"yes" description:"Preview file; a .pdf extension selects PDF, otherwise PNG"`
	Args   struct {
		Plan string `positional-arg-name:"plan" required:"yes"`
	} `positional-args:"yes"`
}

func (c *PreviewCommand) Execute(args []string) error {
	lines, err := readPlan(c.Args.Plan)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("preview: %s: empty plan", c.Args.Plan)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if filepath.Ext(c.Output) == ".pdf" {
		err = plan.WritePDF(w, lines)
	} else {
		err = png.Encode(w, plan.Rasterize(lines, c.Scale))
	}
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return f.Close()
}
