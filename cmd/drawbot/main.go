// command drawbot runs the drawing robot and the tools for preparing
// and inspecting its drawings.
package main

import (
	"log"
	"os"

	"github.com/jessevdk/go-flags"
)

// Version is set by the Go linker with -ldflags='-X main.Version=...'.
var Version string

type Options struct {
	Config string `short:"c" long:"config" description:"Configuration file (default drawbot.yaml in . or /etc/drawbot)"`

	Run       RunCommand       `command:"run" description:"Run the robot"`
	Lines     LinesCommand     `command:"lines" description:"Convert a photo into a drawing plan"`
	Preview   PreviewCommand   `command:"preview" description:"Render a drawing plan as PNG or PDF"`
	Calibrate CalibrateCommand `command:"calibrate" description:"Show or update a robot calibration"`
}

var opts Options

func main() {
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))
	parser := flags.NewParser(&opts, flags.Default)
	parser.LongDescription = "DrawBot - a camera fed, two wheeled portrait drawing robot"
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
}
