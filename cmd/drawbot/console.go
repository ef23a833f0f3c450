package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime/pprof"
	"strings"

	"drawbot.deeplocal.com/calibration"
	"drawbot.deeplocal.com/robot"
	"github.com/tarm/serial"
)

const consoleBaud = 115200

// openConsole serves the debug console on the serial device dev.
func openConsole(dev string, m *robot.Machine, apply func(calibration.Calibration) error) (io.Closer, error) {
	s, err := serial.OpenPort(&serial.Config{Name: dev, Baud: consoleBaud})
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	go func() {
		if err := runConsole(s, s, m, apply); err != nil {
			log.Printf("console: serial communication failed: %v", err)
		}
	}()
	return s, nil
}

// runConsole executes console commands read from r, one per line,
// until r is exhausted.
func runConsole(r io.Reader, w io.Writer, m *robot.Machine, apply func(calibration.Calibration) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "":
		case "press":
			fmt.Fprintf(w, "accepted: %v, state: %v\n", m.Press(), m.State())
		case "status":
			fmt.Fprintf(w, "state: %v, mode: %v, plan: %d lines\n", m.State(), m.Mode(), len(m.Plan()))
		case "draw":
			if err := m.Draw(); err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				break
			}
			fmt.Fprintln(w, "drawing")
		case "calibrate":
			c, err := calibration.Parse([]byte(arg))
			if err == nil {
				err = apply(c)
			}
			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				break
			}
			fmt.Fprintln(w, "calibration updated")
		case "goroutines":
			pprof.Lookup("goroutine").WriteTo(w, 1)
		default:
			log.Printf("console: unrecognized command: %s", cmd)
			fmt.Fprintf(w, "unknown command %q\n", cmd)
		}
	}
}
