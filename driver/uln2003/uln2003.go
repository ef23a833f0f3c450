// Package uln2003 drives a four coil unipolar stepper motor, such as
// the 28BYJ-48, through a ULN2003 darlington array.
package uln2003

import (
	"fmt"

	"drawbot.deeplocal.com/stepper"
	"periph.io/x/conn/v3/gpio"
)

var (
	// halfSteps is the 8-step half-step sequence. The even
	// entries form the full-step wave sequence.
	halfSteps = [8][4]gpio.Level{
		{gpio.High, gpio.Low, gpio.Low, gpio.Low},
		{gpio.High, gpio.High, gpio.Low, gpio.Low},
		{gpio.Low, gpio.High, gpio.Low, gpio.Low},
		{gpio.Low, gpio.High, gpio.High, gpio.Low},
		{gpio.Low, gpio.Low, gpio.High, gpio.Low},
		{gpio.Low, gpio.Low, gpio.High, gpio.High},
		{gpio.Low, gpio.Low, gpio.Low, gpio.High},
		{gpio.High, gpio.Low, gpio.Low, gpio.High},
	}
)

type Device struct {
	Pins [4]gpio.PinOut

	phase  int
	stride int
	dir    stepper.Direction
	asleep bool
}

// Configure releases the coils and selects full steps.
func (d *Device) Configure() error {
	d.stride = 2
	d.phase = 0
	return d.SetSleep(true)
}

func (d *Device) SetDirection(dir stepper.Direction) error {
	d.dir = dir
	return nil
}

func (d *Device) SetResolution(r stepper.Resolution) error {
	switch r {
	case stepper.Full:
		d.stride = 2
		// Full steps use the single coil phases.
		d.phase &^= 1
	case stepper.Half:
		d.stride = 1
	default:
		return &stepper.UnsupportedResolutionError{Resolution: r}
	}
	return nil
}

func (d *Device) Step() error {
	if d.stride == 0 {
		d.stride = 2
	}
	n := len(halfSteps)
	if d.dir == stepper.Clockwise {
		d.phase = (d.phase + d.stride) % n
	} else {
		d.phase = (d.phase - d.stride + n) % n
	}
	if d.asleep {
		return nil
	}
	return d.energize()
}

// SetSleep de-energizes (true) or energizes (false) the coils.
func (d *Device) SetSleep(sleep bool) error {
	d.asleep = sleep
	if !sleep {
		return d.energize()
	}
	for i, p := range d.Pins {
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("uln2003: coil %d: %w", i, err)
		}
	}
	return nil
}

func (d *Device) energize() error {
	for i, p := range d.Pins {
		if err := p.Out(halfSteps[d.phase][i]); err != nil {
			return fmt.Errorf("uln2003: coil %d: %w", i, err)
		}
	}
	return nil
}
