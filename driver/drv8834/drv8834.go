// Package drv8834 drives a DRV8834 low-voltage stepper motor driver
// through its STEP, DIR, SLEEP and microstep pins.
package drv8834

import (
	"fmt"
	"time"

	"drawbot.deeplocal.com/stepper"
	"periph.io/x/conn/v3/gpio"
)

// pulseWidth is the minimum STEP high and low time.
const pulseWidth = 2 * time.Microsecond

type Device struct {
	StepPin  gpio.PinOut
	DirPin   gpio.PinOut
	SleepPin gpio.PinOut
	// M0 and M1 select the microstep resolution. M0 has a third,
	// floating, state and must therefore support input as well.
	// Leave them nil if they are not wired; the driver then
	// only supports full steps.
	M0 gpio.PinIO
	M1 gpio.PinOut
}

// Configure drives every pin low, leaving the motor asleep in the
// clockwise direction at full step resolution.
func (d *Device) Configure() error {
	for _, p := range []gpio.PinOut{d.StepPin, d.DirPin, d.SleepPin} {
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("drv8834: %s: %w", p, err)
		}
	}
	if d.M0 != nil && d.M1 != nil {
		return d.SetResolution(stepper.Full)
	}
	return nil
}

func (d *Device) SetDirection(dir stepper.Direction) error {
	if err := d.DirPin.Out(dir == stepper.CounterClockwise); err != nil {
		return fmt.Errorf("drv8834: dir: %w", err)
	}
	return nil
}

func (d *Device) Step() error {
	if err := d.StepPin.Out(gpio.High); err != nil {
		return fmt.Errorf("drv8834: step: %w", err)
	}
	time.Sleep(pulseWidth)
	if err := d.StepPin.Out(gpio.Low); err != nil {
		return fmt.Errorf("drv8834: step: %w", err)
	}
	return nil
}

// SetSleep puts the driver to sleep, releasing the motor coils. The
// SLEEP pin is active low.
func (d *Device) SetSleep(sleep bool) error {
	if err := d.SleepPin.Out(gpio.Level(!sleep)); err != nil {
		return fmt.Errorf("drv8834: sleep: %w", err)
	}
	return nil
}

type m0State int

const (
	m0Low m0State = iota
	m0High
	m0Float
)

// microsteps maps resolutions to their M1 and M0 settings.
var microsteps = map[stepper.Resolution]struct {
	m1 gpio.Level
	m0 m0State
}{
	stepper.Full:         {gpio.Low, m0Low},
	stepper.Half:         {gpio.Low, m0High},
	stepper.Quarter:      {gpio.Low, m0Float},
	stepper.Eighth:       {gpio.High, m0Low},
	stepper.Sixteenth:    {gpio.High, m0High},
	stepper.ThirtySecond: {gpio.High, m0Float},
}

func (d *Device) SetResolution(r stepper.Resolution) error {
	if d.M0 == nil || d.M1 == nil {
		if r == stepper.Full {
			return nil
		}
		return &stepper.UnsupportedResolutionError{Resolution: r}
	}
	m, ok := microsteps[r]
	if !ok {
		return &stepper.UnsupportedResolutionError{Resolution: r}
	}
	if err := d.M1.Out(m.m1); err != nil {
		return fmt.Errorf("drv8834: m1: %w", err)
	}
	var err error
	switch m.m0 {
	case m0Low:
		err = d.M0.Out(gpio.Low)
	case m0High:
		err = d.M0.Out(gpio.High)
	case m0Float:
		err = d.M0.In(gpio.Float, gpio.NoEdge)
	}
	if err != nil {
		return fmt.Errorf("drv8834: m0: %w", err)
	}
	return nil
}
