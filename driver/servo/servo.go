// Package servo drives a hobby servo through a PWM capable pin.
package servo

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const (
	frequency = 50 * physic.Hertz
	period    = 20 * time.Millisecond
)

type Servo struct {
	Pin gpio.PinOut
	// MinPulse and MaxPulse are the pulse widths of the MinAngle
	// and MaxAngle positions.
	MinPulse, MaxPulse time.Duration
	MinAngle, MaxAngle int
}

// New returns a servo with pulse range 1-2 ms and angle range 0-180
// degrees.
func New(pin gpio.PinOut) *Servo {
	return &Servo{
		Pin:      pin,
		MinPulse: 1 * time.Millisecond,
		MaxPulse: 2 * time.Millisecond,
		MinAngle: 0,
		MaxAngle: 180,
	}
}

// Pulse returns the pulse width for an angle, clamped to the angle
// range.
func (s *Servo) Pulse(angle int) time.Duration {
	angle = max(s.MinAngle, min(s.MaxAngle, angle))
	span := s.MaxAngle - s.MinAngle
	if span == 0 {
		return s.MinPulse
	}
	return s.MinPulse + (s.MaxPulse-s.MinPulse)*time.Duration(angle-s.MinAngle)/time.Duration(span)
}

// SetAngle moves the servo to an angle in degrees.
func (s *Servo) SetAngle(angle int) error {
	duty := gpio.Duty(int64(gpio.DutyMax) * int64(s.Pulse(angle)) / int64(period))
	if err := s.Pin.PWM(duty, frequency); err != nil {
		return fmt.Errorf("servo: %w", err)
	}
	return nil
}

// Disable stops the pulses, letting the servo go limp.
func (s *Servo) Disable() error {
	if err := s.Pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("servo: %w", err)
	}
	return nil
}
