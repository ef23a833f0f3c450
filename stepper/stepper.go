// package stepper defines the capabilities of a stepper motor driver
// and drives groups of motors through trapezoidal velocity ramps.
package stepper

import (
	"fmt"
	"iter"
	"time"
)

// Driver is a stepper motor driver. Step issues a single step in the
// current direction at the current resolution.
type Driver interface {
	SetDirection(d Direction) error
	Step() error
	SetResolution(r Resolution) error
	// SetSleep releases (true) or holds (false) the motor coils.
	SetSleep(sleep bool) error
}

type Direction int

const (
	Clockwise Direction = iota
	CounterClockwise
)

func (d Direction) Reverse() Direction {
	if d == Clockwise {
		return CounterClockwise
	}
	return Clockwise
}

func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "cw"
	case CounterClockwise:
		return "ccw"
	default:
		panic("invalid direction")
	}
}

// Resolution is the number of microsteps per full step.
type Resolution int

const (
	Full         Resolution = 1
	Half         Resolution = 2
	Quarter      Resolution = 4
	Eighth       Resolution = 8
	Sixteenth    Resolution = 16
	ThirtySecond Resolution = 32
)

// UnsupportedResolutionError is returned by drivers that cannot step
// at a requested resolution.
type UnsupportedResolutionError struct {
	Resolution Resolution
}

func (e *UnsupportedResolutionError) Error() string {
	return fmt.Sprintf("stepper: unsupported resolution 1/%d", int(e.Resolution))
}

// Ramp returns the step periods of an n step move with a trapezoidal
// velocity profile. The move starts at period dMax and accelerates by
// shortening the period by rate every step, until the period reaches
// dMin or half the steps are taken. It then cruises at the period
// reached and decelerates symmetrically back to dMax. Steps left over
// from rounding are taken at dMax.
//
// Short moves degrade to a triangular profile. The sequence has exactly
// n periods and never goes below dMin.
func Ramp(n int, dMax, dMin, rate time.Duration) iter.Seq[time.Duration] {
	return func(yield func(time.Duration) bool) {
		if n <= 0 {
			return
		}
		steps := 0
		d := dMax
		for d > dMin {
			if !yield(d) {
				return
			}
			steps++
			if steps > n/2 {
				break
			}
			d -= rate
		}
		d = max(d, dMin)
		for decel := n - steps; steps < decel; steps++ {
			if !yield(d) {
				return
			}
		}
		for ; d < dMax && steps < n; steps++ {
			if !yield(d) {
				return
			}
			d += rate
		}
		for ; steps < n; steps++ {
			if !yield(dMax) {
				return
			}
		}
	}
}

// Constant returns n step periods of d.
func Constant(n int, d time.Duration) iter.Seq[time.Duration] {
	return func(yield func(time.Duration) bool) {
		for range n {
			if !yield(d) {
				return
			}
		}
	}
}

// Run steps every driver in lock-step, once per period, waiting the
// period after each step. It stops at the first driver error and returns
// the number of completed steps. Motion is not rolled back.
func Run(periods iter.Seq[time.Duration], wait func(time.Duration), drivers ...Driver) (int, error) {
	steps := 0
	for d := range periods {
		for _, drv := range drivers {
			if err := drv.Step(); err != nil {
				return steps, fmt.Errorf("stepper: step %d: %w", steps, err)
			}
		}
		steps++
		wait(d)
	}
	return steps, nil
}
