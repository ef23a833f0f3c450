// package motion drives the two wheels and pen of the drawing robot
// along a plan of weighted lines.
package motion

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"iter"
	"log"
	"math"
	"time"

	"drawbot.deeplocal.com/calibration"
	"drawbot.deeplocal.com/geom"
	"drawbot.deeplocal.com/stepper"
)

var ErrCancelled = errors.New("motion: cancelled")

// Pen positions the marker.
type Pen interface {
	SetAngle(degrees int) error
}

type Params struct {
	// StepsPerMM converts straight moves to wheel steps.
	StepsPerMM float64
	// StepsPerDegree converts pivots to wheel steps.
	StepsPerDegree float64
	// DrawScale is the number of millimeters per plan unit.
	DrawScale float64
	// Step periods of the velocity ramp.
	MaxPeriod, MinPeriod, Rate time.Duration
	// Settle is the pause before and after a pivot.
	Settle time.Duration
	// Backlash is the number of steps taken on the reversing wheel, at
	// MaxPeriod, to take up gear slack before and after a pivot.
	Backlash int
}

func DefaultParams() Params {
	return Params{
		StepsPerMM:     4.46438,
		StepsPerDegree: 4.55,
		DrawScale:      4,
		MaxPeriod:      12 * time.Millisecond,
		MinPeriod:      1600 * time.Microsecond,
		Rate:           100 * time.Microsecond,
		Settle:         100 * time.Millisecond,
	}
}

// Status colors.
var (
	Blue   = color.RGBA{B: 255, A: 255}
	Cyan   = color.RGBA{G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, A: 255}
	Orange = color.RGBA{R: 255, G: 150, A: 255}
	Red    = color.RGBA{R: 255, A: 255}
)

// WeightColor is the status color shown while drawing a line of the
// given weight.
func WeightColor(weight int) color.RGBA {
	switch weight {
	case 1:
		return Yellow
	case 2:
		return Orange
	case 3:
		return Red
	default:
		return Cyan
	}
}

// Controller executes lines on a pair of wheel steppers. The wheels
// are mounted mirrored, so driving straight turns the left wheel
// counter-clockwise and the right wheel clockwise.
type Controller struct {
	Left, Right stepper.Driver
	Pen         Pen
	Calibration *calibration.Holder
	Params      Params
	// Status, if set, is called with the status color for each move.
	Status func(c color.RGBA)
	// Sleep defaults to time.Sleep.
	Sleep func(d time.Duration)
}

func (c *Controller) sleep(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
	} else {
		time.Sleep(d)
	}
}

func (c *Controller) status(col color.RGBA) {
	if c.Status != nil {
		c.Status(col)
	}
}

func (c *Controller) current() calibration.Calibration {
	if c.Calibration == nil {
		return calibration.Default()
	}
	return c.Calibration.Load()
}

// SetMarkerPressure moves the pen to the servo angle calibrated for
// the pressure level. Level 0 lifts the pen.
func (c *Controller) SetMarkerPressure(level int) error {
	return c.setPressure(c.current(), level)
}

func (c *Controller) setPressure(cal calibration.Calibration, level int) error {
	if err := c.Pen.SetAngle(cal.ServoAngle(level)); err != nil {
		return fmt.Errorf("motion: pen level %d: %w", level, err)
	}
	return nil
}

// SleepSteppers releases (true) or holds (false) the wheel motors.
func (c *Controller) SleepSteppers(sleep bool) error {
	if err := c.Left.SetSleep(sleep); err != nil {
		return fmt.Errorf("motion: left sleep: %w", err)
	}
	if err := c.Right.SetSleep(sleep); err != nil {
		return fmt.Errorf("motion: right sleep: %w", err)
	}
	return nil
}

// Steps returns the number of wheel steps of a straight move of mm
// millimeters.
func (p Params) Steps(mm float64) int {
	return int(mm * p.StepsPerMM)
}

// TurnSteps returns the number of wheel steps of a pivot, compensated
// for slop. Positive degrees turn right.
func (p Params) TurnSteps(degrees float64, slop calibration.Slop) int {
	steps := int(math.Abs(degrees * p.StepsPerDegree))
	if degrees < 0 {
		steps += slop.LeftFwd - slop.LeftBack
	} else {
		steps += slop.RightFwd - slop.RightBack
	}
	return max(steps, 0)
}

// ExecuteLine sets the pen pressure for the line weight and drives
// both wheels forward the length of the line.
func (c *Controller) ExecuteLine(l geom.Line) error {
	return c.line(c.current(), l, 0)
}

func (c *Controller) line(cal calibration.Calibration, l geom.Line, extra float64) error {
	if err := c.setPressure(cal, l.Weight); err != nil {
		return err
	}
	c.status(WeightColor(l.Weight))
	p := c.Params
	steps := p.Steps(l.Length()*p.DrawScale + extra)
	return c.drive(stepper.CounterClockwise, stepper.Clockwise, stepper.Ramp(steps, p.MaxPeriod, p.MinPeriod, p.Rate))
}

// ExecuteTurn lifts the pen and pivots in place from the heading of
// prev to the heading of cur. It returns the turn in degrees, positive
// for right turns.
func (c *Controller) ExecuteTurn(prev, cur geom.Line) (float64, error) {
	return c.turn(c.current(), prev, cur)
}

func (c *Controller) turn(cal calibration.Calibration, prev, cur geom.Line) (float64, error) {
	deg := geom.TurnAngle(prev.P1, cur.P1, cur.P2)
	if deg == 0 {
		return 0, nil
	}
	if err := c.setPressure(cal, 0); err != nil {
		return deg, err
	}
	c.status(Blue)
	p := c.Params
	// Both wheels turn the same way; the wheel reversing relative to a
	// straight move carries the backlash.
	dir, reversing, straight := stepper.CounterClockwise, c.Right, stepper.Clockwise
	if deg < 0 {
		dir, reversing, straight = stepper.Clockwise, c.Left, stepper.CounterClockwise
	}
	c.sleep(p.Settle)
	if p.Backlash > 0 {
		if err := c.single(reversing, dir, p.Backlash); err != nil {
			return deg, err
		}
	}
	steps := p.TurnSteps(deg, cal.Slop)
	if err := c.drive(dir, dir, stepper.Ramp(steps, p.MaxPeriod, p.MinPeriod, p.Rate)); err != nil {
		return deg, err
	}
	if p.Backlash > 0 {
		if err := c.single(reversing, straight, p.Backlash); err != nil {
			return deg, err
		}
	}
	c.sleep(p.Settle)
	return deg, nil
}

func (c *Controller) single(drv stepper.Driver, dir stepper.Direction, steps int) error {
	if err := drv.SetDirection(dir); err != nil {
		return fmt.Errorf("motion: %w", err)
	}
	if _, err := stepper.Run(stepper.Constant(steps, c.Params.MaxPeriod), c.sleep, drv); err != nil {
		return fmt.Errorf("motion: backlash: %w", err)
	}
	return nil
}

func (c *Controller) drive(left, right stepper.Direction, periods iter.Seq[time.Duration]) error {
	if err := c.Left.SetDirection(left); err != nil {
		return fmt.Errorf("motion: left direction: %w", err)
	}
	if err := c.Right.SetDirection(right); err != nil {
		return fmt.Errorf("motion: right direction: %w", err)
	}
	c.sleep(c.Params.MaxPeriod / 2)
	if _, err := stepper.Run(periods, c.sleep, c.Left, c.Right); err != nil {
		return fmt.Errorf("motion: %w", err)
	}
	return nil
}

// Execute draws lines in order, pivoting between them. Progress, if
// not nil, is called with the index of each line before it is drawn.
// The calibration is read once, at the start. Cancellation of ctx is
// checked before every pivot and every line; a cancelled draw lifts the
// pen and returns ErrCancelled. Hardware errors abandon the failing
// move, are logged and the draw continues with the next line.
func (c *Controller) Execute(ctx context.Context, lines []geom.Line, progress func(i int)) error {
	cal := c.current()
	defer func() {
		if err := c.setPressure(cal, 0); err != nil {
			log.Printf("motion: %v", err)
		}
	}()
	for i, l := range lines {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w at line %d: %w", ErrCancelled, i, err)
		}
		var deg float64
		if i > 0 {
			d, err := c.turn(cal, lines[i-1], l)
			if err != nil {
				log.Printf("motion: line %d: turn: %v", i, err)
			}
			deg = d
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w at line %d: %w", ErrCancelled, i, err)
			}
		}
		if progress != nil {
			progress(i)
		}
		if err := c.line(cal, l, spacing(cal.Spacing, deg, l.Weight)); err != nil {
			log.Printf("motion: line %d: %v", i, err)
		}
	}
	return nil
}

// spacing returns the extra millimeters added to a pen-up move that
// follows a pivot.
func spacing(s calibration.Spacing, deg float64, weight int) float64 {
	if weight != 0 {
		return 0
	}
	switch {
	case deg > 0:
		return float64(s.Right) / 10
	case deg < 0:
		return float64(s.Left) / 10
	}
	return 0
}
