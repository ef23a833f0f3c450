package robot

import (
	"fmt"
	"image/color"
)

type State int

const (
	SetupAwaitingFirstPress State = iota
	SetupCountingPresses
	IdleNoPhoto
	Capturing
	PlanReady
	Drawing
	Resetting
)

func (s State) String() string {
	switch s {
	case SetupAwaitingFirstPress:
		return "setup"
	case SetupCountingPresses:
		return "setup-counting"
	case IdleNoPhoto:
		return "idle"
	case Capturing:
		return "capturing"
	case PlanReady:
		return "plan-ready"
	case Drawing:
		return "drawing"
	case Resetting:
		return "resetting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode is the draw mode selected by counting presses during setup.
type Mode int

const (
	ModeUnset Mode = iota
	Kiosk0
	Kiosk1
	Kiosk2
	RightTurnTest
	LeftTurnTest
	PressureTest
)

func (m Mode) next() Mode {
	if m == ModeUnset || m >= PressureTest {
		return Kiosk0
	}
	return m + 1
}

// Kiosk returns the dashboard index of a kiosk mode.
func (m Mode) Kiosk() (int, bool) {
	if m >= Kiosk0 && m <= Kiosk2 {
		return int(m - Kiosk0), true
	}
	return 0, false
}

// flashes is the number of times the status light flashes to confirm
// the mode.
func (m Mode) flashes() int {
	return max(int(m), 1)
}

func (m Mode) String() string {
	switch m {
	case ModeUnset:
		return "unset"
	case Kiosk0, Kiosk1, Kiosk2:
		return fmt.Sprintf("kiosk-%d", int(m-Kiosk0))
	case RightTurnTest:
		return "right-turn-test"
	case LeftTurnTest:
		return "left-turn-test"
	case PressureTest:
		return "pressure-test"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Status light colors.
var (
	Black   = color.RGBA{A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red     = color.RGBA{R: 255, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, A: 255}
	Green   = color.RGBA{G: 255, A: 255}
	Blue    = color.RGBA{B: 255, A: 255}
	Magenta = color.RGBA{R: 255, B: 255, A: 255}
)
