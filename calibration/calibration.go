// package calibration holds the per-robot tuning of the drawing robot:
// turn slop, spacing adjustment and pen servo angles.
package calibration

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"drawbot.deeplocal.com/geom"
)

// ErrMalformed is returned for calibration documents that are
// incomplete or out of range.
var ErrMalformed = errors.New("calibration: malformed document")

// Slop is the number of steps added (Fwd) and withheld (Back) when
// pivoting, per turn direction.
type Slop struct {
	RightFwd, RightBack int
	LeftFwd, LeftBack   int
}

// Spacing is the distance, in tenths of a millimeter, added to the
// pen-up move following a right or left pivot.
type Spacing struct {
	Right, Left int
}

// Levels is the number of pen pressure levels.
const Levels = geom.MaxWeight + 1

type Calibration struct {
	Slop    Slop
	Spacing Spacing
	// Servo maps a pressure level to a pen servo angle in degrees.
	Servo [Levels]int
}

func Default() Calibration {
	return Calibration{
		Slop: Slop{
			RightFwd:  12,
			RightBack: 3,
			LeftFwd:   12,
			LeftBack:  3,
		},
		Servo: [Levels]int{115, 105, 80, 65},
	}
}

// ServoAngle returns the servo angle for a pressure level, or 0 for
// levels out of range.
func (c Calibration) ServoAngle(level int) int {
	if level < 0 || level >= len(c.Servo) {
		return 0
	}
	return c.Servo[level]
}

// document is the JSON form of a calibration:
//
//	{
//	  "slopSteps": {"rightFwd": 12, "rightBack": 3, "leftFwd": 12, "leftBack": 3},
//	  "spacingAdjust": {"right": 0, "left": 0},
//	  "servoPos": [115, 105, 80, 65]
//	}
//
// Numbers may also be given as strings.
type document struct {
	SlopSteps *struct {
		RightFwd  *number `json:"rightFwd"`
		RightBack *number `json:"rightBack"`
		LeftFwd   *number `json:"leftFwd"`
		LeftBack  *number `json:"leftBack"`
	} `json:"slopSteps"`
	SpacingAdjust *struct {
		Right *number `json:"right"`
		Left  *number `json:"left"`
	} `json:"spacingAdjust"`
	ServoPos []number `json:"servoPos"`
}

// number is an integer encoded as a JSON number or a JSON string.
type number int

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	v, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*n = number(v)
	return nil
}

// Parse decodes a JSON calibration document. Documents with missing
// fields, non-integer values or servo angles outside [0, 180] are
// rejected as a whole with an error wrapping ErrMalformed.
func Parse(data []byte) (Calibration, error) {
	var c Calibration
	if err := json.Unmarshal(data, &c); err != nil {
		if !errors.Is(err, ErrMalformed) {
			err = fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Calibration{}, err
	}
	return c, nil
}

func (c *Calibration) UnmarshalJSON(data []byte) error {
	var d document
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	s, sp := d.SlopSteps, d.SpacingAdjust
	switch {
	case s == nil:
		return fmt.Errorf("%w: missing slopSteps", ErrMalformed)
	case s.RightFwd == nil || s.RightBack == nil || s.LeftFwd == nil || s.LeftBack == nil:
		return fmt.Errorf("%w: incomplete slopSteps", ErrMalformed)
	case sp == nil:
		return fmt.Errorf("%w: missing spacingAdjust", ErrMalformed)
	case sp.Right == nil || sp.Left == nil:
		return fmt.Errorf("%w: incomplete spacingAdjust", ErrMalformed)
	case len(d.ServoPos) != Levels:
		return fmt.Errorf("%w: %d servo positions, want %d", ErrMalformed, len(d.ServoPos), Levels)
	}
	parsed := Calibration{
		Slop: Slop{
			RightFwd:  int(*s.RightFwd),
			RightBack: int(*s.RightBack),
			LeftFwd:   int(*s.LeftFwd),
			LeftBack:  int(*s.LeftBack),
		},
		Spacing: Spacing{
			Right: int(*sp.Right),
			Left:  int(*sp.Left),
		},
	}
	for i, p := range d.ServoPos {
		if p < 0 || p > 180 {
			return fmt.Errorf("%w: servo position %d out of range: %d", ErrMalformed, i, p)
		}
		parsed.Servo[i] = int(p)
	}
	*c = parsed
	return nil
}

func (c Calibration) MarshalJSON() ([]byte, error) {
	type slop struct {
		RightFwd  int `json:"rightFwd"`
		RightBack int `json:"rightBack"`
		LeftFwd   int `json:"leftFwd"`
		LeftBack  int `json:"leftBack"`
	}
	type spacing struct {
		Right int `json:"right"`
		Left  int `json:"left"`
	}
	return json.Marshal(struct {
		SlopSteps     slop    `json:"slopSteps"`
		SpacingAdjust spacing `json:"spacingAdjust"`
		ServoPos      []int   `json:"servoPos"`
	}{
		SlopSteps:     slop(c.Slop),
		SpacingAdjust: spacing(c.Spacing),
		ServoPos:      c.Servo[:],
	})
}

// Holder holds the active calibration. Updates replace the whole
// record, so readers never observe a partial update.
type Holder struct {
	c atomic.Pointer[Calibration]
}

func NewHolder(c Calibration) *Holder {
	h := new(Holder)
	h.Store(c)
	return h
}

func (h *Holder) Load() Calibration {
	return *h.c.Load()
}

func (h *Holder) Store(c Calibration) {
	h.c.Store(&c)
}
