package calibration

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	want := Slop{RightFwd: 12, RightBack: 3, LeftFwd: 12, LeftBack: 3}
	if c.Slop != want {
		t.Errorf("default slop %+v, want %+v", c.Slop, want)
	}
	if c.Spacing != (Spacing{}) {
		t.Errorf("default spacing %+v, want zero", c.Spacing)
	}
	for level, angle := range []int{115, 105, 80, 65} {
		if got := c.ServoAngle(level); got != angle {
			t.Errorf("ServoAngle(%d) = %d, want %d", level, got, angle)
		}
	}
	for _, level := range []int{-1, 4, 100} {
		if got := c.ServoAngle(level); got != 0 {
			t.Errorf("ServoAngle(%d) = %d, want 0", level, got)
		}
	}
}

func TestParse(t *testing.T) {
	const doc = `{
		"slopSteps": {"rightFwd": 10, "rightBack": "2", "leftFwd": 14, "leftBack": 4},
		"spacingAdjust": {"right": -3, "left": "5"},
		"lateralShift": {"right": 1, "left": 1},
		"servoPos": [120, "100", 85, 60]
	}`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	want := Calibration{
		Slop:    Slop{RightFwd: 10, RightBack: 2, LeftFwd: 14, LeftBack: 4},
		Spacing: Spacing{Right: -3, Left: 5},
		Servo:   [Levels]int{120, 100, 85, 60},
	}
	if c != want {
		t.Errorf("parsed %+v, want %+v", c, want)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"Syntax", `{"slopSteps":`},
		{"NotObject", `[1, 2, 3]`},
		{"MissingSlop", `{"spacingAdjust": {"right": 0, "left": 0}, "servoPos": [1, 2, 3, 4]}`},
		{"IncompleteSlop", `{"slopSteps": {"rightFwd": 1, "rightBack": 1, "leftFwd": 1}, "spacingAdjust": {"right": 0, "left": 0}, "servoPos": [1, 2, 3, 4]}`},
		{"MissingSpacing", `{"slopSteps": {"rightFwd": 1, "rightBack": 1, "leftFwd": 1, "leftBack": 1}, "servoPos": [1, 2, 3, 4]}`},
		{"ShortServo", `{"slopSteps": {"rightFwd": 1, "rightBack": 1, "leftFwd": 1, "leftBack": 1}, "spacingAdjust": {"right": 0, "left": 0}, "servoPos": [1, 2, 3]}`},
		{"ServoRange", `{"slopSteps": {"rightFwd": 1, "rightBack": 1, "leftFwd": 1, "leftBack": 1}, "spacingAdjust": {"right": 0, "left": 0}, "servoPos": [1, 2, 3, 181]}`},
		{"NotNumber", `{"slopSteps": {"rightFwd": "x", "rightBack": 1, "leftFwd": 1, "leftBack": 1}, "spacingAdjust": {"right": 0, "left": 0}, "servoPos": [1, 2, 3, 4]}`},
		{"Fraction", `{"slopSteps": {"rightFwd": 1.5, "rightBack": 1, "leftFwd": 1, "leftBack": 1}, "spacingAdjust": {"right": 0, "left": 0}, "servoPos": [1, 2, 3, 4]}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := Parse([]byte(test.doc))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse returned %v, want %v", err, ErrMalformed)
			}
			if c != (Calibration{}) {
				t.Errorf("Parse returned partial calibration %+v", c)
			}
		})
	}
}

func TestMarshalParse(t *testing.T) {
	c := Calibration{
		Slop:    Slop{RightFwd: 1, RightBack: 2, LeftFwd: 3, LeftBack: 4},
		Spacing: Spacing{Right: 5, Left: -6},
		Servo:   [Levels]int{90, 80, 70, 60},
	}
	data, err := c.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != c {
		t.Errorf("parsed %+v, want %+v", got, c)
	}
}

func TestStore(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "robots.json"))
	c, err := s.Lookup("b8:27:eb:00:00:01")
	if err != nil {
		t.Fatal(err)
	}
	if c != Default() {
		t.Errorf("unknown robot calibration %+v, want defaults", c)
	}
	custom := Default()
	custom.Slop.LeftBack = 7
	custom.Servo[3] = 50
	if err := s.Save("b8:27:eb:00:00:01", custom); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("b8:27:eb:00:00:02", Default()); err != nil {
		t.Fatal(err)
	}
	c, err = s.Lookup("b8:27:eb:00:00:01")
	if err != nil {
		t.Fatal(err)
	}
	if c != custom {
		t.Errorf("stored calibration %+v, want %+v", c, custom)
	}
	c, err = s.Lookup("unseen")
	if err != nil {
		t.Fatal(err)
	}
	if c != Default() {
		t.Errorf("unknown robot calibration %+v, want defaults", c)
	}
}

func TestHolder(t *testing.T) {
	h := NewHolder(Default())
	c := h.Load()
	c.Servo[0] = 1
	if h.Load().Servo[0] != 115 {
		t.Error("modifying a loaded calibration changed the held calibration")
	}
	h.Store(c)
	if h.Load() != c {
		t.Errorf("held %+v, want %+v", h.Load(), c)
	}
}
