package motion

import (
	"context"
	"errors"
	"image/color"
	"reflect"
	"testing"
	"time"

	"drawbot.deeplocal.com/calibration"
	"drawbot.deeplocal.com/geom"
	"drawbot.deeplocal.com/stepper"
)

type fakeDriver struct {
	dir      stepper.Direction
	steps    map[stepper.Direction]int
	failAt   int
	calls    int
	sleeping bool
}

func (f *fakeDriver) SetDirection(d stepper.Direction) error {
	f.dir = d
	return nil
}

func (f *fakeDriver) Step() error {
	f.calls++
	if f.calls == f.failAt {
		return errors.New("gpio write failed")
	}
	if f.steps == nil {
		f.steps = make(map[stepper.Direction]int)
	}
	f.steps[f.dir]++
	return nil
}

func (f *fakeDriver) SetResolution(r stepper.Resolution) error {
	return nil
}

func (f *fakeDriver) SetSleep(sleep bool) error {
	f.sleeping = sleep
	return nil
}

func (f *fakeDriver) total() int {
	return f.steps[stepper.Clockwise] + f.steps[stepper.CounterClockwise]
}

type fakePen struct {
	angles []int
}

func (p *fakePen) SetAngle(deg int) error {
	p.angles = append(p.angles, deg)
	return nil
}

type rig struct {
	left, right *fakeDriver
	pen         *fakePen
	colors      []color.RGBA
	slept       time.Duration
	c           *Controller
}

func newRig(cal calibration.Calibration) *rig {
	r := &rig{
		left:  new(fakeDriver),
		right: new(fakeDriver),
		pen:   new(fakePen),
	}
	r.c = &Controller{
		Left:        r.left,
		Right:       r.right,
		Pen:         r.pen,
		Calibration: calibration.NewHolder(cal),
		Params:      DefaultParams(),
		Status:      func(c color.RGBA) { r.colors = append(r.colors, c) },
		Sleep:       func(d time.Duration) { r.slept += d },
	}
	return r
}

func TestTurnSteps(t *testing.T) {
	p := DefaultParams()
	slop := calibration.Slop{RightFwd: 1, RightBack: 0, LeftFwd: 20, LeftBack: 5}
	tests := []struct {
		degrees float64
		slop    calibration.Slop
		want    int
	}{
		{90, calibration.Default().Slop, 418},
		{-90, calibration.Default().Slop, 418},
		{90, slop, 410},
		{-90, slop, 424},
		{0.1, calibration.Slop{RightBack: 5}, 0},
	}
	for _, test := range tests {
		if got := p.TurnSteps(test.degrees, test.slop); got != test.want {
			t.Errorf("TurnSteps(%g, %+v) = %d, want %d", test.degrees, test.slop, got, test.want)
		}
	}
}

func TestExecuteTurn(t *testing.T) {
	cal := calibration.Default()
	cal.Slop = calibration.Slop{RightFwd: 1, RightBack: 0, LeftFwd: 20, LeftBack: 5}
	prev := geom.L(geom.Pt(0, 0), geom.Pt(5, 0), 2)
	tests := []struct {
		name      string
		cur       geom.Line
		dir       stepper.Direction
		steps     int
		rightTurn bool
	}{
		{"right", geom.L(geom.Pt(5, 0), geom.Pt(5, 5), 1), stepper.CounterClockwise, 410, true},
		{"left", geom.L(geom.Pt(5, 0), geom.Pt(5, -5), 1), stepper.Clockwise, 424, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := newRig(cal)
			deg, err := r.c.ExecuteTurn(prev, test.cur)
			if err != nil {
				t.Fatal(err)
			}
			if (deg > 0) != test.rightTurn {
				t.Errorf("turned %g degrees", deg)
			}
			for _, d := range []*fakeDriver{r.left, r.right} {
				if got := d.steps[test.dir]; got != test.steps || d.total() != test.steps {
					t.Errorf("wheel stepped %v, want %d %v", d.steps, test.steps, test.dir)
				}
			}
			if want := []int{cal.Servo[0]}; !reflect.DeepEqual(r.pen.angles, want) {
				t.Errorf("pen angles %v, want %v", r.pen.angles, want)
			}
			if want := []color.RGBA{Blue}; !reflect.DeepEqual(r.colors, want) {
				t.Errorf("status %v, want %v", r.colors, want)
			}
		})
	}
}

func TestExecuteTurnStraight(t *testing.T) {
	r := newRig(calibration.Default())
	deg, err := r.c.ExecuteTurn(geom.L(geom.Pt(0, 0), geom.Pt(5, 0), 1), geom.L(geom.Pt(5, 0), geom.Pt(10, 0), 1))
	if err != nil || deg != 0 {
		t.Fatalf("collinear turn: %g, %v", deg, err)
	}
	if r.left.total() != 0 || r.right.total() != 0 || len(r.pen.angles) != 0 || r.slept != 0 {
		t.Errorf("collinear turn moved: %v %v %v", r.left.steps, r.right.steps, r.pen.angles)
	}
}

func TestBacklash(t *testing.T) {
	r := newRig(calibration.Default())
	r.c.Params.Backlash = 2
	prev := geom.L(geom.Pt(0, 0), geom.Pt(5, 0), 0)
	if _, err := r.c.ExecuteTurn(prev, geom.L(geom.Pt(5, 0), geom.Pt(5, 5), 0)); err != nil {
		t.Fatal(err)
	}
	if got, want := r.left.steps, map[stepper.Direction]int{stepper.CounterClockwise: 418}; !reflect.DeepEqual(got, want) {
		t.Errorf("left wheel %v, want %v", got, want)
	}
	want := map[stepper.Direction]int{stepper.CounterClockwise: 420, stepper.Clockwise: 2}
	if got := r.right.steps; !reflect.DeepEqual(got, want) {
		t.Errorf("right wheel %v, want %v", got, want)
	}
	if r.right.dir != stepper.Clockwise {
		t.Errorf("right wheel left facing %v", r.right.dir)
	}
}

func TestExecute(t *testing.T) {
	cal := calibration.Default()
	cal.Spacing = calibration.Spacing{Right: 5, Left: 30}
	r := newRig(cal)
	lines := []geom.Line{
		geom.L(geom.Pt(0, 0), geom.Pt(1, 0), 1),
		geom.L(geom.Pt(1, 0), geom.Pt(2, 0), 3),
		geom.L(geom.Pt(2, 0), geom.Pt(2, 1), 0),
	}
	var progress []int
	if err := r.c.Execute(context.Background(), lines, func(i int) { progress = append(progress, i) }); err != nil {
		t.Fatal(err)
	}
	if want := []int{0, 1, 2}; !reflect.DeepEqual(progress, want) {
		t.Errorf("progress %v, want %v", progress, want)
	}
	// 17 steps per unit line, 418 per right angle and 20 for the last
	// line, lengthened by the right spacing adjustment.
	if got, want := r.left.steps, map[stepper.Direction]int{stepper.CounterClockwise: 472}; !reflect.DeepEqual(got, want) {
		t.Errorf("left wheel %v, want %v", got, want)
	}
	if got, want := r.right.steps, map[stepper.Direction]int{stepper.Clockwise: 54, stepper.CounterClockwise: 418}; !reflect.DeepEqual(got, want) {
		t.Errorf("right wheel %v, want %v", got, want)
	}
	if want := []int{105, 65, 115, 115, 115}; !reflect.DeepEqual(r.pen.angles, want) {
		t.Errorf("pen angles %v, want %v", r.pen.angles, want)
	}
	if want := []color.RGBA{Yellow, Red, Blue, Cyan}; !reflect.DeepEqual(r.colors, want) {
		t.Errorf("status %v, want %v", r.colors, want)
	}
}

func TestExecuteCancel(t *testing.T) {
	r := newRig(calibration.Default())
	lines := []geom.Line{
		geom.L(geom.Pt(0, 0), geom.Pt(1, 0), 2),
		geom.L(geom.Pt(1, 0), geom.Pt(2, 0), 2),
		geom.L(geom.Pt(2, 0), geom.Pt(3, 0), 2),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := r.c.Execute(ctx, lines, func(i int) {
		if i == 1 {
			cancel()
		}
	})
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want ErrCancelled", err)
	}
	if r.left.total() != 34 || r.right.total() != 34 {
		t.Errorf("cancelled draw stepped %d/%d, want 34", r.left.total(), r.right.total())
	}
	if last := r.pen.angles[len(r.pen.angles)-1]; last != 115 {
		t.Errorf("pen left at %d after cancel", last)
	}
}

func TestExecuteHardwareError(t *testing.T) {
	r := newRig(calibration.Default())
	r.left.failAt = 5
	lines := []geom.Line{
		geom.L(geom.Pt(0, 0), geom.Pt(1, 0), 1),
		geom.L(geom.Pt(1, 0), geom.Pt(2, 0), 1),
	}
	if err := r.c.Execute(context.Background(), lines, nil); err != nil {
		t.Fatal(err)
	}
	// The first line is abandoned after 4 steps; the second completes.
	if r.left.total() != 21 || r.right.total() != 21 {
		t.Errorf("stepped %d/%d, want 21", r.left.total(), r.right.total())
	}
}

func TestCalibrationSwap(t *testing.T) {
	r := newRig(calibration.Default())
	if err := r.c.SetMarkerPressure(2); err != nil {
		t.Fatal(err)
	}
	cal := calibration.Default()
	cal.Servo = [calibration.Levels]int{90, 80, 70, 60}
	r.c.Calibration.Store(cal)
	if err := r.c.SetMarkerPressure(2); err != nil {
		t.Fatal(err)
	}
	if want := []int{80, 70}; !reflect.DeepEqual(r.pen.angles, want) {
		t.Errorf("pen angles %v, want %v", r.pen.angles, want)
	}
}

func TestSleepSteppers(t *testing.T) {
	r := newRig(calibration.Default())
	if err := r.c.SleepSteppers(true); err != nil {
		t.Fatal(err)
	}
	if !r.left.sleeping || !r.right.sleeping {
		t.Error("steppers not asleep")
	}
	if err := r.c.SleepSteppers(false); err != nil {
		t.Fatal(err)
	}
	if r.left.sleeping || r.right.sleeping {
		t.Error("steppers still asleep")
	}
}
