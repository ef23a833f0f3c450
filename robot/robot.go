// package robot implements the button driven state machine of the
// drawing robot: setup, photo capture, drawing and cancellation.
package robot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"
	"time"

	"drawbot.deeplocal.com/calibration"
	"drawbot.deeplocal.com/camera"
	"drawbot.deeplocal.com/face"
	"drawbot.deeplocal.com/geom"
	"drawbot.deeplocal.com/lineart"
	"drawbot.deeplocal.com/plan"
	"drawbot.deeplocal.com/report"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrBusy is returned when a draw is already in progress.
	ErrBusy   = errors.New("robot: busy drawing")
	ErrNoFace = face.ErrNoFace
	// ErrState is returned for operations that don't apply to the
	// current state.
	ErrState = errors.New("robot: invalid state")
)

// Plotter executes drawing plans.
type Plotter interface {
	Execute(ctx context.Context, lines []geom.Line, progress func(i int)) error
	SetMarkerPressure(level int) error
	SleepSteppers(sleep bool) error
}

// Preparer turns a photo into the face image to draw.
type Preparer interface {
	Prepare(photo *image.Gray) (*image.Gray, error)
}

// Light is the status indicator.
type Light interface {
	Write(colors ...color.Color) error
}

type Timing struct {
	// Debounce is the window after a press in which further presses
	// are ignored.
	Debounce time.Duration
	// Countdown is the setup period during which presses select the
	// draw mode.
	Countdown time.Duration
	// DrawDelay separates the press starting a draw from the first
	// motion.
	DrawDelay time.Duration
	// Settle is the pause after a cancelled draw.
	Settle time.Duration
	// Flash and FlashGap are the on and off times of a status flash.
	Flash, FlashGap time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Debounce:  333 * time.Millisecond,
		Countdown: 5 * time.Second,
		DrawDelay: 3 * time.Second,
		Settle:    time.Second,
		Flash:     200 * time.Millisecond,
		FlashGap:  500 * time.Millisecond,
	}
}

type Config struct {
	Plotter     Plotter
	Camera      camera.Camera
	Faces       Preparer
	Light       Light
	Reporter    report.Reporter
	Calibration *calibration.Holder
	// Clock defaults to the real clock.
	Clock  clockwork.Clock
	Timing Timing
	// OnKiosk is called when setup completes in a kiosk mode, with the
	// index of the selected dashboard.
	OnKiosk func(index int)
	// OnTransition is called for every state change, with the machine
	// locked. It must not call the Machine.
	OnTransition func(from, to State)
}

type Machine struct {
	cfg  Config
	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu        sync.Mutex
	state     State
	mode      Mode
	counting  bool
	pressed   bool
	lastPress time.Time
	plan      []geom.Line
	// cancel and drawDone are set from the start of a draw until the
	// machine is idle again.
	cancel   context.CancelFunc
	drawDone chan struct{}
}

func New(cfg Config) *Machine {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = report.Noop{}
	}
	if cfg.Faces == nil {
		cfg.Faces = new(face.Pipeline)
	}
	if cfg.Calibration == nil {
		cfg.Calibration = calibration.NewHolder(calibration.Default())
	}
	m := &Machine{cfg: cfg}
	m.ctx, m.stop = context.WithCancel(context.Background())
	m.light(White)
	return m
}

// Close cancels any drawing and waits for background work to finish.
func (m *Machine) Close() {
	m.stop()
	m.wg.Wait()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Plan returns the current drawing plan.
func (m *Machine) Plan() []geom.Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plan
}

func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	log.Printf("robot: %v -> %v", from, to)
	if m.cfg.OnTransition != nil {
		m.cfg.OnTransition(from, to)
	}
}

func (m *Machine) light(c color.Color) {
	if m.cfg.Light == nil {
		return
	}
	if err := m.cfg.Light.Write(c); err != nil {
		log.Printf("robot: light: %v", err)
	}
}

func (m *Machine) flash(n int, on, off color.Color) {
	t := m.cfg.Timing
	for range n {
		m.light(on)
		m.cfg.Clock.Sleep(t.Flash)
		m.light(off)
		m.cfg.Clock.Sleep(t.FlashGap)
	}
}

func (m *Machine) report(e report.Event) {
	m.cfg.Reporter.Report(e)
}

// goBackground runs f in the background, tracked by Close.
func (m *Machine) goBackground(f func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		f()
	}()
}

// Press handles a button press. It reports whether the press was
// accepted, that is, not swallowed by the debounce window.
func (m *Machine) Press() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.cfg.Clock.Now()
	if m.pressed && now.Sub(m.lastPress) < m.cfg.Timing.Debounce {
		return false
	}
	m.pressed, m.lastPress = true, now
	switch m.state {
	case SetupAwaitingFirstPress:
		m.transition(SetupCountingPresses)
		m.counting = true
		m.goBackground(m.countdown)
		fallthrough
	case SetupCountingPresses:
		if !m.counting {
			log.Printf("robot: ignoring press after setup countdown")
			break
		}
		m.mode = m.mode.next()
		log.Printf("robot: setup: draw mode %v", m.mode)
		m.goBackground(func() {
			t := m.cfg.Timing
			m.light(Blue)
			m.cfg.Clock.Sleep(t.FlashGap)
			m.light(White)
			m.cfg.Clock.Sleep(t.FlashGap)
		})
	case IdleNoPhoto:
		m.capture()
	case PlanReady:
		if len(m.plan) == 0 {
			log.Printf("robot: empty plan")
			m.idle()
			break
		}
		if err := m.startDraw(); err != nil {
			log.Printf("robot: %v", err)
		}
	case Drawing:
		log.Printf("robot: cancelling draw")
		m.cancelDraw()
	case Capturing, Resetting:
		// Presses while capturing or resetting are deliberately
		// ignored.
		log.Printf("robot: ignoring press while %v", m.state)
	}
	return true
}

func (m *Machine) countdown() {
	t := m.cfg.Timing
	select {
	case <-m.cfg.Clock.After(t.Countdown):
	case <-m.ctx.Done():
		return
	}
	m.mu.Lock()
	m.counting = false
	mode := m.mode
	m.mu.Unlock()

	m.light(Black)
	m.cfg.Clock.Sleep(2 * t.FlashGap)
	m.flash(mode.flashes(), Blue, Black)
	m.report(report.Event{Kind: report.Log, Message: "draw mode " + mode.String()})
	kiosk, isKiosk := mode.Kiosk()
	if isKiosk && m.cfg.OnKiosk != nil {
		m.cfg.OnKiosk(kiosk)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch mode {
	case RightTurnTest:
		m.ready(plan.SquareTest(true))
	case LeftTurnTest:
		m.ready(plan.SquareTest(false))
	case PressureTest:
		m.ready(plan.PressureTest())
	default:
		m.report(report.Event{Kind: report.Reset})
		m.transition(IdleNoPhoto)
		m.light(Red)
	}
}

func (m *Machine) ready(lines []geom.Line) {
	m.plan = lines
	m.transition(PlanReady)
	m.light(Green)
}

// idle drops the plan and releases the motors.
func (m *Machine) idle() {
	m.plan = nil
	if err := m.cfg.Plotter.SleepSteppers(true); err != nil {
		log.Printf("robot: %v", err)
	}
	m.report(report.Event{Kind: report.Reset})
	m.transition(IdleNoPhoto)
	m.light(Red)
}

func (m *Machine) capture() {
	m.transition(Capturing)
	m.light(Yellow)
	ctx := m.ctx
	m.goBackground(func() {
		img, err := m.cfg.Camera.Capture(ctx)
		if err := m.PhotoReady(img, err); err != nil {
			log.Printf("robot: %v", err)
		}
	})
}

// PhotoReady delivers the result of a capture. The photo is turned
// into a drawing plan and the machine waits for the press that starts
// drawing. Failed captures and photos without a face return the
// machine to idle.
func (m *Machine) PhotoReady(photo *image.Gray, captureErr error) error {
	if st := m.State(); st != Capturing {
		return fmt.Errorf("%w: photo while %v", ErrState, st)
	}
	var lines []geom.Line
	err := captureErr
	if err == nil {
		var img *image.Gray
		img, err = m.cfg.Faces.Prepare(photo)
		if err == nil {
			lines = plan.Assemble(lineart.Generate(img), img.Bounds().Size())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Capturing {
		return fmt.Errorf("%w: photo while %v", ErrState, m.state)
	}
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			m.report(report.Event{Kind: report.Log, Message: "No faces"})
		}
		m.report(report.Event{Kind: report.Error})
		m.transition(IdleNoPhoto)
		m.light(Red)
		return err
	}
	m.report(report.Event{Kind: report.Lines, Lines: lines})
	m.ready(lines)
	return nil
}

// Draw starts drawing the current plan.
func (m *Machine) Draw() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return ErrBusy
	}
	if m.state != PlanReady {
		return fmt.Errorf("%w: draw while %v", ErrState, m.state)
	}
	if len(m.plan) == 0 {
		return fmt.Errorf("%w: empty plan", ErrState)
	}
	return m.startDraw()
}

func (m *Machine) startDraw() error {
	if m.cancel != nil {
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(m.ctx)
	done := make(chan struct{})
	m.cancel, m.drawDone = cancel, done
	run := uuid.NewString()
	lines := m.plan
	log.Printf("robot: drawing %d lines, run %s", len(lines), run)
	m.report(report.Event{Kind: report.Drawing, Run: run})
	m.transition(Drawing)
	m.goBackground(func() {
		defer close(done)
		m.draw(ctx, run, lines)
	})
	return nil
}

func (m *Machine) draw(ctx context.Context, run string, lines []geom.Line) {
	m.light(Magenta)
	select {
	case <-m.cfg.Clock.After(m.cfg.Timing.DrawDelay):
	case <-ctx.Done():
		return
	}
	m.light(Blue)
	p := m.cfg.Plotter
	if err := p.SleepSteppers(false); err != nil {
		log.Printf("robot: %v", err)
	}
	err := p.Execute(ctx, lines, func(i int) {
		m.report(report.Event{Kind: report.DrawLine, Run: run, Line: i})
	})
	if ctx.Err() != nil {
		// cancelDraw takes it from here.
		return
	}
	if err != nil {
		log.Printf("robot: run %s: %v", run, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Drawing {
		return
	}
	log.Printf("robot: run %s complete", run)
	m.cancel()
	m.cancel, m.drawDone = nil, nil
	m.idle()
}

func (m *Machine) cancelDraw() {
	m.transition(Resetting)
	m.cancel()
	done := m.drawDone
	m.plan = nil
	m.report(report.Event{Kind: report.Reset})
	m.goBackground(func() {
		<-done
		p := m.cfg.Plotter
		if err := p.SetMarkerPressure(0); err != nil {
			log.Printf("robot: %v", err)
		}
		if err := p.SleepSteppers(true); err != nil {
			log.Printf("robot: %v", err)
		}
		select {
		case <-m.cfg.Clock.After(m.cfg.Timing.Settle):
		case <-m.ctx.Done():
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cancel, m.drawDone = nil, nil
		m.transition(IdleNoPhoto)
		m.light(Red)
	})
}

// UpdateCalibration replaces the robot calibration. Updates are
// rejected with ErrBusy while a draw is in progress.
func (m *Machine) UpdateCalibration(c calibration.Calibration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return ErrBusy
	}
	m.cfg.Calibration.Store(c)
	log.Printf("robot: calibration updated")
	return nil
}
