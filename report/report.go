// package report delivers drawing progress to the kiosk dashboard and
// to live viewers. Delivery is best effort: failures are logged and
// never reach the drawing robot.
package report

import (
	"encoding/json"
	"fmt"
	"sync"

	"drawbot.deeplocal.com/geom"
	"drawbot.deeplocal.com/plan"
)

type Kind int

const (
	Reset Kind = iota
	Drawing
	Error
	DrawLine
	Lines
	Log
)

var kindNames = [...]string{
	Reset:    "reset",
	Drawing:  "drawing",
	Error:    "error",
	DrawLine: "draw_line",
	Lines:    "lines",
	Log:      "log",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("report: invalid kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for i, n := range kindNames {
		if n == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("report: unknown kind %q", b)
}

// Event is a status notification. Line is set for DrawLine events,
// Lines for Lines events and Message for Log events. Run identifies
// the drawing the event belongs to, if any.
type Event struct {
	Kind    Kind
	Run     string
	Line    int
	Lines   []geom.Line
	Message string
}

type wireEvent struct {
	Kind    Kind            `json:"kind"`
	Run     string          `json:"run,omitempty"`
	Line    int             `json:"line,omitempty"`
	Lines   json.RawMessage `json:"plan,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Kind: e.Kind, Run: e.Run, Line: e.Line, Message: e.Message}
	if e.Kind == Lines {
		enc, err := plan.EncodeJSON(e.Lines)
		if err != nil {
			return nil, err
		}
		w.Lines = enc
	}
	return json.Marshal(w)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{Kind: w.Kind, Run: w.Run, Line: w.Line, Message: w.Message}
	if len(w.Lines) > 0 {
		lines, err := plan.DecodeJSON(w.Lines)
		if err != nil {
			return err
		}
		e.Lines = lines
	}
	return nil
}

// Reporter receives status events. Report must not block.
type Reporter interface {
	Report(e Event)
}

// Noop discards events.
type Noop struct{}

func (Noop) Report(e Event) {}

// Multi forwards events to every reporter.
type Multi []Reporter

func (m Multi) Report(e Event) {
	for _, r := range m {
		r.Report(e)
	}
}

// Switch forwards events to a reporter that can be replaced at any
// time, such as when a dashboard is selected after startup.
type Switch struct {
	mu sync.Mutex
	r  Reporter
}

func (s *Switch) Set(r Reporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r = r
}

func (s *Switch) Report(e Event) {
	s.mu.Lock()
	r := s.r
	s.mu.Unlock()
	if r != nil {
		r.Report(e)
	}
}
