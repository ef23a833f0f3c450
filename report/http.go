package report

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"drawbot.deeplocal.com/plan"
)

// HTTP delivers events to a kiosk dashboard server:
//
//	GET  /reset, /drawing, /error
//	GET  /draw_line?line=N
//	POST /lines   (form field "lines": the plan as JSON)
//	POST /log     (form field "message")
//
// Events are queued and sent in order by a background goroutine. When
// the queue is full, new events are dropped.
type HTTP struct {
	base   string
	client *http.Client
	queue  chan Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

const (
	queueSize      = 64
	requestTimeout = 5 * time.Second
)

// NewHTTP starts a reporter for the dashboard at base, such as
// "http://192.168.1.10:8008".
func NewHTTP(base string) *HTTP {
	h := &HTTP{
		base:   strings.TrimSuffix(base, "/"),
		client: &http.Client{Timeout: requestTimeout},
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *HTTP) run() {
	defer close(h.done)
	for e := range h.queue {
		if err := h.send(context.Background(), e); err != nil {
			log.Printf("report: %s: %v", e.Kind, err)
		}
	}
}

func (h *HTTP) Report(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.queue <- e:
	default:
		log.Printf("report: queue full, dropping %s", e.Kind)
	}
}

// Close stops accepting events and waits for the queued ones to be
// delivered.
func (h *HTTP) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()
	<-h.done
}

// Ping checks that the dashboard answers "pong".
func (h *HTTP) Ping(ctx context.Context) error {
	body, err := h.do(ctx, http.MethodGet, "/ping", nil)
	if err != nil {
		return err
	}
	if body != "pong" {
		return fmt.Errorf("report: unexpected ping reply %q", body)
	}
	return nil
}

func (h *HTTP) send(ctx context.Context, e Event) error {
	switch e.Kind {
	case Reset, Drawing, Error:
		_, err := h.do(ctx, http.MethodGet, "/"+e.Kind.String(), nil)
		return err
	case DrawLine:
		_, err := h.do(ctx, http.MethodGet, "/draw_line?line="+strconv.Itoa(e.Line), nil)
		return err
	case Lines:
		enc, err := plan.EncodeJSON(e.Lines)
		if err != nil {
			return err
		}
		_, err = h.do(ctx, http.MethodPost, "/lines", url.Values{"lines": {string(enc)}})
		return err
	case Log:
		_, err := h.do(ctx, http.MethodPost, "/log", url.Values{"message": {e.Message}})
		return err
	default:
		return fmt.Errorf("report: unknown event %v", e.Kind)
	}
}

func (h *HTTP) do(ctx context.Context, method, path string, form url.Values) (string, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, h.base+path, body)
	if err != nil {
		return "", err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	reply, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("report: %s %s: %s", method, path, resp.Status)
	}
	return strings.TrimSpace(string(reply)), nil
}
