package report

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Feed serves events to websocket viewers as JSON messages. Viewers
// that fall behind lose events rather than slow the robot down.
type Feed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	viewers map[*viewer]struct{}
	// last is replayed to new viewers so they see the current plan.
	last *Event
}

type viewer struct {
	conn   *websocket.Conn
	events chan Event
}

const (
	viewerBuffer = 32
	writeTimeout = 5 * time.Second
)

func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		viewers: make(map[*viewer]struct{}),
	}
}

func (f *Feed) Report(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.Kind == Lines {
		f.last = &e
	}
	for v := range f.viewers {
		select {
		case v.events <- e:
		default:
		}
	}
}

// Viewers returns the number of connected viewers.
func (f *Feed) Viewers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.viewers)
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("report: feed: %v", err)
		return
	}
	v := &viewer{conn: conn, events: make(chan Event, viewerBuffer)}
	f.mu.Lock()
	if f.last != nil {
		v.events <- *f.last
	}
	f.viewers[v] = struct{}{}
	f.mu.Unlock()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// Drain control frames; viewers never send data.
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	defer func() {
		f.mu.Lock()
		delete(f.viewers, v)
		f.mu.Unlock()
		conn.Close()
	}()
	for {
		select {
		case e := <-v.events:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
