package main

import (
	"errors"
	"io"
	"log"
	"net/http"

	"drawbot.deeplocal.com/calibration"
	"drawbot.deeplocal.com/plan"
	"drawbot.deeplocal.com/report"
	"drawbot.deeplocal.com/robot"
)

// newServer returns the robot's HTTP interface: the live event feed,
// the current plan, a virtual button and the calibration.
func newServer(m *robot.Machine, feed *report.Feed, cal *calibration.Holder, apply func(calibration.Calibration) error) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/feed", feed)
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, m.State().String()+" "+m.Mode().String()+"\n")
	})
	mux.HandleFunc("GET /plan", func(w http.ResponseWriter, r *http.Request) {
		data, err := plan.EncodeJSON(m.Plan())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
	mux.HandleFunc("POST /press", func(w http.ResponseWriter, r *http.Request) {
		if !m.Press() {
			http.Error(w, "press ignored", http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, m.State().String()+"\n")
	})
	mux.HandleFunc("GET /calibration", func(w http.ResponseWriter, r *http.Request) {
		data, err := cal.Load().MarshalJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
	mux.HandleFunc("POST /calibration", func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c, err := calibration.Parse(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := apply(c); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, robot.ErrBusy) {
				status = http.StatusConflict
			}
			log.Printf("drawbot: calibration update: %v", err)
			http.Error(w, err.Error(), status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}
