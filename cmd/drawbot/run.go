package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"drawbot.deeplocal.com/calibration"
	"drawbot.deeplocal.com/camera"
	"drawbot.deeplocal.com/face"
	"drawbot.deeplocal.com/input"
	"drawbot.deeplocal.com/report"
	"drawbot.deeplocal.com/robot"
)

type RunCommand struct {
	Photo string `long:"photo" description:"Take photos from an image file instead of the camera"`
}

// dashboards selects the dashboard that receives the robot's reports.
type dashboards struct {
	urls []string
	sw   *report.Switch

	mu  sync.Mutex
	cur *report.HTTP
}

func (d *dashboards) Select(index int) {
	if index >= len(d.urls) {
		log.Printf("drawbot: no dashboard %d of %d, reporting disabled", index, len(d.urls))
		d.sw.Set(nil)
		d.close()
		return
	}
	url := d.urls[index]
	h := report.NewHTTP(url)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Ping(ctx); err != nil {
		log.Printf("drawbot: dashboard %s: %v", url, err)
	} else {
		log.Printf("drawbot: reporting to %s", url)
	}
	d.sw.Set(h)
	d.mu.Lock()
	old := d.cur
	d.cur = h
	d.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (d *dashboards) close() {
	d.mu.Lock()
	old := d.cur
	d.cur = nil
	d.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	ver := Version
	if ver == "" {
		ver = "dev"
	}
	log.Printf("drawbot: %s version %s", cfg.Robot, ver)

	store := calibration.NewStore(cfg.Calibration.Store)
	cal, err := store.Lookup(cfg.Robot)
	if err != nil {
		return err
	}
	holder := calibration.NewHolder(cal)

	hw, err := OpenHardware(cfg, holder)
	if err != nil {
		return err
	}
	defer hw.Close()

	cascade, err := face.LoadCascade(cfg.Cascade)
	if err != nil {
		return err
	}
	var cam camera.Camera = &camera.V4L2{
		Device: cfg.Camera.Device,
		Size:   image.Pt(cfg.Camera.Width, cfg.Camera.Height),
		Warmup: cfg.Camera.Warmup,
	}
	if c.Photo != "" {
		cam = &camera.File{Path: c.Photo}
	}

	urls := cfg.Dashboards
	if len(urls) == 0 {
		urls, err = report.Discover(cfg.Discover)
		if err != nil {
			log.Printf("drawbot: dashboard discovery: %v", err)
		}
		log.Printf("drawbot: discovered %d dashboards", len(urls))
	}
	dash := &dashboards{urls: urls, sw: new(report.Switch)}
	defer dash.close()
	feed := report.NewFeed()

	m := robot.New(robot.Config{
		Plotter:     hw.Plotter,
		Camera:      cam,
		Faces:       &face.Pipeline{Locator: cascade},
		Light:       hw.Light,
		Reporter:    report.Multi{dash.sw, feed},
		Calibration: holder,
		Timing:      cfg.Timing,
		OnKiosk:     dash.Select,
	})
	defer m.Close()

	apply := func(c calibration.Calibration) error {
		if err := m.UpdateCalibration(c); err != nil {
			return err
		}
		return store.Save(cfg.Robot, c)
	}
	if dir := cfg.Calibration.Watch; dir != "" {
		stop, err := calibration.Watch(dir, apply)
		if err != nil {
			return err
		}
		defer stop()
	}
	if dev := cfg.Console; dev != "" {
		con, err := openConsole(dev, m, apply)
		if err != nil {
			return err
		}
		defer con.Close()
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("drawbot: %w", err)
	}
	srv := &http.Server{Handler: newServer(m, feed, holder, apply)}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("drawbot: server: %v", err)
		}
	}()
	defer srv.Close()
	if stop, err := report.Advertise(cfg.Robot, ln.Addr().(*net.TCPAddr).Port); err != nil {
		log.Printf("drawbot: %v", err)
	} else {
		defer stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	events := make(chan input.Event, 10)
	if err := input.Open(hw.Button, events); err != nil {
		return err
	}
	log.Printf("drawbot: ready, serving on %s", ln.Addr())
	for {
		select {
		case e := <-events:
			if e.Pressed {
				m.Press()
			}
		case <-ctx.Done():
			log.Printf("drawbot: shutting down")
			return nil
		}
	}
}
