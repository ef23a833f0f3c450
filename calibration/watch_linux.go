package calibration

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Watch watches dir for calibration documents. Every JSON file written
// or moved into dir is parsed and passed to apply. Malformed documents
// and updates rejected by apply are logged and otherwise ignored.
// Watching stops when the returned function is called.
func Watch(dir string, apply func(Calibration) error) (func() error, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("calibration: inotify_init1: %w", err)
	}
	f := os.NewFile(uintptr(fd), "inotify")
	var flags uint32 = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO
	if _, err = unix.InotifyAddWatch(fd, dir, flags); err != nil {
		f.Close()
		return nil, fmt.Errorf("calibration: inotify_add_watch: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Make room for 100 events plus paths and their NUL terminator.
		var buf [(unix.SizeofInotifyEvent + unix.PathMax + 1) * 100]byte
		for {
			n, err := f.Read(buf[:])
			if err != nil {
				if !errors.Is(err, os.ErrClosed) {
					log.Printf("calibration: watch %s: %v", dir, err)
				}
				return
			}
			evts := buf[:n]
			for len(evts) > 0 {
				evt := (*unix.InotifyEvent)(unsafe.Pointer(&evts[0]))
				evts = evts[unix.SizeofInotifyEvent:]
				var name string
				if evt.Len > 0 {
					// Extract name, without NUL terminator.
					nameb := evts[:evt.Len-1]
					evts = evts[evt.Len:]
					// Kernel pads name with NULs. Trim them.
					nameb = bytes.TrimRight(nameb, "\000")
					name = string(nameb)
				}
				if filepath.Ext(name) != ".json" {
					continue
				}
				update(filepath.Join(dir, name), apply)
			}
		}
	}()
	return func() error {
		err := f.Close()
		<-done
		return err
	}, nil
}

func update(path string, apply func(Calibration) error) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("calibration: %v", err)
		return
	}
	c, err := Parse(data)
	if err != nil {
		log.Printf("calibration: %s: %v", path, err)
		return
	}
	if err := apply(c); err != nil {
		log.Printf("calibration: %s: update rejected: %v", path, err)
		return
	}
	log.Printf("calibration: updated from %s", path)
}
