//go:build !linux

package calibration

import "errors"

// Watch is only supported on Linux.
func Watch(dir string, apply func(Calibration) error) (func() error, error) {
	return nil, errors.New("calibration: watching is not supported on this platform")
}
