// package input implements an input driver for the drawing robot's
// push button.
package input

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

type Event struct {
	Pressed bool
}

// debounceTimeout is how long the button level must be stable before
// an event is sent.
const debounceTimeout = 10 * time.Millisecond

// Open configures pin as a pulled up input, pressed when low, and
// sends its debounced events on ch.
func Open(pin gpio.PinIn, ch chan<- Event) error {
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return fmt.Errorf("input: %s: %w", pin, err)
	}
	go func() {
		pressed := false
		newPressed := false
		for {
			// Wait forever for event, except if we're waiting for
			// the debounce timeout.
			timeout := debounceTimeout
			if newPressed == pressed {
				timeout = -1
			}
			if pin.WaitForEdge(timeout) {
				newPressed = pin.Read() == gpio.Low
			} else {
				// Debounce timeout; ok to send event.
				if newPressed != pressed {
					pressed = newPressed
					ch <- Event{Pressed: pressed}
				}
			}
		}
	}()
	return nil
}
