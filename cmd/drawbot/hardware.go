package main

import (
	"fmt"
	"image/color"
	"log"

	"drawbot.deeplocal.com/calibration"
	"drawbot.deeplocal.com/driver/apa102"
	"drawbot.deeplocal.com/driver/drv8834"
	"drawbot.deeplocal.com/driver/servo"
	"drawbot.deeplocal.com/driver/uln2003"
	"drawbot.deeplocal.com/motion"
	"drawbot.deeplocal.com/stepper"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type Hardware struct {
	Plotter *motion.Controller
	Light   *apa102.Device
	Button  gpio.PinIn
	pen     *servo.Servo
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("hardware: unknown pin %q", name)
	}
	return p, nil
}

func openStepper(driver string, pins StepperPins) (stepper.Driver, error) {
	switch driver {
	case "uln2003":
		if len(pins.Coils) != 4 {
			return nil, fmt.Errorf("hardware: uln2003 needs 4 coil pins, got %d", len(pins.Coils))
		}
		d := new(uln2003.Device)
		for i, name := range pins.Coils {
			p, err := pin(name)
			if err != nil {
				return nil, err
			}
			d.Pins[i] = p
		}
		if err := d.Configure(); err != nil {
			return nil, err
		}
		return d, nil
	default:
		d := new(drv8834.Device)
		for _, p := range []struct {
			name string
			pin  *gpio.PinOut
		}{
			{pins.Step, &d.StepPin},
			{pins.Dir, &d.DirPin},
			{pins.Sleep, &d.SleepPin},
		} {
			io, err := pin(p.name)
			if err != nil {
				return nil, err
			}
			*p.pin = io
		}
		if pins.M0 != "" && pins.M1 != "" {
			m0, err := pin(pins.M0)
			if err != nil {
				return nil, err
			}
			m1, err := pin(pins.M1)
			if err != nil {
				return nil, err
			}
			d.M0, d.M1 = m0, m1
		}
		if err := d.Configure(); err != nil {
			return nil, err
		}
		return d, nil
	}
}

// OpenHardware initializes the host drivers and the robot's motors,
// pen, status light and button.
func OpenHardware(cfg *Config, cal *calibration.Holder) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hardware: %w", err)
	}
	left, err := openStepper(cfg.Driver, cfg.Left)
	if err != nil {
		return nil, fmt.Errorf("left wheel: %w", err)
	}
	right, err := openStepper(cfg.Driver, cfg.Right)
	if err != nil {
		return nil, fmt.Errorf("right wheel: %w", err)
	}
	penPin, err := pin(cfg.Servo)
	if err != nil {
		return nil, err
	}
	button, err := pin(cfg.Button)
	if err != nil {
		return nil, err
	}
	led, err := apa102.Open(cfg.LED.SPI, cfg.LED.Count)
	if err != nil {
		return nil, err
	}
	led.Brightness = uint8(min(max(cfg.LED.Brightness, 0), apa102.MaxBrightness))
	hw := &Hardware{
		Light:  led,
		Button: button,
		pen:    servo.New(penPin),
	}
	hw.Plotter = &motion.Controller{
		Left:        left,
		Right:       right,
		Pen:         hw.pen,
		Calibration: cal,
		Params:      cfg.Motion,
		Status: func(c color.RGBA) {
			if err := led.Write(c); err != nil {
				log.Printf("hardware: %v", err)
			}
		},
	}
	return hw, nil
}

// Close lifts the pen, releases the motors and turns off the light.
func (h *Hardware) Close() error {
	if err := h.Plotter.SetMarkerPressure(0); err != nil {
		log.Printf("hardware: %v", err)
	}
	if err := h.Plotter.SleepSteppers(true); err != nil {
		log.Printf("hardware: %v", err)
	}
	if err := h.pen.Disable(); err != nil {
		log.Printf("hardware: %v", err)
	}
	if err := h.Light.Write(color.Black); err != nil {
		log.Printf("hardware: %v", err)
	}
	return h.Light.Close()
}
