package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"drawbot.deeplocal.com/motion"
	"drawbot.deeplocal.com/robot"
	"github.com/spf13/viper"
)

// Config is the daemon configuration. It is read from drawbot.yaml (or
// any other format viper understands) and DRAWBOT_ environment
// variables, such as DRAWBOT_ROBOT or DRAWBOT_MOTION_DRAWSCALE.
type Config struct {
	// Robot identifies the robot in the calibration store and in
	// service announcements.
	Robot string
	// Driver selects the stepper driver: drv8834 or uln2003.
	Driver      string
	Left, Right StepperPins
	Servo       string
	Button      string
	LED         struct {
		SPI        string
		Count      int
		Brightness int
	}
	Camera struct {
		Device        string
		Width, Height int
		Warmup        int
	}
	// Cascade is the face detection cascade file.
	Cascade     string
	Calibration struct {
		// Store is the file of calibrations by robot.
		Store string
		// Watch is the directory watched for calibration updates.
		Watch string
	}
	// Dashboards are the dashboard base URLs, selected by kiosk mode.
	// When empty, dashboards are discovered with mDNS.
	Dashboards []string
	Discover   time.Duration
	// Listen is the address of the live feed and control server.
	Listen string
	// Console is the serial device of the debug console.
	Console string
	Motion  motion.Params
	Timing  robot.Timing
}

// StepperPins names the GPIO pins of a wheel stepper. Step, Dir, Sleep,
// M0 and M1 are DRV8834 pins, Coils the ULN2003 inputs.
type StepperPins struct {
	Step, Dir, Sleep string
	M0, M1           string
	Coils            []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("robot", "drawbot")
	v.SetDefault("driver", "drv8834")
	v.SetDefault("left.step", "GPIO20")
	v.SetDefault("left.dir", "GPIO21")
	v.SetDefault("left.sleep", "GPIO16")
	v.SetDefault("left.m0", "")
	v.SetDefault("left.m1", "")
	v.SetDefault("left.coils", []string{})
	v.SetDefault("right.step", "GPIO19")
	v.SetDefault("right.dir", "GPIO26")
	v.SetDefault("right.sleep", "GPIO13")
	v.SetDefault("right.m0", "")
	v.SetDefault("right.m1", "")
	v.SetDefault("right.coils", []string{})
	v.SetDefault("servo", "GPIO18")
	v.SetDefault("button", "GPIO17")
	v.SetDefault("led.spi", "")
	v.SetDefault("led.count", 1)
	v.SetDefault("led.brightness", 8)
	v.SetDefault("camera.device", "/dev/video0")
	v.SetDefault("camera.width", 320)
	v.SetDefault("camera.height", 224)
	v.SetDefault("camera.warmup", 5)
	v.SetDefault("cascade", "/etc/drawbot/facefinder")
	v.SetDefault("calibration.store", "/var/lib/drawbot/calibration.json")
	v.SetDefault("calibration.watch", "")
	v.SetDefault("dashboards", []string{})
	v.SetDefault("discover", 3*time.Second)
	v.SetDefault("listen", ":8080")
	v.SetDefault("console", "")

	p := motion.DefaultParams()
	v.SetDefault("motion.stepspermm", p.StepsPerMM)
	v.SetDefault("motion.stepsperdegree", p.StepsPerDegree)
	v.SetDefault("motion.drawscale", p.DrawScale)
	v.SetDefault("motion.maxperiod", p.MaxPeriod)
	v.SetDefault("motion.minperiod", p.MinPeriod)
	v.SetDefault("motion.rate", p.Rate)
	v.SetDefault("motion.settle", p.Settle)
	v.SetDefault("motion.backlash", p.Backlash)

	t := robot.DefaultTiming()
	v.SetDefault("timing.debounce", t.Debounce)
	v.SetDefault("timing.countdown", t.Countdown)
	v.SetDefault("timing.drawdelay", t.DrawDelay)
	v.SetDefault("timing.settle", t.Settle)
	v.SetDefault("timing.flash", t.Flash)
	v.SetDefault("timing.flashgap", t.FlashGap)
}

// loadConfig reads the configuration from path, or from drawbot.* in
// the working directory or /etc/drawbot if path is empty. A missing
// default configuration file is not an error.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("drawbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("drawbot")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/drawbot")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	switch cfg.Driver {
	case "drv8834", "uln2003":
	default:
		return nil, fmt.Errorf("config: unknown stepper driver %q", cfg.Driver)
	}
	if cfg.Motion.DrawScale <= 0 {
		return nil, fmt.Errorf("config: non-positive draw scale %g", cfg.Motion.DrawScale)
	}
	return cfg, nil
}
