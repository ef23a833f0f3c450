package main

import (
	"fmt"
	"os"
	"path/filepath"

	"drawbot.deeplocal.com/calibration"
)

type CalibrateCommand struct {
	Robot string `long:"robot" description:"Robot identity (default from the configuration)"`
	Apply bool   `long:"apply" description:"Also hand the calibration to the running robot through the watched directory"`
	Args  struct {
		File string `positional-arg-name:"calibration.json"`
	} `positional-args:"yes"`
}

// Execute prints the stored calibration of the robot, or replaces it
// with the calibration document given as argument.
func (c *CalibrateCommand) Execute(args []string) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	id := c.Robot
	if id == "" {
		id = cfg.Robot
	}
	store := calibration.NewStore(cfg.Calibration.Store)
	if c.Args.File == "" {
		cal, err := store.Lookup(id)
		if err != nil {
			return err
		}
		data, err := cal.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", data)
		return nil
	}
	data, err := os.ReadFile(c.Args.File)
	if err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	cal, err := calibration.Parse(data)
	if err != nil {
		return fmt.Errorf("calibrate: %s: %w", c.Args.File, err)
	}
	if err := store.Save(id, cal); err != nil {
		return err
	}
	if c.Apply {
		return dropCalibration(cfg.Calibration.Watch, data)
	}
	return nil
}

// dropCalibration moves a calibration document into the watched
// directory in one step, so the watcher never sees a partial file.
func dropCalibration(dir string, data []byte) error {
	if dir == "" {
		return fmt.Errorf("calibrate: no calibration directory configured")
	}
	tmp, err := os.CreateTemp(filepath.Dir(filepath.Clean(dir)), ".calibration-*.json")
	if err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("calibrate: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, "calibration.json")); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	return nil
}
