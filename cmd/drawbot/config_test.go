package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"drawbot.deeplocal.com/motion"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drawbot.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `robot: bot7
driver: uln2003
left:
  coils: [GPIO1, GPIO2, GPIO3, GPIO4]
dashboards:
  - http://10.0.0.2:8008
  - http://10.0.0.3:8008
motion:
  drawscale: 2.5
timing:
  countdown: 3s
`)
	t.Setenv("DRAWBOT_LISTEN", ":9090")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Robot != "bot7" || cfg.Driver != "uln2003" {
		t.Errorf("robot %q driver %q, want bot7 uln2003", cfg.Robot, cfg.Driver)
	}
	if len(cfg.Left.Coils) != 4 || cfg.Left.Coils[3] != "GPIO4" {
		t.Errorf("left coils %v", cfg.Left.Coils)
	}
	if cfg.Right.Step != "GPIO19" {
		t.Errorf("right step pin %q, want the default GPIO19", cfg.Right.Step)
	}
	if len(cfg.Dashboards) != 2 {
		t.Errorf("dashboards %v", cfg.Dashboards)
	}
	if cfg.Motion.DrawScale != 2.5 {
		t.Errorf("draw scale %g, want 2.5", cfg.Motion.DrawScale)
	}
	if want := motion.DefaultParams().StepsPerMM; cfg.Motion.StepsPerMM != want {
		t.Errorf("steps per mm %g, want %g", cfg.Motion.StepsPerMM, want)
	}
	if want := 12 * time.Millisecond; cfg.Motion.MaxPeriod != want {
		t.Errorf("max period %v, want %v", cfg.Motion.MaxPeriod, want)
	}
	if cfg.Timing.Countdown != 3*time.Second || cfg.Timing.Debounce != 333*time.Millisecond {
		t.Errorf("timing %+v", cfg.Timing)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("listen %q, want the environment's :9090", cfg.Listen)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"Missing", filepath.Join(t.TempDir(), "missing.yaml")},
		{"Driver", writeConfig(t, "driver: a4988\n")},
		{"Scale", writeConfig(t, "motion:\n  drawscale: 0\n")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := loadConfig(test.path); err == nil {
				t.Error("loaded invalid configuration")
			}
		})
	}
}
