package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// Store persists calibrations keyed by robot identity in a JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() (map[string]Calibration, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Calibration{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	robots := make(map[string]Calibration)
	if err := json.Unmarshal(data, &robots); err != nil {
		return nil, fmt.Errorf("calibration: %s: %w", s.path, err)
	}
	return robots, nil
}

// Lookup returns the calibration of the robot with the given identity,
// or the default calibration if the robot is unknown.
func (s *Store) Lookup(id string) (Calibration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	robots, err := s.load()
	if err != nil {
		return Calibration{}, err
	}
	c, ok := robots[id]
	if !ok {
		return Default(), nil
	}
	return c, nil
}

// Save records the calibration of the robot with the given identity.
func (s *Store) Save(id string, c Calibration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	robots, err := s.load()
	if err != nil {
		return err
	}
	robots[id] = c
	data, err := json.MarshalIndent(robots, "", "  ")
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	return nil
}
