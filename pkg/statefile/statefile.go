// Package statefile persists daemon status as a small JSON document.
//
// The file is rewritten wholesale on every change; readers tolerate a
// missing or corrupt file so a crashed daemon never wedges the CLI.
package statefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State names the daemon lifecycle phase recorded in the status file.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateError    State = "error"
)

// Data holds the per-tick payload merged into the status document.
type Data struct {
	HealthScore   int            `json:"health_score,omitempty"`
	ActiveContext string         `json:"active_context,omitempty"`
	Fallback      bool           `json:"fallback,omitempty"`
	Activity      map[string]any `json:"activity,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Status is the persisted daemon status document.
type Status struct {
	State      State     `json:"state"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
	LastUpdate time.Time `json:"last_update"`
	Error      string    `json:"error,omitempty"`
	Data       Data      `json:"data"`
}

// Logger is the minimal logging surface the store needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Store reads and writes the status file at a fixed path.
type Store struct {
	path   string
	logger Logger
}

// NewStore creates a store for the given path, creating parent
// directories as needed.
func NewStore(path string, logger Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{path: path, logger: logger}, nil
}

// Path returns the status file path.
func (s *Store) Path() string { return s.path }

// Write replaces the status file with the given document.
func (s *Store) Write(st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

// Read loads the current status. A missing file yields the zero Status
// with a stopped state; a corrupt file is logged and treated the same.
func (s *Store) Read() (Status, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Status{State: StateStopped}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("read status: %w", err)
	}

	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		if s.logger != nil {
			s.logger.Printf("corrupt status file %s: %v", s.path, err)
		}
		return Status{State: StateStopped}, nil
	}
	return st, nil
}

// Remove deletes the status file. Missing files are not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove status: %w", err)
	}
	return nil
}
