package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional daemon tuning file .relay/config.yaml.
// All fields default when absent; the file itself is optional.
type FileConfig struct {
	TickSeconds            int    `yaml:"tick_seconds"`
	HealthIntervalSeconds  int    `yaml:"health_interval_seconds"`
	CleanupIntervalSeconds int    `yaml:"cleanup_interval_seconds"`
	ActivityWindowSeconds  int    `yaml:"activity_window_seconds"`
	DebounceMillis         int    `yaml:"debounce_ms"`
	Store                  string `yaml:"store"` // "file" (default) or "sqlite"
	MaxReadMessages        int    `yaml:"max_read_messages"`
}

// loadFileConfig reads the tuning file. A missing file yields the zero
// config; downstream consumers apply their own defaults.
func loadFileConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return FileConfig{}, nil
	}
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	switch cfg.Store {
	case "", "file", "sqlite":
	default:
		return FileConfig{}, fmt.Errorf("config %s: unknown store %q", path, cfg.Store)
	}
	return cfg, nil
}

// seconds converts a config value to a duration, 0 meaning "use default".
func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
