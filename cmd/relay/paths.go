package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// relayDir is the state directory name under the project root.
const relayDir = ".relay"

// Paths holds all resolved relay state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	Root         string // project root (working dir or RELAY_HOME)
	StateDir     string // <root>/.relay
	RegistryPath string // registry.json
	ConfigPath   string // config.yaml
	AuditPath    string // audit.toml
	PIDPath      string // relay.pid
	StatusPath   string // daemon.json
	MessagesPath string // messages.json
	SQLitePath   string // messages.db
	LogPath      string // logs/daemon.log or RELAY_LOG_PATH
}

// ResolvePaths returns all relay paths, respecting env var overrides.
// Environment variables:
//   - RELAY_HOME: project root for all relay state (default: working dir)
//   - RELAY_LOG_PATH: daemon log file (default: $root/.relay/logs/daemon.log)
func ResolvePaths() (*Paths, error) {
	root := os.Getenv("RELAY_HOME")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working dir: %w", err)
		}
		root = wd
	}

	stateDir := filepath.Join(root, relayDir)
	logPath := os.Getenv("RELAY_LOG_PATH")
	if logPath == "" {
		logPath = filepath.Join(stateDir, "logs", "daemon.log")
	}

	return &Paths{
		Root:         root,
		StateDir:     stateDir,
		RegistryPath: filepath.Join(stateDir, "registry.json"),
		ConfigPath:   filepath.Join(stateDir, "config.yaml"),
		AuditPath:    filepath.Join(stateDir, "audit.toml"),
		PIDPath:      filepath.Join(stateDir, "relay.pid"),
		StatusPath:   filepath.Join(stateDir, "daemon.json"),
		MessagesPath: filepath.Join(stateDir, "messages.json"),
		SQLitePath:   filepath.Join(stateDir, "messages.db"),
		LogPath:      logPath,
	}, nil
}

// bootstrapStateDir creates the relay state directory. Idempotent.
func bootstrapStateDir(p *Paths) error {
	if err := os.MkdirAll(filepath.Dir(p.LogPath), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	if err := os.MkdirAll(p.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir %s: %w", p.StateDir, err)
	}
	return nil
}

// debugf prints verbose tracing to stderr when RELAY_DEBUG is set.
func debugf(format string, args ...any) {
	if os.Getenv("RELAY_DEBUG") == "" {
		return
	}
	fmt.Fprintf(os.Stderr, "[relay] "+format+"\n", args...)
}
