// Package audit scores project health: context file hygiene, expected
// directories, and message log growth.
package audit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"relay/pkg/registry"
)

// Severity weights an issue's deduction from the health score.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// deduction maps severity to its score cost.
func (s Severity) deduction() int {
	switch s {
	case SeverityCritical:
		return 20
	case SeverityWarning:
		return 10
	default:
		return 5
	}
}

// Issue is a single finding from an audit pass.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report is the outcome of an audit: 100 minus weighted deductions,
// floored at zero.
type Report struct {
	Score  int     `json:"score"`
	Issues []Issue `json:"issues"`
}

// Config holds audit thresholds, loaded from .relay/audit.toml.
type Config struct {
	LineLimit   int   `toml:"line_limit"`
	MaxLogBytes int64 `toml:"max_log_bytes"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.LineLimit == 0 {
		out.LineLimit = 500
	}
	if out.MaxLogBytes == 0 {
		out.MaxLogBytes = 5 << 20
	}
	return out
}

// LoadConfig reads thresholds from the given TOML file. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return (&Config{}).withDefaults(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read audit config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse audit config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// Auditor inspects the project on behalf of the daemon's health check and
// the audit command.
type Auditor struct {
	reg     *registry.Registry
	cfg     Config
	root    string
	logPath string
}

// New creates an auditor rooted at the project directory. logPath is the
// mailbox message log whose size is checked.
func New(reg *registry.Registry, cfg Config, root, logPath string) *Auditor {
	return &Auditor{reg: reg, cfg: cfg.withDefaults(), root: root, logPath: logPath}
}

// Run performs a full audit. quick skips the directory scans.
func (a *Auditor) Run(quick bool) Report {
	var issues []Issue

	for _, ctx := range a.reg.Contexts() {
		path := filepath.Join(a.root, ctx.File)
		lines, err := countLines(path)
		if err != nil {
			issues = append(issues, Issue{
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("context file for %s not found: %s", ctx.ID, ctx.File),
			})
			continue
		}
		if lines > a.cfg.LineLimit {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("context file for %s is %d lines (limit %d)", ctx.ID, lines, a.cfg.LineLimit),
			})
		}
	}

	if !quick {
		issues = append(issues, a.checkDirs()...)
	}

	if info, err := os.Stat(a.logPath); err == nil && info.Size() > a.cfg.MaxLogBytes {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("message log is %d bytes (limit %d)", info.Size(), a.cfg.MaxLogBytes),
		})
	}

	score := 100
	for _, iss := range issues {
		score -= iss.Severity.deduction()
	}
	if score < 0 {
		score = 0
	}
	return Report{Score: score, Issues: issues}
}

// checkDirs verifies each context's watched directories exist.
func (a *Auditor) checkDirs() []Issue {
	var issues []Issue
	for _, ctx := range a.reg.Contexts() {
		for _, dir := range ctx.WatchDirs {
			full := filepath.Join(a.root, dir)
			if info, err := os.Stat(full); err != nil || !info.IsDir() {
				issues = append(issues, Issue{
					Severity: SeverityInfo,
					Message:  fmt.Sprintf("watched directory for %s missing: %s", ctx.ID, dir),
				})
			}
		}
	}
	return issues
}

// HealthScore satisfies the daemon's health-check hook with a quick audit.
func (a *Auditor) HealthScore() (int, error) {
	return a.Run(true).Score, nil
}

func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		lines++
	}
	return lines, nil
}
