// Package daemon runs the coordination loop as a singleton background
// process. Exactly one daemon may run per project; a plain-text PID file
// under the state directory is the lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"relay/pkg/activity"
	"relay/pkg/statefile"
)

// ErrAlreadyRunning is returned by Run when a live daemon already holds the
// PID lock. The existing lock is left untouched.
var ErrAlreadyRunning = errors.New("daemon already running")

// HealthScorer produces a 0-100 health score for the project. The daemon
// calls it on the health-check schedule and merges the score into status.
type HealthScorer interface {
	HealthScore() (int, error)
}

// ActivityView exposes what the run loop records into the status file.
type ActivityView interface {
	ActiveContext() string
	Summary() map[string]activity.ContextSummary
}

// Logger is the minimal logging surface the daemon needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Config tunes the daemon loop. Zero values take defaults.
type Config struct {
	Tick            time.Duration // status refresh interval (default 30s)
	HealthInterval  time.Duration // health-check cadence (default 300s)
	CleanupInterval time.Duration // cleanup cadence (default 1800s)
	PollInterval    time.Duration // signal-responsiveness granularity (default 1s)
	Fallback        bool          // recorded in status for port selection
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Tick == 0 {
		out.Tick = 30 * time.Second
	}
	if out.HealthInterval == 0 {
		out.HealthInterval = 300 * time.Second
	}
	if out.CleanupInterval == 0 {
		out.CleanupInterval = 1800 * time.Second
	}
	if out.PollInterval == 0 {
		out.PollInterval = time.Second
	}
	return out
}

// Daemon owns the PID lock, the status file, and the periodic callbacks.
type Daemon struct {
	cfg      Config
	pidPath  string
	statuses *statefile.Store
	acts     ActivityView
	scorer   HealthScorer
	cleanup  func() error
	logger   Logger

	// nowFunc and sleep allow tests to control time.
	nowFunc func() time.Time
	sleep   func(time.Duration)
}

// New creates a daemon. It does not touch the PID file; that happens in Run.
// scorer and cleanup may be nil; the corresponding schedule is skipped.
func New(cfg Config, pidPath string, statuses *statefile.Store, acts ActivityView, scorer HealthScorer, cleanup func() error, logger Logger) *Daemon {
	return &Daemon{
		cfg:      cfg.withDefaults(),
		pidPath:  pidPath,
		statuses: statuses,
		acts:     acts,
		scorer:   scorer,
		cleanup:  cleanup,
		logger:   logger,
		nowFunc:  time.Now,
		sleep:    time.Sleep,
	}
}

// Run acquires the PID lock and drives the loop until ctx is cancelled.
// A live lock returns ErrAlreadyRunning; a stale lock is reclaimed. On a
// clean shutdown the final status is "stopped" and the lock is removed;
// a panic inside a scheduled callback exits with an "error" status.
func (d *Daemon) Run(ctx context.Context) (err error) {
	state, pid, err := CheckLock(d.pidPath)
	if err != nil {
		return err
	}
	switch state {
	case LockRunning:
		return fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, pid)
	case LockStale:
		d.logf("removing stale PID file for dead process %d", pid)
		if err := RemovePIDFile(d.pidPath); err != nil {
			return err
		}
	case LockFree:
		// Good to go.
	}

	self := os.Getpid()
	if err := WritePIDFile(d.pidPath, self); err != nil {
		return err
	}
	defer func() { _ = RemovePIDFile(d.pidPath) }()

	started := d.nowFunc()
	st := statefile.Status{
		State:     statefile.StateStarting,
		PID:       self,
		StartedAt: started,
		Data:      statefile.Data{Fallback: d.cfg.Fallback},
	}
	st.LastUpdate = started
	if werr := d.statuses.Write(st); werr != nil {
		return werr
	}

	defer func() {
		final := st
		final.LastUpdate = d.nowFunc()
		if err != nil {
			final.State = statefile.StateError
			final.Error = err.Error()
		} else {
			final.State = statefile.StateStopped
		}
		if werr := d.statuses.Write(final); werr != nil {
			d.logf("write final status: %v", werr)
		}
	}()

	st.State = statefile.StateRunning
	// First tick fires immediately so status reflects reality at startup.
	nextTick := started
	nextHealth := started
	nextCleanup := started.Add(d.cfg.CleanupInterval)

	for {
		select {
		case <-ctx.Done():
			st.State = statefile.StateStopping
			st.LastUpdate = d.nowFunc()
			if werr := d.statuses.Write(st); werr != nil {
				d.logf("write stopping status: %v", werr)
			}
			return nil
		default:
		}

		now := d.nowFunc()
		if now.Before(nextTick) {
			d.sleep(d.cfg.PollInterval)
			continue
		}
		nextTick = now.Add(d.cfg.Tick)

		if d.scorer != nil && !now.Before(nextHealth) {
			nextHealth = now.Add(d.cfg.HealthInterval)
			score, herr := d.runHealthCheck()
			if herr != nil {
				return herr
			}
			st.Data.HealthScore = score
		}
		if d.cleanup != nil && !now.Before(nextCleanup) {
			nextCleanup = now.Add(d.cfg.CleanupInterval)
			if cerr := d.runCleanup(); cerr != nil {
				return cerr
			}
		}

		if d.acts != nil {
			st.Data.ActiveContext = d.acts.ActiveContext()
			st.Data.Activity = summaryData(d.acts.Summary())
		}
		st.LastUpdate = now
		if werr := d.statuses.Write(st); werr != nil {
			d.logf("write status: %v", werr)
		}
	}
}

// runHealthCheck invokes the scorer, converting a panic into an error so the
// run loop can exit with an error status instead of crashing the process.
func (d *Daemon) runHealthCheck() (score int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("health check panicked: %v", r)
		}
	}()
	score, err = d.scorer.HealthScore()
	if err != nil {
		// A failing check degrades the score but does not kill the daemon.
		d.logf("health check: %v", err)
		return 0, nil
	}
	return score, nil
}

func (d *Daemon) runCleanup() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup panicked: %v", r)
		}
	}()
	if cerr := d.cleanup(); cerr != nil {
		d.logf("cleanup: %v", cerr)
	}
	return nil
}

func (d *Daemon) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

func summaryData(sums map[string]activity.ContextSummary) map[string]any {
	if len(sums) == 0 {
		return nil
	}
	out := make(map[string]any, len(sums))
	for ctx, s := range sums {
		out[ctx] = s
	}
	return out
}

// StatusOf reports the externally observable daemon state without mutating
// anything: no lock means not running; a dead PID is reported as stale but
// left in place for the next start to reclaim; a live PID is merged with
// the persisted status document.
func StatusOf(pidPath string, statuses *statefile.Store) (running bool, stale bool, st statefile.Status, err error) {
	state, pid, err := CheckLock(pidPath)
	if err != nil {
		return false, false, statefile.Status{}, err
	}

	st, err = statuses.Read()
	if err != nil {
		return false, false, statefile.Status{}, err
	}

	switch state {
	case LockFree:
		return false, false, st, nil
	case LockStale:
		st.State = statefile.StateStopped
		st.PID = pid
		return false, true, st, nil
	default:
		st.PID = pid
		return true, false, st, nil
	}
}
