package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Detacher abstracts launching the daemon as a detached background process
// for testability.
type Detacher interface {
	Detach(args []string, logPath string) (pid int, err error)
}

// ExecDetacher re-executes the current binary under a new session so the
// child survives the parent's terminal. Output goes to the daemon log file.
type ExecDetacher struct{}

// Detach starts `os.Args[0] args...` detached and returns the child PID.
// The child writes its own PID file once its run loop starts.
func (e *ExecDetacher) Detach(args []string, logPath string) (int, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open daemon log %s: %w", logPath, err)
	}
	defer logFile.Close()

	child := exec.Command(os.Args[0], args...) //nolint:gosec // intentionally re-executing self
	child.Stdout = logFile
	child.Stderr = logFile
	child.Stdin = nil
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return 0, fmt.Errorf("detach daemon: %w", err)
	}
	pid := child.Process.Pid
	// Reap the child when it exits so it never lingers as a zombie.
	go func() { _ = child.Wait() }()
	return pid, nil
}

// stopPollInterval is how often Stop rechecks the process after SIGTERM.
const stopPollInterval = 100 * time.Millisecond

// Stop sends SIGTERM to the locked daemon and waits up to timeout for it to
// exit. A free lock is not an error; a stale lock is removed.
func Stop(pidPath string, timeout time.Duration, sleep func(time.Duration)) error {
	if sleep == nil {
		sleep = time.Sleep
	}

	state, pid, err := CheckLock(pidPath)
	if err != nil {
		return err
	}
	switch state {
	case LockFree:
		return nil
	case LockStale:
		return RemovePIDFile(pidPath)
	case LockRunning:
	}

	if err := Signal(pidPath, syscall.SIGTERM); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !IsProcessAlive(pid) {
			return nil
		}
		sleep(stopPollInterval)
	}
	return fmt.Errorf("daemon PID %d did not exit within %s", pid, timeout)
}
