package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// LockState represents the liveness state of the daemon lock.
type LockState string

const (
	// LockRunning means the PID file exists and the process is alive.
	LockRunning LockState = "running"
	// LockFree means no PID file exists.
	LockFree LockState = "free"
	// LockStale means the PID file exists but the process is dead.
	LockStale LockState = "stale"
)

// WritePIDFile writes the given PID to the specified file path.
func WritePIDFile(path string, pid int) error {
	data := []byte(strconv.Itoa(pid))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write PID file %s: %w", path, err)
	}
	return nil
}

// ReadPIDFile reads and parses the PID from the given file path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID from %s: %w", path, err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file. It is idempotent: no error if the file
// does not exist.
func RemovePIDFile(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove PID file %s: %w", path, err)
	}
	return nil
}

// IsProcessAlive checks whether a process with the given PID is running.
// On Unix, sending signal 0 checks for existence without actually signaling.
func IsProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0: no signal sent, just checks if process exists.
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// CheckLock inspects the daemon PID file and process liveness.
// Returns the lock state, the PID (0 if free), and any unexpected error.
func CheckLock(pidPath string) (state LockState, pid int, err error) {
	pid, err = ReadPIDFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return LockFree, 0, nil
		}
		return LockFree, 0, fmt.Errorf("check lock: %w", err)
	}

	if IsProcessAlive(pid) {
		return LockRunning, pid, nil
	}
	return LockStale, pid, nil
}

// Signal reads the PID file and sends the given signal to the daemon process.
func Signal(pidPath string, sig syscall.Signal) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("signal daemon: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}

	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("send %v to PID %d: %w", sig, pid, err)
	}
	return nil
}
