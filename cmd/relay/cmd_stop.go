package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"relay/pkg/daemon"
)

// stopTimeout is how long stop waits for the daemon to exit after SIGTERM.
const stopTimeout = 10 * time.Second

// newStopCmd creates the "relay stop" subcommand.
func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the coordination daemon",
		Long:  "Sends SIGTERM to the running daemon and waits for it to exit.\nA stale PID file left by a dead daemon is cleaned up.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}

			state, pid, err := daemon.CheckLock(paths.PIDPath)
			if err != nil {
				return err
			}
			switch state {
			case daemon.LockFree:
				fmt.Fprintln(cmd.OutOrStdout(), "daemon is not running")
				return nil
			case daemon.LockStale:
				fmt.Fprintln(cmd.OutOrStdout(), "removing stale PID file (process already dead)")
				return daemon.RemovePIDFile(paths.PIDPath)
			case daemon.LockRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "sending SIGTERM to daemon (PID %d)\n", pid)
				if err := daemon.Stop(paths.PIDPath, stopTimeout, nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
			}
			return nil
		},
	}
}
