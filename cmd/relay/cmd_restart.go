package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"relay/pkg/daemon"
)

// newRestartCmd creates the "relay restart" subcommand.
func newRestartCmd() *cobra.Command {
	var fallback bool

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the coordination daemon",
		Long:  "Stops any running daemon (best effort) and starts a fresh one in\nthe background.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := bootstrapStateDir(a.paths); err != nil {
				return err
			}

			// Best effort: a daemon that refuses to die is reported but does
			// not block the new start attempt.
			if err := daemon.Stop(a.paths.PIDPath, stopTimeout, nil); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %v\n", err)
			}
			// Give the old process a beat to release its lock files.
			time.Sleep(200 * time.Millisecond)

			return runBackgroundStart(cmd, a, &daemon.ExecDetacher{}, fallback)
		},
	}

	cmd.Flags().BoolVarP(&fallback, "fallback", "f", false, "use the fallback port set")
	return cmd
}
