package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newContextCmd creates the "relay context" subcommand.
func newContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Show the currently active context",
		Long:  "Prints the context the daemon last inferred from file activity, as\nrecorded in the status file. Requires a running daemon for live data.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			statuses, err := newStatusStore(a)
			if err != nil {
				return err
			}
			st, err := statuses.Read()
			if err != nil {
				return err
			}

			if st.Data.ActiveContext == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no active context (no recent file activity)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.Data.ActiveContext)
			return nil
		},
	}
}
