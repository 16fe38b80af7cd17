package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// newMarkReadCmd creates the "relay mark-read" subcommand.
func newMarkReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-read <id>",
		Short: "Mark a message as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("message id %q: %w", args[0], err)
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			box, store, err := a.openMailbox()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := box.MarkRead(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "message %d marked read\n", id)
			return nil
		},
	}
}
