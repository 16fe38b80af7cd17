package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/pkg/session"
)

// newSpawnCmd creates the "relay spawn" subcommand.
func newSpawnCmd() *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "spawn <context>",
		Short: "Open a new editor session for a context",
		Long:  "Writes the context's resume prompt to the state directory and opens\na new editor window on its context file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			box, store, err := a.openMailbox()
			if err != nil {
				return err
			}
			defer store.Close()

			coord := session.New(a.reg, box, statusActivity(a), a.paths.Root, nil)
			res, err := coord.Spawn(args[0], task)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "spawned %s session %s\nprompt written to %s\n",
				res.Context, res.SessionID, res.PromptFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "task description for the session")
	return cmd
}
