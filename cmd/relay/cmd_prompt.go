package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/pkg/session"
)

// newPromptCmd creates the "relay prompt" subcommand.
func newPromptCmd() *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "prompt <context>",
		Short: "Print the resume prompt for a context",
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
			prompt, err := coord.ResumePrompt(args[0], task)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "task description to include in the prompt")
	return cmd
}

// statusActivity adapts the persisted status file to the coordinator's
// activity view; the CLI has no live tracker of its own.
func statusActivity(a *app) session.ActivitySource {
	return activeFromStatus(func() string {
		statuses, err := newStatusStore(a)
		if err != nil {
			return ""
		}
		st, err := statuses.Read()
		if err != nil {
			return ""
		}
		return st.Data.ActiveContext
	})
}

type activeFromStatus func() string

func (f activeFromStatus) ActiveContext() string { return f() }
