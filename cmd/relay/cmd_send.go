package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/pkg/mailbox"
)

// newSendCmd creates the "relay send" subcommand.
func newSendCmd() *cobra.Command {
	var (
		msgType  string
		priority string
		subject  string
	)

	cmd := &cobra.Command{
		Use:   "send <from> <to> <content>",
		Short: "Send a message between contexts",
		Long:  "Routes a typed message from one context to another, subject to the\nregistry's handoff rules. The coordinator context may send anything;\nuse \"all\" as the recipient to broadcast.",
		Args:  cobra.ExactArgs(3),
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

			msg, err := box.Send(args[0], args[1], msgType, subject, args[2], mailbox.Priority(priority))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "message %d sent: %s -> %s [%s] (%s)\n",
				msg.ID, msg.From, msg.To, msg.Type, msg.Priority)
			return nil
		},
	}

	cmd.Flags().StringVarP(&msgType, "type", "t", "note", "message type (checked against handoff rules)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "normal", "priority: low, normal, high, urgent")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "subject line (defaults from type and sender)")

	return cmd
}
