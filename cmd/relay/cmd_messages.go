package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/pkg/mailbox"
)

// newMessagesCmd creates the "relay messages" subcommand.
func newMessagesCmd() *cobra.Command {
	var (
		contextID string
		showAll   bool
	)

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "List messages for a context",
		Long:  "Shows the inbox for a context, unread first by priority. With no\n--context the coordinator's inbox is shown; --all includes read messages.",
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

			if contextID == "" {
				contextID = a.reg.Coordinator()
			}
			msgs, err := box.Inbox(contextID, !showAll)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sty := newStyles()
			if len(msgs) == 0 {
				fmt.Fprintf(out, "no messages for %s\n", contextID)
				return nil
			}

			fmt.Fprintln(out, sty.Header.Render(fmt.Sprintf("messages for %s", contextID)))
			for _, m := range msgs {
				fmt.Fprintln(out, renderMessage(sty, m))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&contextID, "context", "c", "", "context whose inbox to show")
	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "include read messages")

	return cmd
}

func renderMessage(sty styles, m mailbox.Message) string {
	prio := m.Priority
	var tag string
	switch prio {
	case mailbox.PriorityUrgent:
		tag = sty.Bad.Render(string(prio))
	case mailbox.PriorityHigh:
		tag = sty.Warn.Render(string(prio))
	default:
		tag = sty.Dim.Render(string(prio))
	}

	read := " "
	if m.Read() {
		read = sty.Dim.Render("r")
	}
	return fmt.Sprintf("%s #%-4d %s  %s: %s -> %s  %s  %s",
		read, m.ID, tag, m.CreatedAt.Format("01-02 15:04"), m.From, m.To,
		sty.Emphasis.Render(m.Subject), m.Content)
}
