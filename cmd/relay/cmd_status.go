package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"relay/pkg/daemon"
)

// newStatusCmd creates the "relay status" subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and context status",
		Long:  "Reports whether the daemon is running, its health score, the active\ncontext, and per-context unread message counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			statuses, err := newStatusStore(a)
			if err != nil {
				return err
			}

			running, stale, st, err := daemon.StatusOf(a.paths.PIDPath, statuses)
			if err != nil {
				return err
			}

			box, store, err := a.openMailbox()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			sty := newStyles()

			fmt.Fprintln(out, sty.Header.Render("relay status"))
			switch {
			case running:
				fmt.Fprintf(out, "daemon: %s (PID %d)\n", sty.Good.Render("running"), st.PID)
				if !st.LastUpdate.IsZero() {
					fmt.Fprintf(out, "last update: %s\n", st.LastUpdate.Format(time.RFC3339))
				}
				if st.Data.HealthScore > 0 {
					fmt.Fprintf(out, "health: %s\n", renderScore(sty, st.Data.HealthScore))
				}
				if st.Data.Fallback {
					fmt.Fprintln(out, sty.Warn.Render("running in fallback mode"))
				}
			case stale:
				fmt.Fprintf(out, "daemon: %s (dead PID %d, run `relay start` to recover)\n", sty.Warn.Render("stale"), st.PID)
			default:
				fmt.Fprintf(out, "daemon: %s\n", sty.Dim.Render("stopped"))
			}

			if st.Data.ActiveContext != "" {
				fmt.Fprintf(out, "active context: %s\n", sty.Emphasis.Render(st.Data.ActiveContext))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, sty.Header.Render("contexts"))
			for _, id := range a.reg.IDs() {
				pending, err := box.PendingCount(id)
				if err != nil {
					return err
				}
				marker := " "
				if id == st.Data.ActiveContext {
					marker = sty.Good.Render("*")
				}
				line := fmt.Sprintf("%s %-10s %d unread", marker, id, pending)
				if id == a.reg.Coordinator() {
					line += sty.Dim.Render(" (coordinator)")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func renderScore(sty styles, score int) string {
	text := fmt.Sprintf("%d/100", score)
	switch {
	case score >= 80:
		return sty.Good.Render(text)
	case score >= 50:
		return sty.Warn.Render(text)
	default:
		return sty.Bad.Render(text)
	}
}
