package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// newRulesCmd creates the "relay rules" subcommand.
func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show the handoff rules between contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sty := newStyles()
			fmt.Fprintln(out, sty.Header.Render("handoff rules"))

			rules := a.reg.Rules()
			froms := make([]string, 0, len(rules))
			for from := range rules {
				froms = append(froms, from)
			}
			sort.Strings(froms)

			for _, from := range froms {
				fmt.Fprintf(out, "%s:\n", sty.Emphasis.Render(from))
				targets := rules[from]
				tos := make([]string, 0, len(targets))
				for to := range targets {
					tos = append(tos, to)
				}
				sort.Strings(tos)
				for _, to := range tos {
					fmt.Fprintf(out, "  -> %s: %s\n", to, strings.Join(targets[to], ", "))
				}
			}

			fmt.Fprintf(out, "\n%s\n", sty.Dim.Render(
				fmt.Sprintf("note: %s is the coordinator and may send/receive anything", a.reg.Coordinator())))
			return nil
		},
	}
}
