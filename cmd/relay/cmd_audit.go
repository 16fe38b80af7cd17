package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/pkg/audit"
)

// newAuditCmd creates the "relay audit" subcommand.
func newAuditCmd() *cobra.Command {
	var quick bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run a project health audit",
		Long:  "Checks context files against their line limit, watched directories,\nand message log growth. --quick skips the directory scans.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			cfg, err := audit.LoadConfig(a.paths.AuditPath)
			if err != nil {
				return err
			}

			rep := audit.New(a.reg, cfg, a.paths.Root, a.paths.MessagesPath).Run(quick)

			out := cmd.OutOrStdout()
			sty := newStyles()
			fmt.Fprintln(out, sty.Header.Render("health audit"))
			fmt.Fprintf(out, "score: %s\n", renderScore(sty, rep.Score))

			if len(rep.Issues) == 0 {
				fmt.Fprintln(out, sty.Good.Render("no issues found"))
				return nil
			}
			for _, iss := range rep.Issues {
				var tag string
				switch iss.Severity {
				case audit.SeverityCritical:
					tag = sty.Bad.Render(string(iss.Severity))
				case audit.SeverityWarning:
					tag = sty.Warn.Render(string(iss.Severity))
				default:
					tag = sty.Dim.Render(string(iss.Severity))
				}
				fmt.Fprintf(out, "  [%s] %s\n", tag, iss.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quick, "quick", "q", false, "skip directory scans")
	return cmd
}
