package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/internal/appversion"
)

// newRootCmd creates the root relay command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "relay",
		Short:         "Multi-context coordination daemon",
		Long:          "relay coordinates several development contexts sharing one project:\nit infers the active context from file activity, routes typed messages\nbetween contexts under handoff rules, and manages its own daemon.",
		Version:       fmt.Sprintf("relay %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newRestartCmd(),
		newStatusCmd(),
		newSendCmd(),
		newMessagesCmd(),
		newMarkReadCmd(),
		newRulesCmd(),
		newContextCmd(),
		newPromptCmd(),
		newSpawnCmd(),
		newAuditCmd(),
	)

	return cmd
}
