package audit

import "github.com/spf13/cobra"

// NewCommand returns the "audit" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View and prune the local command history",
		Long: "Every command that talks to AWS is recorded locally with its outcome,\n" +
			"target region and stack. Secrets passed as flags are redacted.\n\n" +
			"The history lives in ~/.config/sdcomfy/sdcomfy.db next to the stack\n" +
			"operation records used by 'sdcomfy stack wait'.",
		SilenceUsage: true,
	}

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(PruneCommand())

	return cmd
}
