package key

import "github.com/spf13/cobra"

// NewCommand returns the "key" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "key",
		Short:        "Manage the stack's SSH key",
		Long:         "Retrieve the private key generated for the stack's key pair.",
		SilenceUsage: true,
	}

	cmd.AddCommand(FetchCommand())

	return cmd
}
