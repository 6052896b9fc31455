package app

import "github.com/spf13/cobra"

// NewCommand returns the "app" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Inspect the ComfyUI server on the instance",
		Long: `Inspect the ComfyUI server running on the deployed instance.

The stack reports success once the first-boot script finished, which does
not guarantee that ComfyUI started. Use 'app status' to check the server
and 'app logs' to read the first-boot and server logs over SSH.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(LogsCommand())

	return cmd
}
