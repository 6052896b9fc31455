package stack

import (
	"github.com/spf13/cobra"
)

// NewCommand returns the "stack" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Synthesize, deploy, and destroy the ComfyUI stack",
		Long: `Synthesize, deploy, and destroy the ComfyUI stack.

The stack is one GPU instance in the default VPC with a security group,
a generated key pair, and a first-boot script that installs ComfyUI.
Settings come from flags, then 'sdcomfy config', then built-in defaults.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(SynthCommand())
	cmd.AddCommand(DeployCommand())
	cmd.AddCommand(WaitCommand())
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(OutputsCommand())
	cmd.AddCommand(DestroyCommand())
	cmd.AddCommand(ImageCommand())
	cmd.AddCommand(HistoryCommand())

	return cmd
}
