package config

import (
	"nathanbeddoewebdev/sdcomfy/internal/config"

	"github.com/spf13/cobra"
)

// NewCommand returns the "config" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage sdcomfy configuration",
		Long: "View and modify persistent sdcomfy settings.\n\n" +
			"Configuration is stored at ~/.config/sdcomfy/config.yaml.\n" +
			"Deployment settings here are the defaults for 'sdcomfy stack' commands.\n\n" +
			config.KeysHelp(),
	}

	cmd.AddCommand(SetCommand())
	cmd.AddCommand(GetCommand())
	cmd.AddCommand(ListCommand())

	return cmd
}
