package auth

import (
	"fmt"
	"os"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"
	"nathanbeddoewebdev/sdcomfy/internal/tui"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show where AWS credentials come from",
		Long: `Show the credential sources sdcomfy checks, in order of precedence,
and which one is in effect.

Example:
  sdcomfy auth status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig()
			if err != nil {
				return err
			}
			_, target := cmdutil.Target(cmd, cfg)
			sources := auth.CredentialSources(cmdutil.Store(), target.Profile, os.Getenv)

			// Use TUI in interactive terminal.
			if cmdutil.Interactive() {
				if err := tui.RunAuthStatus(sources); err != nil {
					return fmt.Errorf("auth status failed: %w", err)
				}
				return nil
			}

			// Non-interactive fallback.
			for _, s := range sources {
				marker := " "
				if s.Active {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", marker, s.Name, s.Detail)
			}
			return nil
		},
		SilenceUsage: true,
	}

	return cmd
}
