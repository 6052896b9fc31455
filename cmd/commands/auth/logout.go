package auth

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"

	"github.com/spf13/cobra"
)

func LogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored AWS access key",
		Long: `Remove the AWS access key stored by 'sdcomfy auth login'. Later
commands fall back to the environment and the shared AWS config.

Example:
  sdcomfy auth logout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := cmdutil.Store().DeleteToken(auth.AWSProvider)
			if errors.Is(err, auth.ErrTokenNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored AWS access key.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed stored AWS access key.")
			return nil
		},
		SilenceUsage: true,
	}
}
