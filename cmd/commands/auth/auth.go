package auth

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage AWS credentials",
		Long: `Manage the AWS credentials sdcomfy uses.

Access keys saved with 'auth login' are kept in the OS keychain and take
precedence over the environment and the shared AWS config profile.`,
	}

	cmd.AddCommand(LoginCommand())
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(LogoutCommand())

	return cmd
}
