package auth

import (
	"fmt"
	"os"
	"strings"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"
	"nathanbeddoewebdev/sdcomfy/internal/tui"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

func LoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an AWS access key in the keychain",
		Long: `Store an AWS access key in the local keychain.

In a terminal without flags, a form asks for the key. Otherwise pass the
key with flags; a missing secret is read from stdin without echo.

Examples:
  sdcomfy auth login
  sdcomfy auth login --access-key-id AKIA... --secret-access-key ...`,
		Args:         cobra.NoArgs,
		RunE:         runLogin,
		SilenceUsage: true,
	}

	cmd.Flags().String("access-key-id", "", "AWS access key ID")
	cmd.Flags().String("secret-access-key", "", "AWS secret access key (prompted when omitted)")
	cmd.Flags().String("session-token", "", "AWS session token for temporary credentials")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	store := cmdutil.Store()

	keyID, _ := cmd.Flags().GetString("access-key-id")
	secret, _ := cmd.Flags().GetString("secret-access-key")
	session, _ := cmd.Flags().GetString("session-token")

	if keyID == "" && cmdutil.Interactive() {
		result, err := tui.RunAuthLogin(store)
		if err != nil {
			return err
		}
		if result == nil || !result.Saved {
			fmt.Fprintln(cmd.ErrOrStderr(), "Login cancelled.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved AWS access key %s\n", result.Credentials.MaskedKeyID())
		return nil
	}

	if strings.TrimSpace(secret) == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter secret access key: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		secret = string(bytes)
	}

	creds := auth.AWSCredentials{
		AccessKeyID:     strings.TrimSpace(keyID),
		SecretAccessKey: strings.TrimSpace(secret),
		SessionToken:    strings.TrimSpace(session),
	}
	if err := auth.SaveAWSCredentials(store, creds); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved AWS access key %s\n", creds.MaskedKeyID())
	return nil
}
