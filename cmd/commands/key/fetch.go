package key

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/remote"
	"nathanbeddoewebdev/sdcomfy/internal/sshkeys"

	"github.com/spf13/cobra"
)

func FetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Save the stack's SSH private key to a file",
		Long: `Save the private key of the stack's generated key pair to a file
readable only by you (mode 0400).

The file defaults to the configured key-file, or ` + descriptor.DefaultKeyFileName + `
in the current directory.

Examples:
  sdcomfy key fetch
  sdcomfy key fetch --out ~/.ssh/comfyui.pem --force`,
		Args:         cobra.NoArgs,
		RunE:         runFetch,
		SilenceUsage: true,
	}

	cmd.Flags().String("stack-name", "", "Stack name (default from config or "+descriptor.DefaultStackName+")")
	cmd.Flags().String("out", "", "File to write the key to")
	cmd.Flags().Bool("force", false, "Overwrite an existing key file")

	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	svc, cfg, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	name, err := cmdutil.StackName(cmd, cfg)
	if err != nil {
		return err
	}
	path, err := KeyPath(cmd, cfg.KeyFile)
	if err != nil {
		return err
	}
	cmdutil.Annotate(cmd, auditlog.KeyResource(name))

	result, err := svc.FetchKey(cmd.Context(), name, path, force)
	if errors.Is(err, sshkeys.ErrKeyFileExists) {
		return fmt.Errorf("%w; pass --force to overwrite it", err)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch key for stack %s: %w", name, err)
	}
	cmdutil.Annotate(cmd, auditlog.Metadata{ResourceID: result.KeyPairID})

	fmt.Fprintf(cmd.OutOrStdout(), "Saved private key of %s to %s\n", result.KeyPairID, result.Path)
	fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", result.Fingerprint)

	if endpoint, err := svc.Endpoint(cmd.Context(), name); err == nil {
		if host, err := remote.HostFromEndpoint(endpoint); err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Connect with: ssh -i %s %s@%s\n", result.Path, remote.DefaultUser, host)
		}
	}
	return nil
}

// KeyPath resolves the key file from --out or --key, then the configured
// key file, then the default name.
func KeyPath(cmd *cobra.Command, configured string) (string, error) {
	path := configured
	for _, name := range []string{"out", "key"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path == "" {
		path = descriptor.DefaultKeyFileName
	}
	return sshkeys.ExpandHomePath(path)
}
