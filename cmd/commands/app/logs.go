package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/cmd/commands/key"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/bootstrap"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/remote"
	"nathanbeddoewebdev/sdcomfy/internal/sshkeys"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

// tailer streams a remote file. *remote.Client implements it.
type tailer interface {
	Tail(ctx context.Context, path string, lines int, follow bool, w io.Writer) error
}

// newTailer connects to host. Tests replace it.
var newTailer = func(host string, signer ssh.Signer) tailer {
	return remote.NewClient(host, remote.DefaultUser, signer)
}

func LogsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the instance's first-boot or ComfyUI log",
		Long: `Show the instance's first-boot log (` + bootstrap.CloudInitLog + `) or,
with --app, the ComfyUI server log, over SSH.

Setup failures on the instance do not fail the stack, so this is where a
missing driver or a failed download shows up. Requires the key saved by
'sdcomfy key fetch'.

The instance's SSH host key is not verified: it is generated at first boot
and never published, so only connect over networks you trust.

Examples:
  sdcomfy app logs
  sdcomfy app logs --app --follow
  sdcomfy app logs --lines 500 --key ~/.ssh/comfyui.pem`,
		Args:         cobra.NoArgs,
		RunE:         runLogs,
		SilenceUsage: true,
	}

	cmd.Flags().String("stack-name", "", "Stack name (default from config or "+descriptor.DefaultStackName+")")
	cmd.Flags().Int("lines", 100, "Number of lines to show")
	cmd.Flags().Bool("app", false, "Show the ComfyUI server log instead of the first-boot log")
	cmd.Flags().BoolP("follow", "f", false, "Keep streaming new lines until interrupted")
	cmd.Flags().String("key", "", "Private key file (default from config or "+descriptor.DefaultKeyFileName+")")

	return cmd
}

// LogPath returns the remote log file shown by the logs command.
func LogPath(app bool) string {
	if app {
		return path.Join(bootstrap.AppDir, bootstrap.AppLog)
	}
	return bootstrap.CloudInitLog
}

func runLogs(cmd *cobra.Command, args []string) error {
	lines, _ := cmd.Flags().GetInt("lines")
	if lines <= 0 {
		return fmt.Errorf("lines must be greater than 0")
	}
	appLog, _ := cmd.Flags().GetBool("app")
	follow, _ := cmd.Flags().GetBool("follow")

	svc, cfg, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	name, err := cmdutil.StackName(cmd, cfg)
	if err != nil {
		return err
	}
	cmdutil.Annotate(cmd, auditlog.AppResource(name))

	keyPath, err := key.KeyPath(cmd, cfg.KeyFile)
	if err != nil {
		return err
	}
	signer, err := sshkeys.ReadKeyFile(keyPath)
	if err != nil {
		return fmt.Errorf("%w (save the key with 'sdcomfy key fetch')", err)
	}

	endpoint, err := svc.Endpoint(cmd.Context(), name)
	if err != nil {
		return err
	}
	host, err := remote.HostFromEndpoint(endpoint)
	if err != nil {
		return err
	}
	cmdutil.Annotate(cmd, auditlog.Metadata{ResourceID: host})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logPath := LogPath(appLog)
	fmt.Fprintf(cmd.ErrOrStderr(), "==> %s on %s <==\n", logPath, host)
	if err := newTailer(host, signer).Tail(ctx, logPath, lines, follow, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to read %s: %w", logPath, err)
	}
	return nil
}
