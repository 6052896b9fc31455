package cmd

import (
	"os"
	"strings"
	"time"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/app"
	"nathanbeddoewebdev/sdcomfy/cmd/commands/audit"
	"nathanbeddoewebdev/sdcomfy/cmd/commands/auth"
	cfgcmd "nathanbeddoewebdev/sdcomfy/cmd/commands/config"
	"nathanbeddoewebdev/sdcomfy/cmd/commands/key"
	"nathanbeddoewebdev/sdcomfy/cmd/commands/stack"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/providers"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "sdcomfy",
		Short: "Deploy ComfyUI on an AWS GPU instance",
		Long: `sdcomfy provisions a single AWS GPU instance running ComfyUI for
Stable Diffusion, using the account's default VPC. It synthesizes and
deploys the stack, waits for the instance to finish its first-boot setup,
and retrieves the SSH key and the ComfyUI address.

Quick start:
  sdcomfy auth login               # Store an AWS access key (or use AWS_PROFILE)
  sdcomfy config set region us-west-2
  sdcomfy stack deploy             # Interactive deployment
  sdcomfy key fetch                # Save the SSH key
  sdcomfy app status               # Check that ComfyUI answers
  sdcomfy stack destroy            # Tear everything down`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("provider", "", "Provider to use (default from config or aws)")
	cmd.PersistentFlags().String("region", "", "Region to deploy into (default from config or AWS_REGION)")
	cmd.PersistentFlags().String("profile", "", "Shared AWS config profile (default from config or AWS_PROFILE)")

	cmd.AddCommand(stack.NewCommand())
	cmd.AddCommand(key.NewCommand())
	cmd.AddCommand(app.NewCommand())
	cmd.AddCommand(auth.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())
	cmd.AddCommand(audit.NewCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	providers.RegisterAWS()

	var root = rootCmd()
	start := time.Now()
	executed, err := root.ExecuteC()
	recordAudit(executed, os.Args[1:], start, err)
	if err != nil {
		os.Exit(1)
	}
}

// recordAudit writes a best-effort audit entry for a completed command.
// Errors opening the repository or saving the entry are discarded.
func recordAudit(cmd *cobra.Command, args []string, start time.Time, err error) {
	entry := auditEntry(cmd, args, start, err)
	if entry == nil {
		return
	}

	repo, openErr := auditlog.Open()
	if openErr != nil {
		return
	}
	defer repo.Close()
	_ = repo.Save(entry)
}

// auditEntry builds the entry for cmd, or returns nil for commands that
// are not audited: help, completion, group commands, and the audit
// commands themselves.
func auditEntry(cmd *cobra.Command, args []string, start time.Time, err error) *auditlog.AuditEntry {
	if cmd == nil || !cmd.Runnable() {
		return nil
	}
	path := cmd.CommandPath()
	for _, skip := range []string{"help", "completion", "audit"} {
		if strings.HasPrefix(path, cmd.Root().Name()+" "+skip) {
			return nil
		}
	}

	meta := auditlog.MetadataFromContext(cmd.Context())
	entry := &auditlog.AuditEntry{
		Timestamp:    start.UTC(),
		Command:      path,
		Args:         strings.Join(auditlog.SanitizeArgs(args), " "),
		Provider:     meta.Provider,
		Region:       meta.Region,
		ResourceType: meta.ResourceType,
		ResourceID:   meta.ResourceID,
		ResourceName: meta.ResourceName,
		DurationMs:   time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Outcome = auditlog.OutcomeError
		entry.Detail = err.Error()
	} else {
		entry.Outcome = auditlog.OutcomeSuccess
	}
	return entry
}
