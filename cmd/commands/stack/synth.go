package stack

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/sshkeys"

	"github.com/spf13/cobra"
)

func SynthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Render the deployment template without deploying",
		Long: `Render the deployment template without deploying.

The default network is looked up once per account and region and cached,
so repeated runs produce identical output. Use --refresh-lookups to look
it up again.

Examples:
  sdcomfy stack synth
  sdcomfy stack synth --format yaml --out comfyui.yaml
  sdcomfy stack synth --variant prebaked --instance-type g5.xlarge`,
		Args:         cobra.NoArgs,
		RunE:         runSynth,
		SilenceUsage: true,
	}

	addOptionFlags(cmd)
	cmd.Flags().String("format", "json", "Template format: json or yaml")
	cmd.Flags().String("out", "", "Write the template to this file instead of stdout")
	cmd.Flags().Bool("refresh-lookups", false, "Look up the default network and zone offerings again instead of using the cache")

	return cmd
}

func runSynth(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}
	out, _ := cmd.Flags().GetString("out")
	refresh, _ := cmd.Flags().GetBool("refresh-lookups")

	svc, cfg, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts, err := resolveOptions(cmd, cfg)
	if err != nil {
		return err
	}
	cmdutil.Annotate(cmd, auditlog.StackResource(opts.StackName))

	plan, err := svc.Synthesize(cmd.Context(), opts, format, refresh)
	if err != nil {
		return fmt.Errorf("failed to synthesize stack: %w", err)
	}
	printWarnings(cmd, plan.Warnings)

	body := plan.Body
	if !bytes.HasSuffix(body, []byte("\n")) {
		body = append(body, '\n')
	}

	if out == "" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}

	path, err := sshkeys.ExpandHomePath(out)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s template for stack %s to %s\n", format, opts.StackName, path)
	return nil
}
