package app

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/probe"
	"nathanbeddoewebdev/sdcomfy/internal/tui/styles"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check that ComfyUI answers and sees a GPU",
		Long: `Check that ComfyUI answers on the stack's endpoint, report the devices
it sees and the length of its queue.

Examples:
  sdcomfy app status
  sdcomfy app status --endpoint ec2-1-2-3-4.compute.amazonaws.com:8080
  sdcomfy app status -o json`,
		Args:         cobra.NoArgs,
		RunE:         runStatus,
		SilenceUsage: true,
	}

	cmd.Flags().String("stack-name", "", "Stack name (default from config or "+descriptor.DefaultStackName+")")
	cmd.Flags().String("endpoint", "", "ComfyUI address (skips the stack lookup)")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	endpoint, err := resolveEndpoint(cmd)
	if err != nil {
		return err
	}

	p, err := probe.New(endpoint)
	if err != nil {
		return err
	}
	report, err := p.Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("ComfyUI at %s is not responding: %w", p.URL(), err)
	}

	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(cmd, report)
	return nil
}

// resolveEndpoint returns --endpoint, or the stack's endpoint output.
func resolveEndpoint(cmd *cobra.Command) (string, error) {
	if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
		cmdutil.Annotate(cmd, auditlog.Metadata{ResourceType: auditlog.ResourceApp, ResourceID: endpoint})
		return endpoint, nil
	}

	svc, cfg, err := cmdutil.OpenService(cmd)
	if err != nil {
		return "", err
	}
	defer svc.Close()

	name, err := cmdutil.StackName(cmd, cfg)
	if err != nil {
		return "", err
	}
	cmdutil.Annotate(cmd, auditlog.AppResource(name))

	endpoint, err := svc.Endpoint(cmd.Context(), name)
	if err != nil {
		return "", err
	}
	cmdutil.Annotate(cmd, auditlog.Metadata{ResourceID: endpoint})
	return endpoint, nil
}

func printReport(cmd *cobra.Command, r *probe.Report) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "  URL:\t%s\n", r.Endpoint)
	fmt.Fprintf(w, "  Status:\t%s\n", styles.SuccessText.Render("responding"))
	fmt.Fprintf(w, "  Latency:\t%s\n", r.Latency.Round(time.Millisecond))
	if v := r.Stats.System.ComfyUIVersion; v != "" {
		fmt.Fprintf(w, "  ComfyUI:\t%s\n", v)
	}
	if v := r.Stats.System.PyTorchVersion; v != "" {
		fmt.Fprintf(w, "  PyTorch:\t%s\n", v)
	}
	if v := r.Stats.System.PythonVersion; v != "" {
		fmt.Fprintf(w, "  Python:\t%s\n", v)
	}
	for _, d := range r.Stats.Devices {
		fmt.Fprintf(w, "  Device %d:\t%s (%s, %s VRAM free of %s)\n",
			d.Index, d.Name, d.Type, formatBytes(d.VRAMFree), formatBytes(d.VRAMTotal))
	}
	if r.Queue != nil {
		fmt.Fprintf(w, "  Queue:\t%d remaining\n", r.Queue.QueueRemaining)
	}

	w.Flush()

	if !r.Stats.HasGPU() {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.WarningText.Render("Warning:")+
			" no CUDA device visible; the GPU driver may not have loaded. Check 'sdcomfy app logs'.")
	}
}

func formatBytes(n int64) string {
	const gib = 1 << 30
	if n >= gib {
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	}
	return fmt.Sprintf("%d MiB", n>>20)
}
