package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/auditlog"

	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit entries",
		Long: `List recent audit entries stored locally, newest first.

Examples:
  sdcomfy audit list
  sdcomfy audit list --limit 50
  sdcomfy audit list --command "sdcomfy stack deploy"
  sdcomfy audit list --stack StableDiffusionComfyuiEc2Stack --failed
  sdcomfy audit list --since 7d
  sdcomfy audit list -o json`,
		Args:         cobra.NoArgs,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of entries to display")
	cmd.Flags().String("command", "", "Filter by exact command path")
	cmd.Flags().String("stack", "", "Filter by stack name")
	cmd.Flags().Bool("failed", false, "Only show commands that failed")
	cmd.Flags().String("since", "", "Only show entries newer than this age (e.g. 12h, 7d)")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	filter := auditlog.Filter{Limit: limit}
	filter.Command, _ = cmd.Flags().GetString("command")
	filter.Resource, _ = cmd.Flags().GetString("stack")
	filter.FailedOnly, _ = cmd.Flags().GetBool("failed")
	if since, _ := cmd.Flags().GetString("since"); since != "" {
		age, err := parseDuration(since)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = time.Now().Add(-age)
	}
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	repo, err := auditlog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	entries, err := repo.Query(filter)
	if err != nil {
		return err
	}

	if output == "json" {
		if entries == nil {
			entries = []auditlog.AuditEntry{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit entries found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCOMMAND\tOUTCOME\tDURATION\tREGION\tRESOURCE\tDETAIL")
	fmt.Fprintln(w, "----\t-------\t-------\t--------\t------\t--------\t------")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			strings.TrimPrefix(entry.Command, "sdcomfy "),
			entry.Outcome,
			formatDuration(entry.Duration()),
			orDash(entry.Region),
			formatResource(entry),
			orDash(entry.Detail),
		)
	}
	w.Flush()
	return nil
}

// formatDuration renders long operations coarsely; a stack deploy takes
// minutes.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

// formatResource renders "type name (id)", omitting empty parts.
func formatResource(entry auditlog.AuditEntry) string {
	var parts []string
	if entry.ResourceType != "" {
		parts = append(parts, entry.ResourceType)
	}
	if entry.ResourceName != "" {
		parts = append(parts, entry.ResourceName)
	}
	if entry.ResourceID != "" && entry.ResourceID != entry.ResourceName {
		parts = append(parts, "("+entry.ResourceID+")")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
