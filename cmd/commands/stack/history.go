package stack

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"

	"github.com/spf13/cobra"
)

func HistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent stack operations",
		Long: `List recent deployments and deletions recorded on this machine.

Examples:
  sdcomfy stack history
  sdcomfy stack history --limit 5 -o json`,
		Args:         cobra.NoArgs,
		RunE:         runHistory,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 10, "Number of operations to display")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	svc, _, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	records, err := svc.ListRecent(limit)
	if err != nil {
		return err
	}

	if output == "json" {
		views := make([]*recordView, 0, len(records))
		for i := range records {
			views = append(views, toRecordView(&records[i]))
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stack operations recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tREGION\tSTACK\tOPERATION\tSTATUS\tSTACK STATUS")
	fmt.Fprintln(w, "-------\t------\t-----\t---------\t------\t------------")
	for _, r := range records {
		stackStatus := r.StackStatus
		if stackStatus == "" {
			stackStatus = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Region,
			r.StackName,
			r.Operation,
			r.Status,
			stackStatus,
		)
	}
	w.Flush()
	return nil
}
