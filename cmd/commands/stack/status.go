package stack

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/deployments"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/tui/styles"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stack's status",
		Long: `Show the stack's status as reported by the provisioning engine,
together with the last operation recorded locally.

Examples:
  sdcomfy stack status
  sdcomfy stack status -o json`,
		Args:         cobra.NoArgs,
		RunE:         runStatus,
		SilenceUsage: true,
	}

	addStackNameFlag(cmd)
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

// statusView is the JSON form of the status command.
type statusView struct {
	Stack         *domain.Stack `json:"stack,omitempty"`
	LastOperation *recordView   `json:"last_operation,omitempty"`
}

type recordView struct {
	Operation   string `json:"operation"`
	Status      string `json:"status"`
	StackStatus string `json:"stack_status,omitempty"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	svc, cfg, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	name, err := cmdutil.StackName(cmd, cfg)
	if err != nil {
		return err
	}
	cmdutil.Annotate(cmd, auditlog.StackResource(name))

	s, err := svc.Provider().GetStack(cmd.Context(), name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to fetch stack %s: %w", name, err)
	}
	record, _ := svc.Latest(name)

	if output == "json" {
		view := statusView{Stack: s}
		if record != nil {
			view.LastOperation = toRecordView(record)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	if s == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Stack %s does not exist in %s.\n", name, svc.Provider().Region())
	} else {
		printStackDetail(cmd, s)
	}
	if record != nil {
		printRecord(cmd, record)
	}
	return nil
}

func printStackDetail(cmd *cobra.Command, s *domain.Stack) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "  Name:\t%s\n", s.Name)
	fmt.Fprintf(w, "  ID:\t%s\n", s.ID)
	fmt.Fprintf(w, "  Status:\t%s\n", styles.StatusStyle(s.Status).Render(s.Status))
	if s.StatusReason != "" {
		fmt.Fprintf(w, "  Reason:\t%s\n", s.StatusReason)
	}
	if !s.CreatedAt.IsZero() {
		fmt.Fprintf(w, "  Created:\t%s\n", s.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "  Updated:\t%s\n", s.UpdatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}

	w.Flush()
}

func printRecord(cmd *cobra.Command, r *deployments.Record) {
	line := fmt.Sprintf("\nLast operation: %s %s, started %s", r.Operation, r.Status,
		r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if r.ErrorMessage != "" {
		line += "\n  " + r.ErrorMessage
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
	if !r.Done() {
		fmt.Fprintln(cmd.OutOrStdout(), "  Resume waiting with 'sdcomfy stack wait'.")
	}
}

func toRecordView(r *deployments.Record) *recordView {
	return &recordView{
		Operation:   string(r.Operation),
		Status:      r.Status,
		StackStatus: r.StackStatus,
		Error:       r.ErrorMessage,
		StartedAt:   r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
