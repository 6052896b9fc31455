package stack

import (
	"fmt"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/deployments"
	stacksvc "nathanbeddoewebdev/sdcomfy/internal/services/stack"

	"github.com/spf13/cobra"
)

func WaitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Resume waiting for pending deployments",
		Long: `Resume waiting for deployments and deletions whose wait was interrupted.

Only operations in the current region are resumed. With --stack-name, only
that stack's pending operation is resumed.

Examples:
  sdcomfy stack wait
  sdcomfy stack wait --stack-name MyComfyStack`,
		Args:         cobra.NoArgs,
		RunE:         runWait,
		SilenceUsage: true,
	}

	addStackNameFlag(cmd)

	return cmd
}

func runWait(cmd *cobra.Command, args []string) error {
	svc, _, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	pending, err := svc.ListPending()
	if err != nil {
		return err
	}

	only := ""
	if cmd.Flags().Changed("stack-name") {
		only, _ = cmd.Flags().GetString("stack-name")
	}
	records := filterPending(pending, svc.Provider().Region(), only)
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pending operations.")
		return nil
	}

	for i := range records {
		r := &records[i]
		cmdutil.Annotate(cmd, auditlog.Metadata{ResourceType: auditlog.ResourceStack, ResourceID: r.StackID, ResourceName: r.StackName})
		if err := awaitOperation(cmd, svc, stacksvc.OperationFromRecord(r)); err != nil {
			return err
		}
	}
	return nil
}

// filterPending keeps the records of region, optionally of one stack.
func filterPending(records []deployments.Record, region, stackName string) []deployments.Record {
	var out []deployments.Record
	for _, r := range records {
		if r.Region != region {
			continue
		}
		if stackName != "" && r.StackName != stackName {
			continue
		}
		out = append(out, r)
	}
	return out
}
