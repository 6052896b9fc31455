package stack

import (
	"encoding/json"
	"fmt"
	"sort"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"

	"github.com/spf13/cobra"
)

func OutputsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Show the stack outputs",
		Long: `Show the outputs of a completed stack: the instance console link,
the command that retrieves the SSH key, and the ComfyUI address.

Examples:
  sdcomfy stack outputs
  sdcomfy stack outputs -o json`,
		Args:         cobra.NoArgs,
		RunE:         runOutputs,
		SilenceUsage: true,
	}

	addStackNameFlag(cmd)
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runOutputs(cmd *cobra.Command, args []string) error {
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

	s, err := svc.Outputs(cmd.Context(), name)
	if err != nil {
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(s.Outputs)
	}
	printOutputs(cmd, s)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
