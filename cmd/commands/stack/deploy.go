package stack

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	stacksvc "nathanbeddoewebdev/sdcomfy/internal/services/stack"
	"nathanbeddoewebdev/sdcomfy/internal/tui"

	"github.com/spf13/cobra"
)

func DeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the ComfyUI stack",
		Long: `Create or update the ComfyUI stack and wait for the instance to
report that its first-boot setup finished.

In a terminal, an interactive wizard collects the settings unless --yes is
given. A stack left unusable by a failed create is deleted and recreated.
Interrupting the wait leaves the deployment running; resume it with
'sdcomfy stack wait'.

Examples:
  # Interactive wizard
  sdcomfy stack deploy

  # Non-interactive
  sdcomfy stack deploy --yes --variant prebaked --zone us-west-2b

  # Start and return immediately
  sdcomfy stack deploy --yes --no-wait`,
		Args:         cobra.NoArgs,
		RunE:         runDeploy,
		SilenceUsage: true,
	}

	addOptionFlags(cmd)
	cmd.Flags().BoolP("yes", "y", false, "Skip the interactive wizard and deploy with the resolved settings")
	cmd.Flags().Bool("no-wait", false, "Return once the deployment has started")
	cmd.Flags().Bool("disable-rollback", false, "Keep failed resources for debugging instead of rolling back")
	cmd.Flags().Bool("refresh-lookups", false, "Look up the default network and zone offerings again instead of using the cache")

	return cmd
}

func runDeploy(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	noWait, _ := cmd.Flags().GetBool("no-wait")
	disableRollback, _ := cmd.Flags().GetBool("disable-rollback")
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

	if !yes && cmdutil.Interactive() {
		chosen, err := tui.DeployForm(cmd.Context(), svc, opts)
		if err != nil {
			if errors.Is(err, tui.ErrAborted) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Deployment cancelled.")
				return nil
			}
			return err
		}
		opts = *chosen
	}

	cmdutil.Annotate(cmd, auditlog.StackResource(opts.StackName))

	fmt.Fprintf(cmd.ErrOrStderr(), "Deploying stack %s (%s, %s) to %s...\n",
		opts.StackName, opts.Strategy, opts.InstanceType, svc.Provider().Region())

	outcome, err := svc.Deploy(cmd.Context(), stacksvc.DeployInput{
		Options:         opts,
		TemplateBucket:  cfg.TemplateBucket,
		DisableRollback: disableRollback,
		RefreshLookups:  refresh,
	}, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to deploy stack %s: %w", opts.StackName, err)
	}
	printWarnings(cmd, outcome.Plan.Warnings)

	if outcome.NoChanges {
		fmt.Fprintf(cmd.OutOrStdout(), "Stack %s is up to date; nothing to deploy.\n", opts.StackName)
		return nil
	}

	op := outcome.Operation
	cmdutil.Annotate(cmd, auditlog.Metadata{ResourceID: op.StackID})
	fmt.Fprintf(cmd.ErrOrStderr(), "Started %s of stack %s (%s).\n", op.Kind, op.StackName, op.StackID)

	if noWait {
		fmt.Fprintln(cmd.OutOrStdout(), "Follow it with 'sdcomfy stack wait'.")
		return nil
	}
	return awaitOperation(cmd, svc, op)
}
