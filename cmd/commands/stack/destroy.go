package stack

import (
	"errors"
	"fmt"
	"os"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/domain"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func DestroyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the stack and everything in it",
		Long: `Delete the stack: the instance, its volume, the security group, and
the generated key pair. Local key files are left in place.

In a terminal, you are asked to confirm unless --yes is given. Without a
terminal, --yes is required.

Examples:
  sdcomfy stack destroy
  sdcomfy stack destroy --yes --no-wait`,
		Args:         cobra.NoArgs,
		RunE:         runDestroy,
		SilenceUsage: true,
	}

	addStackNameFlag(cmd)
	cmd.Flags().BoolP("yes", "y", false, "Delete without asking for confirmation")
	cmd.Flags().Bool("no-wait", false, "Return once the deletion has started")

	return cmd
}

func runDestroy(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	noWait, _ := cmd.Flags().GetBool("no-wait")

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

	if !yes {
		if !cmdutil.Interactive() {
			return fmt.Errorf("refusing to delete stack %s without confirmation; pass --yes", name)
		}
		confirmed := false
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("Delete stack %s in %s?", name, svc.Provider().Region())).
			Description("The instance and everything on it will be lost.").
			Value(&confirmed)
		err := huh.NewForm(huh.NewGroup(confirm)).
			WithAccessible(os.Getenv("ACCESSIBLE") != "").
			Run()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.ErrOrStderr(), "Stack deletion cancelled.")
			return nil
		}
	}

	op, err := svc.Destroy(cmd.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "Stack %s does not exist in %s; nothing to delete.\n", name, svc.Provider().Region())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete stack %s: %w", name, err)
	}
	cmdutil.Annotate(cmd, auditlog.Metadata{ResourceID: op.StackID})
	fmt.Fprintf(cmd.ErrOrStderr(), "Deleting stack %s...\n", name)

	if noWait {
		fmt.Fprintln(cmd.OutOrStdout(), "Deletion started. Follow it with 'sdcomfy stack wait'.")
		return nil
	}
	return awaitOperation(cmd, svc, op)
}
