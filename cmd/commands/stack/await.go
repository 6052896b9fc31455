package stack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	stacksvc "nathanbeddoewebdev/sdcomfy/internal/services/stack"
	"nathanbeddoewebdev/sdcomfy/internal/tui"
	"nathanbeddoewebdev/sdcomfy/internal/tui/styles"

	"github.com/spf13/cobra"
)

const resumeHint = "The operation continues in the background. Resume with 'sdcomfy stack wait'."

// awaitOperation waits for op to settle, full-screen in a terminal and as
// plain progress lines otherwise. Interrupting stops the wait only.
func awaitOperation(cmd *cobra.Command, svc *stacksvc.Service, op *stacksvc.Operation) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var (
		final *domain.Stack
		err   error
	)
	if cmdutil.Interactive() {
		result, runErr := tui.RunStackWatch(ctx, svc, op)
		if runErr != nil {
			return runErr
		}
		if result.Detached {
			fmt.Fprintf(cmd.ErrOrStderr(), "Stopped watching %s of %s. %s\n", op.Kind, op.StackName, resumeHint)
			return nil
		}
		final, err = result.Stack, result.Err
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for %s of stack %s...\n", op.Kind, op.StackName)
		final, err = svc.Await(ctx, op, stacksvc.TextObserver(cmd.ErrOrStderr()))
	}

	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Stopped waiting for %s of %s. %s\n", op.Kind, op.StackName, resumeHint)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s of stack %s failed: %w", op.Kind, op.StackName, err)
	}

	if op.Kind == domain.OperationDelete || final == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Stack %s deleted.\n", op.StackName)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stack %s is %s.\n", op.StackName, styles.StatusStyle(final.Status).Render(final.Status))
	printOutputs(cmd, final)
	fmt.Fprintln(cmd.ErrOrStderr(), "\nNext: 'sdcomfy key fetch' saves the SSH key, 'sdcomfy app status' checks ComfyUI.")
	return nil
}

// printOutputs prints the stack outputs in display order, followed by any
// the CLI does not know about.
func printOutputs(cmd *cobra.Command, s *domain.Stack) {
	if s == nil || len(s.Outputs) == 0 {
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	seen := make(map[string]bool, len(s.Outputs))
	for _, key := range descriptor.OutputNames() {
		if v, ok := s.Outputs[key]; ok {
			fmt.Fprintf(w, "  %s:\t%s\n", key, v)
			seen[key] = true
		}
	}
	for _, key := range sortedKeys(s.Outputs) {
		if !seen[key] {
			fmt.Fprintf(w, "  %s:\t%s\n", key, s.Outputs[key])
		}
	}
	w.Flush()
}
