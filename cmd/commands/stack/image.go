package stack

import (
	"fmt"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"

	"github.com/spf13/cobra"
)

func ImageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Resolve the machine image the next deployment would use",
		Long: `Resolve the machine image the next deployment would use.

Unless an image is pinned, the image is read from a public parameter at
deploy time and can change between deployments. Pin the printed ID to make
redeployments reproducible.

Examples:
  sdcomfy stack image
  sdcomfy stack image --variant prebaked
  sdcomfy config set image-id $(sdcomfy stack image)`,
		Args:         cobra.NoArgs,
		RunE:         runImage,
		SilenceUsage: true,
	}

	addOptionFlags(cmd)

	return cmd
}

func runImage(cmd *cobra.Command, args []string) error {
	svc, cfg, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts, err := resolveOptions(cmd, cfg)
	if err != nil {
		return err
	}

	image, id, err := svc.ResolveImage(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("failed to resolve image: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	if image.Floating() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Resolved from %s (%s variant). Pin it with 'sdcomfy config set image-id %s'.\n",
			image.Parameter, opts.Strategy, id)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "Image is pinned.")
	}
	return nil
}
