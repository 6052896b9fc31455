package stack

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/config"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	stacksvc "nathanbeddoewebdev/sdcomfy/internal/services/stack"
	"nathanbeddoewebdev/sdcomfy/internal/tui/styles"

	"github.com/spf13/cobra"
)

// addStackNameFlag registers --stack-name on commands that act on an
// existing stack.
func addStackNameFlag(cmd *cobra.Command) {
	cmd.Flags().String("stack-name", "", "Stack name (default from config or "+descriptor.DefaultStackName+")")
}

// addOptionFlags registers the flags that override deployment settings.
func addOptionFlags(cmd *cobra.Command) {
	addStackNameFlag(cmd)
	f := cmd.Flags()
	f.String("variant", "", "Driver strategy: manual or prebaked")
	f.String("instance-type", "", "GPU instance type (default "+descriptor.DefaultInstanceType+")")
	f.String("zone", "", "Availability zone to pin the instance to")
	f.Bool("allow-https", true, "Open port 443 in the firewall")
	f.String("image-id", "", "Pinned machine image ID (disables floating image resolution)")
}

// resolveOptions layers changed flags over the configured options.
func resolveOptions(cmd *cobra.Command, cfg *config.Config) (descriptor.Options, error) {
	opts, err := stacksvc.OptionsFromConfig(cfg)
	if err != nil {
		return opts, err
	}

	f := cmd.Flags()
	if f.Changed("stack-name") {
		opts.StackName, _ = f.GetString("stack-name")
	}
	if f.Changed("variant") {
		raw, _ := f.GetString("variant")
		strategy, err := domain.ParseDriverStrategy(raw)
		if err != nil {
			return opts, err
		}
		opts.Strategy = strategy
	}
	if f.Changed("instance-type") {
		opts.InstanceType, _ = f.GetString("instance-type")
	}
	if f.Changed("zone") {
		opts.AvailabilityZone, _ = f.GetString("zone")
	}
	if f.Changed("allow-https") {
		opts.AllowHTTPS, _ = f.GetBool("allow-https")
	}
	if f.Changed("image-id") {
		opts.PinnedImageID, _ = f.GetString("image-id")
	}

	opts.StackName = strings.TrimSpace(opts.StackName)
	opts.InstanceType = strings.TrimSpace(opts.InstanceType)
	opts.AvailabilityZone = strings.TrimSpace(opts.AvailabilityZone)
	opts.PinnedImageID = strings.TrimSpace(opts.PinnedImageID)

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid deployment settings: %w", err)
	}
	return opts, nil
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.WarningText.Render("Warning:")+" "+w)
	}
}
