package config

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/config"
	"nathanbeddoewebdev/sdcomfy/internal/tui"
	"nathanbeddoewebdev/sdcomfy/internal/util"

	"github.com/spf13/cobra"
)

// GetCommand returns the "config get" command.
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a configuration value",
		Long: "Get a persistent configuration value.\n\n" +
			"If no key is provided and running in a terminal, opens an interactive\n" +
			"config viewer where you can browse and edit all settings.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  sdcomfy config get                       # interactive viewer\n" +
			"  sdcomfy config get instance-type         # value, or the default it falls back to\n" +
			"  sdcomfy config get --raw template-bucket # stored value only, for scripts",
		Args:         cobra.MaximumNArgs(1),
		RunE:         runGet,
		SilenceUsage: true,
	}

	cmd.Flags().String("key", "", "Configuration key to fetch (same as the positional argument)")
	cmd.Flags().Bool("raw", false, "Print only the stored value, empty when unset")

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	keyFlag, _ := cmd.Flags().GetString("key")
	if len(args) == 1 {
		keyFlag = args[0]
	}
	keyFlag = strings.TrimSpace(keyFlag)

	if keyFlag == "" {
		if cmdutil.Interactive() {
			if err := tui.RunConfigView(); err != nil {
				return fmt.Errorf("config view failed: %w", err)
			}
			return nil
		}
		return runList(cmd, nil)
	}

	key := util.NormalizeKey(keyFlag)

	spec := config.Lookup(key)
	if spec == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", keyFlag, strings.Join(config.KeyNames(), ", "))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	raw, _ := cmd.Flags().GetBool("raw")
	if raw {
		fmt.Fprintln(cmd.OutOrStdout(), spec.Get(cfg))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), spec.Display(cfg))
	return nil
}
