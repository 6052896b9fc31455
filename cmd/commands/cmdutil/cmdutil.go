// Package cmdutil holds helpers shared by the command groups: provider
// and region resolution, service construction, and audit annotation.
package cmdutil

import (
	"fmt"
	"os"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/config"
	"nathanbeddoewebdev/sdcomfy/internal/providers"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"
	"nathanbeddoewebdev/sdcomfy/internal/services/stack"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

// Store returns the credential store commands use. Tests replace it.
var Store = auth.DefaultStore

// Interactive reports whether both stdin and stdout are terminals. Tests
// replace it.
var Interactive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// LoadConfig loads the persistent configuration.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Target resolves the provider name and target from the persistent flags,
// falling back to the configured values.
func Target(cmd *cobra.Command, cfg *config.Config) (string, providers.Target) {
	name := flagOr(cmd, "provider", cfg.DefaultProvider)
	if name == "" {
		name = config.FallbackProvider
	}
	return name, providers.Target{
		Region:  flagOr(cmd, "region", cfg.Region),
		Profile: flagOr(cmd, "profile", cfg.Profile),
	}
}

// OpenService loads the config and builds the stack service for the
// resolved provider. The caller closes the service.
func OpenService(cmd *cobra.Command) (*stack.Service, *config.Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	name, target := Target(cmd, cfg)
	svc, err := stack.Open(name, Store(), target)
	if err != nil {
		return nil, nil, err
	}
	Annotate(cmd, auditlog.Metadata{Provider: name, Region: svc.Provider().Region()})
	return svc, cfg, nil
}

// StackName returns the --stack-name flag when set, else the configured
// or default stack name.
func StackName(cmd *cobra.Command, cfg *config.Config) (string, error) {
	opts, err := stack.OptionsFromConfig(cfg)
	if err != nil {
		return "", err
	}
	return flagOr(cmd, "stack-name", opts.StackName), nil
}

// Annotate attaches audit metadata to the command's context.
func Annotate(cmd *cobra.Command, meta auditlog.Metadata) {
	cmd.SetContext(auditlog.WithMetadata(cmd.Context(), meta))
}

// flagOr returns the named flag's value when it was set on the command
// line, else fallback.
func flagOr(cmd *cobra.Command, name, fallback string) string {
	f := cmd.Flag(name)
	if f == nil || !f.Changed {
		return fallback
	}
	return strings.TrimSpace(f.Value.String())
}
