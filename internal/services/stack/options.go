package stack

import (
	"fmt"

	"nathanbeddoewebdev/sdcomfy/internal/config"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

// OptionsFromConfig layers persisted settings over the default options.
func OptionsFromConfig(cfg *config.Config) (descriptor.Options, error) {
	opts := descriptor.DefaultOptions()
	if cfg == nil {
		return opts, nil
	}

	if cfg.StackName != "" {
		opts.StackName = cfg.StackName
	}
	if cfg.Variant != "" {
		strategy, err := domain.ParseDriverStrategy(cfg.Variant)
		if err != nil {
			return opts, fmt.Errorf("config variant: %w", err)
		}
		opts.Strategy = strategy
	}
	if cfg.InstanceType != "" {
		opts.InstanceType = cfg.InstanceType
	}
	if cfg.KeyFile != "" {
		opts.KeyFileName = cfg.KeyFile
	}
	opts.AvailabilityZone = cfg.AvailabilityZone
	opts.AllowHTTPS = cfg.HTTPSAllowed()
	opts.ImageParameter = cfg.ImageParameter
	opts.PinnedImageID = cfg.ImageID

	return opts, nil
}
