// Package config handles persistent user configuration for sdcomfy.
//
// Configuration is stored as YAML at <user config dir>/sdcomfy/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

const (
	appDir   = "sdcomfy"
	fileName = "config.yaml"
)

// pathOverride replaces the default config file path when non-empty.
var pathOverride string

// SetPath overrides the config file path. Intended for testing.
func SetPath(p string) { pathOverride = p }

// ResetPath reverts to the default config file path.
func ResetPath() { pathOverride = "" }

// Config holds deployment defaults that persist across invocations.
// Flags override these values and empty fields fall back to the built-in
// defaults.
type Config struct {
	DefaultProvider string `json:"default_provider,omitempty"`

	Region  string `json:"region,omitempty"`
	Profile string `json:"profile,omitempty"`

	StackName        string `json:"stack_name,omitempty"`
	Variant          string `json:"variant,omitempty"`
	InstanceType     string `json:"instance_type,omitempty"`
	AvailabilityZone string `json:"availability_zone,omitempty"`
	KeyFile          string `json:"key_file,omitempty"`

	// AllowHTTPS is nil when unset so an explicit false is kept.
	AllowHTTPS *bool `json:"allow_https,omitempty"`

	ImageID        string `json:"image_id,omitempty"`
	ImageParameter string `json:"image_parameter,omitempty"`
	TemplateBucket string `json:"template_bucket,omitempty"`
}

// HTTPSAllowed returns the allow-https setting, defaulting to true.
func (c *Config) HTTPSAllowed() bool {
	if c == nil || c.AllowHTTPS == nil {
		return true
	}
	return *c.AllowHTTPS
}

// Path returns the config file location.
func Path() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: unable to determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, fileName), nil
}

// Load reads the config file. A missing file yields an empty Config.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Unknown fields and values a key would
// reject from 'config set' are errors, so hand edits fail loudly.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate re-applies every key's current value through its setter.
func (c *Config) Validate() error {
	probe := *c
	for _, k := range Keys {
		if err := k.Set(&probe, k.Get(c)); err != nil {
			return fmt.Errorf("invalid %s: %w", k.Name, err)
		}
	}
	return nil
}

// Save writes the config to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path through a temporary file in the same
// directory, so readers never observe a partial file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: failed to encode config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+fileName+".*")
	if err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("config: failed to replace %s: %w", path, err)
	}
	return nil
}
