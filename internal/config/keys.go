package config

import (
	"fmt"
	"strconv"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/util"
)

// KeySpec describes a single configuration key.
type KeySpec struct {
	// Name is the CLI-facing key name (e.g. "stack-name").
	Name string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// Default describes what applies while the key is unset. Empty means
	// nothing does.
	Default string

	// Get returns the current value for this key from a loaded Config.
	Get func(cfg *Config) string

	// Set validates value and applies it to cfg (in memory only; the
	// caller is responsible for calling Save). An empty value clears the key.
	Set func(cfg *Config, value string) error
}

// FallbackProvider is used when neither --provider nor the config names one.
const FallbackProvider = "aws"

// Keys is the authoritative list of all supported configuration keys.
// To add a new option: add a field to Config and append a KeySpec here.
var Keys = []KeySpec{
	stringKey("default-provider", "Cloud provider used when --provider is not specified", FallbackProvider,
		func(c *Config) *string { return &c.DefaultProvider }, nil),
	stringKey("region", "AWS region to deploy into (falls back to AWS_REGION)", "",
		func(c *Config) *string { return &c.Region }, nil),
	stringKey("profile", "Shared AWS config profile used for credentials", "",
		func(c *Config) *string { return &c.Profile }, nil),
	stringKey("stack-name", "Name of the deployed stack", descriptor.DefaultStackName,
		func(c *Config) *string { return &c.StackName }, util.ValidateStackName),
	stringKey("variant", "Driver strategy: manual or prebaked", string(domain.DriverManual),
		func(c *Config) *string { return &c.Variant }, validateVariant),
	stringKey("instance-type", "GPU instance type", descriptor.DefaultInstanceType,
		func(c *Config) *string { return &c.InstanceType }, nil),
	stringKey("availability-zone", "Availability zone to pin the instance to", "",
		func(c *Config) *string { return &c.AvailabilityZone }, nil),
	stringKey("key-file", "File the private key is written to", descriptor.DefaultKeyFileName,
		func(c *Config) *string { return &c.KeyFile }, util.ValidateKeyFileName),
	{
		Name:        "allow-https",
		Description: "Open port 443 in the firewall (true or false)",
		Default:     "true",
		Get: func(cfg *Config) string {
			if cfg.AllowHTTPS == nil {
				return ""
			}
			return strconv.FormatBool(*cfg.AllowHTTPS)
		},
		Set: func(cfg *Config, v string) error {
			if v == "" {
				cfg.AllowHTTPS = nil
				return nil
			}
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("allow-https must be true or false, got %q", v)
			}
			cfg.AllowHTTPS = &b
			return nil
		},
	},
	stringKey("image-id", "Pinned machine image ID (disables floating image resolution)", "",
		func(c *Config) *string { return &c.ImageID }, validateImageID),
	stringKey("image-parameter", "Parameter path the image is resolved from", "per variant",
		func(c *Config) *string { return &c.ImageParameter }, validateImageParameter),
	stringKey("template-bucket", "S3 bucket used to stage templates too large to send inline", "",
		func(c *Config) *string { return &c.TemplateBucket }, nil),
}

func stringKey(name, description, def string, field func(*Config) *string, validate func(string) error) KeySpec {
	return KeySpec{
		Name:        name,
		Description: description,
		Default:     def,
		Get:         func(cfg *Config) string { return *field(cfg) },
		Set: func(cfg *Config, v string) error {
			if v != "" && validate != nil {
				if err := validate(v); err != nil {
					return err
				}
			}
			*field(cfg) = v
			return nil
		},
	}
}

func validateVariant(v string) error {
	_, err := domain.ParseDriverStrategy(v)
	return err
}

func validateImageID(v string) error {
	if !strings.HasPrefix(v, "ami-") {
		return fmt.Errorf("image ID must start with \"ami-\", got %q", v)
	}
	return nil
}

func validateImageParameter(v string) error {
	if !strings.HasPrefix(v, "/") {
		return fmt.Errorf("image parameter must be an absolute path, got %q", v)
	}
	return nil
}

// Display renders the key's value in cfg for people: the value itself, the
// default marked as such, or "not set".
func (k KeySpec) Display(cfg *Config) string {
	if v := k.Get(cfg); v != "" {
		return v
	}
	if k.Default != "" {
		return k.Default + " (default)"
	}
	return "not set"
}

// Lookup returns the KeySpec for the given name, or nil if not found.
// The name is matched case-insensitively after trimming whitespace.
func Lookup(name string) *KeySpec {
	normalized := util.NormalizeKey(name)
	for i := range Keys {
		if Keys[i].Name == normalized {
			return &Keys[i]
		}
	}
	return nil
}

// KeyNames returns the names of all registered keys.
func KeyNames() []string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return names
}

// KeysHelp builds a formatted block listing all available keys and their
// descriptions, suitable for inclusion in Cobra Long help text.
func KeysHelp() string {
	if len(Keys) == 0 {
		return ""
	}

	maxLen := 0
	for _, k := range Keys {
		if len(k.Name) > maxLen {
			maxLen = len(k.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Available keys:\n")
	for _, k := range Keys {
		fmt.Fprintf(&b, "  %-*s   %s\n", maxLen, k.Name, k.Description)
	}
	return b.String()
}
