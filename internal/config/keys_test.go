package config

import (
	"strings"
	"testing"
)

func TestLookup_Exists(t *testing.T) {
	spec := Lookup("default-provider")
	if spec == nil {
		t.Fatal("expected to find key 'default-provider', got nil")
	}
	if spec.Name != "default-provider" {
		t.Errorf("expected Name %q, got %q", "default-provider", spec.Name)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	spec := Lookup("DEFAULT-PROVIDER")
	if spec == nil {
		t.Fatal("expected case-insensitive lookup to succeed")
	}
	if spec.Name != "default-provider" {
		t.Errorf("expected Name %q, got %q", "default-provider", spec.Name)
	}
}

func TestLookup_NotFound(t *testing.T) {
	spec := Lookup("nonexistent-key")
	if spec != nil {
		t.Errorf("expected nil for unknown key, got %+v", spec)
	}
}

func TestKeys_AllHaveGetAndSet(t *testing.T) {
	for _, k := range Keys {
		if k.Get == nil {
			t.Errorf("key %q has nil Get function", k.Name)
		}
		if k.Set == nil {
			t.Errorf("key %q has nil Set function", k.Name)
		}
		if k.Description == "" {
			t.Errorf("key %q has empty Description", k.Name)
		}
	}
}

// validValues holds an accepted value for every key.
var validValues = map[string]string{
	"default-provider":  "aws",
	"region":            "us-west-2",
	"profile":           "gpu",
	"stack-name":        "ComfyStack",
	"variant":           "prebaked",
	"instance-type":     "g5.xlarge",
	"availability-zone": "us-west-2b",
	"key-file":          "comfy.pem",
	"allow-https":       "false",
	"image-id":          "ami-0123456789abcdef0",
	"image-parameter":   "/custom/ami-id",
	"template-bucket":   "my-templates",
}

func TestKeys_GetSetRoundtrip(t *testing.T) {
	for _, k := range Keys {
		value, ok := validValues[k.Name]
		if !ok {
			t.Errorf("key %q has no test value", k.Name)
			continue
		}
		cfg := &Config{}
		if err := k.Set(cfg, value); err != nil {
			t.Errorf("key %q: Set(%q) failed: %v", k.Name, value, err)
			continue
		}
		if got := k.Get(cfg); got != value {
			t.Errorf("key %q: Set then Get = %q, want %q", k.Name, got, value)
		}

		if err := k.Set(cfg, ""); err != nil {
			t.Errorf("key %q: clearing failed: %v", k.Name, err)
		}
		if got := k.Get(cfg); got != "" {
			t.Errorf("key %q: expected cleared value, got %q", k.Name, got)
		}
	}
}

func TestKeys_SetRejectsInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"stack-name", "1-starts-with-digit"},
		{"stack-name", "has_underscore"},
		{"variant", "cloud"},
		{"key-file", "keys/comfy.pem"},
		{"allow-https", "maybe"},
		{"image-id", "img-123"},
		{"image-parameter", "relative/path"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			spec := Lookup(tt.key)
			if spec == nil {
				t.Fatalf("key %q not registered", tt.key)
			}
			cfg := &Config{}
			if err := spec.Set(cfg, tt.value); err == nil {
				t.Errorf("expected %q to be rejected", tt.value)
			}
			if got := spec.Get(cfg); got != "" {
				t.Errorf("rejected value must not be stored, got %q", got)
			}
		})
	}
}

func TestKeyNames(t *testing.T) {
	names := KeyNames()
	if len(names) != len(Keys) {
		t.Fatalf("expected %d names, got %d", len(Keys), len(names))
	}
	for i, name := range names {
		if name != Keys[i].Name {
			t.Errorf("index %d: expected %q, got %q", i, Keys[i].Name, name)
		}
	}
}

func TestKeysHelp_ContainsAllKeys(t *testing.T) {
	help := KeysHelp()
	if !strings.Contains(help, "Available keys:") {
		t.Error("expected 'Available keys:' header in help output")
	}
	for _, k := range Keys {
		if !strings.Contains(help, k.Name) {
			t.Errorf("expected key %q in help output", k.Name)
		}
		if !strings.Contains(help, k.Description) {
			t.Errorf("expected description %q in help output", k.Description)
		}
	}
}

func TestKeySpec_Display(t *testing.T) {
	on := true
	cfg := &Config{StackName: "ComfyStack", AllowHTTPS: &on}

	tests := []struct {
		key  string
		want string
	}{
		{"stack-name", "ComfyStack"},
		{"allow-https", "true"},
		{"instance-type", "g6e.xlarge (default)"},
		{"default-provider", "aws (default)"},
		{"region", "not set"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			spec := Lookup(tt.key)
			if spec == nil {
				t.Fatalf("key %q not registered", tt.key)
			}
			if got := spec.Display(cfg); got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (&Config{Variant: "prebaked", StackName: "Comfy"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := (&Config{KeyFile: "../escape.pem"}).Validate()
	if err == nil || !strings.Contains(err.Error(), "invalid key-file") {
		t.Errorf("expected key-file error, got %v", err)
	}
}
