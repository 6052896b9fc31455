package util

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// validStackChars matches only alphanumeric characters and hyphens.
var validStackChars = regexp.MustCompile(`^[a-zA-Z0-9\-]+$`)

// maxStackNameLen is the longest stack name CloudFormation accepts.
const maxStackNameLen = 128

// ValidateStackName checks that a stack name is accepted by CloudFormation:
//   - At most 128 characters
//   - Only alphanumeric characters (a-z, A-Z, 0-9) and hyphens (-)
//   - First character must be a letter
func ValidateStackName(name string) error {
	if name == "" {
		return fmt.Errorf("stack name must not be empty")
	}
	if len(name) > maxStackNameLen {
		return fmt.Errorf("stack name must be at most %d characters, got %d", maxStackNameLen, len(name))
	}

	if !validStackChars.MatchString(name) {
		return fmt.Errorf("stack name %q contains invalid characters (only a-z, A-Z, 0-9 and hyphens are allowed)", name)
	}

	if !isLetter(name[0]) {
		return fmt.Errorf("stack name must start with a letter, got %q", string(name[0]))
	}

	return nil
}

// ValidateKeyFileName checks that a key file name is a bare file name whose
// stem can serve as a key pair name.
func ValidateKeyFileName(name string) error {
	if name == "" {
		return fmt.Errorf("key file name must not be empty")
	}
	if filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("key file name %q must not contain a directory", name)
	}
	if strings.TrimSuffix(name, filepath.Ext(name)) == "" {
		return fmt.Errorf("key file name %q has no name before the extension", name)
	}
	return nil
}

// KeyNameFromFile derives a key pair name from a key file name by dropping
// the extension: comfyui-key-pair.pem becomes comfyui-key-pair.
func KeyNameFromFile(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// NormalizeKey trims and lowercases s. Provider names, config keys, regions
// and variants are all compared in this form.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
