// Package sshkeys handles the private key of the instance's key pair: it
// validates the material fetched from the parameter store and writes it
// to disk with owner-read-only permissions.
package sshkeys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// KeyFileMode is the permission a written private key ends up with.
const KeyFileMode os.FileMode = 0o400

// ErrKeyFileExists is returned by WriteKeyFile when the target exists and
// overwriting was not requested.
var ErrKeyFileExists = errors.New("key file already exists")

// ExpandHomePath expands a leading ~/ to the user's home directory.
func ExpandHomePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}

	return path, nil
}

// ParsePrivateKey validates PEM-encoded private key material and returns a
// signer for it.
func ParsePrivateKey(material string) (ssh.Signer, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	if !strings.Contains(material, "PRIVATE KEY") {
		return nil, fmt.Errorf("key material is not a PEM-encoded private key")
	}

	signer, err := ssh.ParsePrivateKey([]byte(material))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return signer, nil
}

// Fingerprint returns the SHA256 fingerprint of the key's public half, in
// the form ssh-keygen -l prints it.
func Fingerprint(material string) (string, error) {
	signer, err := ParsePrivateKey(material)
	if err != nil {
		return "", err
	}
	return ssh.FingerprintSHA256(signer.PublicKey()), nil
}

// AuthorizedKey returns the public half in authorized_keys format.
func AuthorizedKey(material string) (string, error) {
	signer, err := ParsePrivateKey(material)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(signer.PublicKey()))), nil
}

// ReadKeyFile reads and validates a private key previously written by
// WriteKeyFile.
func ReadKeyFile(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return ParsePrivateKey(string(data))
}

// WriteKeyFile validates material and writes it to path with mode 0400.
// An existing file is replaced only when overwrite is set. The file is
// written to a temporary name first and renamed into place.
func WriteKeyFile(path, material string, overwrite bool) error {
	if _, err := ParsePrivateKey(material); err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s: %w", path, ErrKeyFileExists)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	name := tmp.Name()

	data := strings.TrimSpace(material) + "\n"
	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := os.Chmod(name, KeyFileMode); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to restrict key file permissions: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to move key file into place: %w", err)
	}
	return nil
}
