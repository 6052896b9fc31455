package key

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/config"
	"nathanbeddoewebdev/sdcomfy/internal/database"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/offerings"
	"nathanbeddoewebdev/sdcomfy/internal/providers"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"

	"golang.org/x/crypto/ssh"
)

func setupKeyTest(t *testing.T) (*providers.MockProvider, string) {
	t.Helper()
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.yaml")
	config.SetPath(configPath)
	t.Cleanup(config.ResetPath)
	database.SetPath(filepath.Join(dir, "sdcomfy.db"))
	t.Cleanup(database.ResetPath)
	offerings.SetDir(filepath.Join(dir, "offerings"))
	t.Cleanup(offerings.ResetDir)

	cfg := &config.Config{DefaultProvider: "mock"}
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	mock := providers.NewMockProvider()
	providers.Reset()
	t.Cleanup(providers.Reset)
	providers.Register("mock", func(store auth.Store, target providers.Target) (domain.Provider, error) {
		return mock, nil
	})

	prevStore := cmdutil.Store
	cmdutil.Store = func() auth.Store { return auth.NewMockStore() }
	t.Cleanup(func() { cmdutil.Store = prevStore })

	mock.Stacks[descriptor.DefaultStackName] = &domain.Stack{
		Name:   descriptor.DefaultStackName,
		Status: domain.StatusCreateComplete,
		Outputs: map[string]string{
			descriptor.OutputKeyCommand: "aws ssm get-parameter --name /ec2/keypair/key-0abc --region us-west-2 --with-decryption --query Parameter.Value --output text > comfyui-key-pair.pem && chmod 400 comfyui-key-pair.pem",
			descriptor.OutputPortal:     "ec2-1-2-3-4.us-west-2.compute.amazonaws.com:8080",
		},
	}
	mock.KeyMaterial["key-0abc"] = testKeyMaterial(t)

	return mock, dir
}

func testKeyMaterial(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatalf("MarshalPrivateKey: %v", err)
	}
	return string(pem.EncodeToMemory(block))
}

func execKey(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestFetch_WritesKey(t *testing.T) {
	_, dir := setupKeyTest(t)
	out := filepath.Join(dir, "comfyui.pem")

	stdout, stderr, err := execKey(t, "fetch", "--out", out)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(stdout, "Saved private key of key-0abc to "+out) {
		t.Errorf("unexpected output: %s", stdout)
	}
	if !strings.Contains(stdout, "Fingerprint: SHA256:") {
		t.Errorf("expected a fingerprint, got: %s", stdout)
	}
	if !strings.Contains(stderr, "ubuntu@ec2-1-2-3-4.us-west-2.compute.amazonaws.com") {
		t.Errorf("expected an ssh hint, got: %s", stderr)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("expected key file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o400 {
		t.Errorf("key file mode = %o, want 400", perm)
	}
}

func TestFetch_ExistingFileNeedsForce(t *testing.T) {
	_, dir := setupKeyTest(t)
	out := filepath.Join(dir, "comfyui.pem")
	if err := os.WriteFile(out, []byte("old"), 0o600); err != nil {
		t.Fatalf("failed to seed key file: %v", err)
	}

	_, _, err := execKey(t, "fetch", "--out", out)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected --force hint, got %v", err)
	}

	if _, _, err := execKey(t, "fetch", "--out", out, "--force"); err != nil {
		t.Fatalf("fetch --force: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read key file: %v", err)
	}
	if !strings.Contains(string(data), "PRIVATE KEY") {
		t.Errorf("expected the key to be replaced, got %q", data)
	}
}

func TestFetch_MissingKeyMaterial(t *testing.T) {
	mock, dir := setupKeyTest(t)
	delete(mock.KeyMaterial, "key-0abc")

	_, _, err := execKey(t, "fetch", "--out", filepath.Join(dir, "k.pem"))
	if err == nil || !strings.Contains(err.Error(), "failed to fetch key") {
		t.Errorf("expected fetch error, got %v", err)
	}
}
