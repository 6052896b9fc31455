package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/auditlog"

	"github.com/spf13/cobra"
)

func findCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	found, _, err := rootCmd().Find(args)
	if err != nil {
		t.Fatalf("Find(%v): %v", args, err)
	}
	return found
}

func TestRootCmd_HasCommandGroups(t *testing.T) {
	root := rootCmd()
	want := []string{"app", "audit", "auth", "config", "key", "stack"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("root command is missing %q", name)
		}
	}
}

func TestAuditEntry_RecordsMetadataAndRedactsSecrets(t *testing.T) {
	cmd := findCommand(t, "auth", "login")
	cmd.SetContext(auditlog.WithMetadata(context.Background(), auditlog.Metadata{
		Provider:     "aws",
		Region:       "us-west-2",
		ResourceType: "stack",
		ResourceName: "ComfyStack",
	}))

	args := []string{"auth", "login", "--access-key-id", "AKIA", "--secret-access-key", "s3cret"}
	entry := auditEntry(cmd, args, time.Now(), nil)
	if entry == nil {
		t.Fatal("expected an audit entry")
	}

	if entry.Command != "sdcomfy auth login" {
		t.Errorf("Command = %q, want %q", entry.Command, "sdcomfy auth login")
	}
	if strings.Contains(entry.Args, "s3cret") {
		t.Errorf("Args leaked the secret: %q", entry.Args)
	}
	if entry.Outcome != auditlog.OutcomeSuccess {
		t.Errorf("Outcome = %q, want %q", entry.Outcome, auditlog.OutcomeSuccess)
	}
	if entry.Region != "us-west-2" || entry.ResourceName != "ComfyStack" {
		t.Errorf("metadata not copied: %+v", entry)
	}
}

func TestAuditEntry_Error(t *testing.T) {
	cmd := findCommand(t, "stack", "deploy")
	entry := auditEntry(cmd, []string{"stack", "deploy"}, time.Now(), errors.New("boom"))
	if entry == nil {
		t.Fatal("expected an audit entry")
	}
	if entry.Outcome != auditlog.OutcomeError || entry.Detail != "boom" {
		t.Errorf("got outcome %q detail %q, want error/boom", entry.Outcome, entry.Detail)
	}
}

func TestAuditEntry_SkipsGroupsAndAuditCommands(t *testing.T) {
	tests := [][]string{
		{"stack"},
		{"audit", "list"},
	}
	for _, args := range tests {
		cmd := findCommand(t, args...)
		if entry := auditEntry(cmd, args, time.Now(), nil); entry != nil {
			t.Errorf("auditEntry(%v) = %+v, want nil", args, entry)
		}
	}
	if entry := auditEntry(nil, nil, time.Now(), nil); entry != nil {
		t.Errorf("auditEntry(nil) = %+v, want nil", entry)
	}
}
