package audit

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/auditlog"
	"nathanbeddoewebdev/sdcomfy/internal/database"
	"nathanbeddoewebdev/sdcomfy/internal/deployments"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

func setupAuditTest(t *testing.T) {
	t.Helper()
	database.SetPath(filepath.Join(t.TempDir(), "sdcomfy.db"))
	t.Cleanup(database.ResetPath)
}

func execAudit(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var outBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return outBuf.String(), err
}

func saveEntries(t *testing.T, entries ...auditlog.AuditEntry) {
	t.Helper()
	repo, err := auditlog.Open()
	if err != nil {
		t.Fatalf("auditlog.Open: %v", err)
	}
	defer repo.Close()
	for i := range entries {
		if err := repo.Save(&entries[i]); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
}

func TestList_FilterByStack(t *testing.T) {
	setupAuditTest(t)
	now := time.Now().UTC()
	saveEntries(t,
		auditlog.AuditEntry{Timestamp: now, Command: "sdcomfy stack deploy", Region: "us-west-2", ResourceType: "stack", ResourceName: "Comfy", Outcome: auditlog.OutcomeSuccess, DurationMs: 600000},
		auditlog.AuditEntry{Timestamp: now, Command: "sdcomfy stack deploy", Region: "us-east-1", ResourceType: "stack", ResourceName: "Other", Outcome: auditlog.OutcomeError, Detail: "boom"},
	)

	out, err := execAudit(t, "list", "--stack", "Comfy")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "stack Comfy") || !strings.Contains(out, "10m00s") {
		t.Errorf("expected the Comfy deploy, got:\n%s", out)
	}
	if strings.Contains(out, "Other") {
		t.Errorf("expected Other to be filtered out, got:\n%s", out)
	}
}

func TestList_Empty(t *testing.T) {
	setupAuditTest(t)

	out, err := execAudit(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No audit entries found.") {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = execAudit(t, "list", "-o", "json")
	if err != nil {
		t.Fatalf("list -o json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected an empty JSON array, got %q", out)
	}
}

func TestList_FailedSince(t *testing.T) {
	setupAuditTest(t)
	now := time.Now().UTC()
	saveEntries(t,
		auditlog.AuditEntry{Timestamp: now.Add(-72 * time.Hour), Command: "sdcomfy stack deploy", ResourceType: "stack", ResourceName: "Ancient", Outcome: auditlog.OutcomeError, Detail: "old failure"},
		auditlog.AuditEntry{Timestamp: now.Add(-time.Hour), Command: "sdcomfy stack deploy", ResourceType: "stack", ResourceName: "Comfy", Outcome: auditlog.OutcomeError, Detail: "signal timeout"},
		auditlog.AuditEntry{Timestamp: now, Command: "sdcomfy stack status", ResourceType: "stack", ResourceName: "Comfy", Outcome: auditlog.OutcomeSuccess},
	)

	out, err := execAudit(t, "list", "--failed", "--since", "1d")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "signal timeout") {
		t.Errorf("expected the recent failure, got:\n%s", out)
	}
	if strings.Contains(out, "old failure") || strings.Contains(out, "stack status") {
		t.Errorf("expected old and successful entries filtered out, got:\n%s", out)
	}

	if _, err := execAudit(t, "list", "--since", "soon"); err == nil {
		t.Error("expected an error for an invalid --since")
	}
}

func TestPrune_RemovesFinishedOperations(t *testing.T) {
	setupAuditTest(t)
	old := time.Now().UTC().Add(-48 * time.Hour)
	saveEntries(t, auditlog.AuditEntry{Timestamp: old, Command: "sdcomfy stack status", Outcome: auditlog.OutcomeSuccess})

	history, err := deployments.Open()
	if err != nil {
		t.Fatalf("deployments.Open: %v", err)
	}
	finished := &deployments.Record{Provider: "aws", Region: "us-west-2", StackName: "Comfy", Operation: domain.OperationCreate, Status: deployments.StatusSuccess}
	running := &deployments.Record{Provider: "aws", Region: "us-west-2", StackName: "Comfy", Operation: domain.OperationDelete, Status: deployments.StatusRunning}
	for _, r := range []*deployments.Record{finished, running} {
		if err := history.Save(r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	history.Close()

	// Save stamps updated_at with the current time.
	path, err := database.DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	if _, err := db.Exec(`UPDATE deployments SET updated_at = ?`, database.FormatTime(old)); err != nil {
		t.Fatalf("failed to backdate records: %v", err)
	}
	db.Close()

	out, err := execAudit(t, "prune", "--older-than", "1d")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !strings.Contains(out, "Removed 1 audit entry.") || !strings.Contains(out, "Removed 1 stack operation record.") {
		t.Errorf("unexpected output:\n%s", out)
	}

	history, err = deployments.Open()
	if err != nil {
		t.Fatalf("deployments.Open: %v", err)
	}
	defer history.Close()
	pending, err := history.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].Operation != domain.OperationDelete {
		t.Errorf("expected the running delete to survive, got %+v", pending)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"72h", 72 * time.Hour, false},
		{"-1d", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDuration(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatResource(t *testing.T) {
	tests := []struct {
		entry auditlog.AuditEntry
		want  string
	}{
		{auditlog.AuditEntry{}, "-"},
		{auditlog.AuditEntry{ResourceType: "stack", ResourceName: "Comfy"}, "stack Comfy"},
		{auditlog.AuditEntry{ResourceType: "key", ResourceName: "Comfy", ResourceID: "key-0abc"}, "key Comfy (key-0abc)"},
	}
	for _, tt := range tests {
		if got := formatResource(tt.entry); got != tt.want {
			t.Errorf("formatResource(%+v) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}
