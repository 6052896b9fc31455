package auditlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func tempRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdcomfy.db")
	r, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSave_AssignsIDAndTimestamp(t *testing.T) {
	r := tempRepo(t)

	entry := &AuditEntry{
		Command:    "sdcomfy stack status",
		Outcome:    OutcomeSuccess,
		DurationMs: 12,
	}

	if err := r.Save(entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if entry.ID == 0 {
		t.Error("expected ID to be assigned")
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestQuery_NewestFirstWithLimit(t *testing.T) {
	r := tempRepo(t)

	for i := range 3 {
		entry := &AuditEntry{
			Command:   "sdcomfy stack status",
			Outcome:   OutcomeSuccess,
			Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := r.Save(entry); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	entries, err := r.Query(Filter{Limit: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Timestamp.Before(entries[1].Timestamp) {
		t.Error("expected entries sorted by timestamp descending")
	}
}

func TestQuery_Filters(t *testing.T) {
	r := tempRepo(t)
	now := time.Now().UTC()

	seed := []*AuditEntry{
		{Timestamp: now.Add(-3 * time.Hour), Command: "sdcomfy stack deploy", ResourceName: "Comfy", Outcome: OutcomeError},
		{Timestamp: now.Add(-2 * time.Hour), Command: "sdcomfy stack deploy", ResourceName: "Comfy", Outcome: OutcomeSuccess},
		{Timestamp: now.Add(-1 * time.Hour), Command: "sdcomfy stack status", ResourceName: "Comfy", Outcome: OutcomeError},
		{Timestamp: now, Command: "sdcomfy stack deploy", ResourceName: "Other", Outcome: OutcomeError},
	}
	for _, e := range seed {
		if err := r.Save(e); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"all", Filter{}, []int64{4, 3, 2, 1}},
		{"command", Filter{Command: "sdcomfy stack deploy"}, []int64{4, 2, 1}},
		{"resource", Filter{Resource: "Comfy"}, []int64{3, 2, 1}},
		{"failed", Filter{FailedOnly: true}, []int64{4, 3, 1}},
		{"since", Filter{Since: now.Add(-90 * time.Minute)}, []int64{4, 3}},
		{"combined", Filter{Command: "sdcomfy stack deploy", Resource: "Comfy", FailedOnly: true}, []int64{1}},
		{"no match", Filter{Resource: "Missing"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := r.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			var got []int64
			for _, e := range entries {
				got = append(got, e.ID)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IDs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrune(t *testing.T) {
	r := tempRepo(t)

	oldEntry := &AuditEntry{
		Command:   "sdcomfy stack status",
		Outcome:   OutcomeSuccess,
		Timestamp: time.Now().UTC().Add(-48 * time.Hour),
	}
	recentEntry := &AuditEntry{
		Command:   "sdcomfy stack status",
		Outcome:   OutcomeSuccess,
		Timestamp: time.Now().UTC().Add(-1 * time.Hour),
	}

	if err := r.Save(oldEntry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := r.Save(recentEntry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	removed, err := r.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	remaining, err := r.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", len(remaining))
	}
}

func TestSave_RoundTripsMetadata(t *testing.T) {
	r := tempRepo(t)

	entry := &AuditEntry{
		Command:      "sdcomfy stack deploy",
		Provider:     "aws",
		Region:       "us-west-2",
		ResourceType: "stack",
		ResourceName: "StableDiffusionComfyuiEc2Stack",
		Outcome:      OutcomeSuccess,
	}
	if err := r.Save(entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := r.Save(&AuditEntry{Command: "sdcomfy stack deploy", ResourceName: "Other", Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := r.Query(Filter{Resource: "StableDiffusionComfyuiEc2Stack"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Region != "us-west-2" || got[0].Provider != "aws" {
		t.Errorf("metadata not persisted: %+v", got[0])
	}
}
