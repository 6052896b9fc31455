package auditlog

import "time"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Resource types commands record.
const (
	ResourceStack = "stack"
	ResourceKey   = "key"
	ResourceApp   = "app"
)

// AuditEntry is one recorded command invocation.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	// Args has sensitive flag values replaced, see SanitizeArgs.
	Args     string `json:"args,omitempty"`
	Provider string `json:"provider,omitempty"`
	Region   string `json:"region,omitempty"`

	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	ResourceName string `json:"resource_name,omitempty"`

	Outcome    string `json:"outcome"`
	Detail     string `json:"detail,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Duration returns how long the command ran.
func (e AuditEntry) Duration() time.Duration {
	return time.Duration(e.DurationMs) * time.Millisecond
}

// Failed reports whether the command returned an error.
func (e AuditEntry) Failed() bool {
	return e.Outcome == OutcomeError
}
