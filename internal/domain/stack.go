package domain

import (
	"strings"
	"time"
)

// Operation identifies what a deployment request asked the engine to do.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Stack is the provisioning engine's view of a deployed descriptor.
type Stack struct {
	Name         string            `json:"name"`
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	StatusReason string            `json:"status_reason,omitempty"`
	Outputs      map[string]string `json:"outputs,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at,omitempty"`
}

// Stack status values used by the CLI. The engine reports many more;
// the helpers below classify them by suffix.
const (
	StatusCreateComplete   = "CREATE_COMPLETE"
	StatusUpdateComplete   = "UPDATE_COMPLETE"
	StatusDeleteComplete   = "DELETE_COMPLETE"
	StatusRollbackComplete = "ROLLBACK_COMPLETE"
	StatusReviewInProgress = "REVIEW_IN_PROGRESS"
)

// IsInProgress reports whether the engine is still working on the stack.
func (s *Stack) IsInProgress() bool {
	return strings.HasSuffix(s.Status, "_IN_PROGRESS")
}

// IsComplete reports whether the stack reached a terminal status,
// regardless of outcome.
func (s *Stack) IsComplete() bool {
	return strings.HasSuffix(s.Status, "_COMPLETE") || strings.HasSuffix(s.Status, "_FAILED")
}

// IsFailed reports whether the last operation failed or was rolled back.
func (s *Stack) IsFailed() bool {
	if strings.HasSuffix(s.Status, "_FAILED") {
		return true
	}
	return strings.Contains(s.Status, "ROLLBACK") && strings.HasSuffix(s.Status, "_COMPLETE")
}

// NeedsReplacement reports whether the stack can only be deleted and
// recreated. A create that rolled back leaves the stack unusable.
func (s *Stack) NeedsReplacement() bool {
	return s.Status == StatusRollbackComplete || s.Status == "ROLLBACK_FAILED" || s.Status == "CREATE_FAILED"
}

// Output returns the named output value, or "" when absent.
func (s *Stack) Output(key string) string {
	if s == nil || s.Outputs == nil {
		return ""
	}
	return s.Outputs[key]
}

// StackEvent is a single resource status transition reported by the engine.
type StackEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	LogicalID    string    `json:"logical_id"`
	ResourceType string    `json:"resource_type"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
}

// IsFailure reports whether the event records a failed resource operation.
func (e StackEvent) IsFailure() bool {
	return strings.HasSuffix(e.Status, "_FAILED")
}

// DeployRequest carries a synthesized plan to the provisioning engine.
// Exactly one of TemplateBody and TemplateURL is set.
type DeployRequest struct {
	StackName       string
	TemplateBody    string
	TemplateURL     string
	Parameters      map[string]string
	Tags            map[string]string
	DisableRollback bool
	// TimeoutMinutes bounds the engine-side create; zero leaves the
	// engine default in place.
	TimeoutMinutes int32
}

// DeployResult reports what the engine accepted.
type DeployResult struct {
	StackID   string
	Operation Operation
}
