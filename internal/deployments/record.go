package deployments

import (
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

// Record statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is a persisted stack operation. It carries what is needed to
// resume waiting on the operation after a CLI restart.
type Record struct {
	// ID is the auto-increment primary key (assigned on insert).
	ID int64

	// Provider is the name of the provider (e.g. "aws").
	Provider string

	Region    string
	StackName string

	// StackID is the engine's identifier, stable across the stack's life.
	StackID string

	Operation domain.Operation

	// Status is the local state: "running", "success", or "error".
	Status string

	// StackStatus is the last engine status observed.
	StackStatus string

	// ErrorMessage contains a human-readable explanation when Status is "error".
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Done reports whether the record reached a final local status.
func (r *Record) Done() bool {
	return r.Status != StatusRunning
}
