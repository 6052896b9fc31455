package domain

import "errors"

// Sentinel errors for provider-independent error classification.
// Providers wrap these so the CLI can handle error categories
// uniformly without importing the AWS SDK.
//
//	return fmt.Errorf("failed to describe stack: %w", domain.ErrNotFound)
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates the request was rejected due to
	// invalid, expired, or missing credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrConflict indicates a state conflict, such as an update issued
	// against a stack that is still in progress.
	ErrConflict = errors.New("conflict")

	// ErrNoDefaultNetwork indicates the target account/region has no
	// default VPC to deploy into.
	ErrNoDefaultNetwork = errors.New("no default network")

	// ErrStackFailed indicates the provisioning engine reported a failed
	// or rolled-back deployment.
	ErrStackFailed = errors.New("stack operation failed")

	// ErrTimeout indicates a wait exceeded its deadline.
	ErrTimeout = errors.New("timed out")

	// ErrNoChanges indicates an update request produced no changes.
	ErrNoChanges = errors.New("no changes to deploy")
)
