package domain

import "context"

// Provider is the provisioning engine as seen by the CLI: network and
// image lookups plus stack lifecycle calls.
type Provider interface {
	GetDisplayName() string

	// Region returns the region every call is made against.
	Region() string

	// AccountID returns the account the credentials belong to.
	AccountID(ctx context.Context) (string, error)

	// LookupDefaultNetwork resolves the account's default VPC and its
	// subnets. It returns an error wrapping ErrNoDefaultNetwork when the
	// region has none.
	LookupDefaultNetwork(ctx context.Context) (*Network, error)

	// ResolveImage returns the image ID a registry parameter currently
	// points to.
	ResolveImage(ctx context.Context, parameter string) (string, error)

	// DeployStack creates the stack, or updates it when it already exists.
	DeployStack(ctx context.Context, req DeployRequest) (*DeployResult, error)

	// GetStack returns the stack, or an error wrapping ErrNotFound.
	GetStack(ctx context.Context, name string) (*Stack, error)

	// ListStackEvents returns up to limit events, newest first.
	ListStackEvents(ctx context.Context, name string, limit int) ([]StackEvent, error)

	// DeleteStack requests deletion of the stack and everything in it.
	DeleteStack(ctx context.Context, name string) error

	// GetKeyMaterial returns the PEM-encoded private key that the engine
	// stored for a generated key pair.
	GetKeyMaterial(ctx context.Context, keyPairID string) (string, error)
}

// TemplateStager is implemented by providers that can upload a template
// to object storage so it can be deployed by URL. Templates above the
// inline body limit require it.
type TemplateStager interface {
	StageTemplate(ctx context.Context, bucket, key string, body []byte) (string, error)
}

// OfferingProvider is implemented by providers that can report where an
// instance type is available.
type OfferingProvider interface {
	// ListInstanceTypeZones returns the availability zones in the current
	// region that offer instanceType.
	ListInstanceTypeZones(ctx context.Context, instanceType string) ([]string, error)
}
