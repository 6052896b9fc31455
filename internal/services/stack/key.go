package stack

import (
	"context"
	"fmt"

	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/sshkeys"
)

// KeyResult describes a written private key.
type KeyResult struct {
	KeyPairID   string
	Path        string
	Fingerprint string
}

// Outputs returns the stack's outputs once it has completed.
func (s *Service) Outputs(ctx context.Context, name string) (*domain.Stack, error) {
	stack, err := s.provider.GetStack(ctx, name)
	if err != nil {
		return nil, err
	}
	if stack.IsInProgress() {
		return stack, fmt.Errorf("stack %s is %s: %w", name, stack.Status, domain.ErrConflict)
	}
	if len(stack.Outputs) == 0 {
		return stack, fmt.Errorf("stack %s (%s) has no outputs", name, stack.Status)
	}
	return stack, nil
}

// Endpoint returns the application endpoint (host:port) of the stack.
func (s *Service) Endpoint(ctx context.Context, name string) (string, error) {
	stack, err := s.Outputs(ctx, name)
	if err != nil {
		return "", err
	}
	endpoint := stack.Output(descriptor.OutputPortal)
	if endpoint == "" {
		return "", fmt.Errorf("stack %s has no %s output", name, descriptor.OutputPortal)
	}
	return endpoint, nil
}

// FetchKey retrieves the private key generated for the stack's key pair
// and writes it to path with owner-read-only permissions.
func (s *Service) FetchKey(ctx context.Context, name, path string, overwrite bool) (*KeyResult, error) {
	stack, err := s.Outputs(ctx, name)
	if err != nil {
		return nil, err
	}

	id, err := descriptor.KeyPairIDFromCommand(stack.Output(descriptor.OutputKeyCommand))
	if err != nil {
		return nil, fmt.Errorf("stack %s: %w", name, err)
	}

	material, err := s.provider.GetKeyMaterial(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sshkeys.WriteKeyFile(path, material, overwrite); err != nil {
		return nil, err
	}
	fingerprint, err := sshkeys.Fingerprint(material)
	if err != nil {
		return nil, err
	}

	return &KeyResult{KeyPairID: id, Path: path, Fingerprint: fingerprint}, nil
}
