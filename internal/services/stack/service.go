// Package stack drives the deployment lifecycle of the ComfyUI stack:
// synthesis against the looked-up network, deploy, destroy, and waiting
// for the engine to settle. In-flight operations are recorded so that an
// interrupted wait can be resumed.
package stack

import (
	"fmt"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/config"
	"nathanbeddoewebdev/sdcomfy/internal/deployments"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/lookupcache"
	"nathanbeddoewebdev/sdcomfy/internal/offerings"
)

// MaxTransientErrors is the number of consecutive polling errors tolerated
// before a wait gives up. Exported as a variable for tests.
var MaxTransientErrors = 3

// recordRetention bounds how long finished deployment records are kept.
const recordRetention = 7 * 24 * time.Hour

// Service is the stack lifecycle for one provider and region.
type Service struct {
	provider     domain.Provider
	providerName string

	deployments deployments.Repository
	lookups     lookupcache.Repository
	offerings   *offerings.Cache
	timeouts    *config.Timeouts
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithDeployments records operations in repo.
func WithDeployments(repo deployments.Repository) Option {
	return func(s *Service) { s.deployments = repo }
}

// WithLookupCache reuses network lookups stored in repo.
func WithLookupCache(repo lookupcache.Repository) Option {
	return func(s *Service) { s.lookups = repo }
}

// WithOfferings checks zone pins against cached instance type offerings.
func WithOfferings(cache *offerings.Cache) Option {
	return func(s *Service) { s.offerings = cache }
}

// WithTimeouts overrides the timeouts loaded from the environment.
func WithTimeouts(t *config.Timeouts) Option {
	return func(s *Service) { s.timeouts = t }
}

// NewService creates a stack service. Repositories are optional; without
// them operations are not recorded and lookups are not cached.
func NewService(provider domain.Provider, providerName string, opts ...Option) *Service {
	s := &Service{provider: provider, providerName: providerName}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeouts == nil {
		s.timeouts = config.LoadTimeouts()
	}
	return s
}

// Provider returns the provider the service operates on.
func (s *Service) Provider() domain.Provider { return s.provider }

// Close releases repository resources and waits for background cache
// refreshes.
func (s *Service) Close() error {
	s.offerings.Wait()

	var firstErr error
	if s.deployments != nil {
		firstErr = s.deployments.Close()
	}
	if s.lookups != nil {
		if err := s.lookups.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListPending returns deployment records still marked as running.
func (s *Service) ListPending() ([]deployments.Record, error) {
	if s.deployments == nil {
		return nil, fmt.Errorf("stack: deployment history unavailable")
	}
	return s.deployments.ListPending()
}

// ListRecent returns the most recent n deployment records.
func (s *Service) ListRecent(n int) ([]deployments.Record, error) {
	if s.deployments == nil {
		return nil, fmt.Errorf("stack: deployment history unavailable")
	}
	return s.deployments.ListRecent(n)
}

// Latest returns the newest record for stackName in the provider's region.
func (s *Service) Latest(stackName string) (*deployments.Record, error) {
	if s.deployments == nil {
		return nil, nil
	}
	return s.deployments.LatestForStack(s.provider.Region(), stackName)
}

// track persists a new running record. Persistence failures are ignored
// so the operation itself proceeds without history.
func (s *Service) track(stackName, stackID string, op domain.Operation) *deployments.Record {
	if s.deployments == nil {
		return nil
	}

	record := &deployments.Record{
		Provider:  s.providerName,
		Region:    s.provider.Region(),
		StackName: stackName,
		StackID:   stackID,
		Operation: op,
		Status:    deployments.StatusRunning,
	}
	if err := s.deployments.Save(record); err != nil {
		return nil
	}

	_, _ = s.deployments.DeleteOlderThan(recordRetention)
	return record
}

// finalize stores the outcome of a tracked operation.
func (s *Service) finalize(record *deployments.Record, stackStatus string, err error) {
	if s.deployments == nil || record == nil {
		return
	}

	record.StackStatus = stackStatus
	if err != nil {
		record.Status = deployments.StatusError
		record.ErrorMessage = err.Error()
	} else {
		record.Status = deployments.StatusSuccess
		record.ErrorMessage = ""
	}
	_ = s.deployments.Save(record)
}
