package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

// MockGone in a status script makes the stack disappear, as a completed
// deletion does.
const MockGone = "<gone>"

// MockProvider is an in-memory provider for testing. Stack statuses
// advance through StatusScripts, one entry per GetStack call.
type MockProvider struct {
	mu sync.Mutex

	Name       string
	RegionName string
	Account    string

	Network      *domain.Network
	NetworkErr   error
	NetworkCalls int

	Images      map[string]string
	KeyMaterial map[string]string
	Offerings   []string

	Stacks        map[string]*domain.Stack
	StatusScripts map[string][]string
	Events        map[string][]domain.StackEvent

	DeployErr error
	DeleteErr error
	Deployed  []domain.DeployRequest
	Deleted   []string
	Staged    map[string][]byte

	nextID int
}

var (
	_ domain.Provider         = (*MockProvider)(nil)
	_ domain.TemplateStager   = (*MockProvider)(nil)
	_ domain.OfferingProvider = (*MockProvider)(nil)
)

// NewMockProvider returns a mock with a default network in us-west-2.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name:       "Mock",
		RegionName: "us-west-2",
		Account:    "123456789012",
		Network: &domain.Network{
			AccountID: "123456789012",
			Region:    "us-west-2",
			VPCID:     "vpc-0abc",
			Subnets: []domain.Subnet{
				{ID: "subnet-a", AvailabilityZone: "us-west-2a", Public: true, DefaultForAZ: true},
				{ID: "subnet-b", AvailabilityZone: "us-west-2b", Public: true, DefaultForAZ: true},
			},
		},
		Images:        map[string]string{},
		KeyMaterial:   map[string]string{},
		Offerings:     []string{"us-west-2a", "us-west-2b"},
		Stacks:        map[string]*domain.Stack{},
		StatusScripts: map[string][]string{},
		Events:        map[string][]domain.StackEvent{},
		Staged:        map[string][]byte{},
	}
}

func (m *MockProvider) GetDisplayName() string { return m.Name }
func (m *MockProvider) Region() string         { return m.RegionName }

func (m *MockProvider) AccountID(_ context.Context) (string, error) {
	return m.Account, nil
}

func (m *MockProvider) LookupDefaultNetwork(_ context.Context) (*domain.Network, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NetworkCalls++
	if m.NetworkErr != nil {
		return nil, m.NetworkErr
	}
	if m.Network == nil {
		return nil, domain.ErrNoDefaultNetwork
	}
	network := *m.Network
	return &network, nil
}

func (m *MockProvider) ResolveImage(_ context.Context, parameter string) (string, error) {
	id, ok := m.Images[parameter]
	if !ok {
		return "", fmt.Errorf("parameter %s: %w", parameter, domain.ErrNotFound)
	}
	return id, nil
}

func (m *MockProvider) DeployStack(_ context.Context, req domain.DeployRequest) (*domain.DeployResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deployed = append(m.Deployed, req)
	if m.DeployErr != nil {
		return nil, m.DeployErr
	}

	if existing, ok := m.Stacks[req.StackName]; ok {
		existing.Status = "UPDATE_IN_PROGRESS"
		return &domain.DeployResult{StackID: existing.ID, Operation: domain.OperationUpdate}, nil
	}

	m.nextID++
	stack := &domain.Stack{
		Name:      req.StackName,
		ID:        fmt.Sprintf("arn:aws:cloudformation:%s:%s:stack/%s/%d", m.RegionName, m.Account, req.StackName, m.nextID),
		Status:    "CREATE_IN_PROGRESS",
		CreatedAt: time.Now().UTC(),
	}
	m.Stacks[req.StackName] = stack
	return &domain.DeployResult{StackID: stack.ID, Operation: domain.OperationCreate}, nil
}

func (m *MockProvider) GetStack(_ context.Context, name string) (*domain.Stack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stack := m.find(name)
	if stack == nil {
		return nil, fmt.Errorf("stack %s: %w", name, domain.ErrNotFound)
	}
	if script := m.StatusScripts[stack.Name]; len(script) > 0 {
		next := script[0]
		m.StatusScripts[stack.Name] = script[1:]
		if next == MockGone {
			delete(m.Stacks, stack.Name)
			return nil, fmt.Errorf("stack %s: %w", name, domain.ErrNotFound)
		}
		stack.Status = next
	}

	copied := *stack
	return &copied, nil
}

func (m *MockProvider) ListStackEvents(_ context.Context, name string, limit int) ([]domain.StackEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := name
	if stack := m.find(name); stack != nil {
		key = stack.Name
	}
	events := m.Events[key]
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return append([]domain.StackEvent(nil), events...), nil
}

func (m *MockProvider) DeleteStack(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, name)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if stack := m.find(name); stack != nil {
		stack.Status = "DELETE_IN_PROGRESS"
	}
	return nil
}

func (m *MockProvider) GetKeyMaterial(_ context.Context, keyPairID string) (string, error) {
	material, ok := m.KeyMaterial[keyPairID]
	if !ok {
		return "", fmt.Errorf("key %s: %w", keyPairID, domain.ErrNotFound)
	}
	return material, nil
}

func (m *MockProvider) StageTemplate(_ context.Context, bucket, key string, body []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Staged[bucket+"/"+key] = body
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, m.RegionName, key), nil
}

func (m *MockProvider) ListInstanceTypeZones(_ context.Context, _ string) ([]string, error) {
	return m.Offerings, nil
}

// find looks a stack up by name or ID. Callers hold m.mu.
func (m *MockProvider) find(nameOrID string) *domain.Stack {
	if stack, ok := m.Stacks[nameOrID]; ok {
		return stack
	}
	for _, stack := range m.Stacks {
		if stack.ID == nameOrID {
			return stack
		}
	}
	return nil
}
