package providers

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"
)

type stubProvider struct {
	domain.Provider
	region string
}

func (s *stubProvider) GetDisplayName() string { return "Stub" }
func (s *stubProvider) Region() string         { return s.region }
func (s *stubProvider) AccountID(context.Context) (string, error) {
	return "000000000000", nil
}

func TestRegistry_GetPassesTarget(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register("Stub", func(store auth.Store, target Target) (domain.Provider, error) {
		return &stubProvider{region: target.Region}, nil
	})

	p, err := Get(" stub ", auth.NewMockStore(), Target{Region: "eu-west-1"})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if p.Region() != "eu-west-1" {
		t.Fatalf("Region() = %q, want eu-west-1", p.Region())
	}
	if diff := cmp.Diff([]string{"stub"}, List()); diff != "" {
		t.Fatalf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Unknown(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, err := Get("nope", auth.NewMockStore(), Target{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	factory := func(auth.Store, Target) (domain.Provider, error) { return nil, nil }
	Register("dup", factory)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("DUP", factory)
}
