// Package auth keeps AWS credentials in the OS keychain and reports which
// credential source is in effect.
package auth

import (
	"errors"
	"os"

	"nathanbeddoewebdev/sdcomfy/internal/util"
)

// ServiceName is the keychain service entries are stored under.
const ServiceName = "sdcomfy"

// EnvDisableKeyring turns the keychain off, for hosts without a secret
// service such as CI runners and containers.
const EnvDisableKeyring = "SDCOMFY_NO_KEYRING"

var (
	ErrTokenNotFound = errors.New("auth token not found")

	// ErrStoreUnavailable means the keychain could not be reached. Readers
	// treat it like an empty store and fall back to the AWS default chain.
	ErrStoreUnavailable = errors.New("keychain unavailable")
)

// Store holds one secret per provider.
type Store interface {
	SetToken(provider string, token string) error
	GetToken(provider string) (string, error)
	DeleteToken(provider string) error
}

// DefaultStore returns the OS keychain store, or a store that holds
// nothing when $SDCOMFY_NO_KEYRING is set.
func DefaultStore() Store {
	if os.Getenv(EnvDisableKeyring) != "" {
		return disabledStore{}
	}
	return NewKeyringStore(ServiceName)
}

// NormalizeProvider normalizes a provider name for consistent key lookup.
func NormalizeProvider(provider string) string {
	return util.NormalizeKey(provider)
}

type disabledStore struct{}

func (disabledStore) SetToken(string, string) error {
	return ErrStoreUnavailable
}

func (disabledStore) GetToken(string) (string, error) {
	return "", ErrTokenNotFound
}

func (disabledStore) DeleteToken(string) error {
	return ErrTokenNotFound
}
