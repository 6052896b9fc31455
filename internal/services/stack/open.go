package stack

import (
	"nathanbeddoewebdev/sdcomfy/internal/deployments"
	"nathanbeddoewebdev/sdcomfy/internal/lookupcache"
	"nathanbeddoewebdev/sdcomfy/internal/offerings"
	"nathanbeddoewebdev/sdcomfy/internal/providers"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"
)

// Open resolves the named provider for target and returns a service backed
// by the default local stores. A store that cannot be opened is skipped;
// the service then runs without history or cached lookups.
func Open(providerName string, store auth.Store, target providers.Target) (*Service, error) {
	provider, err := providers.Get(providerName, store, target)
	if err != nil {
		return nil, err
	}

	opts := []Option{WithOfferings(offerings.NewDefault())}
	if repo, err := deployments.Open(); err == nil {
		opts = append(opts, WithDeployments(repo))
	}
	if repo, err := lookupcache.Open(); err == nil {
		opts = append(opts, WithLookupCache(repo))
	}

	return NewService(provider, providerName, opts...), nil
}
