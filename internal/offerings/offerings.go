// Package offerings caches where instance types are offered.
//
// Availability zone offerings change rarely, so lookups are served from a
// file-backed cache with stale-while-revalidate semantics: a fresh entry is
// returned as is, a stale one is returned while a background refresh runs,
// and an expired one is fetched synchronously.
package offerings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

const (
	defaultFreshTTL = 24 * time.Hour
	defaultMaxStale = 7 * 24 * time.Hour
	refreshTimeout  = 30 * time.Second
)

// Scope identifies whose offerings a lookup describes. Zone names map to
// physical zones per account, so entries are never shared across accounts.
type Scope struct {
	AccountID string
	Region    string
}

// entry is the on-disk form of one lookup.
type entry struct {
	AccountID    string    `json:"account_id"`
	Region       string    `json:"region"`
	InstanceType string    `json:"instance_type"`
	Zones        []string  `json:"zones"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Cache stores zone offerings as one JSON file per (account, region,
// instance type).
type Cache struct {
	dir      string
	freshTTL time.Duration
	maxStale time.Duration

	refreshes sync.WaitGroup
}

// New returns a cache rooted at dir with default TTLs.
func New(dir string) *Cache {
	return WithTTLs(dir, defaultFreshTTL, defaultMaxStale)
}

// NewDefault returns a cache rooted at the OS user cache dir.
func NewDefault() *Cache {
	return New(defaultDir())
}

// WithTTLs returns a cache rooted at dir with custom TTLs. A maxStale of
// zero or less serves stale entries indefinitely.
func WithTTLs(dir string, freshTTL, maxStale time.Duration) *Cache {
	return &Cache{dir: dir, freshTTL: freshTTL, maxStale: maxStale}
}

// Zones returns the zones of the scope's region that offer instanceType.
// A nil cache always asks the provider.
func (c *Cache) Zones(ctx context.Context, p domain.OfferingProvider, scope Scope, instanceType string) ([]string, error) {
	fetch := func(ctx context.Context) ([]string, error) {
		zones, err := p.ListInstanceTypeZones(ctx, instanceType)
		if err != nil {
			return nil, fmt.Errorf("offerings: %w", err)
		}
		return zones, nil
	}
	if c == nil || c.dir == "" {
		return fetch(ctx)
	}

	key := cacheKey(scope, instanceType)
	cached, ok := c.read(key)
	if !ok || cached.FetchedAt.IsZero() {
		return c.fetchAndStore(ctx, key, scope, instanceType, fetch)
	}

	age := time.Since(cached.FetchedAt)
	switch {
	case age < 0:
		return c.fetchAndStore(ctx, key, scope, instanceType, fetch)
	case age <= c.freshTTL:
		return cached.Zones, nil
	case c.maxStale <= 0 || age <= c.maxStale:
		c.revalidate(key, scope, instanceType, fetch)
		return cached.Zones, nil
	default:
		return c.fetchAndStore(ctx, key, scope, instanceType, fetch)
	}
}

// Offered reports whether zone offers instanceType.
func (c *Cache) Offered(ctx context.Context, p domain.OfferingProvider, scope Scope, instanceType, zone string) (bool, error) {
	zones, err := c.Zones(ctx, p, scope, instanceType)
	if err != nil {
		return false, err
	}
	for _, z := range zones {
		if z == zone {
			return true, nil
		}
	}
	return false, nil
}

// Wait blocks until background refreshes started by Zones have finished.
func (c *Cache) Wait() {
	if c != nil {
		c.refreshes.Wait()
	}
}

// Invalidate removes every cached lookup for scope.
func (c *Cache) Invalidate(scope Scope) error {
	if c == nil || c.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	prefix := scopePrefix(scope)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

func (c *Cache) fetchAndStore(ctx context.Context, key string, scope Scope, instanceType string, fetch func(context.Context) ([]string, error)) ([]string, error) {
	zones, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	_ = c.write(key, entry{
		AccountID:    scope.AccountID,
		Region:       scope.Region,
		InstanceType: instanceType,
		Zones:        zones,
		FetchedAt:    time.Now(),
	})
	return zones, nil
}

func (c *Cache) revalidate(key string, scope Scope, instanceType string, fetch func(context.Context) ([]string, error)) {
	c.refreshes.Add(1)
	go func() {
		defer c.refreshes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		_, _ = c.fetchAndStore(ctx, key, scope, instanceType, fetch)
	}()
}

func (c *Cache) read(key string) (entry, bool) {
	data, err := os.ReadFile(c.pathForKey(key))
	if err != nil {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, false
	}
	return e, true
}

// write replaces the entry atomically through a temp file and rename.
func (c *Cache) write(key string, e entry) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, c.pathForKey(key))
}

func (c *Cache) pathForKey(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func cacheKey(scope Scope, instanceType string) string {
	return scopePrefix(scope) + sanitizeKey(instanceType)
}

func scopePrefix(scope Scope) string {
	return sanitizeKey(scope.AccountID) + "__" + sanitizeKey(scope.Region) + "__"
}

// dirOverride, when non-empty, replaces the default cache directory.
var dirOverride string

// SetDir overrides the default cache directory. Intended for testing.
func SetDir(dir string) { dirOverride = dir }

// ResetDir clears the directory override. Intended for testing.
func ResetDir() { dirOverride = "" }

func defaultDir() string {
	if dirOverride != "" {
		return dirOverride
	}
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "sdcomfy", "offerings")
}

// sanitizeKey maps a key onto a safe file name. Dots are kept because
// instance type names contain them.
func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "_"
	}

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '.' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
