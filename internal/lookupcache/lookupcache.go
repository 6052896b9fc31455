// Package lookupcache stores the results of context lookups made while
// synthesizing a plan.
//
// A synthesized plan must not change between runs just because the account
// gained a subnet, so the default-network lookup is recorded per
// (account, region) and reused until it is explicitly refreshed.
//
// Storage shares the SQLite database at ~/.config/sdcomfy/sdcomfy.db
// (separate table).
package lookupcache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/database"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

// Entry is a cached network lookup.
type Entry struct {
	AccountID string
	Region    string
	Network   domain.Network
	UpdatedAt time.Time
}

// Repository defines the persistence interface for cached lookups.
type Repository interface {
	// Get returns the cached network for (account, region), or nil if not found.
	Get(accountID, region string) (*Entry, error)

	// Put upserts the network lookup for its account and region.
	Put(network domain.Network) error

	// Delete removes the cached lookup for (account, region).
	Delete(accountID, region string) error

	// List returns every cached lookup ordered by account then region.
	List() ([]Entry, error)

	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("lookupcache: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lookupcache: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS network_lookups (
			account_id TEXT NOT NULL,
			region     TEXT NOT NULL,
			network    TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY(account_id, region)
		);
	`
	return database.Migrate(r.db, "lookupcache", ddl)
}

// Get returns the cached network for (account, region), or nil if not found.
func (r *SQLiteRepository) Get(accountID, region string) (*Entry, error) {
	row := r.db.QueryRow(`
		SELECT account_id, region, network, updated_at
		FROM network_lookups WHERE account_id = ? AND region = ?`,
		accountID, region)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Put upserts the network lookup for its account and region.
func (r *SQLiteRepository) Put(network domain.Network) error {
	if network.AccountID == "" || network.Region == "" {
		return errors.New("lookupcache: network lookup has no account or region")
	}

	payload, err := json.Marshal(network)
	if err != nil {
		return fmt.Errorf("lookupcache: encode failed: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO network_lookups (account_id, region, network, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, region) DO UPDATE SET
			network = excluded.network,
			updated_at = excluded.updated_at`,
		network.AccountID, network.Region, string(payload), database.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("lookupcache: upsert failed: %w", err)
	}
	return nil
}

// Delete removes the cached lookup for (account, region).
func (r *SQLiteRepository) Delete(accountID, region string) error {
	if _, err := r.db.Exec(`DELETE FROM network_lookups WHERE account_id = ? AND region = ?`, accountID, region); err != nil {
		return fmt.Errorf("lookupcache: delete failed: %w", err)
	}
	return nil
}

// List returns every cached lookup ordered by account then region.
func (r *SQLiteRepository) List() ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT account_id, region, network, updated_at
		FROM network_lookups ORDER BY account_id, region`)
	if err != nil {
		return nil, fmt.Errorf("lookupcache: query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var entry Entry
	var payload, updatedStr string
	if err := row.Scan(&entry.AccountID, &entry.Region, &payload, &updatedStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lookupcache: scan failed: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &entry.Network); err != nil {
		return nil, fmt.Errorf("lookupcache: corrupt entry for %s/%s: %w", entry.AccountID, entry.Region, err)
	}
	entry.UpdatedAt = database.ParseTime(updatedStr)
	return &entry, nil
}
