// Package database opens the local SQLite file shared by the audit log,
// the stack operation history and the lookup cache.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	appDir = "sdcomfy"
	dbFile = "sdcomfy.db"

	// EnvPath overrides the database location.
	EnvPath = "SDCOMFY_DB"

	// busyTimeoutMs lets a second command wait for a writer instead of
	// failing with SQLITE_BUSY.
	busyTimeoutMs = 5000
)

// timeLayout sorts lexically in time order, unlike RFC3339Nano which
// trims trailing zeros from the fraction.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var pathOverride string

// SetPath overrides the default database path. Intended for testing.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override. Intended for testing.
func ResetPath() { pathOverride = "" }

// DefaultPath returns the database path: the test override, then
// $SDCOMFY_DB, then sdcomfy.db in the user config directory.
func DefaultPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("database: unable to determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, dbFile), nil
}

// Open opens a SQLite database at the provided path in WAL mode.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("database: failed to create directory %s: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, busyTimeoutMs)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: failed to open database: %w", err)
	}
	return db, nil
}

// Migrate brings the tables of component up to date. Each element of
// steps is applied once, in order, and recorded in schema_versions, so
// new steps can be appended without touching existing ones.
func Migrate(db *sql.DB, component string, steps ...string) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS schema_versions (
			component  TEXT    PRIMARY KEY,
			version    INTEGER NOT NULL,
			applied_at TEXT    NOT NULL
		)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("%s: migration failed: %w", component, err)
	}

	var current int
	err := db.QueryRow(`SELECT version FROM schema_versions WHERE component = ?`, component).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("%s: failed to read schema version: %w", component, err)
	}
	if current > len(steps) {
		return fmt.Errorf("%s: database schema version %d is newer than this build supports (%d)", component, current, len(steps))
	}

	for i := current; i < len(steps); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("%s: migration failed: %w", component, err)
		}
		if _, err := tx.Exec(steps[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("%s: migration %d failed: %w", component, i+1, err)
		}
		_, err = tx.Exec(`
			INSERT INTO schema_versions (component, version, applied_at) VALUES (?, ?, ?)
			ON CONFLICT(component) DO UPDATE SET version = excluded.version, applied_at = excluded.applied_at`,
			component, i+1, FormatTime(time.Now()))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("%s: failed to record migration %d: %w", component, i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%s: migration %d failed: %w", component, i+1, err)
		}
	}
	return nil
}

// FormatTime renders t for storage. Stored values compare correctly as
// strings.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime reads a value written by FormatTime. Older rows written as
// RFC 3339 parse too; unparsable values yield the zero time.
func ParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
