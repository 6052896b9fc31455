// Package deployments provides persistent storage for in-flight stack
// operations.
//
// When a user deploys or destroys a stack, the CLI records the operation
// locally so that if the process is interrupted (Ctrl+C, crash, etc.) the
// wait can be resumed with 'sdcomfy stack wait'. The engine keeps working
// server-side regardless.
package deployments

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/database"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

// Repository defines the persistence interface for deployment records.
type Repository interface {
	// Save inserts or updates a record. On insert (ID == 0), an ID is
	// assigned to the record.
	Save(record *Record) error

	// Get retrieves a single record by ID. It returns nil, nil when absent.
	Get(id int64) (*Record, error)

	// LatestForStack returns the newest record for a stack in a region,
	// or nil, nil when there is none.
	LatestForStack(region, stackName string) (*Record, error)

	// ListPending returns all records with status "running", newest first.
	ListPending() ([]Record, error)

	// ListRecent returns the most recent n records regardless of status.
	ListRecent(n int) ([]Record, error)

	// DeleteOlderThan removes finished records older than d and returns
	// the number removed.
	DeleteOlderThan(d time.Duration) (int64, error)

	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the repository at the default database path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("deployments: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
// The parent directory is created if it does not exist.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("deployments: %w", err)
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
		CREATE TABLE IF NOT EXISTS deployments (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			provider      TEXT    NOT NULL,
			region        TEXT    NOT NULL DEFAULT '',
			stack_name    TEXT    NOT NULL,
			stack_id      TEXT    NOT NULL DEFAULT '',
			operation     TEXT    NOT NULL DEFAULT '',
			status        TEXT    NOT NULL DEFAULT 'running',
			stack_status  TEXT    NOT NULL DEFAULT '',
			error_message TEXT    NOT NULL DEFAULT '',
			created_at    TEXT    NOT NULL,
			updated_at    TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_deployments_status ON deployments(status);
		CREATE INDEX IF NOT EXISTS idx_deployments_stack ON deployments(region, stack_name);
	`
	return database.Migrate(r.db, "deployments", ddl)
}

const selectColumns = `
		SELECT id, provider, region, stack_name, stack_id, operation, status,
		       stack_status, error_message, created_at, updated_at
		FROM deployments`

// Save inserts a new record (ID == 0) or updates an existing one.
func (r *SQLiteRepository) Save(record *Record) error {
	record.UpdatedAt = time.Now().UTC()
	if record.Status == "" {
		record.Status = StatusRunning
	}

	if record.ID == 0 {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = record.UpdatedAt
		}
		result, err := r.db.Exec(`
			INSERT INTO deployments (provider, region, stack_name, stack_id, operation, status, stack_status, error_message, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.Provider, record.Region, record.StackName, record.StackID, string(record.Operation),
			record.Status, record.StackStatus, record.ErrorMessage,
			database.FormatTime(record.CreatedAt), database.FormatTime(record.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("deployments: insert failed: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("deployments: failed to get last insert ID: %w", err)
		}
		record.ID = id
		return nil
	}

	result, err := r.db.Exec(`
		UPDATE deployments SET provider=?, region=?, stack_name=?, stack_id=?, operation=?,
		       status=?, stack_status=?, error_message=?, updated_at=?
		WHERE id=?`,
		record.Provider, record.Region, record.StackName, record.StackID, string(record.Operation),
		record.Status, record.StackStatus, record.ErrorMessage,
		database.FormatTime(record.UpdatedAt), record.ID,
	)
	if err != nil {
		return fmt.Errorf("deployments: update failed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("deployments: record with ID %d not found", record.ID)
	}
	return nil
}

// Get retrieves a single record by ID.
func (r *SQLiteRepository) Get(id int64) (*Record, error) {
	return r.queryOne(selectColumns+` WHERE id = ?`, id)
}

// LatestForStack returns the newest record for a stack in a region.
func (r *SQLiteRepository) LatestForStack(region, stackName string) (*Record, error) {
	return r.queryOne(selectColumns+` WHERE region = ? AND stack_name = ? ORDER BY created_at DESC, id DESC LIMIT 1`, region, stackName)
}

// ListPending returns all records with status "running".
func (r *SQLiteRepository) ListPending() ([]Record, error) {
	rows, err := r.db.Query(selectColumns+` WHERE status = ? ORDER BY created_at DESC`, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("deployments: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListRecent returns the most recent n records regardless of status.
func (r *SQLiteRepository) ListRecent(n int) ([]Record, error) {
	rows, err := r.db.Query(selectColumns+` ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("deployments: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// DeleteOlderThan removes finished records older than d.
func (r *SQLiteRepository) DeleteOlderThan(d time.Duration) (int64, error) {
	cutoff := database.FormatTime(time.Now().Add(-d))
	result, err := r.db.Exec(`
		DELETE FROM deployments WHERE status != ? AND updated_at < ?`, StatusRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deployments: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) queryOne(query string, args ...any) (*Record, error) {
	record, err := scan(r.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("deployments: query failed: %w", err)
	}
	return record, nil
}

func scan(row scanner) (*Record, error) {
	var record Record
	var operation, createdStr, updatedStr string
	err := row.Scan(
		&record.ID, &record.Provider, &record.Region, &record.StackName, &record.StackID,
		&operation, &record.Status, &record.StackStatus, &record.ErrorMessage,
		&createdStr, &updatedStr,
	)
	if err != nil {
		return nil, err
	}
	record.Operation = domain.Operation(operation)
	record.CreatedAt = database.ParseTime(createdStr)
	record.UpdatedAt = database.ParseTime(updatedStr)
	return &record, nil
}

func scanRows(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		record, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("deployments: scan failed: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}
