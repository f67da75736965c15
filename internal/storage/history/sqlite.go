// internal/storage/history/sqlite.go
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/fsutil"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the history database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if _, err := fsutil.EnsureParent(path); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("open sqlite db: %w", err))
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("apply pragma %q: %w", pragma, execErr))
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Save inserts a record and assigns its ID.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            source, mode, range_from, range_to,
            total, available, missing, corrupt, coverage, checked_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Source,
		rec.Mode,
		formatTime(rec.From),
		formatTime(rec.To),
		rec.Summary.Total,
		rec.Summary.Available,
		rec.Summary.Missing,
		rec.Summary.Corrupt,
		rec.Summary.Coverage,
		formatTime(rec.CheckedAt),
	)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("insert run: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("last insert id: %w", err))
	}
	rec.ID = id
	return nil
}

// List returns records matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, filter.Mode)
	}
	if !filter.Since.IsZero() {
		where = append(where, "checked_at >= ?")
		args = append(args, formatTime(filter.Since))
	}

	query := `SELECT id, source, mode, range_from, range_to,
        total, available, missing, corrupt, coverage, checked_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY checked_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("query runs: %w", err))
	}
	defer rows.Close()

	result := []Record{}
	for rows.Next() {
		var (
			rec                 Record
			from, to, checkedAt string
		)
		err := rows.Scan(&rec.ID, &rec.Source, &rec.Mode, &from, &to,
			&rec.Summary.Total, &rec.Summary.Available, &rec.Summary.Missing,
			&rec.Summary.Corrupt, &rec.Summary.Coverage, &checkedAt)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("scan run: %w", err))
		}
		if rec.From, err = parseTime(from); err != nil {
			return nil, err
		}
		if rec.To, err = parseTime(to); err != nil {
			return nil, err
		}
		if rec.CheckedAt, err = parseTime(checkedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return result, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, core.WrapError(core.ErrStorageFailed, fmt.Errorf("parse stored time %q: %w", s, err))
	}
	return core.NormalizeTime(t), nil
}
