package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// slotsTable is the SQL table holding every named slot.
const slotsTable = "slots"

const createSlotsTable = `CREATE TABLE IF NOT EXISTS slots (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// upsertSuffix is accepted by both SQLite (3.24+) and Postgres.
const upsertSuffix = "ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at"

// SQLSlot keeps the blob in a row of the slots table.
type SQLSlot struct {
	db      *sqlx.DB
	name    string
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) the embedded database at path.
func OpenSQLite(ctx context.Context, path, name string) (*SQLSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// A single connection keeps writers from racing on the database lock.
	db.SetMaxOpenConns(1)
	return NewSQLSlot(ctx, db, name, squirrel.Question)
}

// OpenPostgres connects to the Postgres database at dsn.
func OpenPostgres(ctx context.Context, dsn, name string) (*SQLSlot, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return NewSQLSlot(ctx, db, name, squirrel.Dollar)
}

// NewSQLSlot wraps an open database, creating the slots table if missing.
// format selects the driver's placeholder style.
func NewSQLSlot(ctx context.Context, db *sqlx.DB, name string, format squirrel.PlaceholderFormat) (*SQLSlot, error) {
	if _, err := db.ExecContext(ctx, createSlotsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating slots table: %w", err)
	}
	return &SQLSlot{
		db:      db,
		name:    name,
		builder: squirrel.StatementBuilder.PlaceholderFormat(format),
		now:     time.Now,
	}, nil
}

// Read returns the slot value, or nil if the row does not exist.
func (s *SQLSlot) Read(ctx context.Context) ([]byte, error) {
	query, args, err := s.builder.
		Select("value").
		From(slotsTable).
		Where(squirrel.Eq{"name": s.name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building slot read: %w", err)
	}

	var value string
	if err := s.db.GetContext(ctx, &value, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading slot %s: %w", s.name, err)
	}
	return []byte(value), nil
}

// Write upserts the slot row.
func (s *SQLSlot) Write(ctx context.Context, data []byte) error {
	query, args, err := s.builder.
		Insert(slotsTable).
		Columns("name", "value", "updated_at").
		Values(s.name, string(data), s.now().UTC().Format(time.RFC3339Nano)).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("building slot write: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing slot %s: %w", s.name, err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLSlot) Close() error {
	return s.db.Close()
}
