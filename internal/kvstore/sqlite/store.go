package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gomarketplace/cartstore/pkg/database"
	apperrors "github.com/gomarketplace/cartstore/pkg/errors"
)

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`

	selectValueSQL = `SELECT value FROM kv_entries WHERE key = ?`

	upsertValueSQL = `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// Store implements kvstore.Store in a local SQLite database file, the
// on-device option for the cart mirror.
type Store struct {
	db *sql.DB
}

// New wraps an open database and makes sure the kv_entries table exists.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("create kv_entries table: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (value string, err error) {
	ctx, end := database.TraceOp(ctx, "sqlite", "kv.Get", selectValueSQL)
	defer func() { end(err) }()

	err = s.db.QueryRowContext(ctx, selectValueSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.NotFound("key", key)
		}
		return "", fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceOp(ctx, "sqlite", "kv.Set", upsertValueSQL)
	defer func() { end(err) }()

	if _, err = s.db.ExecContext(ctx, upsertValueSQL, key, value); err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

// Ping checks that the database file is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
