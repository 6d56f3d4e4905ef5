package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gomarketplace/cartstore/pkg/database"
	apperrors "github.com/gomarketplace/cartstore/pkg/errors"
)

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	selectValueSQL = `SELECT value FROM kv_entries WHERE key = $1`

	upsertValueSQL = `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// DBTX is the subset of pgxpool.Pool the store needs; pgxmock satisfies it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store implements kvstore.Store on a PostgreSQL table.
type Store struct {
	db DBTX
}

// New creates a PostgreSQL-backed store. Call EnsureSchema once before use.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the kv_entries table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create kv_entries table: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (value string, err error) {
	ctx, end := database.TraceOp(ctx, "postgresql", "kv.Get", selectValueSQL)
	defer func() { end(err) }()

	err = s.db.QueryRow(ctx, selectValueSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("key", key)
		}
		return "", fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceOp(ctx, "postgresql", "kv.Set", upsertValueSQL)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, upsertValueSQL, key, value); err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
