package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/classlog/internal/core"
)

const tableName = "class_entries"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS class_entries (
	key        text PRIMARY KEY,
	body       text NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// PostgresStore keeps the diary in the class_entries table, one row per key.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create %s: %w", tableName, err)
	}
	return nil
}

// Load returns every stored row as a key to text mapping.
func (s *PostgresStore) Load(ctx context.Context) (any, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, body FROM class_entries`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", tableName, err)
	}

	doc := make(map[string]any)
	var key, body string
	_, err = pgx.ForEachRow(rows, []any{&key, &body}, func() error {
		doc[key] = body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", tableName, err)
	}
	return doc, nil
}

// Save replaces the table contents with rs in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, rs core.RecordSet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if _, err := tx.Exec(ctx, `DELETE FROM class_entries`); err != nil {
		return fmt.Errorf("clear %s: %w", tableName, err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{tableName},
		[]string{"key", "body"},
		pgx.CopyFromSlice(len(rs), copyRows(rs)),
	)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", tableName, err)
	}
	if int(n) != len(rs) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", tableName, n, len(rs))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// copyRows feeds entries to CopyFromSlice in key order.
func copyRows(rs core.RecordSet) func(i int) ([]any, error) {
	entries := rs.Entries()
	return func(i int) ([]any, error) {
		return []any{entries[i].Key, entries[i].Text}, nil
	}
}
