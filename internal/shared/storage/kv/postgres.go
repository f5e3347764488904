package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGGateway stores every namespace in the kv_entries table.
type PGGateway struct {
	DB *sql.DB
}

// Namespace returns the store for ns.
func (g *PGGateway) Namespace(ns string) Store {
	return &pgStore{db: g.DB, ns: ns}
}

// Ping checks connectivity.
func (g *PGGateway) Ping(ctx context.Context) error {
	return g.DB.PingContext(ctx)
}

// Close closes the pool.
func (g *PGGateway) Close() error {
	return g.DB.Close()
}

type pgStore struct {
	db *sql.DB
	ns string
}

func (s *pgStore) Get(ctx context.Context, key string) (string, error) {
	const query = `
SELECT value
FROM kv_entries
WHERE namespace = $1 AND key = $2`

	var value string
	if err := s.db.QueryRowContext(ctx, query, s.ns, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("kv get: %w", err)
	}
	return value, nil
}

func (s *pgStore) Set(ctx context.Context, key, value string) error {
	const query = `
INSERT INTO kv_entries (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, s.ns, key, value); err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

func (s *pgStore) List(ctx context.Context, pattern string, withValues bool) ([]Entry, error) {
	const keysQuery = `
SELECT key, ''
FROM kv_entries
WHERE namespace = $1 AND key LIKE $2 ESCAPE '\'
ORDER BY key`
	const valuesQuery = `
SELECT key, value
FROM kv_entries
WHERE namespace = $1 AND key LIKE $2 ESCAPE '\'
ORDER BY key`

	query := keysQuery
	if withValues {
		query = valuesQuery
	}
	rows, err := s.db.QueryContext(ctx, query, s.ns, likePattern(pattern))
	if err != nil {
		return nil, fmt.Errorf("kv list: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, fmt.Errorf("kv list scan: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv list rows: %w", err)
	}
	return out, nil
}

func (s *pgStore) Flush(ctx context.Context) error {
	const query = `DELETE FROM kv_entries WHERE namespace = $1`
	if _, err := s.db.ExecContext(ctx, query, s.ns); err != nil {
		return fmt.Errorf("kv flush: %w", err)
	}
	return nil
}

var _ Gateway = (*PGGateway)(nil)
