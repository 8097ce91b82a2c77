package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ahaarwise/internal/domain"

	"github.com/lib/pq"
)

// KVStore implements domain.KeyValueStore on the kv_entries table.
type KVStore struct {
	db *DB
}

var _ domain.KeyValueStore = (*KVStore)(nil)

// NewKVStore wraps a DB as a KeyValueStore.
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the value for key or domain.ErrKeyNotFound.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT value FROM kv_entries WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)",
		key, time.Now().UTC(),
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrKeyNotFound
	}
	return v, err
}

// Set upserts value under key; a zero ttl never expires.
func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().UTC().Add(ttl), Valid: true}
	}
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiresAt,
	)
	return err
}

// Delete removes keys; missing keys are ignored.
func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.sql.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ANY($1)", pq.Array(keys))
	return err
}

// DeleteExpired deletes all expired entries.
func (s *KVStore) DeleteExpired(ctx context.Context) error {
	_, err := s.db.sql.ExecContext(ctx, "DELETE FROM kv_entries WHERE expires_at < $1", time.Now().UTC())
	return err
}
