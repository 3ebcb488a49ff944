package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteKVStore implements KVStore backed by SQLite.
type SQLiteKVStore struct {
	db *sql.DB
}

// NewSQLiteKVStore returns a new SQLiteKVStore.
func NewSQLiteKVStore(db *sql.DB) *SQLiteKVStore {
	return &SQLiteKVStore{db: db}
}

// Get returns the value stored under key. The boolean is false when the key
// has never been set.
func (s *SQLiteKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &Error{Op: fmt.Sprintf("read key %q", key), Err: err}
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteKVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return &Error{Op: fmt.Sprintf("write key %q", key), Err: err}
	}
	return nil
}
