package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection keys. One JSON blob per key holds the entire collection.
const (
	KeyUsers        = "users"
	KeySession      = "current_user"
	KeyBooks        = "books"
	KeyLoans        = "loans"
	KeyAssets       = "assets"
	KeyTransactions = "asset_transactions"
)

// ErrCorrupted marks a stored value that could not be decoded.
var ErrCorrupted = errors.New("corrupted stored value")

// Store persists whole collections as JSON blobs in a local key/value
// table. Every operation is a full load-modify-save of one collection;
// there is no row-level access and no locking. Two overlapping writers
// race and the last save wins, which matches the single-session model
// this system is built for.
type Store struct {
	db *sql.DB
}

// New creates a store over an opened database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load unmarshals the collection stored under key into v. The second
// return is false when the key has never been written. A value that
// exists but cannot be decoded returns an error wrapping ErrCorrupted.
func (s *Store) Load(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM collections WHERE key = ?`, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading collection %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("decoding collection %q: %w: %v", key, ErrCorrupted, err)
	}
	return true, nil
}

// Save overwrites the collection stored under key with v.
func (s *Store) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding collection %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("saving collection %q: %w", key, err)
	}
	return nil
}

// Delete removes the value stored under key. Deleting a missing key is
// not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting collection %q: %w", key, err)
	}
	return nil
}
