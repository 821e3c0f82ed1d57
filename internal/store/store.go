// Package store provides the keyed store every component persists through,
// with a SQLite implementation, an in-memory one, and a degraded no-op one.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when no value exists for a key.
	ErrNotFound = errors.New("key not found")
	// ErrUnavailable marks a store that failed its startup probe.
	ErrUnavailable = errors.New("storage unavailable")
)

// Entry is a stored key/value pair.
type Entry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the keyed storage interface.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// List returns every entry whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// ClearPrefix deletes every key starting with prefix in one atomic step
	// and returns the number of keys removed.
	ClearPrefix(ctx context.Context, prefix string) (int, error)

	// Close releases resources.
	Close() error
}

const probeKey = "__probe__"

// Probe performs a write/read/remove round trip. A failing probe means the
// caller should switch to Unavailable.
func Probe(ctx context.Context, s Store) error {
	want := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := s.Set(ctx, probeKey, want); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	got, err := s.Get(ctx, probeKey)
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	if string(got) != string(want) {
		return errors.Join(ErrUnavailable, errors.New("probe value mismatch"))
	}
	if err := s.Remove(ctx, probeKey); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}
