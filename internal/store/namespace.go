package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Namespace scopes a Store under one reserved key prefix, e.g. "daypulse:".
// Clearing the namespace removes everything the app ever wrote.
type Namespace struct {
	store  Store
	prefix string
	log    *zap.Logger
}

// NewNamespace wraps s under prefix.
func NewNamespace(s Store, prefix string, log *zap.Logger) *Namespace {
	if log == nil {
		log = zap.NewNop()
	}
	return &Namespace{store: s, prefix: prefix, log: log}
}

// Prefix returns the reserved prefix.
func (n *Namespace) Prefix() string { return n.prefix }

// Store returns the wrapped store.
func (n *Namespace) Store() Store { return n.store }

// Key returns the fully qualified key.
func (n *Namespace) Key(key string) string { return n.prefix + key }

func (n *Namespace) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.Key(key))
}

func (n *Namespace) Set(ctx context.Context, key string, value []byte) error {
	return n.store.Set(ctx, n.Key(key), value)
}

func (n *Namespace) Remove(ctx context.Context, key string) error {
	return n.store.Remove(ctx, n.Key(key))
}

// List returns entries under the namespace-relative prefix. Keys in the
// result are namespace-relative.
func (n *Namespace) List(ctx context.Context, prefix string) ([]Entry, error) {
	entries, err := n.store.List(ctx, n.Key(prefix))
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Key = strings.TrimPrefix(entries[i].Key, n.prefix)
	}
	return entries, nil
}

// ClearPrefix removes every key under the namespace-relative prefix.
func (n *Namespace) ClearPrefix(ctx context.Context, prefix string) (int, error) {
	return n.store.ClearPrefix(ctx, n.Key(prefix))
}

// Clear removes every key in the namespace.
func (n *Namespace) Clear(ctx context.Context) (int, error) {
	return n.store.ClearPrefix(ctx, n.prefix)
}

// GetJSON decodes the value under key. Missing keys, storage errors and
// malformed data all read as absent; the latter two are logged.
func GetJSON[T any](ctx context.Context, n *Namespace, key string) (T, bool) {
	var v T
	raw, err := n.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			n.log.Warn("store read failed", zap.String("key", key), zap.Error(err))
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		n.log.Warn("discarding malformed value", zap.String("key", key), zap.Error(err))
		var zero T
		return zero, false
	}
	return v, true
}

// SetJSON encodes v and stores it under key.
func SetJSON[T any](ctx context.Context, n *Namespace, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := n.Set(ctx, key, b); err != nil {
		n.log.Warn("store write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}
