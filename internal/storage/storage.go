// Package storage is the persistent key-value mirror behind the per-profile
// stores. Values are JSON documents; reads and writes are best effort.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a byte-oriented key-value medium.
type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Load reads and decodes key. It returns false when the key is absent,
// unreadable or does not decode into T; those failures are logged and
// never returned.
func Load[T any](ctx context.Context, s Store, key string, logger *slog.Logger) (T, bool) {
	var zero T

	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.WarnContext(ctx, "storage read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.WarnContext(ctx, "discarding unparsable stored value",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return zero, false
	}
	return v, true
}

// Save encodes v and writes it under key. Failures are logged.
func Save(ctx context.Context, s Store, key string, v any, logger *slog.Logger) {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.ErrorContext(ctx, "encode value for storage",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.Set(ctx, key, raw); err != nil {
		logger.WarnContext(ctx, "storage write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Remove deletes key. Failures are logged.
func Remove(ctx context.Context, s Store, key string, logger *slog.Logger) {
	if err := s.Delete(ctx, key); err != nil {
		logger.WarnContext(ctx, "storage delete failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Scope returns a view of s whose keys live under "profile:<id>:".
func Scope(s Store, profileID string) Store {
	return &scoped{inner: s, prefix: "profile:" + profileID + ":"}
}

type scoped struct {
	inner  Store
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

func (s *scoped) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}
