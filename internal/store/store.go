// Package store persists per-room state snapshots. Each room writes one
// opaque blob under its pin after every mutating command and reads it back
// once at activation. Persistence is best effort: failures are logged by the
// caller and never interrupt gameplay.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no snapshot exists for the key.
var ErrNotFound = errors.New("store: key not found")

// Store is a key-value snapshot store scoped to one logical namespace
// ("room" or "admin").
type Store interface {
	// Put overwrites the blob under key with the given TTL (0 = no expiry).
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the blob under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the blob under key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
