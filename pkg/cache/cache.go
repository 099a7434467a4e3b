// Package cache provides pluggable byte caches used to avoid re-downloading
// model archives. Backends share a small Cache interface so the pipeline
// can run against a local directory, Redis, MongoDB, or nothing at all.
package cache

import (
	"context"
	"time"
)

// Cache is the storage contract shared by all backends. Keys are opaque
// strings; values are raw bytes. A zero ttl means no expiration.
type Cache interface {
	// Get retrieves a value. The boolean reports whether the key was
	// present and unexpired. Backend failures are returned as errors,
	// a plain miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given time-to-live.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
