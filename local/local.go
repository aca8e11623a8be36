// Package local defines the optional in-process near cache the memoizer
// writes through in addition to the remote store. Implementations must be
// safe for concurrent use and byte-for-byte transparent: Get returns exactly
// the []byte previously passed to Set for the same key.
package local

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. Writes are best-effort: a store
	// may silently drop an entry under memory pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
