// Package cache stores the mapping from image cache keys to public URLs.
// It defines a small key/value interface with three implementations: Valkey
// (shared, L2), an in-process ristretto cache (L1), and a tiered cache that
// consults L1 before L2.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-valued key/value store.
type Cache interface {
	// Get returns the value and true on a hit, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
