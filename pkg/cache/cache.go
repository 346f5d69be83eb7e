// Package cache stores raw registry responses between lookups.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON envelopes under ~/.cache/monocrate, for local use
//   - [RedisCache]: a shared Redis instance, for CI runners that bump often
//   - [NullCache]: stores nothing, used when caching is disabled
//
// Publishing never reads through a cache; a stale published version would
// make the scheduler attempt a release the registry already has.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the cached data and true, or false on a miss or expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
