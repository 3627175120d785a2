// Package cache provides the byte caches used to skip repeated work, such as
// reparsing a large GDS file that has not changed.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for
// the HTTP server and [NullCache] when caching is disabled. Keys are built
// by a [Keyer] from content hashes, so a renamed file still hits.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Time-to-live per cached artifact kind.
const (
	// TTLImport covers parsed GDS imports. They are keyed by content hash and
	// never go stale, so the TTL only bounds disk usage.
	TTLImport = 30 * 24 * time.Hour

	// TTLSynth covers synthesised library part templates.
	TTLSynth = 30 * 24 * time.Hour

	// TTLRender covers SVG previews.
	TTLRender = 7 * 24 * time.Hour
)
