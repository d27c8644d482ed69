// Package cache stores rendered artifacts (DOT source, SVG, PNG, subgraph
// JSON) so repeated renders of an unchanged graph skip extraction and layout.
//
// # Backends
//
//   - [FileCache]: one file per entry under a directory, for the CLI
//   - [RedisCache]: shared cache for several server instances
//   - [MemoryCache]: bounded in-process LRU, the server default
//   - [NullCache]: never stores anything (--no-cache)
//
// All backends implement [Cache] and are selected with [Open].
//
// # Keys
//
// A [Keyer] derives keys from a graph content hash plus the options that
// influence the output, so a store change or an option change misses the
// cache naturally and nothing has to be invalidated by hand. [ScopedKeyer]
// prefixes every key to isolate namespaces that share one backend.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values per entry kind.
const (
	TTLArtifact = 7 * 24 * time.Hour
	TTLDOT      = 7 * 24 * time.Hour
	TTLHTTP     = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiration.
//
// Get reports a miss as (nil, false, nil); an error means the backend
// failed, not that the key was absent. A ttl <= 0 on Set means the entry
// does not expire. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
