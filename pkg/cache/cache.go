// Package cache stores mapping results keyed by their inputs.
//
// A mapping is a pure function of the source graph, the target
// architecture and the mapping options, so results can be reused across
// runs. The [Cache] interface has four backends:
//   - [NullCache]: disables caching
//   - [FileCache]: one file per entry, for the CLI
//   - [BadgerCache]: an embedded key-value store
//   - [RedisCache]: shared by several API servers
//
// Keys are built by a [Keyer] from a hash of the graph and the options.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte-oriented key-value store with expiration.
type Cache interface {
	// Get returns the value stored under key. A missing or expired entry
	// is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// TTLMapping is how long mapping results are kept.
const TTLMapping = 30 * 24 * time.Hour

// Backend names accepted by [Open].
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Dir is the directory of the file and badger backends.
	Dir string
	// URL is the Redis URL, such as redis://localhost:6379/0.
	URL string
}

// Open creates the cache described by cfg.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		c, err := NewFileCache(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendBadger:
		c, err := NewBadgerCache(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
