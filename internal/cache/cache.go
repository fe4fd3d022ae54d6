// Package cache provides the tagged persistent cache backends field metadata
// is stored in.
package cache

import (
	"context"
	"errors"
	"time"
)

// Permanent stores an item without expiry
const Permanent time.Duration = -1

// Backend defines the interface for all cache backends. Items are invalidated
// either directly by key or indirectly through any of the tags they were
// stored with.
type Backend interface {
	// Get retrieves a valid item, or returns ErrCacheMiss
	Get(ctx context.Context, key string) (*Item, error)

	// Set stores data with a TTL and a set of invalidation tags
	Set(ctx context.Context, key string, data []byte, ttl time.Duration, tags ...string) error

	// Delete removes an item from the cache
	Delete(ctx context.Context, key string) error

	// InvalidateTags marks every item carrying any of the tags as invalid
	InvalidateTags(ctx context.Context, tags ...string) error

	// Clear removes all items from the cache
	Clear(ctx context.Context) error
}

// Item is a cached value together with its metadata
type Item struct {
	Key     string    `json:"key"`
	Data    []byte    `json:"data"`
	Tags    []string  `json:"tags,omitempty"`
	Created time.Time `json:"created"`
}

// CacheConfig holds common configuration for cache backends
type CacheConfig struct {
	// DefaultTTL is used when Set is called with a zero TTL
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultCacheConfig returns a default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL: Permanent,
		Prefix:     "fieldinfo:",
	}
}

func (c CacheConfig) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return c.DefaultTTL
	}
	return ttl
}

// ErrCacheMiss is returned when a key is not found in the cache or the item
// was invalidated
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}
