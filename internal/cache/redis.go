package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements a Redis-backed tagged cache. Every tag is a counter
// under "<prefix>tag:<name>"; items live under "<prefix>item:<key>" and carry
// the counter values seen when they were written.
type RedisBackend struct {
	client *redis.Client
	config CacheConfig
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// CacheConfig holds common cache configuration
	CacheConfig CacheConfig
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		Password:    "",
		DB:          0,
		CacheConfig: DefaultCacheConfig(),
	}
}

type redisEnvelope struct {
	Item     Item        `json:"item"`
	Versions tagVersions `json:"versions,omitempty"`
}

// NewRedisBackendWithConfig creates a new Redis cache and checks the connection
func NewRedisBackendWithConfig(config RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	return NewRedisBackendWithClient(client, config.CacheConfig), nil
}

// NewRedisBackendWithClient creates a new Redis cache with an existing client
func NewRedisBackendWithClient(client *redis.Client, config CacheConfig) *RedisBackend {
	return &RedisBackend{
		client: client,
		config: config,
	}
}

// Get retrieves a valid item from the cache
func (r *RedisBackend) Get(ctx context.Context, key string) (*Item, error) {
	raw, err := r.client.Get(ctx, r.itemKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, err
	}

	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode cache item %s: %w", key, err)
	}

	current, err := r.versions(ctx, env.Item.Tags)
	if err != nil {
		return nil, err
	}
	if !env.Versions.matches(current) {
		return nil, ErrCacheMiss{Key: key}
	}

	return &env.Item, nil
}

// Set stores data with a TTL and tags
func (r *RedisBackend) Set(ctx context.Context, key string, data []byte, ttl time.Duration, tags ...string) error {
	tags = normalizeTags(tags)

	versions, err := r.versions(ctx, tags)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(redisEnvelope{
		Item: Item{
			Key:     key,
			Data:    data,
			Tags:    tags,
			Created: time.Now().UTC(),
		},
		Versions: versions,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache item %s: %w", key, err)
	}

	ttl = r.config.ttl(ttl)
	if ttl < 0 {
		ttl = 0
	}

	return r.client.Set(ctx, r.itemKey(key), raw, ttl).Err()
}

// Delete removes an item from the cache
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.itemKey(key)).Err()
}

// InvalidateTags increments the counter of every tag
func (r *RedisBackend) InvalidateTags(ctx context.Context, tags ...string) error {
	tags = normalizeTags(tags)
	if len(tags) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, tag := range tags {
		pipe.Incr(ctx, r.tagKey(tag))
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Clear removes all items from the cache. Tag counters are kept.
func (r *RedisBackend) Clear(ctx context.Context) error {
	// Use SCAN to find all items with our prefix
	iter := r.client.Scan(ctx, 0, r.config.Prefix+"item:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) versions(ctx context.Context, tags []string) (tagVersions, error) {
	versions := make(tagVersions, len(tags))
	if len(tags) == 0 {
		return versions, nil
	}

	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = r.tagKey(tag)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache tags: %w", err)
	}

	for i, tag := range tags {
		s, ok := values[i].(string)
		if !ok {
			versions[tag] = 0
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid version for cache tag %s: %w", tag, err)
		}
		versions[tag] = n
	}
	return versions, nil
}

func (r *RedisBackend) itemKey(key string) string {
	return r.config.Prefix + "item:" + key
}

func (r *RedisBackend) tagKey(tag string) string {
	return r.config.Prefix + "tag:" + tag
}
