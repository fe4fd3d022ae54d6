package keyvalue

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps every collection in one Redis hash
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store using an existing client. Hash keys are
// "<prefix>kv:<collection>".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get returns the value stored under key
func (r *RedisStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	v, err := r.client.HGet(ctx, r.hashKey(collection), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, key, err)
	}
	return v, nil
}

// GetMultiple returns the values of the keys that exist
func (r *RedisStore) GetMultiple(ctx context.Context, collection string, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.client.HMGet(ctx, r.hashKey(collection), keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	for i, key := range keys {
		if s, ok := values[i].(string); ok {
			out[key] = []byte(s)
		}
	}
	return out, nil
}

// GetAll returns the whole collection
func (r *RedisStore) GetAll(ctx context.Context, collection string) (map[string][]byte, error) {
	values, err := r.client.HGetAll(ctx, r.hashKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	out := make(map[string][]byte, len(values))
	for key, v := range values {
		out[key] = []byte(v)
	}
	return out, nil
}

// Set stores value under key
func (r *RedisStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if err := r.client.HSet(ctx, r.hashKey(collection), key, value).Err(); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, key, err)
	}
	return nil
}

// Delete removes keys from a collection
func (r *RedisStore) Delete(ctx context.Context, collection string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.hashKey(collection), keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	return nil
}

func (r *RedisStore) hashKey(collection string) string {
	return r.prefix + "kv:" + collection
}
