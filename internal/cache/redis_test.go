package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	// Create a mock Redis server
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	backend := NewRedisBackendWithClient(client, DefaultCacheConfig())
	t.Cleanup(func() {
		backend.Close()
		mr.Close()
	})
	return backend, mr
}

func TestNewRedisBackendWithConfig(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := DefaultRedisConfig()
	config.Addr = mr.Addr()

	backend, err := NewRedisBackendWithConfig(config)
	require.NoError(t, err)
	defer backend.Close()
}

func TestNewRedisBackendWithConfig_ConnectionError(t *testing.T) {
	config := DefaultRedisConfig()
	config.Addr = "localhost:99999" // Invalid port

	_, err := NewRedisBackendWithConfig(config)
	assert.Error(t, err)
}

func TestRedisBackend_SetAndGet(t *testing.T) {
	backend, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "entity_field_map:en", []byte(`{"a":1}`), Permanent, "entity_types"))

	item, err := backend.Get(ctx, "entity_field_map:en")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), item.Data)
	assert.Equal(t, []string{"entity_types"}, item.Tags)

	assert.True(t, mr.Exists("fieldinfo:item:entity_field_map:en"))
	// Permanent items have no expiry
	assert.Equal(t, time.Duration(0), mr.TTL("fieldinfo:item:entity_field_map:en"))
}

func TestRedisBackend_GetMiss(t *testing.T) {
	backend, _ := setupTestRedis(t)

	_, err := backend.Get(context.Background(), "nonexistent")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisBackend_InvalidateTags(t *testing.T) {
	backend, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "a", []byte("1"), Permanent, "entity_field_info", "entity_types"))
	require.NoError(t, backend.Set(ctx, "b", []byte("2"), Permanent, "entity_types"))

	require.NoError(t, backend.InvalidateTags(ctx, "entity_field_info"))

	_, err := backend.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))
	_, err = backend.Get(ctx, "b")
	assert.NoError(t, err)

	v, err := mr.Get("fieldinfo:tag:entity_field_info")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	require.NoError(t, backend.Set(ctx, "a", []byte("3"), Permanent, "entity_field_info"))
	item, err := backend.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), item.Data)
}

func TestRedisBackend_TTLExpiration(t *testing.T) {
	backend, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "short", []byte("v"), 100*time.Millisecond))

	mr.FastForward(200 * time.Millisecond)

	_, err := backend.Get(ctx, "short")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisBackend_DefaultTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backend := NewRedisBackendWithClient(client, CacheConfig{DefaultTTL: time.Hour, Prefix: "t:"})
	defer backend.Close()

	require.NoError(t, backend.Set(context.Background(), "k", []byte("v"), 0))
	assert.Equal(t, time.Hour, mr.TTL("t:item:k"))
}

func TestRedisBackend_DeleteAndClear(t *testing.T) {
	backend, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "a", []byte("1"), Permanent, "x"))
	require.NoError(t, backend.Set(ctx, "b", []byte("2"), Permanent))
	require.NoError(t, backend.InvalidateTags(ctx, "x"))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, backend.Delete(ctx, "b"))
	assert.False(t, mr.Exists("fieldinfo:item:b"))

	require.NoError(t, backend.Clear(ctx))
	assert.False(t, mr.Exists("fieldinfo:item:a"))
	assert.True(t, mr.Exists("fieldinfo:tag:x"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisBackend_CorruptItem(t *testing.T) {
	backend, mr := setupTestRedis(t)

	require.NoError(t, mr.Set("fieldinfo:item:bad", "not json"))

	_, err := backend.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, IsCacheMiss(err))
}
