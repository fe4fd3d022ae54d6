package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend implements an in-memory tagged cache with TTL support
type MemoryBackend struct {
	mu      sync.RWMutex
	items   map[string]memoryEntry
	tags    tagVersions
	config  CacheConfig
	cancel  context.CancelFunc
	nowFunc func() time.Time
}

type memoryEntry struct {
	item       Item
	versions   tagVersions
	expiration time.Time
}

// NewMemoryBackend creates a new in-memory cache
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithConfig(DefaultCacheConfig())
}

// NewMemoryBackendWithConfig creates a new in-memory cache with custom configuration
func NewMemoryBackendWithConfig(config CacheConfig) *MemoryBackend {
	ctx, cancel := context.WithCancel(context.Background())
	m := &MemoryBackend{
		items:   make(map[string]memoryEntry),
		tags:    make(tagVersions),
		config:  config,
		cancel:  cancel,
		nowFunc: time.Now,
	}

	// Start background goroutine to clean up expired items
	go m.cleanupExpired(ctx)

	return m
}

// Get retrieves a valid item from the cache
func (m *MemoryBackend) Get(ctx context.Context, key string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	entry, ok := m.items[key]
	valid := ok && m.valid(entry)
	m.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	if !valid {
		m.mu.Lock()
		if current, exists := m.items[key]; exists && !m.valid(current) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, ErrCacheMiss{Key: key}
	}

	item := entry.item
	return &item, nil
}

// valid must be called with the lock held
func (m *MemoryBackend) valid(entry memoryEntry) bool {
	return entry.versions.matches(m.tags) && !m.expired(entry)
}

// Set stores data with a TTL and tags
func (m *MemoryBackend) Set(ctx context.Context, key string, data []byte, ttl time.Duration, tags ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tags = normalizeTags(tags)
	ttl = m.config.ttl(ttl)
	now := m.nowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()

	versions := make(tagVersions, len(tags))
	for _, tag := range tags {
		versions[tag] = m.tags[tag]
	}

	entry := memoryEntry{
		item: Item{
			Key:     key,
			Data:    append([]byte(nil), data...),
			Tags:    tags,
			Created: now,
		},
		versions: versions,
	}
	if ttl > 0 {
		entry.expiration = now.Add(ttl)
	}

	m.items[key] = entry
	return nil
}

// Delete removes an item from the cache
func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// InvalidateTags bumps the version of every tag
func (m *MemoryBackend) InvalidateTags(ctx context.Context, tags ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tag := range normalizeTags(tags) {
		m.tags[tag]++
	}
	return nil
}

// Clear removes all items from the cache. Tag versions are kept.
func (m *MemoryBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.items = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored items, valid or not
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Close stops the background cleanup goroutine
func (m *MemoryBackend) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

func (m *MemoryBackend) expired(entry memoryEntry) bool {
	return !entry.expiration.IsZero() && m.nowFunc().After(entry.expiration)
}

// cleanupExpired periodically removes expired items from the cache
func (m *MemoryBackend) cleanupExpired(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			for key, entry := range m.items {
				if m.expired(entry) {
					delete(m.items, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
