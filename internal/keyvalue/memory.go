package keyvalue

import (
	"context"
	"sync"
)

// MemoryStore keeps collections in process memory
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string][]byte),
	}
}

// Get returns the value stored under key
func (m *MemoryStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.collections[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

// GetMultiple returns the values of the keys that exist
func (m *MemoryStore) GetMultiple(ctx context.Context, collection string, keys []string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if v, ok := m.collections[collection][key]; ok {
			out[key] = clone(v)
		}
	}
	return out, nil
}

// GetAll returns the whole collection
func (m *MemoryStore) GetAll(ctx context.Context, collection string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(m.collections[collection]))
	for key, v := range m.collections[collection] {
		out[key] = clone(v)
	}
	return out, nil
}

// Set stores value under key
func (m *MemoryStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		c = make(map[string][]byte)
		m.collections[collection] = c
	}
	c[key] = clone(value)
	return nil
}

// Delete removes keys from a collection
func (m *MemoryStore) Delete(ctx context.Context, collection string, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.collections[collection], key)
	}
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
