// Package keyvalue provides named key-value collections backed by memory,
// Redis or an SQL database.
package keyvalue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key does not exist in a collection
var ErrNotFound = errors.New("key not found")

// Store persists raw values in named collections
type Store interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, collection, key string) ([]byte, error)

	// GetMultiple returns the values of the keys that exist
	GetMultiple(ctx context.Context, collection string, keys []string) (map[string][]byte, error)

	// GetAll returns the whole collection
	GetAll(ctx context.Context, collection string) (map[string][]byte, error)

	// Set stores value under key, replacing any existing value
	Set(ctx context.Context, collection, key string, value []byte) error

	// Delete removes keys from a collection. Missing keys are ignored.
	Delete(ctx context.Context, collection string, keys ...string) error
}

// GetJSON decodes the value stored under key into v. It reports false when
// the key does not exist.
func GetJSON(ctx context.Context, s Store, collection, key string, v any) (bool, error) {
	raw, err := s.Get(ctx, collection, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, s Store, collection, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, key, err)
	}
	return s.Set(ctx, collection, key, raw)
}

// GetAllJSON reads a whole collection and decodes every value into a T
func GetAllJSON[T any](ctx context.Context, s Store, collection string) (map[string]T, error) {
	all, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](collection, all)
}

// GetMultipleJSON decodes the values of the keys that exist
func GetMultipleJSON[T any](ctx context.Context, s Store, collection string, keys []string) (map[string]T, error) {
	found, err := s.GetMultiple(ctx, collection, keys)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](collection, found)
}

func decodeAll[T any](collection string, raw map[string][]byte) (map[string]T, error) {
	out := make(map[string]T, len(raw))
	for key, value := range raw {
		var v T
		if err := json.Unmarshal(value, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
		}
		out[key] = v
	}
	return out, nil
}
