// Package installed records the field storage definitions that were applied
// to the schema the last time it was synchronized.
package installed

import (
	"context"

	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/keyvalue"
)

// Collection is the key-value collection snapshots are stored in
const Collection = "entity.definitions.installed"

// Reader gives access to the last installed storage definitions
type Reader interface {
	// FieldStorageDefinitions returns the installed snapshot of an entity type.
	// It reports false when the entity type was never installed.
	FieldStorageDefinitions(ctx context.Context, entityTypeID string) (*field.StorageDefinitions, bool, error)
}

// Repository stores installed snapshots in a key-value store
type Repository struct {
	store keyvalue.Store
}

// NewRepository creates a repository on top of store
func NewRepository(store keyvalue.Store) *Repository {
	return &Repository{store: store}
}

// Key returns the key under which the snapshot of an entity type is stored
func Key(entityTypeID string) string {
	return entityTypeID + ".field_storage_definitions"
}

// FieldStorageDefinitions returns the installed snapshot of an entity type
func (r *Repository) FieldStorageDefinitions(ctx context.Context, entityTypeID string) (*field.StorageDefinitions, bool, error) {
	defs := &field.StorageDefinitions{}
	found, err := keyvalue.GetJSON(ctx, r.store, Collection, Key(entityTypeID), defs)
	if err != nil || !found {
		return nil, false, err
	}
	return defs, true, nil
}

// SetFieldStorageDefinitions replaces the installed snapshot of an entity type
func (r *Repository) SetFieldStorageDefinitions(ctx context.Context, entityTypeID string, defs *field.StorageDefinitions) error {
	if defs == nil {
		defs = &field.StorageDefinitions{}
	}
	return keyvalue.SetJSON(ctx, r.store, Collection, Key(entityTypeID), defs)
}

// DeleteFieldStorageDefinitions forgets the installed snapshot of an entity type
func (r *Repository) DeleteFieldStorageDefinitions(ctx context.Context, entityTypeID string) error {
	return r.store.Delete(ctx, Collection, Key(entityTypeID))
}
