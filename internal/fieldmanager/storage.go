package fieldmanager

import (
	"context"
	"fmt"

	"github.com/conduit-lang/fieldinfo/internal/extension"
	"github.com/conduit-lang/fieldinfo/internal/field"
)

// FieldStorageDefinitions returns the storage definitions of an entity type as
// currently declared: every stored base field plus storage contributed by
// extensions for fields that are not base fields.
func (m *Manager) FieldStorageDefinitions(ctx context.Context, entityTypeID string) (*field.StorageDefinitions, error) {
	langcode := m.langcode()
	return resolve(ctx, m, m.memo.storage,
		memoKey{langcode: langcode, entityType: entityTypeID},
		storageCID(entityTypeID, langcode),
		definitionTags,
		func(ctx context.Context) (*field.StorageDefinitions, error) {
			return m.buildFieldStorageDefinitions(ctx, entityTypeID)
		})
}

func (m *Manager) buildFieldStorageDefinitions(ctx context.Context, entityTypeID string) (*field.StorageDefinitions, error) {
	base, err := m.BaseFieldDefinitions(ctx, entityTypeID)
	if err != nil {
		return nil, err
	}
	et, err := m.entityType(entityTypeID)
	if err != nil {
		return nil, err
	}

	defs := &field.StorageDefinitions{}
	for name, def := range base.All() {
		if !def.Computed {
			defs.Set(name, def.StorageDefinition())
		}
	}

	contributed := &field.StorageDefinitions{}
	err = extension.InvokeAllWith(m.extensions, HookFieldStorageInfo, func(fn FieldStorageInfoFunc, provider string) error {
		more, err := fn(ctx, et)
		if err != nil {
			return err
		}
		for name, def := range more.All() {
			def = def.Clone()
			def.Name = name
			if def.TargetEntityType == "" {
				def.TargetEntityType = entityTypeID
			}
			if def.Provider == "" {
				def.Provider = provider
			}
			contributed.Set(name, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defs.AddMissing(contributed)

	err = extension.Alter(m.extensions, HookFieldStorageInfo, func(fn FieldStorageInfoAlterFunc, provider string) error {
		return fn(ctx, defs, et)
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// ActiveFieldStorageDefinitions returns the storage definitions that were
// installed the last time the schema was synchronized. Entity types without
// an installed snapshot fall back to FieldStorageDefinitions.
func (m *Manager) ActiveFieldStorageDefinitions(ctx context.Context, entityTypeID string) (*field.StorageDefinitions, error) {
	key := memoKey{langcode: m.langcode(), entityType: entityTypeID}
	if defs, ok := m.memo.activeStorage.get(key); ok {
		return defs, nil
	}

	if m.installed != nil {
		defs, found, err := m.installed.FieldStorageDefinitions(ctx, entityTypeID)
		if err != nil {
			return nil, fmt.Errorf("failed to read installed storage definitions of %s: %w", entityTypeID, err)
		}
		if found && defs.Len() > 0 {
			m.memo.activeStorage.set(key, defs)
			return defs, nil
		}
	}

	defs, err := m.FieldStorageDefinitions(ctx, entityTypeID)
	if err != nil {
		return nil, err
	}
	m.memo.activeStorage.set(key, defs)
	return defs, nil
}

