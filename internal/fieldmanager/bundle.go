package fieldmanager

import (
	"context"
	"fmt"

	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/extension"
	"github.com/conduit-lang/fieldinfo/internal/field"
)

// FieldDefinitions returns every field of one bundle: the base fields with the
// bundle's overrides applied in place, followed by bundle-only fields. The
// returned collection must not be modified.
func (m *Manager) FieldDefinitions(ctx context.Context, entityTypeID, bundle string) (*field.Definitions, error) {
	key := memoKey{langcode: m.langcode(), entityType: entityTypeID, bundle: bundle}
	if defs, ok := m.memo.fields.get(key); ok {
		return defs, nil
	}

	base, err := m.BaseFieldDefinitions(ctx, entityTypeID)
	if err != nil {
		return nil, err
	}
	bundleDefs, err := m.bundleFieldDefinitions(ctx, entityTypeID, bundle, base)
	if err != nil {
		return nil, err
	}

	merged := &field.Definitions{}
	merged.Merge(base)
	merged.Merge(bundleDefs)

	m.memo.fields.set(key, merged)
	return merged, nil
}

func (m *Manager) bundleFieldDefinitions(ctx context.Context, entityTypeID, bundle string, base *field.Definitions) (*field.Definitions, error) {
	langcode := m.langcode()
	return resolve(ctx, m, m.memo.bundleFields,
		memoKey{langcode: langcode, entityType: entityTypeID, bundle: bundle},
		bundleFieldsCID(entityTypeID, bundle, langcode),
		definitionTags,
		func(ctx context.Context) (*field.Definitions, error) {
			et, err := m.entityType(entityTypeID)
			if err != nil {
				return nil, err
			}
			return m.buildBundleFieldDefinitions(ctx, et, bundle, base)
		})
}

// buildBundleFieldDefinitions returns only the bundle-specific additions and
// overrides; base fields are merged in by FieldDefinitions
func (m *Manager) buildBundleFieldDefinitions(ctx context.Context, et *entitytype.Definition, bundle string, base *field.Definitions) (*field.Definitions, error) {
	declared, err := et.Fields.BundleFieldDefinitions(ctx, et, bundle, base)
	if err != nil {
		return nil, fmt.Errorf("failed to declare fields of %s bundle %s: %w", et.ID, bundle, err)
	}
	fields := declared.Clone()

	if err := m.applyOverrides(ctx, et, bundle, base, fields); err != nil {
		return nil, err
	}

	for _, def := range fields.All() {
		if def.Kind != field.KindBaseFieldOverride {
			def.Provider = et.Provider
		}
	}

	err = extension.InvokeAllWith(m.extensions, HookBundleFieldInfo, func(fn BundleFieldInfoFunc, provider string) error {
		contributed, err := fn(ctx, et, bundle, base)
		if err != nil {
			return err
		}
		for name, def := range contributed.All() {
			def = def.Clone()
			if def.Provider == "" {
				def.Provider = provider
			}
			fields.Set(name, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = extension.Alter(m.extensions, HookBundleFieldInfo, func(fn BundleFieldInfoAlterFunc, provider string) error {
		return fn(ctx, fields, et, bundle)
	})
	if err != nil {
		return nil, err
	}

	for name, def := range fields.All() {
		if def.Kind == field.KindBaseFieldOverride {
			continue
		}
		if def.Kind == "" {
			def.Kind = field.KindBundle
		}
		def.Name = name
		def.TargetEntityType = et.ID
		def.TargetBundle = bundle
	}
	return fields, nil
}

// applyOverrides replaces code-declared bundle definitions with persisted
// overrides of the same base field
func (m *Manager) applyOverrides(ctx context.Context, et *entitytype.Definition, bundle string, base, fields *field.Definitions) error {
	if m.overrides == nil || base.Len() == 0 {
		return nil
	}

	names := base.Names()
	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = field.OverrideID(et.ID, bundle, name)
	}

	found, err := m.overrides.LoadMultiple(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load base field overrides of %s bundle %s: %w", et.ID, bundle, err)
	}

	for i, name := range names {
		if o, ok := found[ids[i]]; ok {
			o.Kind = field.KindBaseFieldOverride
			fields.Set(name, o)
		}
	}
	return nil
}
