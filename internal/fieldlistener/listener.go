// Package fieldlistener keeps the persisted field metadata in sync when field
// definitions, base field overrides and field storage change.
package fieldlistener

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/fieldinfo/internal/cache"
	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
	"github.com/conduit-lang/fieldinfo/internal/installed"
	"github.com/conduit-lang/fieldinfo/internal/keyvalue"
	"github.com/conduit-lang/fieldinfo/internal/override"
)

// Invalidator drops cached field definitions
type Invalidator interface {
	ClearCachedFieldDefinitions(ctx context.Context) error
}

// Options holds the collaborators of a Listener. KeyValue is required.
type Options struct {
	KeyValue keyvalue.Store
	// Cache is invalidated by tag when the bundle field map changes
	Cache cache.Backend
	// Invalidator is called after override changes
	Invalidator Invalidator
	Logger      *zap.Logger
}

// Listener reacts to field lifecycle events
type Listener struct {
	store       keyvalue.Store
	overrides   *override.Repository
	installed   *installed.Repository
	cache       cache.Backend
	invalidator Invalidator
	logger      *zap.Logger

	// serializes read-modify-write cycles on the bundle field map
	mu sync.Mutex
}

// New creates a new listener
func New(opts Options) *Listener {
	if opts.KeyValue == nil {
		panic("fieldlistener: a key-value store is required")
	}
	l := &Listener{
		store:       opts.KeyValue,
		overrides:   override.NewRepository(opts.KeyValue),
		installed:   installed.NewRepository(opts.KeyValue),
		cache:       opts.Cache,
		invalidator: opts.Invalidator,
		logger:      opts.Logger,
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

// OnFieldDefinitionCreate records that a bundle uses a configurable field
func (l *Listener) OnFieldDefinitionCreate(ctx context.Context, def *field.Definition) error {
	if err := checkBundleField(def); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fields, err := l.bundleFieldMap(ctx, def.TargetEntityType)
	if err != nil {
		return err
	}

	entry := fields[def.Name]
	entry.Type = def.Type
	if !slices.Contains(entry.Bundles, def.TargetBundle) {
		entry.Bundles = append(entry.Bundles, def.TargetBundle)
		slices.Sort(entry.Bundles)
	}
	fields[def.Name] = entry

	if err := keyvalue.SetJSON(ctx, l.store, fieldmanager.BundleFieldMapCollection, def.TargetEntityType, fields); err != nil {
		return fmt.Errorf("failed to save the bundle field map of %s: %w", def.TargetEntityType, err)
	}

	l.logger.Debug("field definition created",
		zap.String("entity_type", def.TargetEntityType),
		zap.String("bundle", def.TargetBundle),
		zap.String("field", def.Name),
	)
	return l.invalidateFieldMap(ctx)
}

// OnFieldDefinitionDelete removes a bundle from the field map. Fields no
// longer used by any bundle are dropped, as are entity types without fields.
func (l *Listener) OnFieldDefinitionDelete(ctx context.Context, def *field.Definition) error {
	if err := checkBundleField(def); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fields, err := l.bundleFieldMap(ctx, def.TargetEntityType)
	if err != nil {
		return err
	}

	entry, ok := fields[def.Name]
	if !ok {
		return nil
	}
	entry.Bundles = slices.DeleteFunc(entry.Bundles, func(b string) bool { return b == def.TargetBundle })
	if len(entry.Bundles) == 0 {
		delete(fields, def.Name)
	} else {
		fields[def.Name] = entry
	}

	if len(fields) == 0 {
		err = l.store.Delete(ctx, fieldmanager.BundleFieldMapCollection, def.TargetEntityType)
	} else {
		err = keyvalue.SetJSON(ctx, l.store, fieldmanager.BundleFieldMapCollection, def.TargetEntityType, fields)
	}
	if err != nil {
		return fmt.Errorf("failed to save the bundle field map of %s: %w", def.TargetEntityType, err)
	}

	l.logger.Debug("field definition deleted",
		zap.String("entity_type", def.TargetEntityType),
		zap.String("bundle", def.TargetBundle),
		zap.String("field", def.Name),
	)
	return l.invalidateFieldMap(ctx)
}

// OnBaseFieldOverrideSave persists an override and drops cached definitions
func (l *Listener) OnBaseFieldOverrideSave(ctx context.Context, def *field.Definition) error {
	if err := l.overrides.Save(ctx, def); err != nil {
		return fmt.Errorf("failed to save base field override: %w", err)
	}
	l.logger.Debug("base field override saved", zap.String("id", def.ID))
	return l.clearDefinitions(ctx)
}

// OnBaseFieldOverrideDelete removes an override and drops cached definitions
func (l *Listener) OnBaseFieldOverrideDelete(ctx context.Context, id string) error {
	if err := l.overrides.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete base field override %s: %w", id, err)
	}
	l.logger.Debug("base field override deleted", zap.String("id", id))
	return l.clearDefinitions(ctx)
}

// OnFieldStorageInstall records the storage definitions applied to the schema
func (l *Listener) OnFieldStorageInstall(ctx context.Context, entityTypeID string, defs *field.StorageDefinitions) error {
	if err := l.installed.SetFieldStorageDefinitions(ctx, entityTypeID, defs); err != nil {
		return fmt.Errorf("failed to record installed storage of %s: %w", entityTypeID, err)
	}
	l.logger.Debug("field storage installed",
		zap.String("entity_type", entityTypeID),
		zap.Int("fields", defs.Len()),
	)
	return nil
}

// OnFieldStorageUninstall forgets the installed storage of an entity type
func (l *Listener) OnFieldStorageUninstall(ctx context.Context, entityTypeID string) error {
	if err := l.installed.DeleteFieldStorageDefinitions(ctx, entityTypeID); err != nil {
		return fmt.Errorf("failed to forget installed storage of %s: %w", entityTypeID, err)
	}
	return nil
}

func (l *Listener) bundleFieldMap(ctx context.Context, entityTypeID string) (map[string]fieldmanager.FieldMapEntry, error) {
	fields := make(map[string]fieldmanager.FieldMapEntry)
	if _, err := keyvalue.GetJSON(ctx, l.store, fieldmanager.BundleFieldMapCollection, entityTypeID, &fields); err != nil {
		return nil, fmt.Errorf("failed to read the bundle field map of %s: %w", entityTypeID, err)
	}
	return fields, nil
}

func (l *Listener) invalidateFieldMap(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	if err := l.cache.InvalidateTags(ctx, fieldmanager.TagEntityFieldMap); err != nil {
		return fmt.Errorf("failed to invalidate the field map: %w", err)
	}
	return nil
}

func (l *Listener) clearDefinitions(ctx context.Context) error {
	if l.invalidator == nil {
		return nil
	}
	return l.invalidator.ClearCachedFieldDefinitions(ctx)
}

func checkBundleField(def *field.Definition) error {
	if def == nil {
		return fmt.Errorf("field definition is nil")
	}
	if def.Kind != field.KindBundle {
		return fmt.Errorf("field %s is not a bundle field and is not tracked in the bundle field map", def.Name)
	}
	if def.Name == "" || def.TargetEntityType == "" || def.TargetBundle == "" {
		return fmt.Errorf("field definition must have a name, target entity type and target bundle")
	}
	return nil
}
