// Package fieldmanager builds, merges and caches the field definitions of
// fieldable entity types.
//
// Every read goes through two cache tiers: a process-local memo owned by the
// Manager and an optional persistent cache shared between processes. Keys of
// both tiers embed the current language because labels and descriptions are
// translated when definitions are built.
package fieldmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/conduit-lang/fieldinfo/internal/cache"
	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/extension"
	"github.com/conduit-lang/fieldinfo/internal/installed"
	"github.com/conduit-lang/fieldinfo/internal/keyvalue"
	"github.com/conduit-lang/fieldinfo/internal/language"
	"github.com/conduit-lang/fieldinfo/internal/override"
)

// DefaultLangcode is used when no language provider is configured
const DefaultLangcode = "en"

// PrototypeCache is implemented by typed-data layers that keep objects
// embedding field definitions
type PrototypeCache interface {
	ClearCachedDefinitions()
}

// Options holds the collaborators of a Manager. EntityTypes is required;
// every other collaborator is optional.
type Options struct {
	EntityTypes entitytype.Provider
	Extensions  *extension.Registry
	// Cache is the persistent tier. Nil disables persistent caching.
	Cache cache.Backend
	// KeyValue holds the bundle field map
	KeyValue   keyvalue.Store
	Overrides  override.Loader
	Installed  installed.Reader
	Language   language.Provider
	Prototypes PrototypeCache
	Logger     *zap.Logger
}

// Manager is the entry point for field definition lookups. A Manager is meant
// to live for one request or one process; its memo is never shared.
type Manager struct {
	entityTypes entitytype.Provider
	extensions  *extension.Registry
	cache       cache.Backend
	keyValue    keyvalue.Store
	overrides   override.Loader
	installed   installed.Reader
	language    language.Provider
	prototypes  PrototypeCache
	logger      *zap.Logger

	memo      *memo
	useCaches atomic.Bool
}

// New creates a new field manager
func New(opts Options) *Manager {
	if opts.EntityTypes == nil {
		panic("fieldmanager: an entity type provider is required")
	}

	m := &Manager{
		entityTypes: opts.EntityTypes,
		extensions:  opts.Extensions,
		cache:       opts.Cache,
		keyValue:    opts.KeyValue,
		overrides:   opts.Overrides,
		installed:   opts.Installed,
		language:    opts.Language,
		prototypes:  opts.Prototypes,
		logger:      opts.Logger,
		memo:        newMemo(),
	}
	if m.extensions == nil {
		m.extensions = extension.NewRegistry()
	}
	if m.language == nil {
		m.language = language.Fixed(DefaultLangcode)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.useCaches.Store(true)
	return m
}

// UseCaches turns the persistent cache tier on or off. Turning it off also
// discards everything memoized so far. Tag invalidation is never skipped.
func (m *Manager) UseCaches(use bool) {
	m.useCaches.Store(use)
	if !use {
		m.memo.clear()
	}
}

// ClearCachedFieldDefinitions discards every memoized definition, asks the
// typed-data layer to drop its prototypes and invalidates the persistent entries
func (m *Manager) ClearCachedFieldDefinitions(ctx context.Context) error {
	m.memo.clear()
	if m.prototypes != nil {
		m.prototypes.ClearCachedDefinitions()
	}

	if m.cache != nil {
		if err := m.cache.InvalidateTags(ctx, TagEntityFieldInfo); err != nil {
			return fmt.Errorf("failed to invalidate field definition caches: %w", err)
		}
	}

	m.logger.Debug("cleared cached field definitions")
	return nil
}

// EntityTypes returns the entity type provider the manager reads from
func (m *Manager) EntityTypes() entitytype.Provider {
	return m.entityTypes
}

func (m *Manager) langcode() string {
	if id := m.language.CurrentLanguageID(); id != "" {
		return id
	}
	return DefaultLangcode
}

// resolve implements the read path shared by every cached lookup: memo, then
// persistent cache, then build. Nothing is stored when build fails.
func resolve[V any](ctx context.Context, m *Manager, t *table[V], key memoKey, cid string, tags []string, build func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := t.get(key); ok {
		return v, nil
	}

	log := m.logger.With(
		zap.String("cid", cid),
		zap.String("entity_type", key.entityType),
		zap.String("bundle", key.bundle),
		zap.String("langcode", key.langcode),
	)

	if v, ok := cacheGet[V](ctx, m, cid, log); ok {
		t.set(key, v)
		return v, nil
	}

	log.Debug("building field metadata")
	v, err := build(language.WithLangcode(ctx, key.langcode))
	if err != nil {
		var zero V
		return zero, err
	}

	m.cacheSet(ctx, cid, v, tags, log)
	t.set(key, v)
	return v, nil
}

func cacheGet[V any](ctx context.Context, m *Manager, cid string, log *zap.Logger) (V, bool) {
	var v V
	if m.cache == nil || !m.useCaches.Load() {
		return v, false
	}

	item, err := m.cache.Get(ctx, cid)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			log.Warn("persistent cache read failed", zap.Error(err))
		}
		return v, false
	}

	if err := json.Unmarshal(item.Data, &v); err != nil {
		log.Warn("discarding undecodable cache entry", zap.Error(err))
		return v, false
	}

	log.Debug("persistent cache hit")
	return v, true
}

func (m *Manager) cacheSet(ctx context.Context, cid string, v any, tags []string, log *zap.Logger) {
	if m.cache == nil || !m.useCaches.Load() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Warn("failed to encode field metadata for caching", zap.Error(err))
		return
	}
	if err := m.cache.Set(ctx, cid, data, cache.Permanent, tags...); err != nil {
		log.Warn("persistent cache write failed", zap.Error(err))
	}
}

// entityType returns the definition of a fieldable entity type
func (m *Manager) entityType(entityTypeID string) (*entitytype.Definition, error) {
	et, err := m.entityTypes.Definition(entityTypeID)
	if err != nil {
		return nil, &LogicError{EntityType: entityTypeID, Reason: "unknown entity type", Err: err}
	}
	if !et.Fieldable() {
		return nil, &LogicError{EntityType: entityTypeID, Err: ErrNotFieldable}
	}
	return et, nil
}
