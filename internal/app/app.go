// Package app assembles the field metadata engine from configuration: the
// persistent cache, the key-value store, the catalog and the registries it
// populates.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/conduit-lang/fieldinfo/internal/cache"
	"github.com/conduit-lang/fieldinfo/internal/catalog"
	"github.com/conduit-lang/fieldinfo/internal/cli/config"
	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/extension"
	"github.com/conduit-lang/fieldinfo/internal/fieldlistener"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
	"github.com/conduit-lang/fieldinfo/internal/installed"
	"github.com/conduit-lang/fieldinfo/internal/keyvalue"
	"github.com/conduit-lang/fieldinfo/internal/language"
	"github.com/conduit-lang/fieldinfo/internal/override"
)

// App holds the long-lived collaborators shared by every Manager
type App struct {
	Config      *config.Config
	EntityTypes *entitytype.Registry
	Extensions  *extension.Registry
	// Cache is nil when persistent caching is disabled
	Cache     cache.Backend
	KeyValue  keyvalue.Store
	Overrides *override.Repository
	Installed *installed.Repository
	Listener  *fieldlistener.Listener
	Languages *language.Negotiator
	Logger    *zap.Logger

	closers []func() error
}

// Open builds an App from cfg and applies the configured catalog
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	languages, err := language.NewNegotiator(cfg.Language.Default, cfg.Language.Supported...)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		EntityTypes: entitytype.NewRegistry(),
		Extensions:  extension.NewRegistry(),
		Languages:   languages,
		Logger:      logger,
	}

	if err := a.openBackends(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Overrides = override.NewRepository(a.KeyValue)
	a.Installed = installed.NewRepository(a.KeyValue)
	a.Listener = fieldlistener.New(fieldlistener.Options{
		KeyValue:    a.KeyValue,
		Cache:       a.Cache,
		Invalidator: a,
		Logger:      logger.Named("listener"),
	})

	c, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := c.Apply(ctx, catalog.Target{
		EntityTypes: a.EntityTypes,
		Extensions:  a.Extensions,
		Listener:    a.Listener,
	}); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to apply catalog %s: %w", cfg.Catalog.Path, err)
	}

	logger.Info("field metadata engine ready",
		zap.Int("entity_types", a.EntityTypes.Count()),
		zap.String("cache", cfg.Cache.Backend),
		zap.String("keyvalue", cfg.KeyValue.Backend),
	)
	return a, nil
}

func (a *App) openBackends(ctx context.Context) error {
	cfg := a.Config

	var client *redis.Client
	if cfg.Cache.Backend == "redis" || cfg.KeyValue.Backend == "redis" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
	}

	cacheConfig := cache.CacheConfig{DefaultTTL: cfg.Cache.DefaultTTL, Prefix: cfg.Cache.Prefix}
	if cacheConfig.DefaultTTL == 0 {
		cacheConfig.DefaultTTL = cache.Permanent
	}
	switch cfg.Cache.Backend {
	case "memory":
		backend := cache.NewMemoryBackendWithConfig(cacheConfig)
		a.closers = append(a.closers, backend.Close)
		a.Cache = backend
	case "redis":
		a.Cache = cache.NewRedisBackendWithClient(client, cacheConfig)
	case "none":
	default:
		return fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}

	switch cfg.KeyValue.Backend {
	case "memory":
		a.KeyValue = keyvalue.NewMemoryStore()
	case "redis":
		a.KeyValue = keyvalue.NewRedisStore(client, cfg.Cache.Prefix)
	case "sql":
		store, err := keyvalue.OpenSQLStore(cfg.KeyValue.Driver, cfg.KeyValue.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		a.KeyValue = store
	default:
		return fmt.Errorf("unknown key-value backend: %s", cfg.KeyValue.Backend)
	}
	return nil
}

// Manager returns a new Manager building definitions in langcode. Managers
// are cheap; create one per request.
func (a *App) Manager(langcode string) *fieldmanager.Manager {
	if langcode == "" {
		langcode = a.Languages.Default()
	}
	m := fieldmanager.New(fieldmanager.Options{
		EntityTypes: a.EntityTypes,
		Extensions:  a.Extensions,
		Cache:       a.Cache,
		KeyValue:    a.KeyValue,
		Overrides:   a.Overrides,
		Installed:   a.Installed,
		Language:    language.Fixed(langcode),
		Logger:      a.Logger.Named("fieldmanager"),
	})
	m.UseCaches(a.Config.UseCaches)
	return m
}

// ClearCachedFieldDefinitions invalidates the persistent caches shared by
// every Manager
func (a *App) ClearCachedFieldDefinitions(ctx context.Context) error {
	return a.Manager("").ClearCachedFieldDefinitions(ctx)
}

// Close releases the backends in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
