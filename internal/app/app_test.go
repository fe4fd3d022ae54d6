package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/fieldinfo/internal/cli/config"
	"github.com/conduit-lang/fieldinfo/internal/fieldlistener"
	"github.com/conduit-lang/fieldinfo/internal/override"
)

func testConfig() *config.Config {
	return &config.Config{
		Cache:     config.CacheConfig{Backend: "memory", Prefix: "fi:"},
		KeyValue:  config.KeyValueConfig{Backend: "memory"},
		Catalog:   config.CatalogConfig{Path: "testdata/catalog.yml"},
		Language:  config.LanguageConfig{Default: "en", Supported: []string{"en", "fr"}},
		UseCaches: true,
	}
}

func openApp(t *testing.T, cfg *config.Config) *App {
	a, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func assertCatalogApplied(t *testing.T, a *App) {
	ctx := context.Background()

	landing, err := a.Manager("en").FieldDefinitions(ctx, "page", "landing")
	require.NoError(t, err)
	title, ok := landing.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Heading", title.Label)
	assert.True(t, landing.Has("field_hero"))

	base, err := a.Manager("fr").BaseFieldDefinitions(ctx, "page")
	require.NoError(t, err)
	frTitle, _ := base.Get("title")
	assert.Equal(t, "Titre", frTitle.Label)
	langcode, ok := base.Get("langcode")
	require.True(t, ok)
	assert.True(t, langcode.Translatable)

	fm, err := a.Manager("").FieldMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"landing"}, fm["page"]["field_hero"].Bundles)
}

func TestOpen_Memory(t *testing.T) {
	a := openApp(t, testConfig())
	assert.NotNil(t, a.Cache)
	assert.IsType(t, &fieldlistener.Listener{}, a.Listener)
	assert.Equal(t, 1, a.EntityTypes.Count())
	assertCatalogApplied(t, a)
	assert.NoError(t, a.ClearCachedFieldDefinitions(context.Background()))
}

func TestOpen_NoCache(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = "none"
	cfg.UseCaches = false

	a := openApp(t, cfg)
	assert.Nil(t, a.Cache)
	assertCatalogApplied(t, a)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Cache.Backend = "redis"
	cfg.KeyValue.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()

	a := openApp(t, cfg)
	assertCatalogApplied(t, a)
	assert.True(t, mr.Exists("fi:kv:"+override.Collection))
	assert.True(t, mr.Exists("fi:kv:entity.definitions.bundle_field_map"))

	// A second process sees the same persisted state
	other := openApp(t, cfg)
	assertCatalogApplied(t, other)
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis.Addr = addr

	_, err := Open(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestOpen_SQLite(t *testing.T) {
	cfg := testConfig()
	cfg.KeyValue = config.KeyValueConfig{
		Backend: "sql",
		Driver:  "sqlite3",
		DSN:     filepath.Join(t.TempDir(), "fieldinfo.db"),
	}

	a := openApp(t, cfg)
	assertCatalogApplied(t, a)

	all, err := a.Overrides.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		err    string
	}{
		{"missing catalog", func(c *config.Config) { c.Catalog.Path = "testdata/missing.yml" }, "failed to read catalog"},
		{"unknown cache backend", func(c *config.Config) { c.Cache.Backend = "memcached" }, "unknown cache backend"},
		{"unknown key-value backend", func(c *config.Config) { c.KeyValue.Backend = "etcd" }, "unknown key-value backend"},
		{"unsupported driver", func(c *config.Config) {
			c.KeyValue = config.KeyValueConfig{Backend: "sql", Driver: "mysql", DSN: "x"}
		}, "unsupported key-value driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, err := Open(context.Background(), cfg, nil)
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestManager_DefaultLanguage(t *testing.T) {
	cfg := testConfig()
	cfg.Language.Default = "fr"

	a := openApp(t, cfg)
	base, err := a.Manager("").BaseFieldDefinitions(context.Background(), "page")
	require.NoError(t, err)
	title, _ := base.Get("title")
	assert.Equal(t, "Titre", title.Label)
}
