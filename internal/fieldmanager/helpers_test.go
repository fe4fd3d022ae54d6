package fieldmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/fieldinfo/internal/cache"
	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/extension"
	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/installed"
	"github.com/conduit-lang/fieldinfo/internal/keyvalue"
	"github.com/conduit-lang/fieldinfo/internal/language"
	"github.com/conduit-lang/fieldinfo/internal/override"
)

// declarer declares fields through functions and counts how often it is asked
type declarer struct {
	base   func(ctx context.Context, et *entitytype.Definition) *field.Definitions
	bundle func(ctx context.Context, et *entitytype.Definition, bundle string, base *field.Definitions) *field.Definitions

	baseCalls   int
	bundleCalls int
}

func (d *declarer) BaseFieldDefinitions(ctx context.Context, et *entitytype.Definition) (*field.Definitions, error) {
	d.baseCalls++
	if d.base == nil {
		return field.NewDefinitions(), nil
	}
	return d.base(ctx, et), nil
}

func (d *declarer) BundleFieldDefinitions(ctx context.Context, et *entitytype.Definition, bundle string, base *field.Definitions) (*field.Definitions, error) {
	d.bundleCalls++
	if d.bundle == nil {
		return nil, nil
	}
	return d.bundle(ctx, et, bundle, base), nil
}

type option func(*field.Definition)

func newField(name, fieldType string, opts ...option) *field.Definition {
	d := field.NewBaseField(fieldType)
	d.Name = name
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func withLabel(label string) option {
	return func(d *field.Definition) { d.Label = label }
}

func withCardinality(c field.Cardinality) option {
	return func(d *field.Definition) { d.Cardinality = c }
}

func translatable(d *field.Definition) { d.Translatable = true }

func revisionable(d *field.Definition) { d.Revisionable = true }

func computed(d *field.Definition) { d.Computed = true }

// articleDeclarer declares the article entity type: four base fields, the
// title translated to French, and a code-declared title override on news
func articleDeclarer() *declarer {
	return &declarer{
		base: func(ctx context.Context, et *entitytype.Definition) *field.Definitions {
			title := "Title"
			if langcode, _ := language.FromContext(ctx); langcode == "fr" {
				title = "Titre"
			}
			return field.NewDefinitions(
				newField("id", "integer", withLabel("ID")),
				newField("uuid", "uuid", withLabel("UUID")),
				newField("langcode", "language", withLabel("Language"), translatable),
				newField("title", "string", withLabel(title), withCardinality(field.Unlimited), translatable, revisionable),
			)
		},
		bundle: func(ctx context.Context, et *entitytype.Definition, bundle string, base *field.Definitions) *field.Definitions {
			if bundle != "news" {
				return nil
			}
			title, _ := base.Get("title")
			o := title.Clone()
			o.Kind = field.KindBundle
			o.Cardinality = 2
			o.Label = "Headline"
			return field.NewDefinitions(o)
		},
	}
}

func articleType(d entitytype.Declarer) *entitytype.Definition {
	return &entitytype.Definition{
		ID:       "article",
		Label:    "Article",
		Provider: "node",
		Keys: map[string]string{
			entitytype.KeyID:       "id",
			entitytype.KeyUUID:     "uuid",
			entitytype.KeyLangcode: "langcode",
		},
		Translatable:     true,
		Revisionable:     true,
		BundleEntityType: "article_type",
		Fields:           d,
	}
}

type langSwitch struct {
	id string
}

func (l *langSwitch) CurrentLanguageID() string {
	return l.id
}

type prototypeCache struct {
	cleared int
}

func (p *prototypeCache) ClearCachedDefinitions() {
	p.cleared++
}

type fixture struct {
	t          *testing.T
	types      *entitytype.Registry
	extensions *extension.Registry
	cache      *cache.MemoryBackend
	kv         *keyvalue.MemoryStore
	overrides  *override.Repository
	installed  *installed.Repository
	lang       *langSwitch
	prototypes *prototypeCache
	article    *declarer
}

func newFixture(t *testing.T) *fixture {
	kv := keyvalue.NewMemoryStore()
	f := &fixture{
		t:          t,
		types:      entitytype.NewRegistry(),
		extensions: extension.NewRegistry(),
		cache:      cache.NewMemoryBackend(),
		kv:         kv,
		overrides:  override.NewRepository(kv),
		installed:  installed.NewRepository(kv),
		lang:       &langSwitch{id: "en"},
		prototypes: &prototypeCache{},
		article:    articleDeclarer(),
	}
	t.Cleanup(func() { f.cache.Close() })

	f.register(articleType(f.article), "news", "blog")
	f.register(&entitytype.Definition{ID: "menu", Provider: "system"})
	return f
}

func (f *fixture) register(et *entitytype.Definition, bundles ...string) {
	require.NoError(f.t, f.types.Register(et))
	for _, b := range bundles {
		require.NoError(f.t, f.types.RegisterBundle(et.ID, b))
	}
}

func (f *fixture) manager() *Manager {
	return New(Options{
		EntityTypes: f.types,
		Extensions:  f.extensions,
		Cache:       f.cache,
		KeyValue:    f.kv,
		Overrides:   f.overrides,
		Installed:   f.installed,
		Language:    f.lang,
		Prototypes:  f.prototypes,
	})
}

func (f *fixture) cached(cid string) bool {
	_, err := f.cache.Get(context.Background(), cid)
	return err == nil
}
