package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/fieldinfo/internal/cache"
	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/extension"
	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/fieldlistener"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
	"github.com/conduit-lang/fieldinfo/internal/installed"
	"github.com/conduit-lang/fieldinfo/internal/keyvalue"
	"github.com/conduit-lang/fieldinfo/internal/language"
	"github.com/conduit-lang/fieldinfo/internal/override"
)

type env struct {
	types      *entitytype.Registry
	extensions *extension.Registry
	kv         *keyvalue.MemoryStore
	backend    *cache.MemoryBackend
}

func (e *env) manager(langcode string) *fieldmanager.Manager {
	return fieldmanager.New(fieldmanager.Options{
		EntityTypes: e.types,
		Extensions:  e.extensions,
		Cache:       e.backend,
		KeyValue:    e.kv,
		Overrides:   override.NewRepository(e.kv),
		Installed:   installed.NewRepository(e.kv),
		Language:    language.Fixed(langcode),
	})
}

func loadTestCatalog(t *testing.T) *env {
	c, err := Load("testdata/catalog.yml")
	require.NoError(t, err)

	e := &env{
		types:      entitytype.NewRegistry(),
		extensions: extension.NewRegistry(),
		kv:         keyvalue.NewMemoryStore(),
		backend:    cache.NewMemoryBackend(),
	}
	t.Cleanup(func() { e.backend.Close() })

	listener := fieldlistener.New(fieldlistener.Options{
		KeyValue:    e.kv,
		Cache:       e.backend,
		Invalidator: e.manager("en"),
	})
	require.NoError(t, c.Apply(context.Background(), Target{
		EntityTypes: e.types,
		Extensions:  e.extensions,
		Listener:    listener,
	}))
	return e
}

func TestLoad(t *testing.T) {
	c, err := Load("testdata/catalog.yml")
	require.NoError(t, err)

	assert.Equal(t, "en", c.DefaultLangcode)
	require.Len(t, c.EntityTypes, 2)

	article := c.EntityTypes[0]
	assert.Equal(t, "article", article.ID)
	assert.Equal(t, []string{"news", "blog"}, article.Bundles)
	assert.True(t, article.fieldable())
	assert.False(t, c.EntityTypes[1].fieldable())

	title := article.baseField("title")
	require.NotNil(t, title)
	assert.Equal(t, Cardinality(field.Unlimited), title.Cardinality)
	assert.Equal(t, Text{"en": "Title", "fr": "Titre"}, title.Label)
	assert.Equal(t, Text{"": "ID"}, article.baseField("id").Label)

	require.Len(t, c.Overrides, 1)
	assert.Equal(t, Cardinality(1), c.Overrides[0].Cardinality)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/missing.yml")
	assert.ErrorContains(t, err, "failed to read catalog")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  string
	}{
		{
			name: "entity type without id",
			doc:  "entity_types:\n  - label: Nameless\n",
			err:  "has no id",
		},
		{
			name: "duplicate entity type",
			doc:  "entity_types:\n  - id: a\n  - id: a\n",
			err:  "declared twice",
		},
		{
			name: "base field without type",
			doc:  "entity_types:\n  - id: a\n    base_fields:\n      - name: title\n",
			err:  "field title has no type",
		},
		{
			name: "new bundle field without type",
			doc:  "entity_types:\n  - id: a\n    bundle_fields:\n      b:\n        - name: extra\n",
			err:  "field extra has no type",
		},
		{
			name: "contribution without provider",
			doc:  "contributions:\n  - base_fields: {}\n",
			err:  "has no provider",
		},
		{
			name: "invalid cardinality",
			doc:  "entity_types:\n  - id: a\n    base_fields:\n      - name: f\n        type: string\n        cardinality: 0\n",
			err:  "invalid cardinality",
		},
		{
			name: "override of unknown entity type",
			doc:  "overrides:\n  - entity_type: nope\n    bundle: b\n    field: f\n",
			err:  "unknown entity type",
		},
		{
			name: "override of a field that is not a base field",
			doc:  "entity_types:\n  - id: a\noverrides:\n  - entity_type: a\n    bundle: b\n    field: f\n",
			err:  "f is not a base field",
		},
		{
			name: "malformed text",
			doc:  "entity_types:\n  - id: a\n    base_fields:\n      - name: f\n        type: string\n        label: [a, b]\n",
			err:  "text must be a string or a langcode mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestText_In(t *testing.T) {
	text := Text{"en": "Title", "fr": "Titre"}
	assert.Equal(t, "Titre", text.In("fr", "en"))
	assert.Equal(t, "Title", text.In("de", "en"))
	assert.Equal(t, "Title", text.In("de", "es"), "first translation by langcode")
	assert.Equal(t, "ID", Text{"": "ID"}.In("fr", "en"))
	assert.Empty(t, Text(nil).In("fr", "en"))
}

func TestApply_FieldDefinitions(t *testing.T) {
	e := loadTestCatalog(t)
	ctx := context.Background()

	_, err := e.types.Definition("menu")
	require.NoError(t, err)

	m := e.manager("en")
	news, err := m.FieldDefinitions(ctx, "article", "news")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"id", "uuid", "langcode", "title",
		"default_langcode", "revision_default", "path", "revision_translation_affected",
		"field_tags",
	}, news.Names())

	title, _ := news.Get("title")
	assert.Equal(t, field.KindBaseFieldOverride, title.Kind)
	assert.Equal(t, field.Cardinality(1), title.Cardinality)
	assert.Equal(t, "Headline", title.Label)
	assert.True(t, title.HasConstraint("Length"))

	tags, _ := news.Get("field_tags")
	assert.Equal(t, "taxonomy", tags.Provider)
	assert.Equal(t, "Tags", tags.Label)
	assert.Equal(t, field.Unlimited, tags.Cardinality)

	path, _ := news.Get("path")
	assert.Equal(t, "path", path.Provider)
	assert.True(t, path.Computed)

	blog, err := e.manager("fr").FieldDefinitions(ctx, "article", "blog")
	require.NoError(t, err)
	blogTitle, _ := blog.Get("title")
	assert.Equal(t, "Titre", blogTitle.Label)
	assert.Equal(t, field.Unlimited, blogTitle.Cardinality)
	assert.Equal(t, "string_textfield", blogTitle.DisplayOptions["form"].Type)
	blogTags, _ := blog.Get("field_tags")
	assert.Equal(t, "Blog tags", blogTags.Label)
}

func TestApply_CodeDeclaredBundleOverride(t *testing.T) {
	c, err := Load("testdata/catalog.yml")
	require.NoError(t, err)
	c.Overrides = nil

	types := entitytype.NewRegistry()
	extensions := extension.NewRegistry()
	require.NoError(t, c.Apply(context.Background(), Target{EntityTypes: types, Extensions: extensions}))

	m := fieldmanager.New(fieldmanager.Options{EntityTypes: types, Extensions: extensions, Language: language.Fixed("fr")})
	news, err := m.FieldDefinitions(context.Background(), "article", "news")
	require.NoError(t, err)

	title, _ := news.Get("title")
	assert.Equal(t, field.KindBundle, title.Kind)
	assert.Equal(t, "Manchette", title.Label)
	assert.Equal(t, field.Cardinality(2), title.Cardinality)
	assert.True(t, title.Required, "unset attributes come from the base field")
}

func TestApply_StorageAndFieldMap(t *testing.T) {
	e := loadTestCatalog(t)
	ctx := context.Background()
	m := e.manager("en")

	storage, err := m.FieldStorageDefinitions(ctx, "article")
	require.NoError(t, err)
	assert.False(t, storage.Has("path"))
	tags, ok := storage.Get("field_tags")
	require.True(t, ok)
	assert.Equal(t, "entity_reference", tags.Type)
	assert.Equal(t, "taxonomy", tags.Provider)
	assert.Equal(t, "article", tags.TargetEntityType)

	fm, err := m.FieldMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, fieldmanager.FieldMapEntry{Type: "entity_reference", Bundles: []string{"blog", "news"}}, fm["article"]["field_tags"])
	assert.Equal(t, []string{"blog", "news"}, fm["article"]["title"].Bundles)
}

func TestApply_ExtraFields(t *testing.T) {
	e := loadTestCatalog(t)
	ctx := context.Background()

	extra, err := e.manager("en").ExtraFields(ctx, "article", "news")
	require.NoError(t, err)
	assert.Equal(t, fieldmanager.ExtraField{Label: "Links", Weight: 100, Visible: true}, extra.Display["links"])
	assert.False(t, extra.Form["revision_log"].Visible)

	fr, err := e.manager("fr").ExtraFields(ctx, "article", "news")
	require.NoError(t, err)
	assert.Equal(t, "Liens", fr.Display["links"].Label)
}

func TestApply_RequiresRegistries(t *testing.T) {
	c := &Catalog{}
	assert.Error(t, c.Apply(context.Background(), Target{}))
}
