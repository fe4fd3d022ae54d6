package fieldlistener

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/fieldinfo/internal/cache"
	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
	"github.com/conduit-lang/fieldinfo/internal/installed"
	"github.com/conduit-lang/fieldinfo/internal/keyvalue"
	"github.com/conduit-lang/fieldinfo/internal/override"
)

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) ClearCachedFieldDefinitions(ctx context.Context) error {
	c.calls++
	return nil
}

func bundleField(name, fieldType, entityTypeID, bundle string) *field.Definition {
	def := field.NewBundleField(fieldType)
	def.Name = name
	def.TargetEntityType = entityTypeID
	def.TargetBundle = bundle
	return def
}

func readMap(t *testing.T, kv keyvalue.Store, entityTypeID string) (map[string]fieldmanager.FieldMapEntry, bool) {
	var fields map[string]fieldmanager.FieldMapEntry
	found, err := keyvalue.GetJSON(context.Background(), kv, fieldmanager.BundleFieldMapCollection, entityTypeID, &fields)
	require.NoError(t, err)
	return fields, found
}

func TestListener_FieldDefinitionLifecycle(t *testing.T) {
	ctx := context.Background()
	kv := keyvalue.NewMemoryStore()
	l := New(Options{KeyValue: kv})

	require.NoError(t, l.OnFieldDefinitionCreate(ctx, bundleField("field_tags", "entity_reference", "article", "news")))
	require.NoError(t, l.OnFieldDefinitionCreate(ctx, bundleField("field_tags", "entity_reference", "article", "blog")))
	require.NoError(t, l.OnFieldDefinitionCreate(ctx, bundleField("field_tags", "entity_reference", "article", "blog")))
	require.NoError(t, l.OnFieldDefinitionCreate(ctx, bundleField("field_image", "image", "article", "blog")))

	fields, found := readMap(t, kv, "article")
	require.True(t, found)
	assert.Equal(t, map[string]fieldmanager.FieldMapEntry{
		"field_tags":  {Type: "entity_reference", Bundles: []string{"blog", "news"}},
		"field_image": {Type: "image", Bundles: []string{"blog"}},
	}, fields)

	require.NoError(t, l.OnFieldDefinitionDelete(ctx, bundleField("field_tags", "entity_reference", "article", "blog")))
	require.NoError(t, l.OnFieldDefinitionDelete(ctx, bundleField("field_image", "image", "article", "blog")))

	fields, _ = readMap(t, kv, "article")
	assert.Equal(t, map[string]fieldmanager.FieldMapEntry{
		"field_tags": {Type: "entity_reference", Bundles: []string{"news"}},
	}, fields)

	require.NoError(t, l.OnFieldDefinitionDelete(ctx, bundleField("field_tags", "entity_reference", "article", "news")))
	_, found = readMap(t, kv, "article")
	assert.False(t, found, "entity types without bundle fields are removed")

	// deleting an unknown field is a no-op
	require.NoError(t, l.OnFieldDefinitionDelete(ctx, bundleField("field_gone", "string", "article", "news")))
}

func TestListener_RejectsBaseFields(t *testing.T) {
	l := New(Options{KeyValue: keyvalue.NewMemoryStore()})

	base := field.NewBaseField("string")
	base.Name = "title"
	base.TargetEntityType = "article"
	assert.Error(t, l.OnFieldDefinitionCreate(context.Background(), base))

	assert.Error(t, l.OnFieldDefinitionCreate(context.Background(), bundleField("field_tags", "string", "article", "")))
	assert.Error(t, l.OnFieldDefinitionDelete(context.Background(), nil))
}

func TestListener_FieldMapIsInvalidated(t *testing.T) {
	ctx := context.Background()
	kv := keyvalue.NewMemoryStore()
	backend := cache.NewMemoryBackend()
	t.Cleanup(func() { backend.Close() })

	types := entitytype.NewRegistry()
	require.NoError(t, types.Register(&entitytype.Definition{
		ID:     "article",
		Keys:   map[string]string{entitytype.KeyID: "id"},
		Fields: idDeclarer{},
	}))
	require.NoError(t, types.RegisterBundle("article", "news"))

	newManager := func() *fieldmanager.Manager {
		return fieldmanager.New(fieldmanager.Options{EntityTypes: types, Cache: backend, KeyValue: kv})
	}

	fm, err := newManager().FieldMap(ctx)
	require.NoError(t, err)
	assert.NotContains(t, fm["article"], "field_tags")

	l := New(Options{KeyValue: kv, Cache: backend})
	require.NoError(t, l.OnFieldDefinitionCreate(ctx, bundleField("field_tags", "entity_reference", "article", "news")))

	fm, err = newManager().FieldMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"news"}, fm["article"]["field_tags"].Bundles)
}

func TestListener_BaseFieldOverrides(t *testing.T) {
	ctx := context.Background()
	kv := keyvalue.NewMemoryStore()
	inv := &countingInvalidator{}
	l := New(Options{KeyValue: kv, Invalidator: inv})

	title := field.NewBaseField("string")
	title.Name = "title"
	title.TargetEntityType = "article"
	o := override.FromBaseField(title, "news")
	o.Label = "Headline"

	require.NoError(t, l.OnBaseFieldOverrideSave(ctx, o))
	assert.Equal(t, 1, inv.calls)

	repo := override.NewRepository(kv)
	stored, found, err := repo.Load(ctx, "article.news.title")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Headline", stored.Label)

	require.NoError(t, l.OnBaseFieldOverrideDelete(ctx, "article.news.title"))
	assert.Equal(t, 2, inv.calls)
	_, found, err = repo.Load(ctx, "article.news.title")
	require.NoError(t, err)
	assert.False(t, found)

	invalid := field.NewBaseField("string")
	assert.Error(t, l.OnBaseFieldOverrideSave(ctx, invalid))
	assert.Equal(t, 2, inv.calls)
}

func TestListener_FieldStorageInstall(t *testing.T) {
	ctx := context.Background()
	kv := keyvalue.NewMemoryStore()
	l := New(Options{KeyValue: kv})

	defs := field.NewStorageDefinitions(&field.StorageDefinition{Name: "id", Type: "integer", Cardinality: 1})
	require.NoError(t, l.OnFieldStorageInstall(ctx, "article", defs))

	repo := installed.NewRepository(kv)
	got, found, err := repo.FieldStorageDefinitions(ctx, "article")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"id"}, got.Names())

	require.NoError(t, l.OnFieldStorageUninstall(ctx, "article"))
	_, found, err = repo.FieldStorageDefinitions(ctx, "article")
	require.NoError(t, err)
	assert.False(t, found)
}

type idDeclarer struct{}

func (idDeclarer) BaseFieldDefinitions(ctx context.Context, et *entitytype.Definition) (*field.Definitions, error) {
	id := field.NewBaseField("integer")
	id.Name = "id"
	return field.NewDefinitions(id), nil
}

func (idDeclarer) BundleFieldDefinitions(ctx context.Context, et *entitytype.Definition, bundle string, base *field.Definitions) (*field.Definitions, error) {
	return nil, nil
}
