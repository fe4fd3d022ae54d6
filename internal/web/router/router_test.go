package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/fieldinfo/internal/app"
	"github.com/conduit-lang/fieldinfo/internal/cli/config"
	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
)

func setupRouter(t *testing.T) http.Handler {
	cfg := &config.Config{
		Cache:     config.CacheConfig{Backend: "memory", Prefix: "test:"},
		KeyValue:  config.KeyValueConfig{Backend: "memory"},
		Catalog:   config.CatalogConfig{Path: "testdata/catalog.yml"},
		Language:  config.LanguageConfig{Default: "en", Supported: []string{"en", "fr"}},
		UseCaches: true,
	}
	a, err := app.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	return New(Options{App: a})
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func byName(defs []*field.Definition) map[string]*field.Definition {
	out := make(map[string]*field.Definition, len(defs))
	for _, def := range defs {
		out[def.Name] = def
	}
	return out
}

func TestNew_RequiresApp(t *testing.T) {
	assert.Panics(t, func() { New(Options{}) })
}

func TestHealth(t *testing.T) {
	rec := do(t, setupRouter(t), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListEntityTypes(t *testing.T) {
	rec := do(t, setupRouter(t), http.MethodGet, "/entity-types")
	require.Equal(t, http.StatusOK, rec.Code)

	types := decode[[]EntityType](t, rec)
	require.Len(t, types, 2)
	assert.Equal(t, EntityType{
		ID: "article", Label: "Article", Provider: "node",
		Fieldable: true, Translatable: true, Bundles: []string{"news", "blog"},
	}, types[0])
	assert.Equal(t, "menu", types[1].ID)
	assert.False(t, types[1].Fieldable)
	assert.Equal(t, []string{"menu"}, types[1].Bundles)
}

func TestBaseFields(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, http.MethodGet, "/entity-types/article/base-fields")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))
	defs := decode[[]*field.Definition](t, rec)
	assert.Equal(t, "id", defs[0].Name)
	assert.Equal(t, "Title", byName(defs)["title"].Label)

	fr := decode[[]*field.Definition](t, do(t, h, http.MethodGet, "/entity-types/article/base-fields?lang=fr"))
	assert.Equal(t, "Titre", byName(fr)["title"].Label)
}

func TestBundleFields(t *testing.T) {
	rec := do(t, setupRouter(t), http.MethodGet, "/entity-types/article/bundles/news/fields")
	require.Equal(t, http.StatusOK, rec.Code)

	defs := byName(decode[[]*field.Definition](t, rec))
	assert.Equal(t, "Headline", defs["title"].Label)
	assert.Equal(t, field.KindBaseFieldOverride, defs["title"].Kind)
	require.Contains(t, defs, "field_image")
	assert.Equal(t, "media", defs["field_image"].Provider)
}

func TestStorage(t *testing.T) {
	h := setupRouter(t)

	for _, target := range []string{
		"/entity-types/article/storage",
		"/entity-types/article/storage?active=true",
	} {
		rec := do(t, h, http.MethodGet, target)
		require.Equal(t, http.StatusOK, rec.Code, target)

		var names []string
		for _, def := range decode[[]*field.StorageDefinition](t, rec) {
			names = append(names, def.Name)
		}
		assert.Contains(t, names, "title", target)
		assert.Contains(t, names, "field_image", target)
	}
}

func TestExtraFields(t *testing.T) {
	rec := do(t, setupRouter(t), http.MethodGet, "/entity-types/article/bundles/news/extra-fields?lang=fr")
	require.Equal(t, http.StatusOK, rec.Code)

	extra := decode[fieldmanager.BundleExtraFields](t, rec)
	assert.Equal(t, fieldmanager.ExtraField{Label: "Liens", Weight: 100, Visible: true}, extra.Display["links"])
	assert.Empty(t, extra.Form)
}

func TestFieldLabels(t *testing.T) {
	rec := do(t, setupRouter(t), http.MethodGet, "/entity-types/article/fields/title/labels")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, FieldLabels{Field: "title", Label: "Headline", Labels: []string{"Headline", "Title"}}, decode[FieldLabels](t, rec))
}

func TestFieldMap(t *testing.T) {
	h := setupRouter(t)

	all := decode[fieldmanager.FieldMap](t, do(t, h, http.MethodGet, "/field-map"))
	assert.Equal(t, []string{"blog", "news"}, all["article"]["title"].Bundles)
	assert.NotContains(t, all, "menu")

	images := decode[fieldmanager.FieldMap](t, do(t, h, http.MethodGet, "/field-map?type=image"))
	assert.Equal(t, fieldmanager.FieldMap{
		"article": {"field_image": {Type: "image", Bundles: []string{"news"}}},
	}, images)
}

func TestClearCache(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, http.MethodPost, "/cache/clear")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/cache/clear")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, CodeMethodNotAllowed, decode[ErrorResponse](t, rec).Error.Code)
}

func TestErrors(t *testing.T) {
	h := setupRouter(t)

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unknown route", "/nope", http.StatusNotFound, CodeNotFound},
		{"unknown entity type", "/entity-types/nope/base-fields", http.StatusNotFound, CodeEntityTypeNotFound},
		{"unknown entity type labels", "/entity-types/nope/fields/title/labels", http.StatusNotFound, CodeEntityTypeNotFound},
		{"not fieldable", "/entity-types/menu/base-fields", http.StatusUnprocessableEntity, CodeNotFieldable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.status, resp.Status)
		})
	}
}
