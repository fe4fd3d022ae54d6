// Package router exposes the field metadata engine over HTTP.
package router

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/fieldinfo/internal/app"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
	"github.com/conduit-lang/fieldinfo/internal/language"
	"github.com/conduit-lang/fieldinfo/internal/web/middleware"
)

// Options configures the HTTP handler
type Options struct {
	App    *app.App
	Logger *zap.Logger

	// ShowDetails includes internal error messages in responses. Disable in
	// production.
	ShowDetails bool
}

type handler struct {
	app         *app.App
	logger      *zap.Logger
	showDetails bool
}

// New returns the HTTP handler serving field metadata
func New(opts Options) http.Handler {
	if opts.App == nil {
		panic("router: an app is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{app: opts.App, logger: logger, showDetails: opts.ShowDetails}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(logger, "/health"),
		middleware.Recovery(logger, h.writeError),
		middleware.Language(opts.App.Languages),
	)
	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)

	r.Get("/health", h.health)
	r.Get("/entity-types", h.listEntityTypes)
	r.Route("/entity-types/{entityType}", func(r chi.Router) {
		r.Get("/base-fields", h.baseFields)
		r.Get("/storage", h.storage)
		r.Get("/bundles/{bundle}/fields", h.bundleFields)
		r.Get("/bundles/{bundle}/extra-fields", h.extraFields)
		r.Get("/fields/{field}/labels", h.fieldLabels)
	})
	r.Get("/field-map", h.fieldMap)
	r.Post("/cache/clear", h.clearCache)

	return r
}

// manager returns a Manager building definitions in the request language
func (h *handler) manager(r *http.Request) *fieldmanager.Manager {
	langcode, _ := language.FromContext(r.Context())
	return h.app.Manager(langcode)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EntityType is the summary returned by GET /entity-types
type EntityType struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Provider     string   `json:"provider,omitempty"`
	Fieldable    bool     `json:"fieldable"`
	Translatable bool     `json:"translatable"`
	Revisionable bool     `json:"revisionable"`
	Bundles      []string `json:"bundles"`
}

func (h *handler) listEntityTypes(w http.ResponseWriter, r *http.Request) {
	defs := h.app.EntityTypes.Definitions()
	out := make([]EntityType, 0, len(defs))
	for _, def := range defs {
		out = append(out, EntityType{
			ID:           def.ID,
			Label:        def.DisplayLabel(),
			Provider:     def.Provider,
			Fieldable:    def.Fieldable(),
			Translatable: def.Translatable,
			Revisionable: def.Revisionable,
			Bundles:      h.app.EntityTypes.Bundles(def.ID),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) baseFields(w http.ResponseWriter, r *http.Request) {
	defs, err := h.manager(r).BaseFieldDefinitions(r.Context(), chi.URLParam(r, "entityType"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

func (h *handler) bundleFields(w http.ResponseWriter, r *http.Request) {
	defs, err := h.manager(r).FieldDefinitions(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "bundle"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

func (h *handler) storage(w http.ResponseWriter, r *http.Request) {
	m := h.manager(r)
	load := m.FieldStorageDefinitions
	if active, _ := strconv.ParseBool(r.URL.Query().Get("active")); active {
		load = m.ActiveFieldStorageDefinitions
	}

	defs, err := load(r.Context(), chi.URLParam(r, "entityType"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

func (h *handler) extraFields(w http.ResponseWriter, r *http.Request) {
	extra, err := h.manager(r).ExtraFields(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "bundle"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, extra)
}

// FieldLabels is the response of GET /entity-types/{entityType}/fields/{field}/labels
type FieldLabels struct {
	Field  string   `json:"field"`
	Label  string   `json:"label"`
	Labels []string `json:"labels"`
}

func (h *handler) fieldLabels(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "field")
	label, labels, err := h.manager(r).FieldLabels(r.Context(), chi.URLParam(r, "entityType"), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FieldLabels{Field: name, Label: label, Labels: labels})
}

func (h *handler) fieldMap(w http.ResponseWriter, r *http.Request) {
	m := h.manager(r)
	var (
		fm  fieldmanager.FieldMap
		err error
	)
	if fieldType := r.URL.Query().Get("type"); fieldType != "" {
		fm, err = m.FieldMapByFieldType(r.Context(), fieldType)
	} else {
		fm, err = m.FieldMap(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fm)
}

func (h *handler) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.app.ClearCachedFieldDefinitions(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
