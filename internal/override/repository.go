// Package override persists bundle-specific overrides of base fields
package override

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/keyvalue"
)

// Collection is the key-value collection overrides are stored in, keyed by
// "entity_type.bundle.field_name"
const Collection = "bundle_field_override"

// namespace seeds the name-based UUIDs of override records
var namespace = uuid.MustParse("6f0d2a8e-4f43-5b7e-9a51-0c1f5d2e8b3a")

// Loader reads persisted overrides
type Loader interface {
	// LoadMultiple returns the overrides found for ids, keyed by id
	LoadMultiple(ctx context.Context, ids []string) (map[string]*field.Definition, error)
}

// Repository reads and writes override records in a key-value store
type Repository struct {
	store keyvalue.Store
}

// NewRepository creates a repository on top of store
func NewRepository(store keyvalue.Store) *Repository {
	return &Repository{store: store}
}

// FromBaseField creates an override record for a base field on one bundle.
// The base field must carry its name and target entity type.
func FromBaseField(base *field.Definition, bundle string) *field.Definition {
	o := base.Clone()
	o.Kind = field.KindBaseFieldOverride
	o.TargetBundle = bundle
	o.ID = field.OverrideID(base.TargetEntityType, bundle, base.Name)
	o.UUID = UUID(o.ID)
	return o
}

// UUID returns the stable UUID of the override with the given id
func UUID(id string) string {
	return uuid.NewSHA1(namespace, []byte(id)).String()
}

// Load returns one override. It reports false when none is stored.
func (r *Repository) Load(ctx context.Context, id string) (*field.Definition, bool, error) {
	var def field.Definition
	found, err := keyvalue.GetJSON(ctx, r.store, Collection, id, &def)
	if err != nil || !found {
		return nil, false, err
	}
	return &def, true, nil
}

// LoadMultiple returns the overrides found for ids
func (r *Repository) LoadMultiple(ctx context.Context, ids []string) (map[string]*field.Definition, error) {
	if len(ids) == 0 {
		return map[string]*field.Definition{}, nil
	}
	return keyvalue.GetMultipleJSON[*field.Definition](ctx, r.store, Collection, ids)
}

// All returns every stored override keyed by id
func (r *Repository) All(ctx context.Context) (map[string]*field.Definition, error) {
	return keyvalue.GetAllJSON[*field.Definition](ctx, r.store, Collection)
}

// Save stores an override. ID and UUID are derived when missing.
func (r *Repository) Save(ctx context.Context, def *field.Definition) error {
	if def.Name == "" || def.TargetEntityType == "" || def.TargetBundle == "" {
		return fmt.Errorf("override must have a name, target entity type and target bundle")
	}
	def.Kind = field.KindBaseFieldOverride
	if def.ID == "" {
		def.ID = field.OverrideID(def.TargetEntityType, def.TargetBundle, def.Name)
	}
	if def.UUID == "" {
		def.UUID = UUID(def.ID)
	}
	return keyvalue.SetJSON(ctx, r.store, Collection, def.ID, def)
}

// Delete removes overrides by id
func (r *Repository) Delete(ctx context.Context, ids ...string) error {
	return r.store.Delete(ctx, Collection, ids...)
}
