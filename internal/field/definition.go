// Package field defines the metadata records describing fields of fieldable
// entity types: full field definitions, their storage-level projection and an
// order-preserving collection used by every builder in the engine.
package field

import (
	"fmt"
	"strconv"
)

// Kind distinguishes where a definition comes from
type Kind string

const (
	// KindBase is a field declared in code for the whole entity type
	KindBase Kind = "base"
	// KindBaseFieldOverride is a persisted, bundle-specific override of a base field
	KindBaseFieldOverride Kind = "base_field_override"
	// KindBundle is a field that only exists on one bundle
	KindBundle Kind = "bundle"
)

// Cardinality is the number of values a field holds. Unlimited means any number.
type Cardinality int

// Unlimited marks a multi-valued field without an upper bound
const Unlimited Cardinality = -1

// String returns "unlimited" or the numeric cardinality
func (c Cardinality) String() string {
	if c == Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(int(c))
}

// Valid reports whether the cardinality is positive or unlimited
func (c Cardinality) Valid() bool {
	return c == Unlimited || c > 0
}

// Constraint is a named validation rule attached to a field
type Constraint struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options,omitempty"`
}

// DisplayOptions holds the default presentation settings for one render
// context ("form" or "view").
type DisplayOptions struct {
	Type     string         `json:"type,omitempty"`
	Label    string         `json:"label,omitempty"`
	Weight   int            `json:"weight"`
	Region   string         `json:"region,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Definition describes one field on one entity type or bundle.
//
// Definitions are built from scratch by the field manager and must be treated
// as immutable once they have been returned to a caller.
type Definition struct {
	Name             string                    `json:"name"`
	Type             string                    `json:"type"`
	Kind             Kind                      `json:"kind"`
	Label            string                    `json:"label,omitempty"`
	Description      string                    `json:"description,omitempty"`
	TargetEntityType string                    `json:"target_entity_type,omitempty"`
	TargetBundle     string                    `json:"target_bundle,omitempty"`
	Cardinality      Cardinality               `json:"cardinality"`
	Translatable     bool                      `json:"translatable,omitempty"`
	Revisionable     bool                      `json:"revisionable,omitempty"`
	Computed         bool                      `json:"computed,omitempty"`
	Required         bool                      `json:"required,omitempty"`
	ReadOnly         bool                      `json:"read_only,omitempty"`
	Internal         bool                      `json:"internal,omitempty"`
	Provider         string                    `json:"provider,omitempty"`
	Constraints      []Constraint              `json:"constraints,omitempty"`
	DisplayOptions   map[string]DisplayOptions `json:"display_options,omitempty"`

	// ID and UUID are only set on persisted overrides
	ID   string `json:"id,omitempty"`
	UUID string `json:"uuid,omitempty"`
}

// NewBaseField returns a single-valued base field definition of the given type
func NewBaseField(fieldType string) *Definition {
	return &Definition{
		Type:        fieldType,
		Kind:        KindBase,
		Cardinality: 1,
	}
}

// NewBundleField returns a single-valued bundle field definition of the given type
func NewBundleField(fieldType string) *Definition {
	return &Definition{
		Type:        fieldType,
		Kind:        KindBundle,
		Cardinality: 1,
	}
}

// FieldName implements Item
func (d *Definition) FieldName() string {
	return d.Name
}

// IsBaseField reports whether the definition is a code-declared base field
func (d *Definition) IsBaseField() bool {
	return d.Kind == KindBase || d.Kind == ""
}

// OverrideID returns the persisted override identifier
// "entity_type.bundle.field_name".
func OverrideID(entityTypeID, bundle, fieldName string) string {
	return fmt.Sprintf("%s.%s.%s", entityTypeID, bundle, fieldName)
}

// Clone returns a deep copy of the definition
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	c := *d
	if d.Constraints != nil {
		c.Constraints = make([]Constraint, len(d.Constraints))
		for i, con := range d.Constraints {
			c.Constraints[i] = Constraint{Name: con.Name, Options: copyAnyMap(con.Options)}
		}
	}
	if d.DisplayOptions != nil {
		c.DisplayOptions = make(map[string]DisplayOptions, len(d.DisplayOptions))
		for ctx, opts := range d.DisplayOptions {
			opts.Settings = copyAnyMap(opts.Settings)
			c.DisplayOptions[ctx] = opts
		}
	}
	return &c
}

// StorageDefinition projects the definition to its storage-relevant subset
func (d *Definition) StorageDefinition() *StorageDefinition {
	return &StorageDefinition{
		Name:             d.Name,
		Type:             d.Type,
		TargetEntityType: d.TargetEntityType,
		Cardinality:      d.Cardinality,
		Computed:         d.Computed,
		Translatable:     d.Translatable,
		Revisionable:     d.Revisionable,
		Provider:         d.Provider,
	}
}

// HasConstraint reports whether a constraint with the given name is attached
func (d *Definition) HasConstraint(name string) bool {
	for _, c := range d.Constraints {
		if c.Name == name {
			return true
		}
	}
	return false
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
