// Package entitytype describes entity types and provides a registry for them
package entitytype

import (
	"context"

	"github.com/conduit-lang/fieldinfo/internal/field"
)

// Entity key names
const (
	KeyID                          = "id"
	KeyRevision                    = "revision"
	KeyBundle                      = "bundle"
	KeyUUID                        = "uuid"
	KeyLangcode                    = "langcode"
	KeyDefaultLangcode             = "default_langcode"
	KeyRevisionTranslationAffected = "revision_translation_affected"
	KeyLabel                       = "label"
)

// RevisionDefaultKey is the revision metadata key naming the field that flags
// the default revision
const RevisionDefaultKey = "revision_default"

// Declarer is implemented by the code that statically declares an entity
// type's fields.
type Declarer interface {
	// BaseFieldDefinitions returns the fields shared by every bundle
	BaseFieldDefinitions(ctx context.Context, et *Definition) (*field.Definitions, error)

	// BundleFieldDefinitions returns bundle-specific additions and overrides.
	// base holds the already built base fields so overrides can start from them.
	BundleFieldDefinitions(ctx context.Context, et *Definition, bundle string, base *field.Definitions) (*field.Definitions, error)
}

// Definition describes one entity type
type Definition struct {
	ID       string
	Label    string
	Provider string

	// Keys maps entity key names (id, uuid, langcode, ...) to field names
	Keys map[string]string
	// RevisionMetadataKeys maps revision metadata key names to field names
	RevisionMetadataKeys map[string]string

	Translatable bool
	Revisionable bool

	// BundleEntityType is the entity type whose entities are the bundles, if any
	BundleEntityType string

	// Fields declares the entity type's fields. Nil means the type is not fieldable.
	Fields Declarer
}

// Fieldable reports whether instances of the type carry fields
func (d *Definition) Fieldable() bool {
	return d.Fields != nil
}

// HasKey reports whether the entity key is declared
func (d *Definition) HasKey(key string) bool {
	return d.Keys[key] != ""
}

// Key returns the field name for an entity key, or "" when undeclared
func (d *Definition) Key(key string) string {
	return d.Keys[key]
}

// KeyOr returns the field name for an entity key, or fallback when undeclared
func (d *Definition) KeyOr(key, fallback string) string {
	if v := d.Keys[key]; v != "" {
		return v
	}
	return fallback
}

// RevisionMetadataKey returns the field name for a revision metadata key,
// defaulting to the key itself.
func (d *Definition) RevisionMetadataKey(key string) string {
	if v := d.RevisionMetadataKeys[key]; v != "" {
		return v
	}
	return key
}

// DisplayLabel returns the label, falling back to the ID
func (d *Definition) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.ID
}
