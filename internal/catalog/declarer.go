package catalog

import (
	"context"

	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/language"
)

// Declarer declares the fields of one catalog entity type. Labels and
// descriptions are resolved in the language carried by the context.
type Declarer struct {
	entityType      *EntityType
	defaultLangcode string
}

var _ entitytype.Declarer = (*Declarer)(nil)

// BaseFieldDefinitions implements entitytype.Declarer
func (d *Declarer) BaseFieldDefinitions(ctx context.Context, et *entitytype.Definition) (*field.Definitions, error) {
	langcode := d.langcode(ctx)
	defs := field.NewDefinitions()
	for _, f := range d.entityType.BaseFields {
		defs.Set(f.Name, f.definition(field.KindBase, langcode, d.defaultLangcode))
	}
	return defs, nil
}

// BundleFieldDefinitions implements entitytype.Declarer. Fields named like a
// base field start from the base definition.
func (d *Declarer) BundleFieldDefinitions(ctx context.Context, et *entitytype.Definition, bundle string, base *field.Definitions) (*field.Definitions, error) {
	fields, ok := d.entityType.BundleFields[bundle]
	if !ok {
		return nil, nil
	}

	langcode := d.langcode(ctx)
	defs := field.NewDefinitions()
	for _, f := range fields {
		if b, ok := base.Get(f.Name); ok {
			def := b.Clone()
			def.Kind = field.KindBundle
			f.overlay(def, langcode, d.defaultLangcode)
			defs.Set(f.Name, def)
			continue
		}
		defs.Set(f.Name, f.definition(field.KindBundle, langcode, d.defaultLangcode))
	}
	return defs, nil
}

func (d *Declarer) langcode(ctx context.Context) string {
	if langcode, ok := language.FromContext(ctx); ok {
		return langcode
	}
	return d.defaultLangcode
}

func (f *Field) definition(kind field.Kind, langcode, fallback string) *field.Definition {
	def := &field.Definition{
		Name:         f.Name,
		Type:         f.Type,
		Kind:         kind,
		Label:        f.Label.In(langcode, fallback),
		Description:  f.Description.In(langcode, fallback),
		Cardinality:  field.Cardinality(f.Cardinality),
		Translatable: f.Translatable,
		Revisionable: f.Revisionable,
		Computed:     f.Computed,
		Required:     f.Required,
		ReadOnly:     f.ReadOnly,
		Internal:     f.Internal,
	}
	if def.Cardinality == 0 {
		def.Cardinality = 1
	}
	for _, c := range f.Constraints {
		def.Constraints = append(def.Constraints, field.Constraint{Name: c.Name, Options: c.Options})
	}
	if len(f.Display) > 0 {
		def.DisplayOptions = make(map[string]field.DisplayOptions, len(f.Display))
		for where, opt := range f.Display {
			def.DisplayOptions[where] = field.DisplayOptions(opt)
		}
	}
	return def
}

// overlay applies the attributes set on f to def
func (f *Field) overlay(def *field.Definition, langcode, fallback string) {
	if f.Type != "" {
		def.Type = f.Type
	}
	if len(f.Label) > 0 {
		def.Label = f.Label.In(langcode, fallback)
	}
	if len(f.Description) > 0 {
		def.Description = f.Description.In(langcode, fallback)
	}
	if f.Cardinality != 0 {
		def.Cardinality = field.Cardinality(f.Cardinality)
	}
	def.Required = def.Required || f.Required
	def.ReadOnly = def.ReadOnly || f.ReadOnly
	for _, c := range f.Constraints {
		if !def.HasConstraint(c.Name) {
			def.Constraints = append(def.Constraints, field.Constraint{Name: c.Name, Options: c.Options})
		}
	}
	for where, opt := range f.Display {
		if def.DisplayOptions == nil {
			def.DisplayOptions = make(map[string]field.DisplayOptions)
		}
		def.DisplayOptions[where] = field.DisplayOptions(opt)
	}
}

func (f *Field) storageDefinition(entityTypeID string) *field.StorageDefinition {
	def := f.definition(field.KindBundle, "", "")
	def.TargetEntityType = entityTypeID
	return def.StorageDefinition()
}
