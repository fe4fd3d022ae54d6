package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/extension"
	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/fieldlistener"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
	"github.com/conduit-lang/fieldinfo/internal/language"
	"github.com/conduit-lang/fieldinfo/internal/override"
)

// Target receives what a catalog declares
type Target struct {
	EntityTypes *entitytype.Registry
	Extensions  *extension.Registry

	// Listener persists configurable fields and overrides. Without it only
	// the in-memory registries are populated.
	Listener *fieldlistener.Listener
}

// Apply registers the catalog's entity types and contributions and persists
// its configurable fields and overrides
func (c *Catalog) Apply(ctx context.Context, t Target) error {
	if t.EntityTypes == nil || t.Extensions == nil {
		return fmt.Errorf("catalog target needs an entity type and an extension registry")
	}

	for i := range c.EntityTypes {
		if err := c.registerEntityType(t.EntityTypes, &c.EntityTypes[i]); err != nil {
			return err
		}
	}

	for i := range c.Contributions {
		c.registerContribution(t.Extensions, &c.Contributions[i])
	}

	if t.Listener == nil {
		return nil
	}
	for i := range c.Contributions {
		if err := c.createBundleFields(ctx, t.Listener, &c.Contributions[i]); err != nil {
			return err
		}
	}
	for _, o := range c.Overrides {
		if err := t.Listener.OnBaseFieldOverrideSave(ctx, c.overrideDefinition(o)); err != nil {
			return fmt.Errorf("failed to save override %s.%s.%s: %w", o.EntityType, o.Bundle, o.Field, err)
		}
	}
	return nil
}

func (c *Catalog) registerEntityType(r *entitytype.Registry, et *EntityType) error {
	def := &entitytype.Definition{
		ID:                   et.ID,
		Label:                et.Label,
		Provider:             et.Provider,
		Keys:                 et.Keys,
		RevisionMetadataKeys: et.RevisionMetadataKeys,
		Translatable:         et.Translatable,
		Revisionable:         et.Revisionable,
		BundleEntityType:     et.BundleEntityType,
	}
	if et.fieldable() {
		def.Fields = &Declarer{entityType: et, defaultLangcode: c.DefaultLangcode}
	}

	if err := r.Register(def); err != nil {
		return fmt.Errorf("failed to register entity type %s: %w", et.ID, err)
	}
	for _, bundle := range et.Bundles {
		if err := r.RegisterBundle(et.ID, bundle); err != nil {
			return fmt.Errorf("failed to register bundle %s of %s: %w", bundle, et.ID, err)
		}
	}
	return nil
}

func (c *Catalog) registerContribution(r *extension.Registry, contrib *Contribution) {
	if len(contrib.BaseFields) > 0 {
		fieldmanager.RegisterBaseFieldInfo(r, contrib.Provider, func(ctx context.Context, et *entitytype.Definition) (*field.Definitions, error) {
			langcode := c.langcode(ctx)
			defs := field.NewDefinitions()
			for _, f := range contrib.BaseFields[et.ID] {
				defs.Set(f.Name, f.definition(field.KindBase, langcode, c.DefaultLangcode))
			}
			return defs, nil
		})
	}

	if len(contrib.BundleFields) > 0 {
		fieldmanager.RegisterBundleFieldInfo(r, contrib.Provider, func(ctx context.Context, et *entitytype.Definition, bundle string, base *field.Definitions) (*field.Definitions, error) {
			langcode := c.langcode(ctx)
			defs := field.NewDefinitions()
			for _, f := range contrib.BundleFields[et.ID][bundle] {
				defs.Set(f.Name, f.definition(field.KindBundle, langcode, c.DefaultLangcode))
			}
			return defs, nil
		})

		fieldmanager.RegisterFieldStorageInfo(r, contrib.Provider, func(ctx context.Context, et *entitytype.Definition) (*field.StorageDefinitions, error) {
			defs := field.NewStorageDefinitions()
			bundles := contrib.BundleFields[et.ID]
			for _, bundle := range sortedKeys(bundles) {
				for _, f := range bundles[bundle] {
					if !defs.Has(f.Name) && !f.Computed {
						defs.Set(f.Name, f.storageDefinition(et.ID))
					}
				}
			}
			return defs, nil
		})
	}

	if len(contrib.ExtraFields) > 0 {
		fieldmanager.RegisterExtraFieldInfo(r, contrib.Provider, func(ctx context.Context) (fieldmanager.ExtraFieldInfo, error) {
			langcode := c.langcode(ctx)
			info := make(fieldmanager.ExtraFieldInfo)
			for entityTypeID, bundles := range contrib.ExtraFields {
				for bundle, extra := range bundles {
					for name, f := range extra.Form {
						info.Set(entityTypeID, bundle, "form", name, f.extraField(langcode, c.DefaultLangcode))
					}
					for name, f := range extra.Display {
						info.Set(entityTypeID, bundle, "display", name, f.extraField(langcode, c.DefaultLangcode))
					}
				}
			}
			return info, nil
		})
	}
}

// createBundleFields announces every configurable field so the bundle field
// map knows about it
func (c *Catalog) createBundleFields(ctx context.Context, l *fieldlistener.Listener, contrib *Contribution) error {
	for _, entityTypeID := range sortedKeys(contrib.BundleFields) {
		bundles := contrib.BundleFields[entityTypeID]
		for _, bundle := range sortedKeys(bundles) {
			for _, f := range bundles[bundle] {
				def := f.definition(field.KindBundle, c.DefaultLangcode, c.DefaultLangcode)
				def.TargetEntityType = entityTypeID
				def.TargetBundle = bundle
				def.Provider = contrib.Provider
				if err := l.OnFieldDefinitionCreate(ctx, def); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Catalog) overrideDefinition(o Override) *field.Definition {
	var et *EntityType
	for i := range c.EntityTypes {
		if c.EntityTypes[i].ID == o.EntityType {
			et = &c.EntityTypes[i]
			break
		}
	}

	base := et.baseField(o.Field).definition(field.KindBase, c.DefaultLangcode, c.DefaultLangcode)
	base.TargetEntityType = et.ID
	base.Provider = et.Provider

	def := override.FromBaseField(base, o.Bundle)
	if len(o.Label) > 0 {
		def.Label = o.Label.In(c.DefaultLangcode, c.DefaultLangcode)
	}
	if len(o.Description) > 0 {
		def.Description = o.Description.In(c.DefaultLangcode, c.DefaultLangcode)
	}
	if o.Cardinality != 0 {
		def.Cardinality = field.Cardinality(o.Cardinality)
	}
	if o.Required != nil {
		def.Required = *o.Required
	}
	if o.Translatable != nil {
		def.Translatable = *o.Translatable
	}
	return def
}

func (c *Catalog) langcode(ctx context.Context) string {
	if langcode, ok := language.FromContext(ctx); ok {
		return langcode
	}
	return c.DefaultLangcode
}

func (f ExtraField) extraField(langcode, fallback string) fieldmanager.ExtraField {
	visible := true
	if f.Visible != nil {
		visible = *f.Visible
	}
	return fieldmanager.ExtraField{
		Label:       f.Label.In(langcode, fallback),
		Description: f.Description.In(langcode, fallback),
		Weight:      f.Weight,
		Visible:     visible,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
