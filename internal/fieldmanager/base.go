package fieldmanager

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/extension"
	"github.com/conduit-lang/fieldinfo/internal/field"
)

// BaseFieldDefinitions returns the fields shared by every bundle of an entity
// type. The returned collection must not be modified.
func (m *Manager) BaseFieldDefinitions(ctx context.Context, entityTypeID string) (*field.Definitions, error) {
	langcode := m.langcode()
	return resolve(ctx, m, m.memo.baseFields,
		memoKey{langcode: langcode, entityType: entityTypeID},
		baseFieldsCID(entityTypeID, langcode),
		definitionTags,
		func(ctx context.Context) (*field.Definitions, error) {
			return m.buildBaseFieldDefinitions(ctx, entityTypeID)
		})
}

func (m *Manager) buildBaseFieldDefinitions(ctx context.Context, entityTypeID string) (*field.Definitions, error) {
	et, err := m.entityType(entityTypeID)
	if err != nil {
		return nil, err
	}

	declared, err := et.Fields.BaseFieldDefinitions(ctx, et)
	if err != nil {
		return nil, fmt.Errorf("failed to declare base fields of %s: %w", entityTypeID, err)
	}
	fields := declared.Clone()

	if et.Translatable {
		name := et.KeyOr(entitytype.KeyDefaultLangcode, entitytype.KeyDefaultLangcode)
		if !fields.Has(name) {
			fields.Set(name, defaultLangcodeField(et))
		}
	}
	if et.Revisionable {
		name := et.RevisionMetadataKey(entitytype.RevisionDefaultKey)
		if !fields.Has(name) {
			fields.Set(name, revisionDefaultField())
		}
	}

	for _, def := range fields.All() {
		def.Provider = et.Provider
	}

	err = extension.InvokeAllWith(m.extensions, HookBaseFieldInfo, func(fn BaseFieldInfoFunc, provider string) error {
		contributed, err := fn(ctx, et)
		if err != nil {
			return err
		}
		for name, def := range contributed.All() {
			def = def.Clone()
			if def.Provider == "" {
				def.Provider = provider
			}
			fields.Set(name, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = extension.Alter(m.extensions, HookBaseFieldInfo, func(fn BaseFieldInfoAlterFunc, provider string) error {
		return fn(ctx, fields, et)
	})
	if err != nil {
		return nil, err
	}

	for name, def := range fields.All() {
		if def.IsBaseField() {
			def.Kind = field.KindBase
			def.Name = name
			def.TargetEntityType = entityTypeID
			def.TargetBundle = ""
		}
	}

	if et.Revisionable && et.Translatable {
		m.forceRevisionTranslationAffected(et, fields)
	}

	if err := validateBaseFields(et, fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// forceRevisionTranslationAffected replaces whatever was declared under the
// revision_translation_affected key with the canonical definition
func (m *Manager) forceRevisionTranslationAffected(et *entitytype.Definition, fields *field.Definitions) {
	name := et.KeyOr(entitytype.KeyRevisionTranslationAffected, entitytype.KeyRevisionTranslationAffected)

	forced := revisionTranslationAffectedField()
	forced.Name = name
	forced.TargetEntityType = et.ID
	forced.Provider = et.Provider

	if existing, ok := fields.Get(name); ok && !sameShape(existing, forced) {
		m.logger.Warn("replacing revision translation affected field",
			zap.String("entity_type", et.ID),
			zap.String("field", name),
			zap.String("provider", existing.Provider),
		)
	}
	fields.Set(name, forced)
}

func sameShape(a, b *field.Definition) bool {
	return a.Type == b.Type &&
		a.Cardinality == b.Cardinality &&
		a.ReadOnly == b.ReadOnly &&
		a.Revisionable == b.Revisionable &&
		a.Translatable == b.Translatable
}

func validateBaseFields(et *entitytype.Definition, fields *field.Definitions) error {
	for _, key := range []string{entitytype.KeyID, entitytype.KeyRevision, entitytype.KeyBundle, entitytype.KeyUUID} {
		name := et.Key(key)
		if name == "" {
			continue
		}
		def, ok := fields.Get(name)
		if !ok {
			return logicError(et.ID, name, "the field for the %s entity key is missing", key)
		}
		if def.Revisionable {
			return logicError(et.ID, name, "the field is used as %s entity key and cannot be revisionable", key)
		}
		if def.Translatable {
			return logicError(et.ID, name, "the field is used as %s entity key and cannot be translatable", key)
		}
	}

	if et.Translatable {
		name := et.Key(entitytype.KeyLangcode)
		if name == "" {
			return logicError(et.ID, "", "a translatable entity type must declare a langcode entity key")
		}
		def, ok := fields.Get(name)
		if !ok || !def.Translatable {
			return logicError(et.ID, name, "the entity type cannot be translatable as it does not define a translatable %q field", name)
		}
	}
	return nil
}

func defaultLangcodeField(et *entitytype.Definition) *field.Definition {
	def := field.NewBaseField("boolean")
	def.Label = "Default translation"
	def.Description = "A flag indicating whether this is the default translation."
	def.Translatable = true
	def.Revisionable = et.Revisionable
	return def
}

func revisionDefaultField() *field.Definition {
	def := field.NewBaseField("boolean")
	def.Label = "Default revision"
	def.Description = "A flag indicating whether this was a default revision when it was saved."
	def.Internal = true
	def.Revisionable = true
	return def
}

func revisionTranslationAffectedField() *field.Definition {
	def := field.NewBaseField("boolean")
	def.Label = "Revision translation affected"
	def.Description = "Indicates if the last edit of a translation belongs to current revision."
	def.ReadOnly = true
	def.Revisionable = true
	def.Translatable = true
	return def
}
