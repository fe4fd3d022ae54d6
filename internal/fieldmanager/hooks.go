package fieldmanager

import (
	"context"

	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/extension"
	"github.com/conduit-lang/fieldinfo/internal/field"
)

// Extension points
const (
	HookBaseFieldInfo    = "entity_base_field_info"
	HookBundleFieldInfo  = "entity_bundle_field_info"
	HookFieldStorageInfo = "entity_field_storage_info"
	HookExtraFieldInfo   = "entity_extra_field_info"
)

// BaseFieldInfoFunc contributes base fields to an entity type
type BaseFieldInfoFunc func(ctx context.Context, et *entitytype.Definition) (*field.Definitions, error)

// BaseFieldInfoAlterFunc changes the merged base fields of an entity type
type BaseFieldInfoAlterFunc func(ctx context.Context, fields *field.Definitions, et *entitytype.Definition) error

// BundleFieldInfoFunc contributes fields to one bundle
type BundleFieldInfoFunc func(ctx context.Context, et *entitytype.Definition, bundle string, base *field.Definitions) (*field.Definitions, error)

// BundleFieldInfoAlterFunc changes the merged bundle fields of one bundle
type BundleFieldInfoAlterFunc func(ctx context.Context, fields *field.Definitions, et *entitytype.Definition, bundle string) error

// FieldStorageInfoFunc contributes storage for fields that are not base fields
type FieldStorageInfoFunc func(ctx context.Context, et *entitytype.Definition) (*field.StorageDefinitions, error)

// FieldStorageInfoAlterFunc changes the storage definitions of an entity type
type FieldStorageInfoAlterFunc func(ctx context.Context, defs *field.StorageDefinitions, et *entitytype.Definition) error

// ExtraFieldInfoFunc contributes extra fields for any entity type and bundle
type ExtraFieldInfoFunc func(ctx context.Context) (ExtraFieldInfo, error)

// ExtraFieldInfoAlterFunc changes the merged extra fields
type ExtraFieldInfoAlterFunc func(ctx context.Context, info ExtraFieldInfo) error

// RegisterBaseFieldInfo registers a base field contribution
func RegisterBaseFieldInfo(r *extension.Registry, provider string, fn BaseFieldInfoFunc) {
	r.Register(HookBaseFieldInfo, provider, fn)
}

// RegisterBaseFieldInfoAlter registers a base field alter implementation
func RegisterBaseFieldInfoAlter(r *extension.Registry, provider string, fn BaseFieldInfoAlterFunc) {
	r.RegisterAlter(HookBaseFieldInfo, provider, fn)
}

// RegisterBundleFieldInfo registers a bundle field contribution
func RegisterBundleFieldInfo(r *extension.Registry, provider string, fn BundleFieldInfoFunc) {
	r.Register(HookBundleFieldInfo, provider, fn)
}

// RegisterBundleFieldInfoAlter registers a bundle field alter implementation
func RegisterBundleFieldInfoAlter(r *extension.Registry, provider string, fn BundleFieldInfoAlterFunc) {
	r.RegisterAlter(HookBundleFieldInfo, provider, fn)
}

// RegisterFieldStorageInfo registers a field storage contribution
func RegisterFieldStorageInfo(r *extension.Registry, provider string, fn FieldStorageInfoFunc) {
	r.Register(HookFieldStorageInfo, provider, fn)
}

// RegisterFieldStorageInfoAlter registers a field storage alter implementation
func RegisterFieldStorageInfoAlter(r *extension.Registry, provider string, fn FieldStorageInfoAlterFunc) {
	r.RegisterAlter(HookFieldStorageInfo, provider, fn)
}

// RegisterExtraFieldInfo registers an extra field contribution
func RegisterExtraFieldInfo(r *extension.Registry, provider string, fn ExtraFieldInfoFunc) {
	r.Register(HookExtraFieldInfo, provider, fn)
}

// RegisterExtraFieldInfoAlter registers an extra field alter implementation
func RegisterExtraFieldInfoAlter(r *extension.Registry, provider string, fn ExtraFieldInfoAlterFunc) {
	r.RegisterAlter(HookExtraFieldInfo, provider, fn)
}
