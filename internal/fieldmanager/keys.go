package fieldmanager

import "strings"

// Cache tags
const (
	TagEntityTypes     = "entity_types"
	TagEntityFieldInfo = "entity_field_info"
	TagEntityFieldMap  = "entity_field_map"
)

// BundleFieldMapCollection is the key-value collection recording which
// bundles use each non-base field, keyed by entity type
const BundleFieldMapCollection = "entity.definitions.bundle_field_map"

var definitionTags = []string{TagEntityTypes, TagEntityFieldInfo}

func cid(parts ...string) string {
	return strings.Join(parts, ":")
}

func baseFieldsCID(entityTypeID, langcode string) string {
	return cid("entity_base_field_definitions", entityTypeID, langcode)
}

func bundleFieldsCID(entityTypeID, bundle, langcode string) string {
	return cid("entity_bundle_field_definitions", entityTypeID, bundle, langcode)
}

func storageCID(entityTypeID, langcode string) string {
	return cid("entity_field_storage_definitions", entityTypeID, langcode)
}

func fieldMapCID(langcode string) string {
	return cid("entity_field_map", langcode)
}

func extraFieldsCID(langcode string) string {
	return cid("entity_extra_field_info", langcode)
}
