package fieldmanager

import (
	"context"
	"fmt"
	"sort"

	"github.com/conduit-lang/fieldinfo/internal/keyvalue"
)

// FieldMapEntry describes one field of an entity type across its bundles
type FieldMapEntry struct {
	Type    string   `json:"type"`
	Bundles []string `json:"bundles"`
}

// HasBundle reports whether the field is used by bundle
func (e FieldMapEntry) HasBundle(bundle string) bool {
	i := sort.SearchStrings(e.Bundles, bundle)
	return i < len(e.Bundles) && e.Bundles[i] == bundle
}

// FieldMap indexes fields by entity type and field name
type FieldMap map[string]map[string]FieldMapEntry

// Add records that the field is used by bundles, merging the bundle sets of
// an existing entry
func (fm FieldMap) Add(entityTypeID, fieldName, fieldType string, bundles ...string) {
	fields, ok := fm[entityTypeID]
	if !ok {
		fields = make(map[string]FieldMapEntry)
		fm[entityTypeID] = fields
	}

	entry, ok := fields[fieldName]
	if !ok {
		entry = FieldMapEntry{Type: fieldType}
	}
	entry.Bundles = unionSorted(entry.Bundles, bundles)
	fields[fieldName] = entry
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// FieldMap returns the fields of every fieldable entity type with the bundles
// using them. The returned map must not be modified.
func (m *Manager) FieldMap(ctx context.Context) (FieldMap, error) {
	langcode := m.langcode()
	return resolve(ctx, m, m.memo.fieldMap,
		memoKey{langcode: langcode},
		fieldMapCID(langcode),
		[]string{TagEntityTypes, TagEntityFieldInfo, TagEntityFieldMap},
		m.buildFieldMap)
}

func (m *Manager) buildFieldMap(ctx context.Context) (FieldMap, error) {
	fm := make(FieldMap)

	// Base fields exist on every bundle, so they are derived on every build.
	for _, et := range m.entityTypes.Definitions() {
		if !et.Fieldable() {
			continue
		}
		base, err := m.BaseFieldDefinitions(ctx, et.ID)
		if err != nil {
			return nil, err
		}
		bundles := m.entityTypes.Bundles(et.ID)
		for name, def := range base.All() {
			fm.Add(et.ID, name, def.Type, bundles...)
		}
	}

	// Bundle fields are only known from the map maintained on field
	// definition create and delete.
	if m.keyValue != nil {
		stored, err := keyvalue.GetAllJSON[map[string]FieldMapEntry](ctx, m.keyValue, BundleFieldMapCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to read the bundle field map: %w", err)
		}
		for entityTypeID, fields := range stored {
			for name, entry := range fields {
				fm.Add(entityTypeID, name, entry.Type, entry.Bundles...)
			}
		}
	}

	return fm, nil
}

// FieldMapByFieldType returns the part of the field map whose fields have the
// given type
func (m *Manager) FieldMapByFieldType(ctx context.Context, fieldType string) (FieldMap, error) {
	// the field type takes the bundle slot of the key
	key := memoKey{langcode: m.langcode(), bundle: fieldType}
	if fm, ok := m.memo.fieldMapByType.get(key); ok {
		return fm, nil
	}

	full, err := m.FieldMap(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make(FieldMap)
	for entityTypeID, fields := range full {
		for name, entry := range fields {
			if entry.Type != fieldType {
				continue
			}
			if filtered[entityTypeID] == nil {
				filtered[entityTypeID] = make(map[string]FieldMapEntry)
			}
			filtered[entityTypeID][name] = entry
		}
	}

	m.memo.fieldMapByType.set(key, filtered)
	return filtered, nil
}
