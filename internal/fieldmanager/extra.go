package fieldmanager

import (
	"context"
	"maps"

	"github.com/conduit-lang/fieldinfo/internal/extension"
)

// ExtraField is a pseudo-field shown on forms or displays without being
// backed by field storage
type ExtraField struct {
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Weight      int    `json:"weight"`
	Visible     bool   `json:"visible"`
}

// BundleExtraFields groups the extra fields of one bundle by context
type BundleExtraFields struct {
	Form    map[string]ExtraField `json:"form"`
	Display map[string]ExtraField `json:"display"`
}

// ExtraFieldInfo holds extra fields by entity type and bundle
type ExtraFieldInfo map[string]map[string]BundleExtraFields

// Set adds an extra field to the "form" or "display" side of a bundle
func (info ExtraFieldInfo) Set(entityTypeID, bundle, where, name string, f ExtraField) {
	bundles, ok := info[entityTypeID]
	if !ok {
		bundles = make(map[string]BundleExtraFields)
		info[entityTypeID] = bundles
	}
	b := bundles[bundle].withDefaults()
	switch where {
	case "form":
		b.Form[name] = f
	default:
		b.Display[name] = f
	}
	bundles[bundle] = b
}

// merge copies every extra field of other into info, replacing same-named ones
func (info ExtraFieldInfo) merge(other ExtraFieldInfo) {
	for entityTypeID, bundles := range other {
		for bundle, b := range bundles {
			for name, f := range b.Form {
				info.Set(entityTypeID, bundle, "form", name, f)
			}
			for name, f := range b.Display {
				info.Set(entityTypeID, bundle, "display", name, f)
			}
			if _, ok := info[entityTypeID][bundle]; !ok {
				info.ensure(entityTypeID, bundle)
			}
		}
	}
}

func (info ExtraFieldInfo) ensure(entityTypeID, bundle string) {
	if info[entityTypeID] == nil {
		info[entityTypeID] = make(map[string]BundleExtraFields)
	}
	info[entityTypeID][bundle] = info[entityTypeID][bundle].withDefaults()
}

func (b BundleExtraFields) withDefaults() BundleExtraFields {
	if b.Form == nil {
		b.Form = make(map[string]ExtraField)
	}
	if b.Display == nil {
		b.Display = make(map[string]ExtraField)
	}
	return b
}

// ExtraFields returns a copy of the extra fields of a bundle. A bundle
// without extra fields yields empty form and display maps.
func (m *Manager) ExtraFields(ctx context.Context, entityTypeID, bundle string) (BundleExtraFields, error) {
	info, err := m.extraFieldInfo(ctx)
	if err != nil {
		return BundleExtraFields{}, err
	}
	b := info[entityTypeID][bundle]
	return BundleExtraFields{
		Form:    maps.Clone(b.Form),
		Display: maps.Clone(b.Display),
	}.withDefaults(), nil
}

func (m *Manager) extraFieldInfo(ctx context.Context) (ExtraFieldInfo, error) {
	langcode := m.langcode()
	return resolve(ctx, m, m.memo.extraFields,
		memoKey{langcode: langcode},
		extraFieldsCID(langcode),
		[]string{TagEntityFieldInfo},
		m.buildExtraFieldInfo)
}

func (m *Manager) buildExtraFieldInfo(ctx context.Context) (ExtraFieldInfo, error) {
	info := make(ExtraFieldInfo)

	err := extension.InvokeAllWith(m.extensions, HookExtraFieldInfo, func(fn ExtraFieldInfoFunc, provider string) error {
		contributed, err := fn(ctx)
		if err != nil {
			return err
		}
		info.merge(contributed)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = extension.Alter(m.extensions, HookExtraFieldInfo, func(fn ExtraFieldInfoAlterFunc, provider string) error {
		return fn(ctx, info)
	})
	if err != nil {
		return nil, err
	}

	for entityTypeID, bundles := range info {
		for bundle := range bundles {
			info.ensure(entityTypeID, bundle)
		}
	}
	return info, nil
}
