package fieldmanager

import (
	"context"
	"sort"
)

// FieldLabels returns the label used most often for a field across the
// bundles of an entity type, ties going to the lexicographically smaller
// label, together with every distinct label seen in sorted order. A field
// found on no bundle is labelled with its name.
func (m *Manager) FieldLabels(ctx context.Context, entityTypeID, fieldName string) (string, []string, error) {
	if _, err := m.entityType(entityTypeID); err != nil {
		return "", nil, err
	}

	counts := make(map[string]int)
	for _, bundle := range m.entityTypes.Bundles(entityTypeID) {
		defs, err := m.FieldDefinitions(ctx, entityTypeID, bundle)
		if err != nil {
			return "", nil, err
		}
		if def, ok := defs.Get(fieldName); ok && def.Label != "" {
			counts[def.Label]++
		}
	}

	all := make([]string, 0, len(counts))
	for label := range counts {
		all = append(all, label)
	}
	sort.Strings(all)

	if len(all) == 0 {
		return fieldName, all, nil
	}

	best := all[0]
	for _, label := range all[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best, all, nil
}
