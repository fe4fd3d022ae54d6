package cache

import "sort"

// tagVersions records the invalidation count of every tag an item carries at
// the moment it is written. The item stays valid while all counts match.
type tagVersions map[string]int64

func (v tagVersions) matches(current tagVersions) bool {
	for tag, version := range v {
		if current[tag] != version {
			return false
		}
	}
	return true
}

// normalizeTags sorts and de-duplicates tags
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
