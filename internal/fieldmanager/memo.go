package fieldmanager

import (
	"sync"

	"github.com/conduit-lang/fieldinfo/internal/field"
)

// memoKey identifies one process-local entry. Unused parts stay empty.
type memoKey struct {
	langcode   string
	entityType string
	bundle     string
}

type table[V any] struct {
	mu      sync.Mutex
	entries map[memoKey]V
}

func newTable[V any]() *table[V] {
	return &table[V]{entries: make(map[memoKey]V)}
}

func (t *table[V]) get(key memoKey) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.entries[key]
	return v, ok
}

func (t *table[V]) set(key memoKey, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[key] = v
}

func (t *table[V]) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[memoKey]V)
}

// memo holds everything a Manager has built during its lifetime
type memo struct {
	baseFields     *table[*field.Definitions]
	bundleFields   *table[*field.Definitions]
	fields         *table[*field.Definitions]
	storage        *table[*field.StorageDefinitions]
	activeStorage  *table[*field.StorageDefinitions]
	fieldMap       *table[FieldMap]
	fieldMapByType *table[FieldMap]
	extraFields    *table[ExtraFieldInfo]
}

func newMemo() *memo {
	return &memo{
		baseFields:     newTable[*field.Definitions](),
		bundleFields:   newTable[*field.Definitions](),
		fields:         newTable[*field.Definitions](),
		storage:        newTable[*field.StorageDefinitions](),
		activeStorage:  newTable[*field.StorageDefinitions](),
		fieldMap:       newTable[FieldMap](),
		fieldMapByType: newTable[FieldMap](),
		extraFields:    newTable[ExtraFieldInfo](),
	}
}

func (m *memo) clear() {
	m.baseFields.reset()
	m.bundleFields.reset()
	m.fields.reset()
	m.storage.reset()
	m.activeStorage.reset()
	m.fieldMap.reset()
	m.fieldMapByType.reset()
	m.extraFields.reset()
}
