package field

import (
	"encoding/json"
	"fmt"
	"iter"
)

// Item is implemented by the records a Collection can hold
type Item[T any] interface {
	FieldName() string
	Clone() T
}

// Collection is a name-keyed set of field records that remembers insertion
// order. Replacing an existing name keeps its position; new names are
// appended. The zero value is ready to use.
type Collection[T Item[T]] struct {
	order  []string
	byName map[string]T
}

// Definitions is the collection of full field definitions
type Definitions = Collection[*Definition]

// StorageDefinitions is the collection of field storage definitions
type StorageDefinitions = Collection[*StorageDefinition]

// NewDefinitions returns a collection holding defs keyed by their names
func NewDefinitions(defs ...*Definition) *Definitions {
	return Of(defs...)
}

// NewStorageDefinitions returns a collection holding defs keyed by their names
func NewStorageDefinitions(defs ...*StorageDefinition) *StorageDefinitions {
	return Of(defs...)
}

// Of returns a collection holding items keyed by FieldName
func Of[T Item[T]](items ...T) *Collection[T] {
	c := &Collection[T]{}
	for _, item := range items {
		c.Set(item.FieldName(), item)
	}
	return c
}

// Len returns the number of entries
func (c *Collection[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Get returns the entry stored under name
func (c *Collection[T]) Get(name string) (T, bool) {
	var zero T
	if c == nil || c.byName == nil {
		return zero, false
	}
	v, ok := c.byName[name]
	if !ok {
		return zero, false
	}
	return v, true
}

// Has reports whether name is present
func (c *Collection[T]) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Set stores item under name, replacing in place or appending
func (c *Collection[T]) Set(name string, item T) {
	if c.byName == nil {
		c.byName = make(map[string]T)
	}
	if _, exists := c.byName[name]; !exists {
		c.order = append(c.order, name)
	}
	c.byName[name] = item
}

// Delete removes name from the collection
func (c *Collection[T]) Delete(name string) {
	if c == nil || c.byName == nil {
		return
	}
	if _, exists := c.byName[name]; !exists {
		return
	}
	delete(c.byName, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Names returns the entry names in order
func (c *Collection[T]) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Values returns the entries in order
func (c *Collection[T]) Values() []T {
	if c == nil {
		return nil
	}
	out := make([]T, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// All iterates over name/entry pairs in order
func (c *Collection[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		if c == nil {
			return
		}
		for _, name := range c.order {
			if !yield(name, c.byName[name]) {
				return
			}
		}
	}
}

// Merge applies Set for every entry of other, in other's order. Entries of
// other replace same-named entries; novel entries are appended.
func (c *Collection[T]) Merge(other *Collection[T]) {
	for name, item := range other.All() {
		c.Set(name, item)
	}
}

// AddMissing appends the entries of other whose names are not present yet
func (c *Collection[T]) AddMissing(other *Collection[T]) {
	for name, item := range other.All() {
		if !c.Has(name) {
			c.Set(name, item)
		}
	}
}

// Clone returns a deep copy of the collection
func (c *Collection[T]) Clone() *Collection[T] {
	out := &Collection[T]{}
	for name, item := range c.All() {
		out.Set(name, item.Clone())
	}
	return out
}

// MarshalJSON encodes the collection as an ordered array
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Values())
}

// UnmarshalJSON decodes an ordered array, keying entries by FieldName
func (c *Collection[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to decode field collection: %w", err)
	}
	c.order = nil
	c.byName = nil
	for _, item := range items {
		if item.FieldName() == "" {
			return fmt.Errorf("failed to decode field collection: entry without a name")
		}
		c.Set(item.FieldName(), item)
	}
	return nil
}
