package field

// StorageDefinition is the part of a field's metadata that determines its
// physical schema.
type StorageDefinition struct {
	Name             string      `json:"name"`
	Type             string      `json:"type"`
	TargetEntityType string      `json:"target_entity_type,omitempty"`
	Cardinality      Cardinality `json:"cardinality"`
	Computed         bool        `json:"computed,omitempty"`
	Translatable     bool        `json:"translatable,omitempty"`
	Revisionable     bool        `json:"revisionable,omitempty"`
	Provider         string      `json:"provider,omitempty"`
}

// FieldName implements Item
func (s *StorageDefinition) FieldName() string {
	return s.Name
}

// Clone returns a copy of the storage definition
func (s *StorageDefinition) Clone() *StorageDefinition {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
