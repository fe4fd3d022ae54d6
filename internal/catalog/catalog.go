// Package catalog loads entity types, field contributions and persisted
// overrides from a YAML document.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/fieldinfo/internal/field"
)

// Catalog is the root of a catalog document
type Catalog struct {
	// DefaultLangcode is used when a text has no translation for the
	// requested language
	DefaultLangcode string `yaml:"default_langcode"`

	EntityTypes   []EntityType   `yaml:"entity_types"`
	Contributions []Contribution `yaml:"contributions"`
	Overrides     []Override     `yaml:"overrides"`
}

// EntityType declares an entity type and the fields it declares in code
type EntityType struct {
	ID                   string            `yaml:"id"`
	Label                string            `yaml:"label"`
	Provider             string            `yaml:"provider"`
	Keys                 map[string]string `yaml:"keys"`
	RevisionMetadataKeys map[string]string `yaml:"revision_metadata_keys"`
	Translatable         bool              `yaml:"translatable"`
	Revisionable         bool              `yaml:"revisionable"`
	BundleEntityType     string            `yaml:"bundle_entity_type"`

	// Fieldable defaults to true
	Fieldable *bool `yaml:"fieldable"`

	Bundles      []string           `yaml:"bundles"`
	BaseFields   []Field            `yaml:"base_fields"`
	BundleFields map[string][]Field `yaml:"bundle_fields"`
}

// Field declares one field. On bundle fields named like a base field, only
// the attributes that are set replace those of the base field.
type Field struct {
	Name         string                   `yaml:"name"`
	Type         string                   `yaml:"type"`
	Label        Text                     `yaml:"label"`
	Description  Text                     `yaml:"description"`
	Cardinality  Cardinality              `yaml:"cardinality"`
	Translatable bool                     `yaml:"translatable"`
	Revisionable bool                     `yaml:"revisionable"`
	Computed     bool                     `yaml:"computed"`
	Required     bool                     `yaml:"required"`
	ReadOnly     bool                     `yaml:"read_only"`
	Internal     bool                     `yaml:"internal"`
	Constraints  []Constraint             `yaml:"constraints"`
	Display      map[string]DisplayOption `yaml:"display"`
}

// Constraint attaches a validation rule to a field
type Constraint struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options"`
}

// DisplayOption holds the default presentation of a field in one context
type DisplayOption struct {
	Type     string         `yaml:"type"`
	Label    string         `yaml:"label"`
	Weight   int            `yaml:"weight"`
	Region   string         `yaml:"region"`
	Settings map[string]any `yaml:"settings"`
}

// Contribution groups what one extension provider adds to other entity types
type Contribution struct {
	Provider string `yaml:"provider"`

	// BaseFields are keyed by entity type
	BaseFields map[string][]Field `yaml:"base_fields"`

	// BundleFields are keyed by entity type and bundle. Each of them gets a
	// storage definition and an entry in the bundle field map.
	BundleFields map[string]map[string][]Field `yaml:"bundle_fields"`

	// ExtraFields are keyed by entity type and bundle
	ExtraFields map[string]map[string]ExtraFields `yaml:"extra_fields"`
}

// ExtraFields lists the pseudo-fields of one bundle by context
type ExtraFields struct {
	Form    map[string]ExtraField `yaml:"form"`
	Display map[string]ExtraField `yaml:"display"`
}

// ExtraField declares one pseudo-field
type ExtraField struct {
	Label       Text  `yaml:"label"`
	Description Text  `yaml:"description"`
	Weight      int   `yaml:"weight"`
	Visible     *bool `yaml:"visible"`
}

// Override is a persisted bundle-specific change to a base field
type Override struct {
	EntityType   string      `yaml:"entity_type"`
	Bundle       string      `yaml:"bundle"`
	Field        string      `yaml:"field"`
	Label        Text        `yaml:"label"`
	Description  Text        `yaml:"description"`
	Cardinality  Cardinality `yaml:"cardinality"`
	Required     *bool       `yaml:"required"`
	Translatable *bool       `yaml:"translatable"`
}

// Text is a translatable string. A plain scalar is language neutral; a
// mapping holds one value per langcode.
type Text map[string]string

// UnmarshalYAML accepts a scalar or a langcode mapping
func (t *Text) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*t = Text{"": value.Value}
		return nil
	}
	var m map[string]string
	if err := value.Decode(&m); err != nil {
		return fmt.Errorf("line %d: text must be a string or a langcode mapping", value.Line)
	}
	*t = m
	return nil
}

// In returns the text in langcode, then in fallback, then the language
// neutral value, then the first translation by langcode
func (t Text) In(langcode, fallback string) string {
	for _, key := range []string{langcode, fallback, ""} {
		if s, ok := t[key]; ok {
			return s
		}
	}
	if len(t) == 0 {
		return ""
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return t[keys[0]]
}

// Cardinality is a field cardinality written as a number or "unlimited".
// Zero means unset.
type Cardinality field.Cardinality

// UnmarshalYAML accepts a positive integer or "unlimited"
func (c *Cardinality) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "unlimited" {
		*c = Cardinality(field.Unlimited)
		return nil
	}
	n, err := strconv.Atoi(value.Value)
	if err != nil || !field.Cardinality(n).Valid() {
		return fmt.Errorf("line %d: invalid cardinality %q", value.Line, value.Value)
	}
	*c = Cardinality(n)
	return nil
}

// Load reads and parses a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if c.DefaultLangcode == "" {
		c.DefaultLangcode = "en"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that identifiers are present and references resolve
func (c *Catalog) Validate() error {
	types := make(map[string]*EntityType, len(c.EntityTypes))
	for i := range c.EntityTypes {
		et := &c.EntityTypes[i]
		if et.ID == "" {
			return fmt.Errorf("entity type #%d has no id", i+1)
		}
		if _, dup := types[et.ID]; dup {
			return fmt.Errorf("entity type %s is declared twice", et.ID)
		}
		types[et.ID] = et

		if err := validateFields(et.BaseFields, true); err != nil {
			return fmt.Errorf("entity type %s: %w", et.ID, err)
		}
		for bundle, fields := range et.BundleFields {
			if err := validateFields(fields, false); err != nil {
				return fmt.Errorf("entity type %s bundle %s: %w", et.ID, bundle, err)
			}
			for _, f := range fields {
				if f.Type == "" && et.baseField(f.Name) == nil {
					return fmt.Errorf("entity type %s bundle %s: field %s has no type", et.ID, bundle, f.Name)
				}
			}
		}
	}

	for i, contrib := range c.Contributions {
		if contrib.Provider == "" {
			return fmt.Errorf("contribution #%d has no provider", i+1)
		}
		for et, fields := range contrib.BaseFields {
			if err := validateFields(fields, true); err != nil {
				return fmt.Errorf("%s base fields of %s: %w", contrib.Provider, et, err)
			}
		}
		for et, bundles := range contrib.BundleFields {
			for bundle, fields := range bundles {
				if err := validateFields(fields, true); err != nil {
					return fmt.Errorf("%s bundle fields of %s.%s: %w", contrib.Provider, et, bundle, err)
				}
			}
		}
	}

	for _, o := range c.Overrides {
		et, ok := types[o.EntityType]
		if !ok {
			return fmt.Errorf("override %s.%s.%s: unknown entity type", o.EntityType, o.Bundle, o.Field)
		}
		if o.Bundle == "" {
			return fmt.Errorf("override %s.%s: bundle is required", o.EntityType, o.Field)
		}
		if et.baseField(o.Field) == nil {
			return fmt.Errorf("override %s.%s.%s: %s is not a base field", o.EntityType, o.Bundle, o.Field, o.Field)
		}
	}
	return nil
}

// validateFields checks names, and types unless fields may inherit them
func validateFields(fields []Field, requireType bool) error {
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("field #%d has no name", i+1)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %s is declared twice", f.Name)
		}
		seen[f.Name] = true
		if requireType && f.Type == "" {
			return fmt.Errorf("field %s has no type", f.Name)
		}
	}
	return nil
}

func (et *EntityType) baseField(name string) *Field {
	for i := range et.BaseFields {
		if et.BaseFields[i].Name == name {
			return &et.BaseFields[i]
		}
	}
	return nil
}

func (et *EntityType) fieldable() bool {
	return et.Fieldable == nil || *et.Fieldable
}
