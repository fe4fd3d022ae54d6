package commands

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/fieldinfo/internal/cli/ui"
	"github.com/conduit-lang/fieldinfo/internal/field"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
)

// printer writes command results as a table or as indented JSON
type printer struct {
	w      io.Writer
	format string
}

func (o *rootOptions) printer(w io.Writer) *printer {
	return &printer{w: w, format: o.format}
}

func (p *printer) json() bool {
	return p.format == "json"
}

func (p *printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) table(headers ...string) *ui.Table {
	return ui.NewTable(p.w, headers, &ui.TableOptions{NoColor: color.NoColor})
}

func (p *printer) keyValue() *ui.KeyValueTable {
	return ui.NewKeyValueTable(p.w, color.NoColor)
}

func (p *printer) definitions(defs *field.Definitions) error {
	if p.json() {
		return p.writeJSON(defs)
	}

	t := p.table("NAME", "TYPE", "KIND", "CARDINALITY", "PROVIDER", "LABEL")
	for _, def := range defs.Values() {
		t.AddRow(def.Name, def.Type, string(def.Kind), def.Cardinality.String(), def.Provider, def.Label)
	}
	t.Render()
	return nil
}

func (p *printer) storageDefinitions(defs *field.StorageDefinitions) error {
	if p.json() {
		return p.writeJSON(defs)
	}

	t := p.table("NAME", "TYPE", "CARDINALITY", "TRANSLATABLE", "REVISIONABLE", "PROVIDER")
	for _, def := range defs.Values() {
		t.AddRow(def.Name, def.Type, def.Cardinality.String(),
			strconv.FormatBool(def.Translatable), strconv.FormatBool(def.Revisionable), def.Provider)
	}
	t.Render()
	return nil
}

func (p *printer) fieldMap(fm fieldmanager.FieldMap) error {
	if p.json() {
		return p.writeJSON(fm)
	}

	t := p.table("ENTITY TYPE", "FIELD", "TYPE", "BUNDLES")
	for _, entityTypeID := range sortedKeys(fm) {
		fields := fm[entityTypeID]
		for _, name := range sortedKeys(fields) {
			entry := fields[name]
			t.AddRow(entityTypeID, name, entry.Type, strings.Join(entry.Bundles, ", "))
		}
	}
	t.Render()
	return nil
}

func (p *printer) extraFields(extra fieldmanager.BundleExtraFields) error {
	if p.json() {
		return p.writeJSON(extra)
	}

	t := p.table("CONTEXT", "NAME", "LABEL", "WEIGHT", "VISIBLE")
	for _, side := range []struct {
		name   string
		fields map[string]fieldmanager.ExtraField
	}{{"form", extra.Form}, {"display", extra.Display}} {
		for _, name := range sortedKeys(side.fields) {
			f := side.fields[name]
			t.AddRow(side.name, name, f.Label, strconv.Itoa(f.Weight), strconv.FormatBool(f.Visible))
		}
	}
	t.Render()
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
