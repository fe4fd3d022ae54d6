package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/fieldinfo/internal/app"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
)

// withManager opens the engine, runs fn with a Manager in the requested
// language and closes the engine
func (o *rootOptions) withManager(cmd *cobra.Command, fn func(a *app.App, m *fieldmanager.Manager) error) error {
	a, err := o.open(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a, a.Manager(o.langcode(a)))
}

func newEntityTypesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entity-types",
		Short: "List the entity types of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			type entityType struct {
				ID        string   `json:"id"`
				Label     string   `json:"label"`
				Provider  string   `json:"provider,omitempty"`
				Fieldable bool     `json:"fieldable"`
				Bundles   []string `json:"bundles"`
			}
			var out []entityType
			for _, def := range a.EntityTypes.Definitions() {
				out = append(out, entityType{
					ID:        def.ID,
					Label:     def.DisplayLabel(),
					Provider:  def.Provider,
					Fieldable: def.Fieldable(),
					Bundles:   a.EntityTypes.Bundles(def.ID),
				})
			}

			p := opts.printer(cmd.OutOrStdout())
			if p.json() {
				return p.writeJSON(out)
			}
			t := p.table("ID", "LABEL", "PROVIDER", "FIELDABLE", "BUNDLES")
			for _, et := range out {
				t.AddRow(et.ID, et.Label, et.Provider, strconv.FormatBool(et.Fieldable), strings.Join(et.Bundles, ", "))
			}
			t.Render()
			return nil
		},
	}
}

func newBaseFieldsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "base-fields <entity-type>",
		Short: "Show the base field definitions of an entity type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withManager(cmd, func(a *app.App, m *fieldmanager.Manager) error {
				defs, err := m.BaseFieldDefinitions(cmd.Context(), args[0])
				if err != nil {
					return opts.explain(a, args[0], err)
				}
				return opts.printer(cmd.OutOrStdout()).definitions(defs)
			})
		},
	}
}

func newFieldsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <entity-type> <bundle>",
		Short: "Show the field definitions of a bundle",
		Long:  "Show the field definitions of a bundle: base fields, bundle fields and overrides merged",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withManager(cmd, func(a *app.App, m *fieldmanager.Manager) error {
				defs, err := m.FieldDefinitions(cmd.Context(), args[0], args[1])
				if err != nil {
					return opts.explain(a, args[0], err)
				}
				return opts.printer(cmd.OutOrStdout()).definitions(defs)
			})
		},
	}
}

func newStorageCommand(opts *rootOptions) *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "storage <entity-type>",
		Short: "Show the field storage definitions of an entity type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withManager(cmd, func(a *app.App, m *fieldmanager.Manager) error {
				load := m.FieldStorageDefinitions
				if active {
					load = m.ActiveFieldStorageDefinitions
				}
				defs, err := load(cmd.Context(), args[0])
				if err != nil {
					return opts.explain(a, args[0], err)
				}
				return opts.printer(cmd.OutOrStdout()).storageDefinitions(defs)
			})
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "Show the installed storage definitions instead of the declared ones")
	return cmd
}

func newFieldMapCommand(opts *rootOptions) *cobra.Command {
	var fieldType string

	cmd := &cobra.Command{
		Use:   "field-map",
		Short: "Show which bundles use each field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withManager(cmd, func(a *app.App, m *fieldmanager.Manager) error {
				var (
					fm  fieldmanager.FieldMap
					err error
				)
				if fieldType != "" {
					fm, err = m.FieldMapByFieldType(cmd.Context(), fieldType)
				} else {
					fm, err = m.FieldMap(cmd.Context())
				}
				if err != nil {
					return err
				}
				return opts.printer(cmd.OutOrStdout()).fieldMap(fm)
			})
		},
	}

	cmd.Flags().StringVarP(&fieldType, "type", "t", "", "Only show fields of this type")
	return cmd
}

func newExtraFieldsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extra-fields <entity-type> <bundle>",
		Short: "Show the extra form and display fields of a bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withManager(cmd, func(a *app.App, m *fieldmanager.Manager) error {
				extra, err := m.ExtraFields(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return opts.printer(cmd.OutOrStdout()).extraFields(extra)
			})
		},
	}
}

func newLabelsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "labels <entity-type> <field>",
		Short: "Show the labels a field carries across bundles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withManager(cmd, func(a *app.App, m *fieldmanager.Manager) error {
				label, labels, err := m.FieldLabels(cmd.Context(), args[0], args[1])
				if err != nil {
					return opts.explain(a, args[0], err)
				}

				p := opts.printer(cmd.OutOrStdout())
				if p.json() {
					return p.writeJSON(map[string]any{"field": args[1], "label": label, "labels": labels})
				}
				t := p.keyValue()
				t.AddRow("Field", args[1])
				t.AddRow("Label", label)
				t.AddRow("All labels", strings.Join(labels, ", "))
				t.Render()
				return nil
			})
		},
	}
}
