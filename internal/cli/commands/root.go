package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/fieldinfo/internal/app"
	"github.com/conduit-lang/fieldinfo/internal/cli/config"
	"github.com/conduit-lang/fieldinfo/internal/cli/ui"
	"github.com/conduit-lang/fieldinfo/internal/entitytype"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configPath string
	format     string
	lang       string
	noColor    bool
	verbose    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "fieldinfo",
		Short: "Inspect and serve entity field metadata",
		Long: color.CyanString(`fieldinfo - Entity Field Metadata

fieldinfo resolves the field definitions of entity types from a catalog,
merging code declarations, extension contributions and persisted overrides,
and caches the results per language.

Examples:
  fieldinfo entity-types
  fieldinfo fields article news --lang fr
  fieldinfo field-map --type entity_reference
  fieldinfo serve --addr :8080`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			switch opts.format {
			case "table", "json":
				return nil
			default:
				return fmt.Errorf("unsupported format: %s (supported: table, json)", opts.format)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./fieldinfo.yml)")
	flags.StringVarP(&opts.format, "format", "f", "table", "Output format: table or json")
	flags.StringVarP(&opts.lang, "lang", "l", "", "Language to build definitions in (default: the configured default)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newEntityTypesCommand(opts))
	rootCmd.AddCommand(newBaseFieldsCommand(opts))
	rootCmd.AddCommand(newFieldsCommand(opts))
	rootCmd.AddCommand(newStorageCommand(opts))
	rootCmd.AddCommand(newFieldMapCommand(opts))
	rootCmd.AddCommand(newExtraFieldsCommand(opts))
	rootCmd.AddCommand(newLabelsCommand(opts))
	rootCmd.AddCommand(newClearCacheCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the fieldinfo version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			table := ui.NewKeyValueTable(out, color.NoColor)
			table.AddRow("fieldinfo version", Version)
			table.AddRow("Git commit", GitCommit)
			table.AddRow("Build date", BuildDate)
			table.AddRow("Go version", goVer)
			table.Render()
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var uerr *userError
		if errors.As(err, &uerr) {
			ui.WriteError(rootCmd.ErrOrStderr(), uerr.opts)
			return err
		}
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// open loads the configuration and assembles the engine
func (o *rootOptions) open(cmd *cobra.Command, logger *zap.Logger) (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
		if o.verbose {
			if logger, err = zap.NewDevelopment(); err != nil {
				return nil, fmt.Errorf("failed to create logger: %w", err)
			}
		}
	}

	return app.Open(cmd.Context(), cfg, logger)
}

// langcode returns the supported language closest to --lang
func (o *rootOptions) langcode(a *app.App) string {
	if o.lang == "" {
		return a.Languages.Default()
	}
	return a.Languages.Match(o.lang)
}

// userError carries a formatted message for mistakes the user can fix
type userError struct {
	err  error
	opts ui.ErrorOptions
}

func (e *userError) Error() string { return e.err.Error() }

func (e *userError) Unwrap() error { return e.err }

// explain turns an unknown entity type into a userError suggesting close
// matches. Other errors are returned unchanged.
func (o *rootOptions) explain(a *app.App, entityTypeID string, err error) error {
	if !errors.Is(err, entitytype.ErrNotFound) {
		return err
	}

	var ids []string
	for _, def := range a.EntityTypes.Definitions() {
		ids = append(ids, def.ID)
	}
	return &userError{
		err: err,
		opts: ui.ErrorOptions{
			Context:      "entity type not found",
			Problem:      fmt.Sprintf("Cannot find entity type '%s'.", entityTypeID),
			Suggestions:  ui.Suggest(entityTypeID, ids),
			HelpCommands: []string{"See all entity types: fieldinfo entity-types"},
			NoColor:      o.noColor || color.NoColor,
		},
	}
}
