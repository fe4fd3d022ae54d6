package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/fieldinfo/internal/cli/ui"
)

func newClearCacheCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Clear the cached field definitions",
		Long: `Clear the cached field definitions of every language from the persistent
cache. They are rebuilt on the next read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				confirmed := false
				prompt := &survey.Confirm{
					Message: "Clear all cached field definitions?",
					Default: false,
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return fmt.Errorf("confirmation failed (use --yes to skip): %w", err)
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			a, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ClearCachedFieldDefinitions(cmd.Context()); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Cached field definitions cleared", color.NoColor)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
