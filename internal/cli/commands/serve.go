package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/fieldinfo/internal/web/router"
	"github.com/conduit-lang/fieldinfo/internal/web/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		addr        string
		showDetails bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve field metadata over HTTP",
		Long: `Serve field metadata over HTTP as JSON.

Routes:
  GET  /entity-types
  GET  /entity-types/{entityType}/base-fields
  GET  /entity-types/{entityType}/storage[?active=true]
  GET  /entity-types/{entityType}/bundles/{bundle}/fields
  GET  /entity-types/{entityType}/bundles/{bundle}/extra-fields
  GET  /entity-types/{entityType}/fields/{field}/labels
  GET  /field-map[?type=...]
  POST /cache/clear

The language is taken from ?lang= or the Accept-Language header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if opts.verbose {
				logger, err = zap.NewDevelopment()
			}
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			a, err := opts.open(cmd, logger)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.Config.Server.Addr
			}
			handler := router.New(router.Options{
				App:         a,
				Logger:      logger.Named("http"),
				ShowDetails: showDetails,
			})
			cfg := server.DefaultConfig(addr, handler)
			cfg.Logger = logger

			srv, err := server.New(cfg)
			if err != nil {
				a.Close()
				return err
			}
			srv.RegisterHook(func(ctx context.Context) error {
				return a.Close()
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from the config)")
	cmd.Flags().BoolVar(&showDetails, "show-details", false, "Include internal error messages in responses")
	return cmd
}
