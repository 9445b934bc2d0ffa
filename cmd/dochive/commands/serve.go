package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/api"
	"github.com/dochive/dochive/pkg/blobfs"
	"github.com/dochive/dochive/pkg/catalog"
	"github.com/dochive/dochive/pkg/config"
	"github.com/dochive/dochive/pkg/engine"
	"github.com/dochive/dochive/pkg/metrics"
	"github.com/dochive/dochive/pkg/mime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dochive storage service",
	Long: `Start the dochive storage service with the specified configuration.

The service exposes the bucket and object REST API, stores blobs in the
partitioned directory tree under engine.root_path, and records metadata
in the configured catalog database.

Examples:
  # Start with the default config location
  dochive serve

  # Start with a custom config file
  dochive serve --config /etc/dochive/config.yaml

  # Override settings via environment variables
  DOCHIVE_LOGGING_LEVEL=DEBUG dochive serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := catalog.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("catalog close error", logger.Err(err))
		}
	}()

	m := metrics.New()

	eng, err := engine.New(cfg.Engine, store, blobfs.New(), mime.NewIdentifier(), m)
	if err != nil {
		return fmt.Errorf("failed to create storage engine: %w", err)
	}

	logger.Info("starting dochive",
		"version", Version,
		"root_path", cfg.Engine.RootPath,
		"database", cfg.Database.Type,
		"port", cfg.API.Port,
	)

	server := api.NewServer(cfg.API, eng, m)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("dochive stopped")
	return nil
}
