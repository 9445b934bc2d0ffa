package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dochive/dochive/internal/cli/output"
	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/apiclient"
	"github.com/dochive/dochive/pkg/config"
	"github.com/dochive/dochive/pkg/metrics"
	"github.com/dochive/dochive/pkg/migrate"
)

var (
	migrateYear  int
	migrateToken string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the bulk migration worker",
	Long: `Run the bulk migration worker for one source year.

The worker seeds a persistent migration log from the legacy content
table, enriches it with document metadata, and uploads every eligible
record to the target dochive API. The run is crash-safe: interrupting
it and starting again resumes where it left off, and failed records are
retried up to migration.max_retries times.

Multiple workers can share one PostgreSQL migration log by giving each
a distinct --worker-token.

Examples:
  # Migrate the configured year
  dochive migrate

  # Migrate a specific year
  dochive migrate --year 2017

  # Run as one shard of a multi-worker migration
  dochive migrate --year 2017 --worker-token worker-a`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateYear, "year", 0, "source year to migrate (overrides config)")
	migrateCmd.Flags().StringVar(&migrateToken, "worker-token", "", "shard token for multi-worker runs (overrides config)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	mcfg := cfg.Migration
	if migrateYear != 0 {
		mcfg.Year = migrateYear
	}
	if migrateToken != "" {
		mcfg.WorkerToken = migrateToken
	}
	mcfg.ApplyDefaults()
	if err := mcfg.Validate(); err != nil {
		return fmt.Errorf("invalid migration configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := migrate.NewStore(mcfg.LogStoreConfig())
	if err != nil {
		return fmt.Errorf("failed to open migration log: %w", err)
	}
	defer func() { _ = store.Close() }()

	docs, err := migrate.NewLegacyDocuments(ctx, mcfg.SourceDSN, mcfg.DocumentsTable)
	if err != nil {
		return fmt.Errorf("failed to open documents database: %w", err)
	}
	defer docs.Close()

	content, err := migrate.NewLegacyContent(ctx, mcfg.ContentDSN, mcfg.ContentTable)
	if err != nil {
		return fmt.Errorf("failed to open content database: %w", err)
	}
	defer content.Close()

	logger.Info("starting migration",
		"year", mcfg.Year,
		"target_bucket", mcfg.TargetBucket,
		"worker_token", mcfg.WorkerToken,
		"max_parallelism", mcfg.MaxParallelism,
	)

	worker := migrate.NewWorker(mcfg, store, docs, content, apiclient.New(mcfg.TargetAPIBaseURL), metrics.New())
	report, err := worker.Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return printReport(report, mcfg.Year)
}

func printReport(report *migrate.Report, year int) error {
	fmt.Printf("Migration report for %d:\n\n", year)

	table := output.NewTable("Status", "Count")
	for _, status := range []migrate.Status{
		migrate.StatusCompleted,
		migrate.StatusSkipped,
		migrate.StatusFailed,
		migrate.StatusPending,
		migrate.StatusInProgress,
		migrate.StatusSeeded,
	} {
		if n, ok := report.Counts[status]; ok {
			table.AddRow(string(status), strconv.FormatInt(n, 10))
		}
	}
	if err := table.Render(os.Stdout); err != nil {
		return err
	}

	if report.Exhausted > 0 {
		fmt.Printf("\n%d failed record(s) exhausted their retries; inspect the migration log.\n", report.Exhausted)
	}
	return nil
}
