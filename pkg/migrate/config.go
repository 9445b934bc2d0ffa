package migrate

import (
	"fmt"
	"strings"
)

// Config holds the migration worker settings for one run. A run is pinned
// to one source year and, optionally, one worker token shard.
type Config struct {
	// SourceDSN is the legacy documents database (metadata).
	SourceDSN string `mapstructure:"source_dsn" yaml:"source_dsn"`

	// ContentDSN is the legacy per-year content database (blob bytes).
	ContentDSN string `mapstructure:"content_dsn" yaml:"content_dsn"`

	// MigrationDSN is where the migration log lives.
	MigrationDSN string `mapstructure:"migration_dsn" yaml:"migration_dsn"`

	// TargetAPIBaseURL is the storage engine endpoint.
	TargetAPIBaseURL string `mapstructure:"target_api_base_url" yaml:"target_api_base_url"`

	// Year selects which source year this run migrates.
	Year int `mapstructure:"year" yaml:"year"`

	// DocumentsTable and ContentTable are the legacy table names. They
	// are baked into the queries at construction time and never come
	// from request data.
	DocumentsTable string `mapstructure:"documents_table" yaml:"documents_table"`
	ContentTable   string `mapstructure:"content_table" yaml:"content_table"`

	// TargetBucket receives every migrated object.
	TargetBucket string `mapstructure:"target_bucket" yaml:"target_bucket"`

	BatchSize      int `mapstructure:"batch_size" yaml:"batch_size"`
	MaxParallelism int `mapstructure:"max_parallelism" yaml:"max_parallelism"`
	MaxRetries     int `mapstructure:"max_retries" yaml:"max_retries"`

	// WorkerToken shards the log across processes. Empty means this
	// worker takes every row for the year.
	WorkerToken string `mapstructure:"worker_token" yaml:"worker_token"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.DocumentsTable == "" {
		c.DocumentsTable = "Documents"
	}
	if c.ContentTable == "" {
		c.ContentTable = "DocumentsContent"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.MaxParallelism == 0 {
		c.MaxParallelism = 4
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SourceDSN == "" {
		return fmt.Errorf("source dsn is required")
	}
	if c.ContentDSN == "" {
		return fmt.Errorf("content dsn is required")
	}
	if c.MigrationDSN == "" {
		return fmt.Errorf("migration dsn is required")
	}
	if c.TargetAPIBaseURL == "" {
		return fmt.Errorf("target api base url is required")
	}
	if c.Year == 0 {
		return fmt.Errorf("year is required")
	}
	if c.TargetBucket == "" {
		return fmt.Errorf("target bucket is required")
	}
	return nil
}

// LogStoreConfig derives the migration log store settings from the DSN:
// postgres URLs use the PostgreSQL backend, anything else is treated as a
// SQLite file path.
func (c *Config) LogStoreConfig() StoreConfig {
	storeType := StoreTypeSQLite
	if strings.HasPrefix(c.MigrationDSN, "postgres://") || strings.HasPrefix(c.MigrationDSN, "postgresql://") {
		storeType = StoreTypePostgres
	}
	return StoreConfig{Type: storeType, DSN: c.MigrationDSN}
}

// token returns the worker token as the nullable shard key.
func (c *Config) token() *string {
	if c.WorkerToken == "" {
		return nil
	}
	t := c.WorkerToken
	return &t
}
