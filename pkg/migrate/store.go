package migrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// StoreType selects the migration log backend.
type StoreType string

const (
	// StoreTypeSQLite keeps the log in a local file (single worker,
	// also used by tests).
	StoreTypeSQLite StoreType = "sqlite"

	// StoreTypePostgres keeps the log in PostgreSQL, which is required
	// when multiple workers share it.
	StoreTypePostgres StoreType = "postgres"
)

// StoreConfig configures the migration log store.
type StoreConfig struct {
	Type StoreType `mapstructure:"type" yaml:"type"`

	// DSN is the SQLite file path or the PostgreSQL connection string.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// Store persists the migration log.
type Store struct {
	db  *gorm.DB
	cfg StoreConfig
}

// NewStore opens the migration log database. Schema provisioning happens
// separately via EnsureSchema so interrupted runs can verify it first.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Type == "" {
		cfg.Type = StoreTypeSQLite
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("migration log dsn is required")
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case StoreTypeSQLite:
		dsn := cfg.DSN
		if dsn != ":memory:" {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
		dialector = sqlite.Open(dsn)
	case StoreTypePostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported migration log store type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to migration log database: %w", err)
	}

	return &Store{db: db, cfg: cfg}, nil
}

// DB returns the underlying GORM database connection, mainly for tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// EnsureSchema provisions the migration log table and indexes. Idempotent:
// safe to run at the start of every invocation. PostgreSQL goes through the
// versioned embedded SQL; SQLite (single worker, tests) auto-migrates.
func (s *Store) EnsureSchema(ctx context.Context) error {
	switch s.cfg.Type {
	case StoreTypePostgres:
		return ensurePostgresSchema(s.cfg.DSN)
	default:
		return s.db.WithContext(ctx).AutoMigrate(&LogEntry{})
	}
}

// seedChunk bounds the existence check and insert to a fixed number of ids
// per statement, so seeding never loads the whole year's log into memory.
const seedChunk = 500

// SeedMissing inserts one Seeded row per content id not already logged for
// the year. Returns how many rows were inserted. Re-running on the same
// input is a no-op, which makes the seed phase safe to retry.
func (s *Store) SeedMissing(ctx context.Context, year int, contentIDs []int64) (int64, error) {
	var inserted int64

	for start := 0; start < len(contentIDs); start += seedChunk {
		chunk := contentIDs[start:min(start+seedChunk, len(contentIDs))]

		var existing []int64
		err := s.db.WithContext(ctx).
			Model(&LogEntry{}).
			Where("source_year = ? AND source_document_id IN ?", year, chunk).
			Pluck("source_document_id", &existing).Error
		if err != nil {
			return inserted, fmt.Errorf("list seeded ids: %w", err)
		}

		seen := make(map[int64]struct{}, len(existing))
		for _, id := range existing {
			seen[id] = struct{}{}
		}

		var rows []LogEntry
		for _, id := range chunk {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			rows = append(rows, LogEntry{
				SourceDocumentID: id,
				SourceYear:       year,
				Status:           StatusSeeded,
			})
		}
		if len(rows) == 0 {
			continue
		}

		if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
			return inserted, fmt.Errorf("insert seeded rows: %w", err)
		}
		inserted += int64(len(rows))
	}
	return inserted, nil
}

// SelectByStatus returns up to limit rows for the year in the given state,
// ordered by source document id.
func (s *Store) SelectByStatus(ctx context.Context, year int, status Status, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	err := s.db.WithContext(ctx).
		Where("source_year = ? AND status = ?", year, status).
		Order("source_document_id").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SelectBatch returns the next rows eligible for migration: Pending, or
// Failed with retries left. A non-nil token first claims up to limit
// unowned eligible rows for that shard, then returns only rows the shard
// owns. Claiming is one UPDATE statement, so two workers with distinct
// tokens never take the same row.
func (s *Store) SelectBatch(ctx context.Context, year int, token *string, limit, maxRetries int) ([]LogEntry, error) {
	if token != nil {
		if err := s.claimRows(ctx, year, *token, limit, maxRetries); err != nil {
			return nil, fmt.Errorf("claim rows: %w", err)
		}
	}

	q := s.db.WithContext(ctx).
		Where("source_year = ?", year).
		Where(s.eligible(maxRetries))
	if token != nil {
		q = q.Where("worker_token = ?", *token)
	}

	var entries []LogEntry
	err := q.Order("source_document_id").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) eligible(maxRetries int) *gorm.DB {
	return s.db.Where("status = ?", StatusPending).
		Or("status = ? AND retry_count < ?", StatusFailed, maxRetries)
}

func (s *Store) claimRows(ctx context.Context, year int, token string, limit, maxRetries int) error {
	sub := s.db.Model(&LogEntry{}).
		Select("id").
		Where("source_year = ? AND worker_token IS NULL", year).
		Where(s.eligible(maxRetries)).
		Order("source_document_id").
		Limit(limit)
	return s.db.WithContext(ctx).
		Model(&LogEntry{}).
		Where("id IN (?)", sub).
		Update("worker_token", token).Error
}

// MarkPending records the enriched metadata and moves a Seeded row to
// Pending.
func (s *Store) MarkPending(ctx context.Context, id uint64, meta *DocumentMeta) error {
	ext := strings.TrimPrefix(meta.Extension, ".")
	updates := map[string]any{
		"status":               StatusPending,
		"original_filename":    meta.Filename,
		"original_extension":   ext,
		"claimed_content_type": meta.ContentType,
		"source_file_size":     meta.FileSize,
	}
	if !meta.RecordDate.IsZero() {
		updates["source_record_date"] = meta.RecordDate
	}
	return s.updateEntry(ctx, id, updates)
}

// MarkInProgress is the write barrier taken before a document is fetched,
// so a crashed worker's in-flight rows stay visible as InProgress. The
// previous attempt's error and timestamp are cleared here: only terminal
// rows carry a processed_at.
func (s *Store) MarkInProgress(ctx context.Context, id uint64) error {
	return s.updateEntry(ctx, id, map[string]any{
		"status":        StatusInProgress,
		"error_message": "",
		"processed_at":  nil,
	})
}

// MarkCompleted records a successful migration with its target fields.
func (s *Store) MarkCompleted(ctx context.Context, id uint64, outcome Outcome) error {
	now := time.Now().UTC()
	return s.updateEntry(ctx, id, map[string]any{
		"status":                StatusCompleted,
		"target_doc_id":         outcome.TargetDocID,
		"target_bucket":         outcome.TargetBucket,
		"target_filename":       outcome.TargetFilename,
		"target_sha256":         outcome.TargetSHA256,
		"detected_content_type": outcome.DetectedContentType,
		"error_message":         "",
		"processed_at":          now,
	})
}

// MarkFailed records a failed attempt and burns one retry.
func (s *Store) MarkFailed(ctx context.Context, id uint64, message string) error {
	now := time.Now().UTC()
	return s.updateEntry(ctx, id, map[string]any{
		"status":        StatusFailed,
		"error_message": truncateMessage(message),
		"retry_count":   gorm.Expr("retry_count + 1"),
		"processed_at":  now,
	})
}

// MarkSkipped terminates a row that can never migrate (no metadata, no
// content).
func (s *Store) MarkSkipped(ctx context.Context, id uint64, reason string) error {
	now := time.Now().UTC()
	return s.updateEntry(ctx, id, map[string]any{
		"status":        StatusSkipped,
		"error_message": truncateMessage(reason),
		"processed_at":  now,
	})
}

func (s *Store) updateEntry(ctx context.Context, id uint64, updates map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&LogEntry{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("migration log row %d not found", id)
	}
	return nil
}

// Report summarizes the year (and shard) by status, plus how many Failed
// rows have exhausted their retries.
type Report struct {
	Counts    map[Status]int64
	Exhausted int64
}

// Report aggregates the final counts for one run.
func (s *Store) Report(ctx context.Context, year int, token *string, maxRetries int) (*Report, error) {
	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&LogEntry{}).Where("source_year = ?", year)
		if token != nil {
			q = q.Where("worker_token = ?", *token)
		}
		return q
	}

	var rows []struct {
		Status Status
		N      int64
	}
	err := scoped().
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	report := &Report{Counts: make(map[Status]int64, len(rows))}
	for _, row := range rows {
		report.Counts[row.Status] = row.N
	}

	err = scoped().
		Where("status = ? AND retry_count >= ?", StatusFailed, maxRetries).
		Count(&report.Exhausted).Error
	if err != nil {
		return nil, err
	}
	return report, nil
}

// EnrichFromDocuments performs the enrichment as one database-side join:
// Seeded rows with a live legacy document become Pending with metadata
// filled, the rest become Skipped. Only valid when the legacy documents
// table lives in the same PostgreSQL database as the log.
func (s *Store) EnrichFromDocuments(ctx context.Context, year int, documentsTable string) (updated, skipped int64, err error) {
	if s.cfg.Type != StoreTypePostgres {
		return 0, 0, fmt.Errorf("join enrichment requires the postgres log store")
	}

	table := quoteIdent(documentsTable)

	update := s.db.WithContext(ctx).Exec(fmt.Sprintf(`
		UPDATE migration_log AS m SET
			status = ?,
			original_filename = COALESCE(d."FileName", ''),
			original_extension = LTRIM(COALESCE(d."Extension", ''), '.'),
			claimed_content_type = COALESCE(d."ContentType", ''),
			source_file_size = d."FileSize",
			source_record_date = d."RecordDate"
		FROM %s AS d
		WHERE m.source_year = ?
		  AND m.status = ?
		  AND d."ContentId" = m.source_document_id
		  AND d."DelStatus" = false`, table),
		StatusPending, year, StatusSeeded)
	if update.Error != nil {
		return 0, 0, fmt.Errorf("join enrichment: %w", update.Error)
	}

	skip := s.db.WithContext(ctx).
		Model(&LogEntry{}).
		Where("source_year = ? AND status = ?", year, StatusSeeded).
		Updates(map[string]any{
			"status":        StatusSkipped,
			"error_message": "no metadata found",
			"processed_at":  time.Now().UTC(),
		})
	if skip.Error != nil {
		return 0, 0, fmt.Errorf("skip unmatched rows: %w", skip.Error)
	}

	return update.RowsAffected, skip.RowsAffected, nil
}

// quoteIdent quotes a table name for interpolation into SQL built at
// construction time. Never called with request data.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
