package migrate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/apiclient"
	"github.com/dochive/dochive/pkg/metrics"
)

// MetadataSource resolves legacy document metadata during enrichment.
// A nil, nil return means the document does not exist or is deleted.
type MetadataSource interface {
	Lookup(ctx context.Context, contentID int64) (*DocumentMeta, error)
}

// ContentSource provides the legacy blob bytes for one year.
type ContentSource interface {
	DistinctContentIDs(ctx context.Context) ([]int64, error)
	Fetch(ctx context.Context, contentID int64) ([]byte, error)
}

// Uploader pushes documents into the storage engine. *apiclient.Client
// satisfies it.
type Uploader interface {
	EnsureBucketExists(ctx context.Context, name string) (bool, error)
	Upload(ctx context.Context, bucket, filename string, data []byte, claimedContentType string, year int) (*apiclient.UploadResult, error)
}

// Worker drives one year's migration: seed the log from the content
// table, enrich from the documents table, then upload eligible rows in
// parallel batches until none remain.
type Worker struct {
	cfg      Config
	store    *Store
	docs     MetadataSource
	content  ContentSource
	uploader Uploader
	metrics  *metrics.Metrics

	completed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// NewWorker assembles a migration worker from its collaborators.
func NewWorker(cfg Config, store *Store, docs MetadataSource, content ContentSource, uploader Uploader, m *metrics.Metrics) *Worker {
	cfg.ApplyDefaults()
	if m == nil {
		m = metrics.New()
	}
	return &Worker{
		cfg:      cfg,
		store:    store,
		docs:     docs,
		content:  content,
		uploader: uploader,
		metrics:  m,
	}
}

// Run executes the pipeline for the configured year. Every phase is
// idempotent, so an interrupted run can simply be started again.
func (w *Worker) Run(ctx context.Context) (*Report, error) {
	lc := &logger.LogContext{Worker: w.cfg.WorkerToken, Year: w.cfg.Year}
	ctx = logger.WithContext(ctx, lc)

	if err := w.store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure migration log schema: %w", err)
	}

	if _, err := w.uploader.EnsureBucketExists(ctx, w.cfg.TargetBucket); err != nil {
		return nil, fmt.Errorf("ensure target bucket %s: %w", w.cfg.TargetBucket, err)
	}

	if err := w.seed(ctx); err != nil {
		return nil, err
	}
	if err := w.enrich(ctx); err != nil {
		return nil, err
	}
	if err := w.migrate(ctx); err != nil {
		return nil, err
	}

	report, err := w.store.Report(ctx, w.cfg.Year, w.cfg.token(), w.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	logger.InfoCtx(ctx, "migration run finished",
		"completed", report.Counts[StatusCompleted],
		"failed", report.Counts[StatusFailed],
		"skipped", report.Counts[StatusSkipped],
		"pending", report.Counts[StatusPending],
		"in_progress", report.Counts[StatusInProgress],
		"exhausted", report.Exhausted,
	)
	return report, nil
}

// seed inserts a Seeded log row for every content id not yet logged.
func (w *Worker) seed(ctx context.Context) error {
	ids, err := w.content.DistinctContentIDs(ctx)
	if err != nil {
		return fmt.Errorf("list source content ids: %w", err)
	}
	inserted, err := w.store.SeedMissing(ctx, w.cfg.Year, ids)
	if err != nil {
		return fmt.Errorf("seed migration log: %w", err)
	}
	logger.InfoCtx(ctx, "seed phase complete", "source_ids", len(ids), "new_rows", inserted)
	return nil
}

// enrich attaches legacy metadata to Seeded rows. Rows whose document is
// missing or deleted are terminated as Skipped. When the log and the
// legacy documents table share one PostgreSQL database the whole phase
// runs as a single server-side join instead of a row loop.
func (w *Worker) enrich(ctx context.Context) error {
	if w.store.cfg.Type == StoreTypePostgres && w.cfg.SourceDSN == w.cfg.MigrationDSN {
		pending, skipped, err := w.store.EnrichFromDocuments(ctx, w.cfg.Year, w.cfg.DocumentsTable)
		if err != nil {
			return fmt.Errorf("join enrichment: %w", err)
		}
		logger.InfoCtx(ctx, "enrich phase complete", "pending", pending, "skipped", skipped, "mode", "join")
		return nil
	}

	var pending, skipped int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := w.store.SelectByStatus(ctx, w.cfg.Year, StatusSeeded, w.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("select seeded rows: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, entry := range batch {
			meta, err := w.docs.Lookup(ctx, entry.SourceDocumentID)
			if err != nil {
				return fmt.Errorf("lookup metadata for %d: %w", entry.SourceDocumentID, err)
			}
			if meta == nil {
				if err := w.store.MarkSkipped(ctx, entry.ID, "no metadata found"); err != nil {
					return err
				}
				skipped++
				continue
			}
			if err := w.store.MarkPending(ctx, entry.ID, meta); err != nil {
				return err
			}
			pending++
		}
	}
	logger.InfoCtx(ctx, "enrich phase complete", "pending", pending, "skipped", skipped)
	return nil
}

// migrate uploads eligible rows batch by batch. Cancellation stops new
// work between documents; documents already started run to completion so
// the log never records a half-finished upload as anything but Failed.
func (w *Worker) migrate(ctx context.Context) error {
	sem := semaphore.NewWeighted(int64(w.cfg.MaxParallelism))

	for {
		if err := ctx.Err(); err != nil {
			logger.WarnCtx(ctx, "migration interrupted", logger.Err(err))
			return nil
		}

		batch, err := w.store.SelectBatch(ctx, w.cfg.Year, w.cfg.token(), w.cfg.BatchSize, w.cfg.MaxRetries)
		if err != nil {
			return fmt.Errorf("select batch: %w", err)
		}
		if len(batch) == 0 {
			logger.InfoCtx(ctx, "migrate phase complete",
				"completed", w.completed.Load(),
				"failed", w.failed.Load(),
				"skipped", w.skipped.Load(),
			)
			return nil
		}

		var wg sync.WaitGroup
		interrupted := false
		for _, entry := range batch {
			if err := sem.Acquire(ctx, 1); err != nil {
				interrupted = true
				break
			}
			wg.Add(1)
			go func(entry LogEntry) {
				defer wg.Done()
				defer sem.Release(1)
				w.processDocument(context.WithoutCancel(ctx), entry)
			}(entry)
		}
		wg.Wait()
		if interrupted {
			logger.WarnCtx(ctx, "migration interrupted, in-flight documents finished")
			return nil
		}
	}
}

// processDocument drives one log row from Pending or Failed to a terminal
// state. The context is detached from cancellation so the row always ends
// up recorded.
func (w *Worker) processDocument(ctx context.Context, entry LogEntry) {
	w.metrics.MigrationInFlight.Inc()
	defer w.metrics.MigrationInFlight.Dec()

	if err := w.store.MarkInProgress(ctx, entry.ID); err != nil {
		logger.ErrorCtx(ctx, "failed to mark row in progress",
			"content_id", entry.SourceDocumentID, logger.Err(err))
		return
	}

	data, err := w.content.Fetch(ctx, entry.SourceDocumentID)
	if err != nil {
		w.fail(ctx, entry, fmt.Sprintf("fetch content: %v", err))
		return
	}
	if len(data) == 0 {
		if err := w.store.MarkSkipped(ctx, entry.ID, "no content found"); err != nil {
			logger.ErrorCtx(ctx, "failed to mark row skipped",
				"content_id", entry.SourceDocumentID, logger.Err(err))
			return
		}
		w.skipped.Add(1)
		w.metrics.MigrationDocsTotal.WithLabelValues("skipped").Inc()
		return
	}

	filename := targetFilename(entry)
	result, err := w.uploader.Upload(ctx, w.cfg.TargetBucket, filename, data, entry.ClaimedContentType, w.cfg.Year)
	if err != nil {
		w.fail(ctx, entry, fmt.Sprintf("upload: %v", err))
		return
	}
	if !result.Success {
		w.fail(ctx, entry, result.ErrorMessage)
		return
	}

	outcome := Outcome{
		TargetDocID:         result.DocID,
		TargetBucket:        w.cfg.TargetBucket,
		TargetFilename:      filename,
		TargetSHA256:        result.SHA256,
		DetectedContentType: result.DetectedContentType,
	}
	if err := w.store.MarkCompleted(ctx, entry.ID, outcome); err != nil {
		logger.ErrorCtx(ctx, "failed to mark row completed",
			"content_id", entry.SourceDocumentID, logger.Err(err))
		return
	}
	w.completed.Add(1)
	w.metrics.MigrationBytesTotal.Add(float64(len(data)))
	if result.AlreadyExists {
		w.metrics.MigrationDocsTotal.WithLabelValues("already_exists").Inc()
	} else {
		w.metrics.MigrationDocsTotal.WithLabelValues("completed").Inc()
	}
}

func (w *Worker) fail(ctx context.Context, entry LogEntry, message string) {
	logger.WarnCtx(ctx, "document migration failed",
		"content_id", entry.SourceDocumentID,
		"retry_count", entry.RetryCount+1,
		"reason", message,
	)
	if err := w.store.MarkFailed(ctx, entry.ID, message); err != nil {
		logger.ErrorCtx(ctx, "failed to mark row failed",
			"content_id", entry.SourceDocumentID, logger.Err(err))
		return
	}
	w.failed.Add(1)
	w.metrics.MigrationDocsTotal.WithLabelValues("failed").Inc()
}

// targetFilename builds the object key for one legacy document. The
// content id prefix keeps keys unique even when legacy filenames collide.
func targetFilename(entry LogEntry) string {
	base := entry.OriginalFilename
	if base == "" {
		base = strconv.FormatInt(entry.SourceDocumentID, 10)
	}
	if ext := strings.TrimPrefix(entry.OriginalExtension, "."); ext != "" {
		suffix := "." + strings.ToLower(ext)
		if !strings.HasSuffix(strings.ToLower(base), suffix) {
			base += suffix
		}
	}
	return fmt.Sprintf("%d/%s", entry.SourceDocumentID, base)
}
