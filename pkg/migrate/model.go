// Package migrate implements the bulk migration pipeline: a crash-safe,
// resumable worker that copies legacy records into the storage engine over
// HTTP, tracking every record's lifecycle in a persistent log.
package migrate

import (
	"time"
	"unicode/utf8"
)

// Status is the lifecycle state of one migration log row.
type Status string

const (
	StatusSeeded     Status = "Seeded"
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
	StatusSkipped    Status = "Skipped"
)

// maxErrorMessage caps the stored error message length.
const maxErrorMessage = 2000

// LogEntry is one row of the migration log. A row is created at Seeded,
// enriched to Pending (or terminated as Skipped), and then driven through
// InProgress to a terminal state by the worker. Failed rows with
// retry_count below the limit are rescued on the next pass.
type LogEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	SourceDocumentID int64 `gorm:"column:source_document_id;not null;uniqueIndex:ux_migration_log_source,priority:2"`
	SourceYear       int   `gorm:"column:source_year;not null;uniqueIndex:ux_migration_log_source,priority:1"`

	OriginalFilename   string     `gorm:"column:original_filename"`
	OriginalExtension  string     `gorm:"column:original_extension"`
	ClaimedContentType string     `gorm:"column:claimed_content_type"`
	SourceFileSize     *int64     `gorm:"column:source_file_size"`
	SourceRecordDate   *time.Time `gorm:"column:source_record_date"`

	Status Status `gorm:"column:status;size:16;not null;index:ix_migration_log_status"`

	TargetDocID         string `gorm:"column:target_doc_id"`
	TargetBucket        string `gorm:"column:target_bucket"`
	TargetFilename      string `gorm:"column:target_filename"`
	TargetSHA256        string `gorm:"column:target_sha256"`
	DetectedContentType string `gorm:"column:detected_content_type"`

	ErrorMessage string  `gorm:"column:error_message;size:2000"`
	RetryCount   int     `gorm:"column:retry_count;not null"`
	WorkerToken  *string `gorm:"column:worker_token;index:ix_migration_log_worker_token"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
}

// TableName returns the table name for LogEntry.
func (LogEntry) TableName() string {
	return "migration_log"
}

// Outcome carries the target-side fields recorded on completion.
type Outcome struct {
	TargetDocID         string
	TargetBucket        string
	TargetFilename      string
	TargetSHA256        string
	DetectedContentType string
}

// DocumentMeta is the legacy metadata attached to a row during enrichment.
type DocumentMeta struct {
	Filename    string
	Extension   string
	ContentType string
	FileSize    int64
	RecordDate  time.Time
}

// truncateMessage cuts a message down to the persisted limit, backing up
// to a rune boundary so the stored text stays valid UTF-8.
func truncateMessage(s string) string {
	if len(s) <= maxErrorMessage {
		return s
	}
	cut := maxErrorMessage
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
