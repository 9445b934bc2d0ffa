package engine

import "errors"

// Engine-level errors. Catalog errors (not-found, duplicates) pass through
// from pkg/catalog/models; these cover validation and storage failures.
var (
	ErrInvalidBucketName = errors.New("invalid bucket name")
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrFileTooLarge      = errors.New("file exceeds maximum upload size")

	// ErrStorage marks a catalog row whose blob file is missing or
	// unreadable on disk.
	ErrStorage = errors.New("stored blob unavailable")
)
