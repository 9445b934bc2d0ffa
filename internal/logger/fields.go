package logger

import "log/slog"

// Standard field keys. Use these consistently so log aggregation can
// query on them across the engine and the migrator.
const (
	// Request handling
	KeyRequestID = "request_id" // HTTP request identifier
	KeyMethod    = "method"     // HTTP method
	KeyStatus    = "status"     // HTTP status code

	// Object addressing
	KeyBucket   = "bucket"   // bucket name
	KeyKey      = "key"      // object key (original filename)
	KeyDocID    = "doc_id"   // document identifier "{yyyy}-{uuid}"
	KeyYear     = "year"     // partition year
	KeyPath     = "path"     // filesystem path
	KeySize     = "size"     // size in bytes
	KeySHA256   = "sha256"   // hex digest
	KeyMimeType = "mime"     // detected content type
	KeyMimeFrom = "detected" // detection method

	// Migration
	KeyWorker     = "worker"      // worker token (shard key)
	KeySourceID   = "source_id"   // legacy ContentId
	KeySourceYear = "source_year" // legacy year
	KeyAttempt    = "attempt"     // retry attempt number

	// Operation metadata
	KeyError      = "error"
	KeyDurationMs = "duration_ms"
)

// Err returns a slog.Attr for an error, or an empty attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Bucket returns a slog.Attr for a bucket name.
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// DocID returns a slog.Attr for a document identifier.
func DocID(id string) slog.Attr {
	return slog.String(KeyDocID, id)
}

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Size returns a slog.Attr for a byte count.
func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}
