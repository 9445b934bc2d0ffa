package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request- or document-scoped logging context. The *Ctx
// logging functions inject these fields automatically.
type LogContext struct {
	RequestID string    // HTTP request identifier
	Bucket    string    // bucket being operated on
	DocID     string    // document identifier once assigned
	Worker    string    // migration worker token
	Year      int       // partition year
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context carrying the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext stamped with the current time.
func NewLogContext(requestID string) *LogContext {
	return &LogContext{
		RequestID: requestID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithBucket returns a copy with the bucket set.
func (lc *LogContext) WithBucket(bucket string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Bucket = bucket
	}
	return c
}

// WithDocID returns a copy with the document identifier set.
func (lc *LogContext) WithDocID(docID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.DocID = docID
	}
	return c
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
