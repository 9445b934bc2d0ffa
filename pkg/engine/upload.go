package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/blobpath"
	"github.com/dochive/dochive/pkg/catalog/models"
	"github.com/dochive/dochive/pkg/hashing"
	"github.com/dochive/dochive/pkg/mime"
	"github.com/dochive/dochive/pkg/naming"
)

// UploadRequest describes one inbound object.
type UploadRequest struct {
	Bucket             string
	Filename           string
	Body               io.Reader
	ClaimedContentType string

	// Year overrides the partition year; zero means the current UTC year.
	Year int
}

// Upload streams the request body to disk while hashing and identifying
// it, then commits the catalog row. See the package documentation for the
// exact ordering guarantees.
func (e *Engine) Upload(ctx context.Context, req UploadRequest) (*ObjectInfo, error) {
	start := time.Now()
	info, err := e.upload(ctx, req)

	switch {
	case err == nil:
		e.metrics.UploadsTotal.WithLabelValues("stored").Inc()
		e.metrics.UploadBytesTotal.Add(float64(info.SizeBytes))
		e.metrics.UploadDuration.Observe(time.Since(start).Seconds())
	case errors.Is(err, models.ErrDuplicateObject):
		e.metrics.UploadsTotal.WithLabelValues("duplicate").Inc()
	case errors.Is(err, ErrFileTooLarge):
		e.metrics.UploadsTotal.WithLabelValues("too_large").Inc()
	default:
		e.metrics.UploadsTotal.WithLabelValues("error").Inc()
	}

	return info, err
}

func (e *Engine) upload(ctx context.Context, req UploadRequest) (*ObjectInfo, error) {
	if err := naming.ValidateBucketName(req.Bucket); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBucketName, err)
	}
	if err := naming.ValidateObjectKey(req.Filename); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilename, err)
	}

	if _, err := e.store.GetBucket(ctx, req.Bucket); err != nil {
		return nil, err
	}

	// Pre-check for a friendly 409. Two racing uploads can both pass;
	// the unique index settles the winner at insert time.
	taken, err := e.store.ObjectExists(ctx, req.Bucket, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("check object existence: %w", err)
	}
	if taken {
		return nil, models.ErrDuplicateObject
	}

	docID := blobpath.GenerateDocID(req.Year)
	year, err := blobpath.ExtractYear(docID)
	if err != nil {
		return nil, err
	}
	dir, err := blobpath.Dir(e.cfg.RootPath, docID)
	if err != nil {
		return nil, err
	}

	chunk := make([]byte, e.cfg.FirstChunkSize.Int64())
	n, err := io.ReadFull(req.Body, chunk)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read upload stream: %w", err)
	}
	chunk = chunk[:n]

	detected := e.identifier.Identify(chunk, req.Filename, req.ClaimedContentType)
	ext := e.resolveExtension(ctx, docID, detected)

	if detected.IsMismatch {
		severity := "benign"
		if detected.IsDangerousMismatch {
			severity = "dangerous"
		}
		e.metrics.MimeMismatchesTotal.WithLabelValues(severity).Inc()
	}

	if err := e.fs.MkdirAll(dir); err != nil {
		return nil, err
	}

	tempPath := blobpath.TempPath(dir)
	tmp, err := e.fs.CreateTemp(tempPath)
	if err != nil {
		_ = e.fs.RemoveDirIfEmpty(dir)
		return nil, err
	}

	// Any exit before the rename removes the temp file and, when it is
	// the only occupant, the freshly created directory.
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tmp.Close()
		_ = e.fs.Remove(tempPath)
		_ = e.fs.RemoveDirIfEmpty(dir)
	}()

	hasher := hashing.New()
	maxBytes := e.cfg.MaxUploadBytes.Int64()
	total := int64(len(chunk))
	if total > maxBytes {
		return nil, ErrFileTooLarge
	}
	if len(chunk) > 0 {
		if _, err := tmp.Write(chunk); err != nil {
			return nil, fmt.Errorf("write blob: %w", err)
		}
		hasher.Update(chunk)
	}

	buf := make([]byte, e.cfg.UploadBufferSize.Int64())
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, rerr := req.Body.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > maxBytes {
				return nil, ErrFileTooLarge
			}
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				return nil, fmt.Errorf("write blob: %w", werr)
			}
			hasher.Update(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("read upload stream after %d bytes: %w", total, rerr)
		}
	}

	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close blob: %w", err)
	}
	digest := hasher.Finalize()

	finalPath := blobpath.BlobPath(dir, ext)
	if err := e.fs.Rename(tempPath, finalPath); err != nil {
		return nil, err
	}
	committed = true

	row := &models.Object{
		Bucket:              req.Bucket,
		Filename:            req.Filename,
		DocID:               docID,
		Year:                year,
		SizeBytes:           total,
		SHA256:              digest,
		ServedContentType:   detected.ContentType,
		DetectedContentType: detected.ContentType,
		ClaimedContentType:  req.ClaimedContentType,
		DetectedExtension:   ext,
		DetectionMethod:     string(detected.Method),
		IsMismatch:          detected.IsMismatch,
		IsDangerousMismatch: detected.IsDangerousMismatch,
	}

	if err := e.store.InsertObject(ctx, row); err != nil {
		if errors.Is(err, models.ErrDuplicateObject) {
			// Lost the race on (bucket, filename) or doc id. The blob
			// is already renamed, so undo its placement.
			_ = e.fs.Remove(finalPath)
			_ = e.fs.RemoveDirIfEmpty(dir)
			return nil, err
		}
		logger.ErrorCtx(ctx, "catalog insert failed after rename, blob orphaned",
			logger.DocID(docID), logger.Path(finalPath), logger.Err(err))
		return nil, err
	}

	logger.InfoCtx(ctx, "object stored",
		logger.Bucket(req.Bucket),
		logger.DocID(docID),
		logger.Size(total),
		logger.KeyMimeType, detected.ContentType,
		logger.KeyMimeFrom, string(detected.Method))

	return infoFromRow(row), nil
}

// resolveExtension applies the allow-list downgrade to the detected
// extension. The downgrade is silent for compatibility except for a log
// line.
func (e *Engine) resolveExtension(ctx context.Context, docID string, detected mime.Result) string {
	ext := detected.Extension
	if ext == "" {
		return fallbackExtension
	}
	if !e.extensionAllowed(ext) {
		logger.WarnCtx(ctx, "detected extension not allow-listed, storing as bin",
			logger.DocID(docID), "extension", ext)
		return fallbackExtension
	}
	return ext
}
