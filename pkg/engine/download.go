package engine

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/blobpath"
	"github.com/dochive/dochive/pkg/catalog/models"
)

// blobPathFor derives the on-disk location of a catalog row.
func (e *Engine) blobPathFor(row *models.Object) (string, error) {
	dir, err := blobpath.Dir(e.cfg.RootPath, row.DocID)
	if err != nil {
		return "", err
	}
	return blobpath.BlobPath(dir, row.DetectedExtension), nil
}

// lookup fetches the row for a docID, optionally pinned to a bucket.
// An empty bucket means cross-bucket access.
func (e *Engine) lookup(ctx context.Context, bucket, docID string) (*models.Object, error) {
	row, err := e.store.GetObjectByDocID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if bucket != "" && row.Bucket != bucket {
		return nil, models.ErrObjectNotFound
	}
	return row, nil
}

// open returns a read stream for the row's blob, mapping a missing file
// to ErrStorage so the HTTP layer can distinguish it from a missing row.
func (e *Engine) open(ctx context.Context, row *models.Object) (io.ReadSeekCloser, error) {
	path, err := e.blobPathFor(row)
	if err != nil {
		return nil, err
	}

	ok, err := e.fs.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		logger.ErrorCtx(ctx, "catalog row has no blob on disk",
			logger.DocID(row.DocID), logger.Path(path))
		e.metrics.DownloadsTotal.WithLabelValues("missing_blob").Inc()
		return nil, fmt.Errorf("%w: blob file missing at %s", ErrStorage, path)
	}

	stream, err := e.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return stream, nil
}

// DownloadByID opens the blob identified by docID. An empty bucket allows
// cross-bucket access.
func (e *Engine) DownloadByID(ctx context.Context, bucket, docID string) (io.ReadSeekCloser, *ObjectInfo, error) {
	row, err := e.lookup(ctx, bucket, docID)
	if err != nil {
		e.metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
		return nil, nil, err
	}
	stream, err := e.open(ctx, row)
	if err != nil {
		return nil, nil, err
	}
	e.metrics.DownloadsTotal.WithLabelValues("served").Inc()
	e.metrics.DownloadBytesTotal.Add(float64(row.SizeBytes))
	return stream, infoFromRow(row), nil
}

// DownloadByName opens the blob stored under (bucket, filename).
func (e *Engine) DownloadByName(ctx context.Context, bucket, filename string) (io.ReadSeekCloser, *ObjectInfo, error) {
	row, err := e.store.GetObjectByName(ctx, bucket, filename)
	if err != nil {
		e.metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
		return nil, nil, err
	}
	stream, err := e.open(ctx, row)
	if err != nil {
		return nil, nil, err
	}
	e.metrics.DownloadsTotal.WithLabelValues("served").Inc()
	e.metrics.DownloadBytesTotal.Add(float64(row.SizeBytes))
	return stream, infoFromRow(row), nil
}

// HeadByID returns the metadata and verifies the blob is present, without
// opening it.
func (e *Engine) HeadByID(ctx context.Context, bucket, docID string) (*ObjectInfo, error) {
	row, err := e.lookup(ctx, bucket, docID)
	if err != nil {
		return nil, err
	}
	return e.head(ctx, row)
}

// HeadByName is HeadByID for (bucket, filename) addressing.
func (e *Engine) HeadByName(ctx context.Context, bucket, filename string) (*ObjectInfo, error) {
	row, err := e.store.GetObjectByName(ctx, bucket, filename)
	if err != nil {
		return nil, err
	}
	return e.head(ctx, row)
}

func (e *Engine) head(ctx context.Context, row *models.Object) (*ObjectInfo, error) {
	path, err := e.blobPathFor(row)
	if err != nil {
		return nil, err
	}
	ok, err := e.fs.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		logger.ErrorCtx(ctx, "catalog row has no blob on disk",
			logger.DocID(row.DocID), logger.Path(path))
		return nil, fmt.Errorf("%w: blob file missing at %s", ErrStorage, path)
	}
	return infoFromRow(row), nil
}

// ListObjects returns one page of a bucket's objects. pageSize is clamped
// to [1, 1000] and page to >= 1.
func (e *Engine) ListObjects(ctx context.Context, bucket string, page, pageSize int, prefix string) ([]*ObjectInfo, int64, error) {
	if _, err := e.store.GetBucket(ctx, bucket); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 1000 {
		pageSize = 1000
	}

	rows, total, err := e.store.ListObjects(ctx, bucket, page, pageSize, prefix)
	if err != nil {
		return nil, 0, err
	}

	infos := make([]*ObjectInfo, len(rows))
	for i, row := range rows {
		infos[i] = infoFromRow(row)
	}
	return infos, total, nil
}

// DispositionFor decides the Content-Disposition header for an object:
// attachment when the upload was a dangerous mismatch, inline when the
// served type is allow-listed, attachment otherwise. The filename is
// carried in both the quoted ASCII fallback and the RFC 5987 form.
func (e *Engine) DispositionFor(info *ObjectInfo) string {
	kind := "attachment"
	if !info.IsDangerousMismatch && e.inlineTypes != nil {
		if _, ok := e.inlineTypes[strings.ToLower(info.ServedContentType)]; ok {
			kind = "inline"
		}
	}

	name := info.Filename
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}

	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`,
		kind, asciiFallback(name), url.PathEscape(name))
}

// asciiFallback strips a filename down to the characters safe inside a
// quoted-string disposition parameter.
func asciiFallback(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('_')
		case r > 0x20 && r < 0x7F:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
