package engine

import (
	"context"

	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/blobpath"
	"github.com/dochive/dochive/pkg/catalog/models"
)

// DeleteByID removes the object identified by docID. The catalog row goes
// first; blob and directory removal are best effort and never surface
// errors once the row is gone.
func (e *Engine) DeleteByID(ctx context.Context, bucket, docID string) error {
	row, err := e.lookup(ctx, bucket, docID)
	if err != nil {
		return err
	}
	return e.deleteRow(ctx, row)
}

// DeleteByName removes the object stored under (bucket, filename).
func (e *Engine) DeleteByName(ctx context.Context, bucket, filename string) error {
	row, err := e.store.GetObjectByName(ctx, bucket, filename)
	if err != nil {
		return err
	}
	return e.deleteRow(ctx, row)
}

func (e *Engine) deleteRow(ctx context.Context, row *models.Object) error {
	if err := e.store.DeleteObject(ctx, row.ID); err != nil {
		return err
	}

	dir, err := blobpath.Dir(e.cfg.RootPath, row.DocID)
	if err != nil {
		logger.WarnCtx(ctx, "blob cleanup skipped for malformed doc id",
			logger.DocID(row.DocID), logger.Err(err))
		return nil
	}
	path := blobpath.BlobPath(dir, row.DetectedExtension)

	if err := e.fs.Remove(path); err != nil {
		logger.WarnCtx(ctx, "blob removal failed after catalog delete",
			logger.DocID(row.DocID), logger.Path(path), logger.Err(err))
		return nil
	}
	if err := e.fs.RemoveDirIfEmpty(dir); err != nil {
		logger.WarnCtx(ctx, "blob directory removal failed",
			logger.DocID(row.DocID), logger.Path(dir), logger.Err(err))
	}

	logger.InfoCtx(ctx, "object deleted",
		logger.Bucket(row.Bucket), logger.DocID(row.DocID))
	return nil
}
