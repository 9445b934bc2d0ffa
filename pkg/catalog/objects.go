package catalog

import (
	"context"

	"github.com/dochive/dochive/pkg/catalog/models"
)

// ============================================
// OBJECT OPERATIONS
// ============================================

// InsertObject persists a new object row. A unique violation on either the
// (bucket, filename) pair or the document ID maps to
// models.ErrDuplicateObject so the caller can clean up its blob.
func (s *Store) InsertObject(ctx context.Context, object *models.Object) error {
	if err := s.db.WithContext(ctx).Create(object).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicateObject
		}
		return err
	}
	return nil
}

// GetObjectByDocID fetches an object by its document ID, in any bucket.
func (s *Store) GetObjectByDocID(ctx context.Context, docID string) (*models.Object, error) {
	var object models.Object
	err := s.db.WithContext(ctx).Where("doc_id = ?", docID).First(&object).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrObjectNotFound)
	}
	return &object, nil
}

// GetObjectByName fetches an object by bucket and filename.
func (s *Store) GetObjectByName(ctx context.Context, bucket, filename string) (*models.Object, error) {
	var object models.Object
	err := s.db.WithContext(ctx).
		Where("bucket = ? AND filename = ?", bucket, filename).
		First(&object).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrObjectNotFound)
	}
	return &object, nil
}

// ObjectExists reports whether a (bucket, filename) pair is already taken.
func (s *Store) ObjectExists(ctx context.Context, bucket, filename string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Object{}).
		Where("bucket = ? AND filename = ?", bucket, filename).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListObjects returns one page of a bucket's objects ordered by filename,
// optionally restricted to a filename prefix, along with the total match
// count. Pages are 1-based.
func (s *Store) ListObjects(ctx context.Context, bucket string, page, pageSize int, prefix string) ([]*models.Object, int64, error) {
	if page < 1 {
		page = 1
	}

	query := s.db.WithContext(ctx).Model(&models.Object{}).Where("bucket = ?", bucket)
	if prefix != "" {
		query = query.Where("filename LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var objects []*models.Object
	err := query.
		Order("filename").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&objects).Error
	if err != nil {
		return nil, 0, err
	}
	return objects, total, nil
}

// DeleteObject removes an object row by ID. Returns models.ErrObjectNotFound
// when no row was deleted.
func (s *Store) DeleteObject(ctx context.Context, id uint64) error {
	result := s.db.WithContext(ctx).Delete(&models.Object{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrObjectNotFound
	}
	return nil
}

// escapeLike escapes the LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
