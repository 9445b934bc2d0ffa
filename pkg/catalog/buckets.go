package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/dochive/dochive/pkg/catalog/models"
)

// ============================================
// BUCKET OPERATIONS
// ============================================

// CreateBucket inserts a new bucket. Returns models.ErrDuplicateBucket when
// the name is already taken.
func (s *Store) CreateBucket(ctx context.Context, name string) (*models.Bucket, error) {
	bucket := &models.Bucket{Name: name}
	if err := s.db.WithContext(ctx).Create(bucket).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.ErrDuplicateBucket
		}
		return nil, err
	}
	return bucket, nil
}

// EnsureBucket creates the bucket if missing and returns the existing row
// otherwise. Safe to call concurrently.
func (s *Store) EnsureBucket(ctx context.Context, name string) (*models.Bucket, error) {
	bucket, err := s.CreateBucket(ctx, name)
	if err == nil {
		return bucket, nil
	}
	if err != models.ErrDuplicateBucket {
		return nil, err
	}
	return s.GetBucket(ctx, name)
}

// GetBucket fetches a bucket by name.
func (s *Store) GetBucket(ctx context.Context, name string) (*models.Bucket, error) {
	var bucket models.Bucket
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&bucket).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrBucketNotFound)
	}
	return &bucket, nil
}

// ListBuckets returns all buckets ordered by name.
func (s *Store) ListBuckets(ctx context.Context) ([]*models.Bucket, error) {
	var buckets []*models.Bucket
	if err := s.db.WithContext(ctx).Order("name").Find(&buckets).Error; err != nil {
		return nil, err
	}
	return buckets, nil
}

// DeleteBucket removes an empty bucket. Returns models.ErrBucketNotEmpty
// when objects still reference it and models.ErrBucketNotFound when it does
// not exist.
func (s *Store) DeleteBucket(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bucket models.Bucket
		if err := tx.Where("name = ?", name).First(&bucket).Error; err != nil {
			return convertNotFoundError(err, models.ErrBucketNotFound)
		}

		var count int64
		if err := tx.Model(&models.Object{}).Where("bucket = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return models.ErrBucketNotEmpty
		}

		return tx.Delete(&bucket).Error
	})
}

// BucketStats returns the object count and total payload bytes for a bucket.
func (s *Store) BucketStats(ctx context.Context, name string) (*models.BucketStats, error) {
	if _, err := s.GetBucket(ctx, name); err != nil {
		return nil, err
	}

	var stats models.BucketStats
	err := s.db.WithContext(ctx).
		Model(&models.Object{}).
		Select("COUNT(*) AS object_count, COALESCE(SUM(size_bytes), 0) AS total_size_bytes").
		Where("bucket = ?", name).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
