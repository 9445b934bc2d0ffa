package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dochive/dochive/pkg/naming"
)

// BucketInfo is the metadata view of a bucket including its aggregates.
type BucketInfo struct {
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
	ObjectCount    int64     `json:"objectCount"`
	TotalSizeBytes int64     `json:"totalSizeBytes"`
}

// CreateBucket validates the name and inserts the bucket. A fresh bucket
// reports zero counts.
func (e *Engine) CreateBucket(ctx context.Context, name string) (*BucketInfo, error) {
	if err := naming.ValidateBucketName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBucketName, err)
	}

	bucket, err := e.store.CreateBucket(ctx, name)
	if err != nil {
		return nil, err
	}
	return &BucketInfo{Name: bucket.Name, CreatedAt: bucket.CreatedAt}, nil
}

// EnsureBucket creates the bucket when missing and returns it either way.
func (e *Engine) EnsureBucket(ctx context.Context, name string) (*BucketInfo, error) {
	if err := naming.ValidateBucketName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBucketName, err)
	}

	bucket, err := e.store.EnsureBucket(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.GetBucket(ctx, bucket.Name)
}

// GetBucket fetches a bucket with its object count and total size.
func (e *Engine) GetBucket(ctx context.Context, name string) (*BucketInfo, error) {
	bucket, err := e.store.GetBucket(ctx, name)
	if err != nil {
		return nil, err
	}
	stats, err := e.store.BucketStats(ctx, name)
	if err != nil {
		return nil, err
	}
	return &BucketInfo{
		Name:           bucket.Name,
		CreatedAt:      bucket.CreatedAt,
		ObjectCount:    stats.ObjectCount,
		TotalSizeBytes: stats.TotalSizeBytes,
	}, nil
}

// ListBuckets returns every bucket with aggregates, ordered by name.
func (e *Engine) ListBuckets(ctx context.Context) ([]*BucketInfo, error) {
	buckets, err := e.store.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]*BucketInfo, 0, len(buckets))
	for _, b := range buckets {
		stats, err := e.store.BucketStats(ctx, b.Name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, &BucketInfo{
			Name:           b.Name,
			CreatedAt:      b.CreatedAt,
			ObjectCount:    stats.ObjectCount,
			TotalSizeBytes: stats.TotalSizeBytes,
		})
	}
	return infos, nil
}

// DeleteBucket removes an empty bucket.
func (e *Engine) DeleteBucket(ctx context.Context, name string) error {
	return e.store.DeleteBucket(ctx, name)
}
