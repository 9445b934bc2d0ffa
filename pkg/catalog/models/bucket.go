// Package models defines the catalog's persisted types and domain errors.
package models

import "time"

// Bucket is a named top-level container for objects. The name is the
// primary key and follows S3-style naming rules (validated before insert).
type Bucket struct {
	Name      string    `gorm:"primaryKey;size:63" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Bucket.
func (Bucket) TableName() string {
	return "buckets"
}

// BucketStats carries the aggregate counters shown on bucket reads.
type BucketStats struct {
	ObjectCount    int64 `json:"object_count"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}
