package models

import "time"

// Object is the catalog row for one stored blob. A row exists iff the blob
// file exists at the path derived from (Year, DocID, DetectedExtension);
// rows are immutable except for deletion.
type Object struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Bucket   string `gorm:"size:63;not null;uniqueIndex:ux_objects_bucket_filename,priority:1;index:ix_objects_bucket" json:"bucket"`
	Filename string `gorm:"size:1024;not null;uniqueIndex:ux_objects_bucket_filename,priority:2" json:"filename"`
	DocID    string `gorm:"column:doc_id;size:41;not null;uniqueIndex:ux_objects_doc_id" json:"doc_id"`
	Year     int    `gorm:"not null" json:"year"`

	SizeBytes int64  `gorm:"not null" json:"size_bytes"`
	SHA256    []byte `gorm:"column:sha256;type:bytes;not null" json:"-"`

	ServedContentType   string `gorm:"size:255;not null" json:"served_content_type"`
	DetectedContentType string `gorm:"size:255;not null" json:"detected_content_type"`
	ClaimedContentType  string `gorm:"size:255" json:"claimed_content_type,omitempty"`
	DetectedExtension   string `gorm:"size:32" json:"detected_extension,omitempty"`
	DetectionMethod     string `gorm:"size:16;not null" json:"detection_method"`

	IsMismatch          bool `gorm:"not null" json:"is_mismatch"`
	IsDangerousMismatch bool `gorm:"not null" json:"is_dangerous_mismatch"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Owner enforces the foreign key; the engine never navigates it.
	Owner *Bucket `gorm:"foreignKey:Bucket;references:Name;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName returns the table name for Object.
func (Object) TableName() string {
	return "objects"
}

// AllModels returns every catalog model for AutoMigrate.
func AllModels() []any {
	return []any{&Bucket{}, &Object{}}
}
