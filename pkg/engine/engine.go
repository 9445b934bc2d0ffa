// Package engine orchestrates the storage pipeline: streaming uploads
// hashed and MIME-identified on the fly, atomic placement on the
// partitioned directory tree, catalog commits, and disposition-aware
// downloads. Collaborators (catalog, filesystem, identifier, metrics) are
// injected at construction.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/dochive/dochive/internal/bytesize"
	"github.com/dochive/dochive/pkg/blobfs"
	"github.com/dochive/dochive/pkg/catalog"
	"github.com/dochive/dochive/pkg/catalog/models"
	"github.com/dochive/dochive/pkg/metrics"
	"github.com/dochive/dochive/pkg/mime"
)

// fallbackExtension is used when detection yields no extension or the
// detected one is not allow-listed.
const fallbackExtension = "bin"

// Config holds the storage engine settings.
type Config struct {
	// RootPath is the directory the partitioned blob tree lives under.
	RootPath string `mapstructure:"root_path" validate:"required" yaml:"root_path"`

	// MaxUploadBytes caps the payload size of one upload.
	MaxUploadBytes bytesize.ByteSize `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`

	// UploadBufferSize is the copy buffer used while streaming to disk.
	UploadBufferSize bytesize.ByteSize `mapstructure:"upload_buffer_size" yaml:"upload_buffer_size"`

	// FirstChunkSize is how many leading bytes are buffered for MIME
	// identification before the streaming copy starts.
	FirstChunkSize bytesize.ByteSize `mapstructure:"first_chunk_size" yaml:"first_chunk_size"`

	// AllowedExtensions lists blob file extensions that may appear on
	// disk. Empty means any. Unlisted detections are stored as "bin".
	AllowedExtensions []string `mapstructure:"allowed_extensions" yaml:"allowed_extensions"`

	// InlineContentTypes lists served content types that may render
	// inline in a browser; everything else downloads as attachment.
	InlineContentTypes []string `mapstructure:"inline_content_types" yaml:"inline_content_types"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = bytesize.GiB
	}
	if c.UploadBufferSize == 0 {
		c.UploadBufferSize = 64 * bytesize.KiB
	}
	if c.FirstChunkSize == 0 {
		c.FirstChunkSize = 64 * bytesize.KiB
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.RootPath == "" {
		return fmt.Errorf("root path is required")
	}
	if c.MaxUploadBytes == 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	return nil
}

// Engine is the storage engine. Safe for concurrent use; each request is
// executed sequentially from first byte to commit.
type Engine struct {
	cfg        Config
	store      *catalog.Store
	fs         *blobfs.FS
	identifier *mime.Identifier
	metrics    *metrics.Metrics

	allowedExt  map[string]struct{}
	inlineTypes map[string]struct{}
}

// New creates a storage engine with its collaborators bound.
func New(cfg Config, store *catalog.Store, fs *blobfs.FS, identifier *mime.Identifier, m *metrics.Metrics) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		store:      store,
		fs:         fs,
		identifier: identifier,
		metrics:    m,
	}

	if len(cfg.AllowedExtensions) > 0 {
		e.allowedExt = make(map[string]struct{}, len(cfg.AllowedExtensions))
		for _, ext := range cfg.AllowedExtensions {
			e.allowedExt[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
		}
	}
	if len(cfg.InlineContentTypes) > 0 {
		e.inlineTypes = make(map[string]struct{}, len(cfg.InlineContentTypes))
		for _, ct := range cfg.InlineContentTypes {
			e.inlineTypes[strings.ToLower(ct)] = struct{}{}
		}
	}

	return e, nil
}

// extensionAllowed reports whether ext may be used for the on-disk blob
// name. The fallback extension is always allowed.
func (e *Engine) extensionAllowed(ext string) bool {
	if ext == fallbackExtension || e.allowedExt == nil {
		return true
	}
	_, ok := e.allowedExt[strings.ToLower(ext)]
	return ok
}

// ObjectInfo is the metadata view of a stored object returned by the
// engine and serialized by the HTTP surface.
type ObjectInfo struct {
	DocID               string    `json:"docId"`
	Bucket              string    `json:"bucket"`
	Filename            string    `json:"filename"`
	SizeBytes           int64     `json:"sizeBytes"`
	SHA256              string    `json:"sha256"`
	ServedContentType   string    `json:"servedContentType"`
	DetectedContentType string    `json:"detectedContentType"`
	ClaimedContentType  string    `json:"claimedContentType,omitempty"`
	DetectedExtension   string    `json:"detectedExtension,omitempty"`
	DetectionMethod     string    `json:"detectionMethod"`
	IsMismatch          bool      `json:"isMismatch"`
	IsDangerousMismatch bool      `json:"isDangerousMismatch"`
	CreatedAt           time.Time `json:"createdAt"`
	DownloadURL         string    `json:"downloadUrl"`
	DownloadByNameURL   string    `json:"downloadByNameUrl"`
}

// infoFromRow converts a catalog row into the response shape, including
// the two canonical download URLs.
func infoFromRow(o *models.Object) *ObjectInfo {
	return &ObjectInfo{
		DocID:               o.DocID,
		Bucket:              o.Bucket,
		Filename:            o.Filename,
		SizeBytes:           o.SizeBytes,
		SHA256:              fmt.Sprintf("%x", o.SHA256),
		ServedContentType:   o.ServedContentType,
		DetectedContentType: o.DetectedContentType,
		ClaimedContentType:  o.ClaimedContentType,
		DetectedExtension:   o.DetectedExtension,
		DetectionMethod:     o.DetectionMethod,
		IsMismatch:          o.IsMismatch,
		IsDangerousMismatch: o.IsDangerousMismatch,
		CreatedAt:           o.CreatedAt,
		DownloadURL:         fmt.Sprintf("/api/buckets/%s/objects/%s", o.Bucket, o.DocID),
		DownloadByNameURL:   fmt.Sprintf("/api/buckets/%s/objects/by-name/%s", o.Bucket, o.Filename),
	}
}
