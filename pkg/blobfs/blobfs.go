// Package blobfs wraps the local-filesystem operations the storage engine
// needs: directory creation, temp-file staging, atomic rename, and
// best-effort cleanup. Keeping them behind one type makes the engine
// testable against a temp directory and keeps path/error context in one
// place.
package blobfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FS performs blob file operations relative to nothing; all paths are
// absolute, already derived by the caller from the blobpath layout.
type FS struct{}

// New creates a blob filesystem.
func New() *FS {
	return &FS{}
}

// MkdirAll creates dir and any missing parents. Two concurrent writers
// creating the same deep path both succeed.
func (f *FS) MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// CreateTemp opens the transient upload file at path for writing,
// truncating any stale leftover from a crashed upload.
func (f *FS) CreateTemp(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create temp file %s: %w", path, err)
	}
	return file, nil
}

// Rename atomically moves the finished temp file to its final path.
func (f *FS) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename %s to %s: %w", oldPath, newPath, err)
	}
	return nil
}

// Remove deletes a file. A missing file is not an error.
func (f *FS) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// RemoveDirIfEmpty removes dir when it holds no entries. A non-empty or
// missing directory is left alone without error.
func (f *FS) RemoveDirIfEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read directory %s: %w", dir, err)
	}
	if len(entries) > 0 {
		return nil
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove directory %s: %w", dir, err)
	}
	return nil
}

// Open opens a blob for reading. The caller owns the returned handle.
func (f *FS) Open(path string) (io.ReadSeekCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return file, nil
}

// Exists reports whether a file is present at path.
func (f *FS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// Size returns the size of the file at path.
func (f *FS) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
