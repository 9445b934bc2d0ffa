// Package blobpath generates document identifiers and maps them onto the
// partitioned on-disk layout:
//
//	{root}/{yyyy}/{b1}/{b2}/{docID}/blob.{ext}
//
// b1 and b2 are the first two hex pairs of the identifier's UUID with
// hyphens removed, which fans a year's objects out over 65536 directories.
package blobpath

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocIDLength is the length of a document identifier: 4 year digits, one
// hyphen, and a canonical 36-character UUID.
const DocIDLength = 41

// TempName is the transient file name used while an upload is in flight.
const TempName = "blob.tmp"

// GenerateDocID returns a fresh identifier "{yyyy}-{uuid4}". A zero year
// means the current UTC year.
func GenerateDocID(year int) string {
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	return fmt.Sprintf("%04d-%s", year, uuid.New().String())
}

// ExtractYear parses the year prefix of a document identifier. It rejects
// identifiers that are not "{yyyy}-{uuid}" shaped.
func ExtractYear(docID string) (int, error) {
	if len(docID) != DocIDLength || docID[4] != '-' {
		return 0, fmt.Errorf("malformed doc id %q", docID)
	}

	year, err := strconv.Atoi(docID[:4])
	if err != nil {
		return 0, fmt.Errorf("malformed doc id %q: year is not numeric", docID)
	}

	if _, err := uuid.Parse(docID[5:]); err != nil {
		return 0, fmt.Errorf("malformed doc id %q: %w", docID, err)
	}

	return year, nil
}

// Dir returns the directory holding the blob for docID under root.
func Dir(root, docID string) (string, error) {
	year, err := ExtractYear(docID)
	if err != nil {
		return "", err
	}

	hexed := strings.ToLower(strings.ReplaceAll(docID[5:], "-", ""))
	b1, b2 := hexed[0:2], hexed[2:4]

	return filepath.Join(root, fmt.Sprintf("%04d", year), b1, b2, docID), nil
}

// BlobPath returns the final blob file path inside dir. Any leading dot on
// ext is stripped so both "pdf" and ".pdf" produce "blob.pdf".
func BlobPath(dir, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return filepath.Join(dir, "blob."+ext)
}

// TempPath returns the transient upload path inside dir.
func TempPath(dir string) string {
	return filepath.Join(dir, TempName)
}
