// Package mime identifies the content type of an upload from its first
// chunk, its filename, and the type the client claimed. Detection layers
// run in a fixed order (magic bytes, container refinement, claimed type,
// extension, text heuristic, fallback) and the result records which layer
// produced the answer.
package mime

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"path/filepath"
	"strings"
)

// Method identifies which detection layer produced the result.
type Method string

const (
	MethodMagic     Method = "magic"
	MethodExtension Method = "extension"
	MethodHeader    Method = "header"
	MethodHeuristic Method = "heuristic"
	MethodFallback  Method = "fallback"
)

// Result is the outcome of content identification.
type Result struct {
	ContentType         string
	Extension           string
	Method              Method
	IsMismatch          bool
	IsDangerousMismatch bool
}

// Identifier detects content types. It is stateless and safe for
// concurrent use.
type Identifier struct{}

// NewIdentifier creates an Identifier.
func NewIdentifier() *Identifier {
	return &Identifier{}
}

// textThreshold is the fraction of printable bytes above which a chunk is
// considered plain text.
const textThreshold = 0.85

// minZipRefineLen is the smallest chunk worth inspecting for OOXML content:
// the fixed part of a ZIP local file header is 30 bytes.
const minZipRefineLen = 30

// Identify resolves the content type of the given first chunk.
// filename and claimedType are optional and may be empty.
func (id *Identifier) Identify(chunk []byte, filename, claimedType string) Result {
	r := id.detect(chunk, filename, claimedType)

	claimed := normalizeMediaType(claimedType)
	if claimed != "" && !strings.EqualFold(claimed, r.ContentType) {
		r.IsMismatch = true
		if dangerousTypes[strings.ToLower(r.ContentType)] {
			r.IsDangerousMismatch = true
		}
	}

	return r
}

// IsDangerous reports whether a content type belongs to the dangerous set.
func IsDangerous(contentType string) bool {
	return dangerousTypes[strings.ToLower(normalizeMediaType(contentType))]
}

func (id *Identifier) detect(chunk []byte, filename, claimedType string) Result {
	// 1. Magic bytes, longest signatures first.
	if sig, ok := matchMagic(chunk); ok {
		mimeType, ext := sig.mime, sig.ext

		switch mimeType {
		case mimeZip:
			// 2. OOXML documents are ZIP containers; peek inside.
			if kind, ok := refineZip(chunk); ok {
				mimeType, ext = kind.mime, kind.ext
			}
		case mimeOLE:
			// 3. Legacy Office files share one OLE2 signature; the
			// filename extension disambiguates.
			if kind, ok := ole2Types[strings.ToLower(filepath.Ext(filename))]; ok {
				mimeType, ext = kind.mime, kind.ext
			}
		}

		return Result{ContentType: mimeType, Extension: ext, Method: MethodMagic}
	}

	// 4. RIFF containers carry the real format at offset 8.
	if mimeType, ext, ok := detectRIFF(chunk); ok {
		return Result{ContentType: mimeType, Extension: ext, Method: MethodMagic}
	}

	// 5. A known claimed type is trusted when the bytes say nothing.
	if claimed := normalizeMediaType(claimedType); claimed != "" {
		if ext, ok := mimeToExtension[claimed]; ok {
			return Result{ContentType: claimed, Extension: ext, Method: MethodHeader}
		}
	}

	// 6. Filename extension.
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")); ext != "" {
		if mimeType, ok := extensionTable[ext]; ok {
			return Result{ContentType: mimeType, Extension: ext, Method: MethodExtension}
		}
	}

	// 7. Text heuristic.
	if looksLikeText(chunk) {
		return Result{ContentType: mimeTextPlain, Extension: extTextPlain, Method: MethodHeuristic}
	}

	// 8. Fallback.
	return Result{ContentType: mimeOctet, Extension: extFallback, Method: MethodFallback}
}

func matchMagic(chunk []byte) (signature, bool) {
	for _, sig := range magicTable {
		if len(chunk) >= len(sig.prefix) && bytes.Equal(chunk[:len(sig.prefix)], sig.prefix) {
			return sig, true
		}
	}
	return signature{}, false
}

// refineZip inspects a ZIP chunk for OOXML structure. It first tries the
// central directory (complete archives within the chunk), then falls back
// to the first local file header for truncated chunks. All parse errors
// leave the result as plain ZIP.
func refineZip(chunk []byte) (signature, bool) {
	if len(chunk) < minZipRefineLen {
		return signature{}, false
	}

	if zr, err := zip.NewReader(bytes.NewReader(chunk), int64(len(chunk))); err == nil {
		for _, f := range zr.File {
			for prefix, kind := range ooxmlTypes {
				if strings.HasPrefix(f.Name, prefix) {
					return kind, true
				}
			}
		}
		return signature{}, false
	}

	// Truncated archive: the first local header still names its entry.
	// Layout: name length at offset 26 (LE16), name at offset 30.
	nameLen := int(binary.LittleEndian.Uint16(chunk[26:28]))
	if nameLen == 0 || 30+nameLen > len(chunk) {
		return signature{}, false
	}
	name := string(chunk[30 : 30+nameLen])
	for prefix, kind := range ooxmlTypes {
		if strings.HasPrefix(name, prefix) {
			return kind, true
		}
	}
	return signature{}, false
}

// detectRIFF identifies RIFF containers (WebP, WAV, AVI) by the format tag
// at bytes 8-11.
func detectRIFF(chunk []byte) (string, string, bool) {
	if len(chunk) < 12 || !bytes.Equal(chunk[0:4], []byte("RIFF")) {
		return "", "", false
	}

	switch string(chunk[8:12]) {
	case "WEBP":
		return "image/webp", "webp", true
	case "WAVE":
		return "audio/wav", "wav", true
	case "AVI ":
		return "video/x-msvideo", "avi", true
	}
	return "", "", false
}

// looksLikeText reports whether at least 85% of the chunk is printable
// ASCII or common whitespace. Empty chunks are not text.
func looksLikeText(chunk []byte) bool {
	if len(chunk) == 0 {
		return false
	}

	printable := 0
	for _, b := range chunk {
		if (b >= 0x20 && b < 0x7F) || b == '\t' || b == '\n' || b == '\r' {
			printable++
		}
	}
	return float64(printable)/float64(len(chunk)) >= textThreshold
}

// normalizeMediaType lowercases a content type and strips any parameters
// ("text/plain; charset=utf-8" becomes "text/plain").
func normalizeMediaType(ct string) string {
	ct = strings.TrimSpace(ct)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
