package naming

import (
	"fmt"
	"net/url"
	"strings"
)

// maxKeyBytes is the maximum UTF-8 encoded length of an object key.
const maxKeyBytes = 1024

// ValidateObjectKey checks an object key (the original filename) against the
// naming rules. Keys may contain forward slashes to form logical paths but
// never begin or end with one.
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key must not be empty")
	}
	if len(key) > maxKeyBytes {
		return fmt.Errorf("object key must not exceed %d bytes", maxKeyBytes)
	}

	for _, c := range key {
		if c <= 0x1F || c == 0x7F {
			return fmt.Errorf("object key must not contain control characters")
		}
		if c == '\\' {
			return fmt.Errorf("object key must not contain backslashes")
		}
		if !isKeyChar(c) {
			return fmt.Errorf("object key may only contain letters, digits, and . _ - /")
		}
	}

	if strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("object key must not begin or end with a slash")
	}
	if strings.Contains(key, "//") {
		return fmt.Errorf("object key must not contain consecutive slashes")
	}

	return nil
}

// NormalizeObjectKey percent-decodes a raw key exactly once. The result still
// has to pass ValidateObjectKey; normalization never validates by itself.
func NormalizeObjectKey(raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("object key has invalid percent-encoding: %w", err)
	}
	return decoded, nil
}

func isKeyChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '_' || c == '-' || c == '/':
		return true
	}
	return false
}
