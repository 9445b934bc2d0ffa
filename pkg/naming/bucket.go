// Package naming validates bucket names and object keys.
//
// Bucket names follow the S3 naming subset the catalog enforces; object
// keys are restricted to a conservative character set that is safe to
// round-trip through URLs and the on-disk layout.
package naming

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

const (
	minBucketLen = 3
	maxBucketLen = 63
)

// ipv4Pattern matches four dot-separated digit groups. Names matching it are
// rejected even when net.ParseIP would not accept them (e.g. "999.0.0.1"),
// mirroring S3's stricter rule.
var ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// ValidateBucketName checks a bucket name against the naming rules.
// The returned error names the first violated rule.
func ValidateBucketName(name string) error {
	if len(name) < minBucketLen || len(name) > maxBucketLen {
		return fmt.Errorf("bucket name must be between %d and %d characters", minBucketLen, maxBucketLen)
	}

	for _, c := range name {
		if !isBucketChar(c) {
			return fmt.Errorf("bucket name may only contain lowercase letters, digits, dots and hyphens")
		}
	}

	if !isAlnum(rune(name[0])) || !isAlnum(rune(name[len(name)-1])) {
		return fmt.Errorf("bucket name must begin and end with a letter or digit")
	}

	if strings.Contains(name, "..") {
		return fmt.Errorf("bucket name must not contain two adjacent dots")
	}

	if net.ParseIP(name) != nil || ipv4Pattern.MatchString(name) {
		return fmt.Errorf("bucket name must not be formatted as an IP address")
	}

	if strings.HasPrefix(name, "xn--") {
		return fmt.Errorf("bucket name must not start with the prefix xn--")
	}

	if strings.HasSuffix(name, "-s3alias") {
		return fmt.Errorf("bucket name must not end with the suffix -s3alias")
	}
	if strings.HasSuffix(name, "--ol-s3") {
		return fmt.Errorf("bucket name must not end with the suffix --ol-s3")
	}

	return nil
}

func isBucketChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '.' || c == '-'
}

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
