package blobpath

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerateDocID(t *testing.T) {
	t.Run("explicit year", func(t *testing.T) {
		id := GenerateDocID(2017)
		if len(id) != DocIDLength {
			t.Fatalf("expected length %d, got %d (%q)", DocIDLength, len(id), id)
		}
		if !strings.HasPrefix(id, "2017-") {
			t.Errorf("expected 2017- prefix, got %q", id)
		}

		year, err := ExtractYear(id)
		if err != nil {
			t.Fatalf("round trip failed: %v", err)
		}
		if year != 2017 {
			t.Errorf("expected year 2017, got %d", year)
		}
	})

	t.Run("zero year defaults to current UTC year", func(t *testing.T) {
		id := GenerateDocID(0)
		year, err := ExtractYear(id)
		if err != nil {
			t.Fatalf("round trip failed: %v", err)
		}
		if year != time.Now().UTC().Year() {
			t.Errorf("expected current year, got %d", year)
		}
	})

	t.Run("unique", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 1000; i++ {
			id := GenerateDocID(2020)
			if seen[id] {
				t.Fatalf("duplicate doc id %q", id)
			}
			seen[id] = true
		}
	})
}

func TestExtractYearRejects(t *testing.T) {
	bad := []string{
		"",
		"2017",
		"2017-",
		"20177-3f0d2a7e-1c4b-4a6e-9f00-aaaaaaaaaaaa", // too long
		"2017_3f0d2a7e-1c4b-4a6e-9f00-aaaaaaaaaaaa",  // wrong separator
		"abcd-3f0d2a7e-1c4b-4a6e-9f00-aaaaaaaaaaaa",  // non-numeric year
		"2017-3f0d2a7e-1c4b-4a6e-9f00-aaaaaaaaaaa",   // uuid too short
		"2017-not-a-uuid-at-all-but-right-length-xx", // garbage uuid
	}
	for _, id := range bad {
		if _, err := ExtractYear(id); err == nil {
			t.Errorf("expected %q rejected", id)
		}
	}
}

func TestDir(t *testing.T) {
	docID := "2017-3f0d2a7e-1c4b-4a6e-9f00-123456789abc"

	dir, err := Dir("/data", docID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join("/data", "2017", "3f", "0d", docID)
	if dir != want {
		t.Errorf("Dir = %q, want %q", dir, want)
	}
}

func TestDirFanoutCrossesHyphen(t *testing.T) {
	// The second hex pair is taken from the dehyphenated UUID, so a UUID
	// whose first group is only partially consumed still yields two full
	// pairs.
	docID := "2020-ab0d2a7e-1c4b-4a6e-9f00-123456789abc"
	dir, err := Dir("/root", docID)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(dir, string(filepath.Separator))
	if parts[2] != "2020" || parts[3] != "ab" || parts[4] != "0d" {
		t.Errorf("unexpected fan-out components in %q", dir)
	}
}

func TestBlobPath(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"pdf", "blob.pdf"},
		{".pdf", "blob.pdf"},
		{"bin", "blob.bin"},
	}
	for _, tt := range tests {
		got := BlobPath("/x", tt.ext)
		if got != filepath.Join("/x", tt.want) {
			t.Errorf("BlobPath(%q) = %q", tt.ext, got)
		}
	}
}

func TestTempPath(t *testing.T) {
	if got := TempPath("/x"); got != filepath.Join("/x", "blob.tmp") {
		t.Errorf("TempPath = %q", got)
	}
}

// The generated layout is reproducible from the doc id alone.
func TestLayoutDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := GenerateDocID(2019)
		a, err := Dir("/data", id)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Dir("/data", id)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Fatalf("non-deterministic dir for %q", id)
		}
	}
}
