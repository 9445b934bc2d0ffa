package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dochive/dochive/pkg/catalog/models"
)

// createTestStore creates an in-memory SQLite store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(&Config{
		Type: DatabaseTypeSQLite,
		SQLite: SQLiteConfig{
			Path: ":memory:",
		},
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return store
}

func testObject(bucket, filename, docID string, size int64) *models.Object {
	return &models.Object{
		Bucket:              bucket,
		Filename:            filename,
		DocID:               docID,
		Year:                2017,
		SizeBytes:           size,
		SHA256:              make([]byte, 32),
		ServedContentType:   "application/pdf",
		DetectedContentType: "application/pdf",
		DetectedExtension:   "pdf",
		DetectionMethod:     "magic",
	}
}

func TestNew(t *testing.T) {
	t.Run("default config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()

		if config.Type != DatabaseTypeSQLite {
			t.Errorf("expected SQLite, got %s", config.Type)
		}
		if config.SQLite.Path == "" {
			t.Error("expected default sqlite path")
		}
	})

	t.Run("postgres defaults", func(t *testing.T) {
		config := &Config{Type: DatabaseTypePostgres}
		config.ApplyDefaults()

		if config.Postgres.Port != 5432 {
			t.Errorf("expected port 5432, got %d", config.Postgres.Port)
		}
		if config.Postgres.SSLMode != "disable" {
			t.Errorf("expected sslmode disable, got %s", config.Postgres.SSLMode)
		}
	})

	t.Run("invalid config returns error", func(t *testing.T) {
		_, err := New(&Config{Type: "invalid"})
		if err == nil {
			t.Error("expected error for invalid config")
		}
	})

	t.Run("postgres config requires host", func(t *testing.T) {
		config := &Config{Type: DatabaseTypePostgres}
		config.ApplyDefaults()
		if err := config.Validate(); err == nil {
			t.Error("expected validation error without host")
		}
	})

	t.Run("creates in-memory store", func(t *testing.T) {
		store := createTestStore(t)
		defer store.Close()
	})
}

func TestBucketOperations(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	t.Run("create bucket", func(t *testing.T) {
		bucket, err := store.CreateBucket(ctx, "invoices")
		if err != nil {
			t.Fatalf("failed to create bucket: %v", err)
		}
		if bucket.Name != "invoices" {
			t.Errorf("expected name invoices, got %s", bucket.Name)
		}
		if bucket.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}
	})

	t.Run("duplicate bucket fails", func(t *testing.T) {
		_, err := store.CreateBucket(ctx, "invoices")
		if !errors.Is(err, models.ErrDuplicateBucket) {
			t.Errorf("expected ErrDuplicateBucket, got %v", err)
		}
	})

	t.Run("ensure bucket is idempotent", func(t *testing.T) {
		first, err := store.EnsureBucket(ctx, "scans")
		if err != nil {
			t.Fatalf("ensure failed: %v", err)
		}
		second, err := store.EnsureBucket(ctx, "scans")
		if err != nil {
			t.Fatalf("second ensure failed: %v", err)
		}
		if first.Name != second.Name {
			t.Errorf("expected same bucket, got %s and %s", first.Name, second.Name)
		}
	})

	t.Run("get missing bucket", func(t *testing.T) {
		_, err := store.GetBucket(ctx, "nope")
		if !errors.Is(err, models.ErrBucketNotFound) {
			t.Errorf("expected ErrBucketNotFound, got %v", err)
		}
	})

	t.Run("list buckets ordered", func(t *testing.T) {
		buckets, err := store.ListBuckets(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(buckets) != 2 {
			t.Fatalf("expected 2 buckets, got %d", len(buckets))
		}
		if buckets[0].Name != "invoices" || buckets[1].Name != "scans" {
			t.Errorf("unexpected order: %s, %s", buckets[0].Name, buckets[1].Name)
		}
	})

	t.Run("delete empty bucket", func(t *testing.T) {
		if err := store.DeleteBucket(ctx, "scans"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		_, err := store.GetBucket(ctx, "scans")
		if !errors.Is(err, models.ErrBucketNotFound) {
			t.Errorf("expected bucket gone, got %v", err)
		}
	})

	t.Run("delete missing bucket", func(t *testing.T) {
		err := store.DeleteBucket(ctx, "scans")
		if !errors.Is(err, models.ErrBucketNotFound) {
			t.Errorf("expected ErrBucketNotFound, got %v", err)
		}
	})

	t.Run("delete non-empty bucket fails", func(t *testing.T) {
		obj := testObject("invoices", "a.pdf", "2017-00000000-0000-4000-8000-000000000001", 10)
		if err := store.InsertObject(ctx, obj); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		err := store.DeleteBucket(ctx, "invoices")
		if !errors.Is(err, models.ErrBucketNotEmpty) {
			t.Errorf("expected ErrBucketNotEmpty, got %v", err)
		}
	})
}

func TestBucketStats(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	if _, err := store.CreateBucket(ctx, "docs"); err != nil {
		t.Fatal(err)
	}

	t.Run("empty bucket has zero stats", func(t *testing.T) {
		stats, err := store.BucketStats(ctx, "docs")
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if stats.ObjectCount != 0 || stats.TotalSizeBytes != 0 {
			t.Errorf("expected zero stats, got %+v", stats)
		}
	})

	t.Run("stats aggregate sizes", func(t *testing.T) {
		sizes := []int64{100, 250, 4096}
		for i, size := range sizes {
			docID := fmt.Sprintf("2017-00000000-0000-4000-8000-00000000010%d", i)
			obj := testObject("docs", fmt.Sprintf("file-%d.pdf", i), docID, size)
			if err := store.InsertObject(ctx, obj); err != nil {
				t.Fatalf("insert %d failed: %v", i, err)
			}
		}

		stats, err := store.BucketStats(ctx, "docs")
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if stats.ObjectCount != 3 {
			t.Errorf("expected 3 objects, got %d", stats.ObjectCount)
		}
		if stats.TotalSizeBytes != 4446 {
			t.Errorf("expected 4446 bytes, got %d", stats.TotalSizeBytes)
		}
	})

	t.Run("stats for missing bucket", func(t *testing.T) {
		_, err := store.BucketStats(ctx, "ghost")
		if !errors.Is(err, models.ErrBucketNotFound) {
			t.Errorf("expected ErrBucketNotFound, got %v", err)
		}
	})
}

func TestObjectOperations(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	if _, err := store.CreateBucket(ctx, "docs"); err != nil {
		t.Fatal(err)
	}

	docID := "2017-3f0d2a1b-9c4e-4f6a-8b2d-5e7f1a3c9d0e"

	t.Run("insert and fetch by doc id", func(t *testing.T) {
		obj := testObject("docs", "report.pdf", docID, 1234)
		if err := store.InsertObject(ctx, obj); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if obj.ID == 0 {
			t.Error("expected assigned row ID")
		}

		got, err := store.GetObjectByDocID(ctx, docID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Filename != "report.pdf" || got.SizeBytes != 1234 {
			t.Errorf("unexpected row: %+v", got)
		}
	})

	t.Run("fetch by name", func(t *testing.T) {
		got, err := store.GetObjectByName(ctx, "docs", "report.pdf")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.DocID != docID {
			t.Errorf("expected doc id %s, got %s", docID, got.DocID)
		}
	})

	t.Run("duplicate filename in bucket fails", func(t *testing.T) {
		obj := testObject("docs", "report.pdf", "2017-aaaaaaaa-0000-4000-8000-000000000002", 99)
		err := store.InsertObject(ctx, obj)
		if !errors.Is(err, models.ErrDuplicateObject) {
			t.Errorf("expected ErrDuplicateObject, got %v", err)
		}
	})

	t.Run("duplicate doc id fails", func(t *testing.T) {
		obj := testObject("docs", "other.pdf", docID, 99)
		err := store.InsertObject(ctx, obj)
		if !errors.Is(err, models.ErrDuplicateObject) {
			t.Errorf("expected ErrDuplicateObject, got %v", err)
		}
	})

	t.Run("same filename in another bucket succeeds", func(t *testing.T) {
		if _, err := store.CreateBucket(ctx, "other"); err != nil {
			t.Fatal(err)
		}
		obj := testObject("other", "report.pdf", "2017-bbbbbbbb-0000-4000-8000-000000000003", 99)
		if err := store.InsertObject(ctx, obj); err != nil {
			t.Errorf("expected insert to succeed, got %v", err)
		}
	})

	t.Run("object exists", func(t *testing.T) {
		ok, err := store.ObjectExists(ctx, "docs", "report.pdf")
		if err != nil || !ok {
			t.Errorf("expected exists, ok=%v err=%v", ok, err)
		}
		ok, err = store.ObjectExists(ctx, "docs", "missing.pdf")
		if err != nil || ok {
			t.Errorf("expected missing, ok=%v err=%v", ok, err)
		}
	})

	t.Run("get missing object", func(t *testing.T) {
		_, err := store.GetObjectByDocID(ctx, "2017-ffffffff-0000-4000-8000-00000000000f")
		if !errors.Is(err, models.ErrObjectNotFound) {
			t.Errorf("expected ErrObjectNotFound, got %v", err)
		}
	})

	t.Run("delete object", func(t *testing.T) {
		got, err := store.GetObjectByDocID(ctx, docID)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.DeleteObject(ctx, got.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := store.DeleteObject(ctx, got.ID); !errors.Is(err, models.ErrObjectNotFound) {
			t.Errorf("expected ErrObjectNotFound on second delete, got %v", err)
		}
	})
}

func TestListObjects(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	if _, err := store.CreateBucket(ctx, "docs"); err != nil {
		t.Fatal(err)
	}

	names := []string{"b.txt", "a.txt", "reports/jan.pdf", "reports/feb.pdf", "c.txt"}
	for i, name := range names {
		docID := fmt.Sprintf("2017-00000000-0000-4000-8000-0000000002%02d", i)
		if err := store.InsertObject(ctx, testObject("docs", name, docID, 1)); err != nil {
			t.Fatalf("insert %s failed: %v", name, err)
		}
	}

	t.Run("ordered by filename", func(t *testing.T) {
		objects, total, err := store.ListObjects(ctx, "docs", 1, 10, "")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 5 || len(objects) != 5 {
			t.Fatalf("expected 5 objects, got total=%d len=%d", total, len(objects))
		}
		if objects[0].Filename != "a.txt" || objects[4].Filename != "reports/jan.pdf" {
			t.Errorf("unexpected order: %s .. %s", objects[0].Filename, objects[4].Filename)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		page1, total, err := store.ListObjects(ctx, "docs", 1, 2, "")
		if err != nil {
			t.Fatal(err)
		}
		page2, _, err := store.ListObjects(ctx, "docs", 2, 2, "")
		if err != nil {
			t.Fatal(err)
		}
		if total != 5 || len(page1) != 2 || len(page2) != 2 {
			t.Fatalf("unexpected pages: total=%d p1=%d p2=%d", total, len(page1), len(page2))
		}
		if page1[1].Filename != "b.txt" || page2[0].Filename != "c.txt" {
			t.Errorf("pages overlap or skip: %s / %s", page1[1].Filename, page2[0].Filename)
		}
	})

	t.Run("prefix filter", func(t *testing.T) {
		objects, total, err := store.ListObjects(ctx, "docs", 1, 10, "reports/")
		if err != nil {
			t.Fatal(err)
		}
		if total != 2 || len(objects) != 2 {
			t.Fatalf("expected 2 matches, got total=%d len=%d", total, len(objects))
		}
		for _, o := range objects {
			if o.Filename[:8] != "reports/" {
				t.Errorf("unexpected match %s", o.Filename)
			}
		}
	})

	t.Run("prefix with like metacharacters is literal", func(t *testing.T) {
		docID := "2017-00000000-0000-4000-8000-000000000299"
		if err := store.InsertObject(ctx, testObject("docs", "100%_done.txt", docID, 1)); err != nil {
			t.Fatal(err)
		}
		objects, total, err := store.ListObjects(ctx, "docs", 1, 10, "100%")
		if err != nil {
			t.Fatal(err)
		}
		if total != 1 || objects[0].Filename != "100%_done.txt" {
			t.Errorf("expected literal prefix match, got total=%d", total)
		}
	})

	t.Run("empty bucket page", func(t *testing.T) {
		if _, err := store.CreateBucket(ctx, "empty"); err != nil {
			t.Fatal(err)
		}
		objects, total, err := store.ListObjects(ctx, "empty", 1, 10, "")
		if err != nil {
			t.Fatal(err)
		}
		if total != 0 || len(objects) != 0 {
			t.Errorf("expected empty page, got total=%d len=%d", total, len(objects))
		}
	})
}
