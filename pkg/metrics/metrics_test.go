package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRegister(t *testing.T) {
	m := New()

	m.UploadsTotal.WithLabelValues("stored").Inc()
	m.UploadBytesTotal.Add(1024)
	m.DownloadsTotal.WithLabelValues("served").Add(3)
	m.MigrationDocsTotal.WithLabelValues("completed").Inc()

	if got := testutil.ToFloat64(m.UploadsTotal.WithLabelValues("stored")); got != 1 {
		t.Errorf("expected 1 stored upload, got %v", got)
	}
	if got := testutil.ToFloat64(m.DownloadsTotal.WithLabelValues("served")); got != 3 {
		t.Errorf("expected 3 served downloads, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.UploadsTotal.WithLabelValues("stored").Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "dochive_engine_uploads_total") {
		t.Error("expected uploads counter in scrape output")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go collector in scrape output")
	}
}

func TestSeparateRegistries(t *testing.T) {
	a := New()
	b := New()
	a.UploadBytesTotal.Add(10)

	if got := testutil.ToFloat64(b.UploadBytesTotal); got != 0 {
		t.Errorf("expected independent registries, got %v", got)
	}
}
