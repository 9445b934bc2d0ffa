// Package metrics exposes Prometheus instrumentation for the storage
// engine, the HTTP surface, and the migration pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service registers. A single instance is
// shared by the engine, the API server, and the migration workers.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	UploadsTotal        *prometheus.CounterVec
	UploadBytesTotal    prometheus.Counter
	UploadDuration      prometheus.Histogram
	DownloadsTotal      *prometheus.CounterVec
	DownloadBytesTotal  prometheus.Counter
	MimeMismatchesTotal *prometheus.CounterVec

	MigrationDocsTotal  *prometheus.CounterVec
	MigrationBytesTotal prometheus.Counter
	MigrationInFlight   prometheus.Gauge
}

// New builds a metrics set on a fresh registry, with the standard Go and
// process collectors included.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dochive",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dochive",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dochive",
			Subsystem: "engine",
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome (stored, duplicate, too_large, error).",
		}, []string{"outcome"}),

		UploadBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dochive",
			Subsystem: "engine",
			Name:      "upload_bytes_total",
			Help:      "Payload bytes accepted by successful uploads.",
		}),

		UploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dochive",
			Subsystem: "engine",
			Name:      "upload_duration_seconds",
			Help:      "Time spent streaming, hashing and committing one upload.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}),

		DownloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dochive",
			Subsystem: "engine",
			Name:      "downloads_total",
			Help:      "Download attempts by outcome (served, not_found, missing_blob, error).",
		}, []string{"outcome"}),

		DownloadBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dochive",
			Subsystem: "engine",
			Name:      "download_bytes_total",
			Help:      "Payload bytes served by successful downloads.",
		}),

		MimeMismatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dochive",
			Subsystem: "engine",
			Name:      "mime_mismatches_total",
			Help:      "Uploads whose claimed type disagreed with detection, by severity.",
		}, []string{"severity"}),

		MigrationDocsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dochive",
			Subsystem: "migrate",
			Name:      "documents_total",
			Help:      "Migrated documents by outcome (completed, failed, skipped).",
		}, []string{"outcome"}),

		MigrationBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dochive",
			Subsystem: "migrate",
			Name:      "bytes_total",
			Help:      "Payload bytes pushed by completed migrations.",
		}),

		MigrationInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dochive",
			Subsystem: "migrate",
			Name:      "in_flight",
			Help:      "Documents currently being migrated.",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UploadsTotal,
		m.UploadBytesTotal,
		m.UploadDuration,
		m.DownloadsTotal,
		m.DownloadBytesTotal,
		m.MimeMismatchesTotal,
		m.MigrationDocsTotal,
		m.MigrationBytesTotal,
		m.MigrationInFlight,
	)

	return m
}

// Handler returns the scrape endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
