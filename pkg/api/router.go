// Package api exposes the storage engine over HTTP: bucket and object
// endpoints, a Prometheus scrape endpoint, and a liveness probe.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dochive/dochive/internal/logger"
	"github.com/dochive/dochive/pkg/api/handlers"
	"github.com/dochive/dochive/pkg/engine"
	"github.com/dochive/dochive/pkg/metrics"
)

// NewRouter creates the chi router with all middleware and routes.
//
// There is deliberately no request timeout middleware: uploads and
// downloads stream arbitrarily large bodies and are bounded by
// MaxUploadBytes, not by wall time.
func NewRouter(e *engine.Engine, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(metricsCollector(m))
	r.Use(middleware.Recoverer)

	bucketHandler := handlers.NewBucketHandler(e)
	objectHandler := handlers.NewObjectHandler(e)

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/buckets", func(r chi.Router) {
			r.Get("/", bucketHandler.List)
			r.Post("/", bucketHandler.Create)

			r.Route("/{bucket}", func(r chi.Router) {
				r.Put("/", bucketHandler.Ensure)
				r.Get("/", bucketHandler.Get)
				r.Delete("/", bucketHandler.Delete)

				r.Route("/objects", func(r chi.Router) {
					r.Get("/", objectHandler.List)
					r.Post("/form", objectHandler.UploadForm)

					r.Get("/by-name/*", objectHandler.DownloadByName)
					r.Head("/by-name/*", objectHandler.HeadByName)
					r.Delete("/by-name/*", objectHandler.DeleteByName)

					r.Get("/{docID}", objectHandler.DownloadByID)
					r.Head("/{docID}", objectHandler.HeadByID)
					r.Delete("/{docID}", objectHandler.DeleteByID)

					r.Put("/*", objectHandler.Upload)
				})
			})
		})

		r.Route("/objects", func(r chi.Router) {
			r.Get("/{docID}", objectHandler.DownloadCrossBucket)
			r.Delete("/{docID}", objectHandler.DeleteCrossBucket)
		})
	})

	return r
}

// requestLogger logs request start and completion and seeds the request-id
// log context so engine logs carry it too.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ctx := logger.WithContext(r.Context(), logger.NewLogContext(requestID))
		r = r.WithContext(ctx)

		logger.DebugCtx(ctx, "request started",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.InfoCtx(ctx, "request completed",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, float64(time.Since(start).Microseconds())/1000.0,
		)
	})
}

// metricsCollector records per-request counters and latency keyed by the
// matched route pattern (not the raw path, to keep cardinality bounded).
func metricsCollector(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
