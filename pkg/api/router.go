// Package api serves the HTTP control API: health probes, the live Blaze
// session list and Prometheus metrics.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jacobtread/rme3/internal/logger"
	"github.com/jacobtread/rme3/pkg/api/handlers"
	"github.com/jacobtread/rme3/pkg/metrics"
)

// BlazeServer is what the API reads from the running Blaze adapter.
type BlazeServer interface {
	handlers.BlazeStatus
	handlers.SessionSource
}

// NewRouter creates the chi router.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe (Blaze listener up)
//   - GET /api/v1/sessions - Live Blaze sessions
//   - GET /api/v1/sessions/{id} - One session
//   - GET /metrics - Prometheus exposition, when metrics are enabled
func NewRouter(server BlazeServer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := handlers.NewHealthHandler(server)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	if server != nil {
		sessions := handlers.NewSessionHandler(server)
		r.Route("/api/v1/sessions", func(r chi.Router) {
			r.Get("/", sessions.List)
			r.Get("/{id}", sessions.Get)
		})
	}

	if metrics.IsEnabled() {
		r.Handle("/metrics", metrics.Handler())
	}

	return r
}

func isQuietPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/") || path == "/metrics"
}

// requestLogger logs every request through the internal logger. Probe and
// scrape requests are logged at DEBUG.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		args := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		}
		if isQuietPath(r.URL.Path) {
			logger.Debug("API request completed", args...)
		} else {
			logger.Info("API request completed", args...)
		}
	})
}
