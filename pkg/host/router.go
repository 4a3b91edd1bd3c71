package host

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/pkg/host/handlers"
	"github.com/marmos91/plughost/pkg/metrics"
)

// NewRouter creates the chi router with the host's middleware and routes.
//
// Middleware: request id, real ip, request logging, panic recovery and the
// per-request timeout.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe (503 when a plugin failed)
//   - GET /api/v1/plugins - Installed plugins, optionally ?state=
//   - GET /api/v1/plugins/{identity} - One installed plugin
//   - GET /metrics - Prometheus metrics, when enabled
//
// Plugins add their own routes to the returned router during Configure.
func NewRouter(lister handlers.PluginLister, cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	health := handlers.NewHealthHandler(lister)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	plugins := handlers.NewPluginHandler(lister)
	r.Route("/api/v1/plugins", func(r chi.Router) {
		r.Get("/", plugins.List)
		r.Get("/{identity}", plugins.Get)
	})

	if cfg.Metrics {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	return r
}

func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger logs each request through the internal logger. Health
// probes are logged at DEBUG.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(time.Since(start)),
		}
		if isHealthPath(r.URL.Path) {
			logger.Debug("HTTP request completed", logArgs...)
		} else {
			logger.Info("HTTP request completed", logArgs...)
		}
	})
}
