package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sat/coverd/internal/auth"
	"github.com/sat/coverd/internal/fleet"
	"github.com/sat/coverd/internal/health"
	"github.com/sat/coverd/internal/httputil"
	"github.com/sat/coverd/internal/metrics"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// Config holds server-level settings.
type Config struct {
	Addr       string
	TrustProxy bool
}

// NewServer creates a configured HTTP server. fleets may be nil when fleet
// persistence is disabled; the fleet routes then answer 503.
func NewServer(cfg Config, logger *slog.Logger, authCfg auth.Config, fleets *fleet.Store, visCfg VisibilityConfig) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/v1/optimize", optimizeHandler(logger))
	mux.HandleFunc("GET /api/v1/optimize/default", defaultOptimizeHandler(logger))
	mux.HandleFunc("GET /api/v1/fleets", listFleetsHandler(logger, fleets))
	mux.HandleFunc("POST /api/v1/fleets", createFleetHandler(logger, fleets))
	mux.HandleFunc("GET /api/v1/fleets/{id}", getFleetHandler(logger, fleets))
	mux.HandleFunc("POST /api/v1/fleets/{id}/optimize", optimizeFleetHandler(logger, fleets))
	mux.HandleFunc("POST /api/v1/visibility", visibilityHandler(logger, visCfg))

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
