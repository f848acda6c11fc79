package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverd_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coverd_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	optimizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverd_optimizations_total",
			Help: "Total number of coverage optimization runs.",
		},
		[]string{"algorithm"},
	)

	coveragePercentage = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coverd_coverage_percentage",
			Help:    "Coverage percentage achieved per optimization run.",
			Buckets: []float64{0, 10, 25, 50, 75, 90, 95, 99, 100},
		},
	)

	visibilityScansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coverd_visibility_scans_total",
			Help: "Total number of visibility window scans.",
		},
	)

	demoFleetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coverd_demo_fleet_size",
			Help: "Number of satellites in the built-in demo fleet.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(optimizationsTotal)
	prometheus.MustRegister(coveragePercentage)
	prometheus.MustRegister(visibilityScansTotal)
	prometheus.MustRegister(demoFleetSize)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveOptimization records one completed optimization run.
func ObserveOptimization(algorithm string, coveragePct float64) {
	optimizationsTotal.WithLabelValues(algorithm).Inc()
	coveragePercentage.Observe(coveragePct)
}

// IncVisibilityScan records one visibility scan request.
func IncVisibilityScan() {
	visibilityScansTotal.Inc()
}

// SetDemoFleetSize records the demo fleet satellite count.
func SetDemoFleetSize(n int) {
	demoFleetSize.Set(float64(n))
}

// knownRoutes are the exact paths served by the API.
var knownRoutes = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/api/v1/optimize":         true,
	"/api/v1/optimize/default": true,
	"/api/v1/fleets":           true,
	"/api/v1/visibility":       true,
}

// normalizeRoute collapses parameterized and unknown paths to a bounded set
// of labels so scrapers and bots cannot inflate metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/fleets/") {
		if strings.HasSuffix(path, "/optimize") {
			return "/api/v1/fleets/{id}/optimize"
		}
		return "/api/v1/fleets/{id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
