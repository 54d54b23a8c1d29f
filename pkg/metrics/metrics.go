// Package metrics exposes the Prometheus registry and the HTTP metrics of the
// web server. Domain metrics are defined in their own packages (cache,
// client, mutation, ratelimit) and registered via promauto.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by Mission Control.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMetrics records per-route request counts and latencies.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors on reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mc_http_requests_total",
			Help: "Total HTTP requests served by route, method and status",
		}, []string{"route", "method", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mc_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Middleware instruments next. Requests are labelled with the chi route
// pattern so path parameters never become label values.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - mc_cache_hits_total{layer} (Counter): Cache hits by backend
//   - mc_cache_misses_total{layer} (Counter): Cache misses by backend
//   - mc_cache_errors_total{operation} (Counter): Cache operation errors
//   - mc_cache_invalidations_total (Counter): Entries marked stale
//   - mc_cache_fetch_cancellations_total (Counter): Fetch results discarded after cancel or rewrite
//   - mc_cache_not_modified_total (Counter): 304 revalidations
//
// Mutation Metrics (pkg/mutation):
//   - mc_mutations_total{resource, outcome} (Counter): success, error, aborted
//   - mc_optimistic_writes_total{resource} (Counter): Optimistic cache rewrites
//   - mc_mutation_rollbacks_total{resource} (Counter): Snapshots restored after failures
//   - mc_mutation_duration_seconds{resource} (Histogram): Begin to settle
//
// Rate Limit Metrics (pkg/ratelimit):
//   - mc_rate_limit_remaining (Gauge): Last X-RateLimit-Remaining value
//   - mc_rate_limit_blocks_total (Counter): Requests held back by Retry-After
//   - mc_rate_limit_throttles_total (Counter): Requests delayed by a low budget
//
// Request Metrics (pkg/client):
//   - mc_requests_total{endpoint, status} (Counter)
//   - mc_request_duration_seconds{endpoint} (Histogram)
//   - mc_errors_total{class} (Counter)
//   - mc_retries_total{error_class} (Counter)
//   - mc_retry_backoff_seconds{error_class} (Histogram)
//   - mc_retry_exhausted_total{error_class} (Counter)
//
// Web Metrics (this package):
//   - mc_http_requests_total{route, method, status} (Counter)
//   - mc_http_request_duration_seconds{route} (Histogram)
//
// Example Prometheus Queries:
//
//   # Rollback ratio
//   sum(rate(mc_mutation_rollbacks_total[5m])) / sum(rate(mc_mutations_total[5m]))
//
//   # 304 Response Rate
//   rate(mc_cache_not_modified_total[5m]) / rate(mc_requests_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(mc_request_duration_seconds_bucket[5m]))
