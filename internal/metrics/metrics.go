package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decisions counts pre-phase outcomes by terminal state.
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_decisions_total",
			Help: "Idempotency pre-phase decisions by outcome.",
		},
		[]string{"decision"},
	)

	// Replays counts responses served from a cached entry.
	Replays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotency_replays_total",
			Help: "Total number of responses replayed from the idempotency cache.",
		},
	)

	// CacheOps counts store operations: op=get|set, result=hit|miss|ok|error.
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_cache_ops_total",
			Help: "Idempotency cache store operations by result.",
		},
		[]string{"op", "result"},
	)

	CacheLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idempotency_cache_latency_seconds",
			Help:    "Idempotency cache store latency in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"op"},
	)

	// GatewayLatencySeconds is the HTTP latency per route pattern.
	GatewayLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_latency_seconds",
			Help:    "HTTP request latency for the gateway in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path", "method", "status_code"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			Decisions,
			Replays,
			CacheOps,
			CacheLatencySeconds,
			GatewayLatencySeconds,
		)
	})
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures gateway latency for each HTTP request. The path label is
// the matched chi route pattern so that ids do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		GatewayLatencySeconds.
			WithLabelValues(path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
