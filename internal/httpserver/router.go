package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"idempotent-api/internal/idempotency"
	"idempotent-api/internal/metrics"
	"idempotent-api/internal/middleware"
	"idempotent-api/internal/orders"
	"idempotent-api/pkg/logging/logging"
)

type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// HealthCheck backs /healthz. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, opts Options, coord *idempotency.Coordinator, ordersHandler *orders.Handler) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 512 * 1024
	}

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger, coord.Config().HeaderName))
	r.Use(middleware.Recoverer())
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	// routes
	ordersHandler.Mount(r, coord)

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.HealthCheck != nil {
			if err := opts.HealthCheck(r.Context()); err != nil {
				logging.L(r.Context()).Warn("health check failed", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
