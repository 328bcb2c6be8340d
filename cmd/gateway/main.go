package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"idempotent-api/internal/cache"
	"idempotent-api/internal/config"
	"idempotent-api/internal/httpserver"
	"idempotent-api/internal/idempotency"
	"idempotent-api/internal/metrics"
	"idempotent-api/internal/orders"
	"idempotent-api/internal/result"
	"idempotent-api/pkg/logging/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("orders_backend", cfg.OrdersBackend),
		zap.String("idempotency_header", cfg.IdempotencyHeader),
		zap.Duration("idempotency_ttl", cfg.IdempotencyTTL()),
		zap.Bool("idempotency_locking", cfg.IdempotencyLocking),
	)

	ctx := context.Background()

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == config.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
	}

	// ----- Idempotency store -----
	cacheCfg := cache.Config{
		Backend: cfg.CacheBackend,
		Prefix:  "idempotent-api",
	}
	store, err := cache.NewStore(cacheCfg, redisClient)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	routes := result.NewRoutes()
	coordOpts := []idempotency.Option{idempotency.WithRoutes(routes)}
	if cfg.IdempotencyLocking {
		locker, err := cache.NewLocker(cacheCfg, redisClient)
		if err != nil {
			return err
		}
		coordOpts = append(coordOpts, idempotency.WithLocker(locker))
	}

	coord := idempotency.New(store, idempotency.Config{
		HeaderName: cfg.IdempotencyHeader,
		TTL:        cfg.IdempotencyTTL(),
		LockTTL:    cfg.IdempotencyLockTTL,
	}, coordOpts...)

	// ----- Orders repository -----
	var (
		repo orders.Repository
		pool *pgxpool.Pool
	)
	switch cfg.OrdersBackend {
	case config.BackendPostgres:
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres pool: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("postgres connection failed", zap.Error(err))
			return err
		}
		pg := orders.NewPostgresRepository(pool)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		repo = pg
	default:
		repo = orders.NewMemoryRepository()
	}

	healthCheck := func(ctx context.Context) error {
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		return nil
	}

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, httpserver.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		HealthCheck:    healthCheck,
	}, coord, orders.NewHandler(repo, routes))

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting server", zap.String("addr", srv.Addr))

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		logger.Error("server error", zap.Error(err))
		return err
	case <-stop:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
