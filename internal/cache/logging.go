package cache

import (
	"context"
	"io"
	"time"

	"idempotent-api/internal/metrics"
	"idempotent-api/pkg/logging/logging"

	"go.uber.org/zap"
)

// LoggingStore wraps a Store with logging + metrics.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore returns a store that logs and records metrics.
func NewLoggingStore(inner Store) Store {
	return &LoggingStore{inner: inner}
}

func (c *LoggingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)
	elapsed := time.Since(start)

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
	}

	metrics.CacheOps.WithLabelValues("get", result).Inc()
	metrics.CacheLatencySeconds.WithLabelValues("get").Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.String("cache_result", result), // hit | miss | error
		zap.Int("value_bytes", len(value)),
		zap.Float64("latency_ms", float64(elapsed.Microseconds())/1000.0),
	}

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("idempotency_cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("idempotency_cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)
	elapsed := time.Since(start)

	result := "ok"
	if err != nil {
		result = "error"
	}

	metrics.CacheOps.WithLabelValues("set", result).Inc()
	metrics.CacheLatencySeconds.WithLabelValues("set").Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.Int("value_bytes", len(value)),
		zap.Duration("ttl", ttl),
		zap.Float64("latency_ms", float64(elapsed.Microseconds())/1000.0),
	}

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("idempotency_cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("idempotency_cache_set", fields...)
	}

	return err
}

// Close closes the wrapped store when it holds resources.
func (c *LoggingStore) Close() error {
	if closer, ok := c.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
