package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Backend string
	// CleanupInterval is the memory backend sweep period.
	CleanupInterval time.Duration
	Prefix          string
}

// NewStore builds the configured backend wrapped in a LoggingStore. The redis
// backend requires a non-nil client.
func NewStore(cfg Config, redisClient *redis.Client) (Store, error) {
	switch cfg.Backend {
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("%w: redis backend selected without a client", ErrBackendUnavailable)
		}
		return NewLoggingStore(NewRedisStore(redisClient, RedisConfig{Prefix: cfg.Prefix})), nil
	case BackendMemory, "":
		return NewLoggingStore(NewMemoryStore(cfg.CleanupInterval)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NewLocker returns the per-key locker matching the backend.
func NewLocker(cfg Config, redisClient *redis.Client) (Locker, error) {
	switch cfg.Backend {
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("%w: redis backend selected without a client", ErrBackendUnavailable)
		}
		return NewRedisLocker(redisClient, cfg.Prefix+":lock"), nil
	case BackendMemory, "":
		return NewMemoryLocker(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
