package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port string `env:"PORT" env-default:"8080" validate:"required,numeric"`

	CacheBackend  string `env:"CACHE_BACKEND" env-default:"memory" validate:"oneof=memory redis"`
	RedisAddr     string `env:"REDIS_ADDR" env-default:"127.0.0.1:6379" validate:"required_if=CacheBackend redis"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0" validate:"gte=0"`

	IdempotencyHeader   string        `env:"IDEMPOTENCY_HEADER" env-default:"IdempotencyKey" validate:"required"`
	IdempotencyTTLHours int           `env:"IDEMPOTENCY_TTL_HOURS" env-default:"24" validate:"gt=0"`
	IdempotencyLocking  bool          `env:"IDEMPOTENCY_LOCKING" env-default:"true"`
	IdempotencyLockTTL  time.Duration `env:"IDEMPOTENCY_LOCK_TTL" env-default:"30s" validate:"gt=0"`

	OrdersBackend string `env:"ORDERS_BACKEND" env-default:"memory" validate:"oneof=memory postgres"`
	DatabaseURL   string `env:"DATABASE_URL" validate:"required_if=OrdersBackend postgres"`

	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" env-default:"524288" validate:"gt=0"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" env-default:"15s" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s" validate:"gt=0"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// IdempotencyTTL is the entry lifetime; it is configured in whole hours.
func (c Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLHours) * time.Hour
}
