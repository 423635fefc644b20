package config

import (
	"os"
	"strconv"
	"time"

	"credstore/pkg/validation"
)

// Server captures process level configuration. Field tags name the
// environment variable each value is read from.
type Server struct {
	Addr            string        `env:"CREDSTORE_ADDR" validate:"required"`
	Environment     string        `env:"ENVIRONMENT" validate:"oneof=local dev staging production"`
	LogLevel        string        `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" validate:"gt=0"`
	SchemaCacheTTL  time.Duration `env:"SCHEMA_CACHE_TTL" validate:"gt=0"`
	TracingEnabled  bool          `env:"TRACING_ENABLED"`
	AuditBuffer     int           `env:"AUDIT_BUFFER" validate:"gte=0"`

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// DatabaseConfig is empty-URL tolerant: without DATABASE_URL the service
// runs on in-memory stores.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" validate:"gte=1"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" validate:"gt=0"`
}

// RedisConfig is optional: without REDIS_URL schema reads are not cached.
type RedisConfig struct {
	URL           string        `env:"REDIS_URL"`
	PoolSize      int           `env:"REDIS_POOL_SIZE" validate:"gte=1"`
	MinIdleConns  int           `env:"REDIS_MIN_IDLE_CONNS" validate:"gte=0"`
	DialTimeout   time.Duration `env:"REDIS_DIAL_TIMEOUT" validate:"gt=0"`
	ReadTimeout   time.Duration `env:"REDIS_READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout  time.Duration `env:"REDIS_WRITE_TIMEOUT" validate:"gt=0"`
	StatsInterval time.Duration `env:"REDIS_STATS_INTERVAL" validate:"gt=0"`
}

// KafkaConfig is optional: without KAFKA_BROKERS audit events are only
// written to the audit store.
type KafkaConfig struct {
	Brokers         string        `env:"KAFKA_BROKERS"`
	AuditTopic      string        `env:"KAFKA_AUDIT_TOPIC" validate:"required"`
	Acks            string        `env:"KAFKA_ACKS" validate:"oneof=0 1 all"`
	DeliveryTimeout time.Duration `env:"KAFKA_DELIVERY_TIMEOUT" validate:"gt=0"`
}

// Defaults returns the configuration used when no environment is set.
func Defaults() Server {
	return Server{
		Addr:            ":8080",
		Environment:     "local",
		LogLevel:        "info",
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
		SchemaCacheTTL:  5 * time.Minute,
		AuditBuffer:     256,
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:      10,
			MinIdleConns:  2,
			DialTimeout:   5 * time.Second,
			ReadTimeout:   3 * time.Second,
			WriteTimeout:  3 * time.Second,
			StatsInterval: 15 * time.Second,
		},
		Kafka: KafkaConfig{
			AuditTopic:      "credstore.audit",
			Acks:            "all",
			DeliveryTimeout: 30 * time.Second,
		},
	}
}

// FromEnv overlays environment variables on Defaults. Unparseable values are
// ignored and the default kept, so main stays lean; Validate catches the rest.
func FromEnv() Server {
	cfg := Defaults()

	envString("CREDSTORE_ADDR", &cfg.Addr)
	envString("ENVIRONMENT", &cfg.Environment)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envDuration("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	envDuration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	envInt64("MAX_BODY_BYTES", &cfg.MaxBodyBytes)
	envDuration("SCHEMA_CACHE_TTL", &cfg.SchemaCacheTTL)
	cfg.TracingEnabled = os.Getenv("TRACING_ENABLED") == "true"
	envInt("AUDIT_BUFFER", &cfg.AuditBuffer)

	envString("DATABASE_URL", &cfg.Database.URL)
	envInt("DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	envInt("DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	envDuration("DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)

	envString("REDIS_URL", &cfg.Redis.URL)
	envInt("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	envInt("REDIS_MIN_IDLE_CONNS", &cfg.Redis.MinIdleConns)
	envDuration("REDIS_DIAL_TIMEOUT", &cfg.Redis.DialTimeout)
	envDuration("REDIS_READ_TIMEOUT", &cfg.Redis.ReadTimeout)
	envDuration("REDIS_WRITE_TIMEOUT", &cfg.Redis.WriteTimeout)
	envDuration("REDIS_STATS_INTERVAL", &cfg.Redis.StatsInterval)

	envString("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	envString("KAFKA_AUDIT_TOPIC", &cfg.Kafka.AuditTopic)
	envString("KAFKA_ACKS", &cfg.Kafka.Acks)
	envDuration("KAFKA_DELIVERY_TIMEOUT", &cfg.Kafka.DeliveryTimeout)

	return cfg
}

// Validate checks the configuration with struct tags.
func (s Server) Validate() error {
	return validation.Validate(s)
}

// IsProduction reports whether the service runs in production mode.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
