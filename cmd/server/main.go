package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"credstore/internal/platform/config"
)

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "addr",
		EnvVars: []string{"CREDSTORE_ADDR"},
		Usage:   "address to listen on for the API",
	},
	&cli.StringFlag{
		Name:    "environment",
		EnvVars: []string{"ENVIRONMENT"},
		Usage:   "deployment environment: local, dev, staging or production",
	},
	&cli.StringFlag{
		Name:    "log-level",
		EnvVars: []string{"LOG_LEVEL"},
		Usage:   "minimum log level: debug, info, warn or error",
	},
	&cli.StringFlag{
		Name:    "database-url",
		EnvVars: []string{"DATABASE_URL"},
		Usage:   "PostgreSQL connection string; in-memory stores are used when empty",
	},
	&cli.StringFlag{
		Name:    "redis-url",
		EnvVars: []string{"REDIS_URL"},
		Usage:   "Redis URL for the schema cache; caching is disabled when empty",
	},
	&cli.StringFlag{
		Name:    "kafka-brokers",
		EnvVars: []string{"KAFKA_BROKERS"},
		Usage:   "comma separated Kafka brokers for the audit stream; streaming is disabled when empty",
	},
	&cli.StringFlag{
		Name:    "kafka-audit-topic",
		EnvVars: []string{"KAFKA_AUDIT_TOPIC"},
		Usage:   "topic audit events are published to",
	},
	&cli.DurationFlag{
		Name:    "schema-cache-ttl",
		EnvVars: []string{"SCHEMA_CACHE_TTL"},
		Usage:   "lifetime of cached schemas; must be positive",
	},
	&cli.DurationFlag{
		Name:    "request-timeout",
		EnvVars: []string{"REQUEST_TIMEOUT"},
		Usage:   "per-request handler timeout",
	},
	&cli.Int64Flag{
		Name:    "max-body-bytes",
		EnvVars: []string{"MAX_BODY_BYTES"},
		Usage:   "maximum accepted request body size",
	},
	&cli.BoolFlag{
		Name:    "tracing",
		EnvVars: []string{"TRACING_ENABLED"},
		Usage:   "emit OpenTelemetry spans around lookups and conformance checks",
	},
}

func main() {
	app := &cli.App{
		Name:  "credstore",
		Usage: "Serve the schema, key and credential registry API",
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			cfg := applyFlags(cCtx, config.FromEnv())
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(cCtx.Context, cfg)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlags overrides cfg with flags given on the command line. Unset flags
// leave the environment-derived value in place.
func applyFlags(cCtx *cli.Context, cfg config.Server) config.Server {
	if cCtx.IsSet("addr") {
		cfg.Addr = cCtx.String("addr")
	}
	if cCtx.IsSet("environment") {
		cfg.Environment = cCtx.String("environment")
	}
	if cCtx.IsSet("log-level") {
		cfg.LogLevel = cCtx.String("log-level")
	}
	if cCtx.IsSet("database-url") {
		cfg.Database.URL = cCtx.String("database-url")
	}
	if cCtx.IsSet("redis-url") {
		cfg.Redis.URL = cCtx.String("redis-url")
	}
	if cCtx.IsSet("kafka-brokers") {
		cfg.Kafka.Brokers = cCtx.String("kafka-brokers")
	}
	if cCtx.IsSet("kafka-audit-topic") {
		cfg.Kafka.AuditTopic = cCtx.String("kafka-audit-topic")
	}
	if cCtx.IsSet("schema-cache-ttl") {
		cfg.SchemaCacheTTL = cCtx.Duration("schema-cache-ttl")
	}
	if cCtx.IsSet("request-timeout") {
		cfg.RequestTimeout = cCtx.Duration("request-timeout")
	}
	if cCtx.IsSet("max-body-bytes") {
		cfg.MaxBodyBytes = cCtx.Int64("max-body-bytes")
	}
	if cCtx.IsSet("tracing") {
		cfg.TracingEnabled = cCtx.Bool("tracing")
	}
	return cfg
}
