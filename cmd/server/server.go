package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"credstore/internal/audit"
	credentialmodels "credstore/internal/credential/models"
	credentialservice "credstore/internal/credential/service"
	credentialstore "credstore/internal/credential/store"
	keymodels "credstore/internal/keys/models"
	keyservice "credstore/internal/keys/service"
	keystore "credstore/internal/keys/store"
	"credstore/internal/platform/config"
	"credstore/internal/platform/database"
	"credstore/internal/platform/health"
	"credstore/internal/platform/kafka"
	"credstore/internal/platform/logger"
	"credstore/internal/platform/metrics"
	"credstore/internal/platform/redis"
	schemamodels "credstore/internal/schema/models"
	schemaservice "credstore/internal/schema/service"
	schemastore "credstore/internal/schema/store"
	httptransport "credstore/internal/transport/http"
	"credstore/internal/transport/http/resource"
	"credstore/migrations"
	"credstore/pkg/platform/circuit"
	request "credstore/pkg/platform/middleware/request"
	"credstore/pkg/platform/tracer"
)

// stores groups the persistence backends selected at startup.
type stores struct {
	schemas     schemastore.Store
	keys        keystore.Store
	credentials interface {
		credentialservice.Store
		RetireSchema(ctx context.Context, schemaID int64) error
		RetireKey(ctx context.Context, keyID int64) error
	}
	audit audit.Store
}

func run(ctx context.Context, cfg config.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg.LogLevel)
	log.Info("initializing credstore",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"database", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
		"kafka", cfg.Kafka.Brokers != "",
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	healthHandler := health.New(cfg.Environment)

	pool, err := database.New(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close() //nolint:errcheck // process is exiting

	st, err := buildStores(ctx, pool, reg, log)
	if err != nil {
		return err
	}
	healthHandler.SetComponent("storage", "memory")
	if pool != nil {
		healthHandler.RegisterCheck("database", pool.Health)
		healthHandler.SetComponent("storage", "postgres")
	}

	cache, err := redis.New(ctx, cfg.Redis, reg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if cache != nil {
		defer cache.Close() //nolint:errcheck // process is exiting
		healthHandler.RegisterCheck("redis", cache.Health)
		breaker := circuit.New("schema-cache",
			circuit.WithStateListener(func(name string, from, to circuit.State) {
				log.Warn("circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
			}),
		)
		st.schemas = schemastore.NewCached(st.schemas, cache, cfg.SchemaCacheTTL,
			schemastore.WithCacheLogger(log),
			schemastore.WithCacheRecorder(m),
			schemastore.WithCacheBreaker(breaker),
		)
		healthHandler.SetComponent("schema_cache", "redis")
		log.Info("schema cache enabled", "ttl", cfg.SchemaCacheTTL)
	}

	if cfg.Kafka.Brokers != "" {
		producer, err := kafka.New(cfg.Kafka, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer producer.Close(cfg.ShutdownTimeout)
		healthHandler.RegisterCheck("kafka", producer.Ping)
		st.audit = audit.NewStreamingStore(st.audit, producer, cfg.Kafka.AuditTopic, log)
		healthHandler.SetComponent("audit_stream", "kafka")
		log.Info("audit stream enabled", "topic", cfg.Kafka.AuditTopic)
	}

	publisher := audit.NewPublisher(st.audit,
		audit.WithAsyncBuffer(cfg.AuditBuffer),
		audit.WithPublisherLogger(log),
	)
	defer publisher.Close()

	var tr tracer.Tracer = tracer.NewNoop()
	if cfg.TracingEnabled {
		tr = tracer.NewOTel()
	}

	schemas := schemaservice.New(st.schemas, st.credentials,
		schemaservice.WithLogger(log),
		schemaservice.WithAuditPublisher(publisher),
		schemaservice.WithMetrics(m),
	)
	keys := keyservice.New(st.keys, st.credentials,
		keyservice.WithLogger(log),
		keyservice.WithAuditPublisher(publisher),
		keyservice.WithMetrics(m),
	)
	credentials := credentialservice.New(st.credentials, st.schemas, st.keys,
		credentialservice.WithLogger(log),
		credentialservice.WithAuditPublisher(publisher),
		credentialservice.WithMetrics(m),
		credentialservice.WithTracer(tr),
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Latency:        request.NewMetrics(reg),
		Gatherer:       reg,
	},
		healthHandler,
		resource.New[schemamodels.Schema]("schemas", schemas, log),
		resource.New[keymodels.CryptographicKey]("cryptographic_keys", keys, log),
		resource.New[credentialmodels.Credential]("credentials", credentials, log),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cache != nil {
		g.Go(func() error {
			return cache.RunPoolStats(gctx, cfg.Redis.StatsInterval)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// buildStores returns PostgreSQL stores when pool is set and in-memory
// stores otherwise.
func buildStores(ctx context.Context, pool *database.Pool, reg prometheus.Registerer, log *slog.Logger) (*stores, error) {
	if pool == nil {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			schemas:     schemastore.NewInMemory(),
			keys:        keystore.NewInMemory(),
			credentials: credentialstore.NewInMemory(),
			audit:       audit.NewInMemoryStore(),
		}, nil
	}

	applied, err := database.Migrate(ctx, pool.DB(), migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.Info("database ready", "migrations_applied", len(applied))

	if err := metrics.RegisterDBStats(reg, pool.DB(), "credstore"); err != nil {
		return nil, fmt.Errorf("register db stats: %w", err)
	}

	return &stores{
		schemas:     schemastore.NewPostgres(pool.DB()),
		keys:        keystore.NewPostgres(pool.DB()),
		credentials: credentialstore.NewPostgres(pool.DB()),
		audit:       audit.NewPostgresStore(pool.DB()),
	}, nil
}
