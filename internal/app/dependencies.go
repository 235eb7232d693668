package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/cache"
	"github.com/noah-isme/backend-klaim/internal/claims"
	"github.com/noah-isme/backend-klaim/internal/config"
	"github.com/noah-isme/backend-klaim/internal/jobs"
	"github.com/noah-isme/backend-klaim/internal/ledger"
	"github.com/noah-isme/backend-klaim/internal/ratelimit"
	"github.com/noah-isme/backend-klaim/internal/store/memory"
	"github.com/noah-isme/backend-klaim/internal/store/postgres"
)

// Store is the record store every service reads from.
type Store interface {
	billing.Querier
	ledger.Querier
	claims.Querier
	Ping(ctx context.Context) error
}

// Dependencies holds the services shared by the API, worker and CLI entrypoints.
type Dependencies struct {
	Config        *config.Config
	Store         Store
	DB            *pgxpool.Pool
	Redis         *redis.Client
	Validator     *validator.Validate
	Billing       *billing.Service
	Ledger        *ledger.Service
	Claims        *claims.Service
	ReportLimiter *limiter.Limiter
	TaskClient    *asynq.Client
	Enqueuer      jobs.Enqueuer
}

// Close releases pooled connections.
func (d *Dependencies) Close(logger zerolog.Logger) {
	if d.TaskClient != nil {
		if err := d.TaskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// CachePrefix namespaces the Redis keys of the report cache.
const CachePrefix = "klaim"

// Build opens the configured store and Redis connection and assembles the services.
func Build(ctx context.Context, cfg *config.Config, appName string) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Validator: validator.New(validator.WithRequiredStructEnabled()),
	}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		if cfg.RunMigrations {
			if err := RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, appName)
		if err != nil {
			return nil, err
		}
		deps.DB = pool
		deps.Store = postgres.New(pool)
	default:
		st, err := memory.LoadFile(cfg.SeedFile, cfg.ReportLocation)
		if err != nil {
			return nil, err
		}
		deps.Store = st
	}

	if cfg.RedisURL != "" {
		client, err := NewRedis(ctx, cfg.RedisURL, cfg.MetricsEnabled)
		if err != nil {
			deps.Close(zerolog.Nop())
			return nil, err
		}
		deps.Redis = client
		deps.TaskClient = asynq.NewClientFromRedisClient(client)
		deps.Enqueuer = jobs.Enqueuer{Client: deps.TaskClient, Queue: jobs.DefaultQueue}
	}

	lim, err := ratelimit.NewLimiter(deps.Redis, "klaim:ratelimit:reports", int64(cfg.ReportsPerMinute), time.Minute)
	if err != nil {
		deps.Close(zerolog.Nop())
		return nil, err
	}
	deps.ReportLimiter = lim

	fallback := cfg.FallbackServiceAmount
	deps.Billing = &billing.Service{
		Q: deps.Store,
		Builder: billing.Builder{
			MaxServices:    cfg.MaxServicesPerEntry,
			FallbackName:   cfg.FallbackServiceName,
			FallbackAmount: &fallback,
			Location:       cfg.ReportLocation,
		},
	}
	if deps.Redis != nil {
		deps.Billing.Cache = cache.NewJSON(deps.Redis, CachePrefix, cfg.ReportCacheTTL)
		// A freshly loaded seed replaces every record, so warmed reports are stale.
		if cfg.StoreDriver != config.StorePostgres {
			if _, err := deps.Billing.InvalidateReports(ctx); err != nil {
				deps.Close(zerolog.Nop())
				return nil, err
			}
		}
	}
	deps.Ledger = &ledger.Service{Q: deps.Store}
	deps.Claims = &claims.Service{Q: deps.Store, Location: cfg.ReportLocation}
	return deps, nil
}

// NewRedis connects to url with tracing and optional metrics instrumentation.
func NewRedis(ctx context.Context, url string, metrics bool) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("instrument redis metrics: %w", err)
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// MigrationURL rewrites a postgres URL to the scheme of the pgx/v5 migrate driver.
func MigrationURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}

// RunMigrations applies pending migrations from sourceURL.
func RunMigrations(sourceURL, databaseURL string) error {
	m, err := migrate.New(sourceURL, MigrationURL(databaseURL))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
