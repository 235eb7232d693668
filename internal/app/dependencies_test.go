package app_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-klaim/internal/app"
	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StoreDriver:           config.StoreMemory,
		SeedFile:              "../../fixtures/seed.yaml",
		ReportCacheTTL:        time.Minute,
		ReportLocation:        time.UTC,
		MaxServicesPerEntry:   3,
		FallbackServiceName:   "General Services",
		FallbackServiceAmount: decimal.NewFromInt(5000),
		ReportsPerMinute:      60,
	}
}

func TestMigrationURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/klaim", app.MigrationURL("postgres://u:p@db:5432/klaim"))
	require.Equal(t, "pgx5://db/klaim", app.MigrationURL("postgresql://db/klaim"))
	require.Equal(t, "pgx5://db/klaim", app.MigrationURL("pgx5://db/klaim"))
}

func TestBuildMemoryWithoutRedis(t *testing.T) {
	deps, err := app.Build(context.Background(), memoryConfig(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { deps.Close(zerolog.Nop()) })

	require.Nil(t, deps.Redis)
	require.Nil(t, deps.Billing.Cache)
	require.NotNil(t, deps.ReportLimiter)

	report, err := deps.Billing.GenerateHospitalBillReport(context.Background(), billing.Filters{
		HospitalID: "hosp1",
		DateFrom:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:     time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, report.Entries, 4)
}

func TestBuildWithRedisEnablesCacheAndTasks(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	stale := app.CachePrefix + ":bill:report:hosp1:2024-01-01:2024-03-31"
	require.NoError(t, mr.Set(stale, `{"hospitalName":"stale"}`))
	require.NoError(t, mr.Set("klaim:ratelimit:reports:other", "1"))

	deps, err := app.Build(context.Background(), cfg, "test")
	require.NoError(t, err)
	t.Cleanup(func() { deps.Close(zerolog.Nop()) })

	require.NotNil(t, deps.Redis)
	require.NotNil(t, deps.Billing.Cache)
	require.NotNil(t, deps.TaskClient)
	require.False(t, mr.Exists(stale))
	require.True(t, mr.Exists("klaim:ratelimit:reports:other"))
}

func TestBuildFailsOnMissingSeed(t *testing.T) {
	cfg := memoryConfig()
	cfg.SeedFile = "does-not-exist.yaml"
	_, err := app.Build(context.Background(), cfg, "test")
	require.Error(t, err)
}
