package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	StoreDriver        string
	DatabaseURL        string
	RunMigrations      bool
	MigrationsPath     string
	SeedFile           string
	RedisURL           string
	CORSAllowedOrigins []string

	ReportCacheTTL        time.Duration
	ReportLocation        *time.Location
	MaxServicesPerEntry   int
	FallbackServiceName   string
	FallbackServiceAmount decimal.Decimal
	ReportsPerMinute      int
	WorkerConcurrency     int

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsEnabled   bool
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                valueOrDefault(k.String("PORT"), "8080"),
		StoreDriver:         strings.ToLower(valueOrDefault(k.String("STORE_DRIVER"), StoreMemory)),
		DatabaseURL:         k.String("DATABASE_URL"),
		RunMigrations:       parseBool(k.String("RUN_MIGRATIONS"), false),
		MigrationsPath:      valueOrDefault(k.String("MIGRATIONS_PATH"), "file://migrations"),
		SeedFile:            valueOrDefault(k.String("SEED_FILE"), "fixtures/seed.yaml"),
		RedisURL:            strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins:  splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ReportCacheTTL:      parseDuration(k.String("REPORT_CACHE_TTL"), "5m"),
		MaxServicesPerEntry: parseInt(k.String("BILLING_MAX_SERVICES_PER_ENTRY"), 3),
		FallbackServiceName: valueOrDefault(k.String("BILLING_FALLBACK_SERVICE_NAME"), "General Services"),
		ReportsPerMinute:    parseInt(k.String("RATE_LIMIT_REPORTS_PER_MINUTE"), 60),
		WorkerConcurrency:   parseInt(k.String("WORKER_CONCURRENCY"), 5),
		LogFormat:           valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:            valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:    valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "klaim"),
		MetricsEnabled:      parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		TracingEnabled:      parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:     valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:        strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		SamplingRatio:       parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
	}

	amount, err := decimal.NewFromString(valueOrDefault(k.String("BILLING_FALLBACK_SERVICE_AMOUNT"), "5000"))
	if err != nil {
		return nil, fmt.Errorf("BILLING_FALLBACK_SERVICE_AMOUNT: %w", err)
	}
	if amount.IsNegative() {
		return nil, errors.New("BILLING_FALLBACK_SERVICE_AMOUNT must not be negative")
	}
	cfg.FallbackServiceAmount = amount

	loc, err := time.LoadLocation(valueOrDefault(k.String("REPORT_TIMEZONE"), "UTC"))
	if err != nil {
		return nil, fmt.Errorf("REPORT_TIMEZONE: %w", err)
	}
	cfg.ReportLocation = loc

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.MaxServicesPerEntry <= 0 {
		return nil, errors.New("BILLING_MAX_SERVICES_PER_ENTRY must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
