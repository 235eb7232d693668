package app

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/claims"
	"github.com/noah-isme/backend-klaim/internal/health"
	"github.com/noah-isme/backend-klaim/internal/ledger"
	"github.com/noah-isme/backend-klaim/internal/obs"
	"github.com/noah-isme/backend-klaim/internal/ratelimit"
	"github.com/noah-isme/backend-klaim/internal/security"
)

const maxBodyBytes = 64 << 10

// RouterOptions toggles the observability layers of the HTTP router.
type RouterOptions struct {
	Logger         zerolog.Logger
	HTTPMetrics    *obs.HTTPMetrics
	Metrics        bool
	Tracing        bool
	AllowedOrigins []string
}

// NewRouter mounts every API endpoint backed by deps.
func NewRouter(deps *Dependencies, opts RouterOptions) http.Handler {
	logger := opts.Logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.ScopeMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(opts.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{NoStorePrefixes: []string{"/api/v1/bills", "/api/v1/transactions", "/api/v1/reports"}}.Middleware)

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Checker: health.Probes{Store: deps.Store, Redis: deps.Redis}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	limited := ratelimit.Handler{
		Limiter: deps.ReportLimiter,
		Key:     reportKey,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	billingHandler := &billing.Handler{Svc: deps.Billing, Validate: deps.Validator}
	ledgerHandler := &ledger.Handler{Svc: deps.Ledger, Validate: deps.Validator}
	claimsHandler := &claims.Handler{Svc: deps.Claims, Validate: deps.Validator}

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/bills", func(b chi.Router) {
			b.With(limited.Middleware).Get("/hospital", billingHandler.HospitalReport)
			b.Get("/hospitals", billingHandler.Hospitals)
		})
		v.With(security.BodyLimit{Max: maxBodyBytes}.Middleware).Route("/transactions", ledgerHandler.Routes)
		v.Get("/claims/status", claimsHandler.Status)
		v.With(limited.Middleware).Get("/reports/claims", claimsHandler.Report)
	})

	if !opts.Tracing {
		return r
	}
	return otelhttp.NewHandler(r, "klaim-api")
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// reportKey buckets report requests per client and hospital.
func reportKey(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	return host + ":" + strings.TrimSpace(r.URL.Query().Get("hospitalId"))
}
