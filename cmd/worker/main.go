package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-klaim/internal/app"
	"github.com/noah-isme/backend-klaim/internal/config"
	"github.com/noah-isme/backend-klaim/internal/jobs"
	"github.com/noah-isme/backend-klaim/internal/obs"
)

// Runs at 02:00 on the first day of every month.
const previousMonthSchedule = "0 2 1 * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required for the worker")
	}
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, "klaim-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close(logger)

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	asynqLogger := jobs.Logger{L: logger}

	handlers := &jobs.Handlers{
		Reports:   deps.Billing,
		Hospitals: deps.Billing,
		Enqueuer:  deps.Enqueuer,
		Location:  cfg.ReportLocation,
		Logger:    logger,
	}
	mux := asynq.NewServeMux()
	handlers.Register(mux)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		Queues:          map[string]int{jobs.DefaultQueue: 1},
		Logger:          asynqLogger,
		ShutdownTimeout: 20 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: cfg.ReportLocation,
		Logger:   asynqLogger,
	})
	if _, err := scheduler.Register(previousMonthSchedule, jobs.NewWarmPreviousMonthTask(), asynq.Queue(jobs.DefaultQueue)); err != nil {
		logger.Fatal().Err(err).Msg("register previous month warmup")
	}

	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")

	<-ctx.Done()
	srv.Shutdown()
	scheduler.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}
