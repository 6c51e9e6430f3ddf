package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fptmart/backend/internal/app"
	"fptmart/backend/internal/config"
	"fptmart/backend/internal/jobs"
	"fptmart/backend/internal/logging"
)

func main() {
	enqueue := flag.Bool("enqueue", false, "enqueue a low stock scan and a dashboard warmup, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel).With(slog.String("component", "worker"))
	slog.SetDefault(logger)

	if err := validateWorkerConfig(cfg); err != nil {
		logger.Error("invalid worker configuration", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	if *enqueue {
		if err := enqueueNow(context.Background(), redisOpts, logger); err != nil {
			logger.Error("enqueue tasks", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	rt, err := app.Open(openCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("open runtime", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("close error", slog.Any("error", err))
		}
	}()

	schedule, err := jobs.DefaultSchedule()
	if err != nil {
		logger.Error("build schedule", slog.Any("error", err))
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("store timezone", slog.Any("error", err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Concurrency: cfg.WorkerConcurrency,
		Location:    loc,
		Logger:      logger,
		Handlers:    jobs.NewHandlers(rt.Service, logger).TaskHandlers(),
		Cron:        schedule,
		Metrics:     jobs.NewMetrics(registry),
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := serveMetrics(cfg.WorkerMetricsAddr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("worker metrics listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	return server
}

func enqueueNow(ctx context.Context, redisOpts asynq.RedisClientOpt, logger *slog.Logger) error {
	client := jobs.NewClient(redisOpts)
	defer client.Close()

	scan, err := client.EnqueueLowStockScan(ctx)
	if err != nil {
		return err
	}
	warmup, err := client.EnqueueDashboardWarmup(ctx)
	if err != nil {
		return err
	}
	logger.Info("tasks enqueued", slog.String("low_stock_scan", scan.ID), slog.String("dashboard_warmup", warmup.ID))
	return nil
}

// validateWorkerConfig requires the shared Redis and database. The worker
// never falls back to the memory repository.
func validateWorkerConfig(cfg config.Config) error {
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the worker")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the worker")
	}
	return nil
}
