package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vmarkevych/storefront/internal/config"
	"github.com/vmarkevych/storefront/internal/jobs"
	"github.com/vmarkevych/storefront/internal/notifications"
	"github.com/vmarkevych/storefront/internal/observability"
	"github.com/vmarkevych/storefront/internal/queue/redisclient"
	"github.com/vmarkevych/storefront/internal/queue/worker"
)

const serviceName = "storefront-worker"

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, serviceName)
	slog.SetDefault(log)

	if cfg.Redis.Addr == "" {
		log.Error("REDIS_ADDR is required for the worker")
		os.Exit(1)
	}

	rc, err := redisclient.Connect(ctx, redisclient.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Worker.Concurrency + 2,
	})
	if err != nil {
		log.Error("redis unreachable", "err", err)
		os.Exit(1)
	}
	defer rc.Close()

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log,
			notifications.WithDelay(cfg.Worker.NotifierDelay),
			notifications.WithFailure(cfg.Worker.NotifierFail),
		),
		notifications.ProtectedNotifierConfig{Timeout: 3 * time.Second},
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	w := worker.New(worker.Config{
		Concurrency:   cfg.Worker.Concurrency,
		PollInterval:  cfg.Worker.PollInterval,
		JobTimeout:    cfg.Worker.JobTimeout,
		ShutdownGrace: cfg.Worker.ShutdownGrace,
	}, redisclient.NewQueue(rc, cfg.Redis.QueueKey), log, observability.NewProm(reg), observability.NewJobMetrics())

	w.Handle(jobs.JobOrderConfirmation, jobs.OrderConfirmationHandler(notifier))

	ops := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:           w.HealthHandler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("worker ops server starting", "port", cfg.Worker.MetricsPort)
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server failed", "err", err)
		}
	}()

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = ops.Shutdown(sctx)

	log.Info("worker shutdown complete")
}
