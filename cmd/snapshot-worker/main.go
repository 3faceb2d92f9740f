package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"networth/internal/amqp"
	"networth/internal/cli"
	"networth/internal/metrics"
	"networth/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting snapshot-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	}()

	recorder, registry := cli.InitMetrics(logger, cfg)
	exporter := cli.InitExporter(context.Background(), logger, cfg)
	snapshots := cli.NewSnapshotService(cfg, res, exporter, recorder)
	snapshotWorker := worker.NewSnapshotWorker(snapshots, time.Now)

	scheduler := worker.NewScheduler(snapshotWorker.RefreshCurrentMonth, worker.SchedulerConfig{
		Interval:   cfg.SnapshotInterval,
		RunOnStart: true,
	})

	// The worker exposes only /metrics; the API lives in cmd/networth.
	var metricsSrv *http.Server
	if registry != nil {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler(registry))
		metricsSrv = &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", "error", err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Error("Failed to stop scheduler", "error", err)
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	logger.Info("Current-month refresh scheduled", "interval", cfg.SnapshotInterval)

	if cfg.AMQPURL == "" {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	} else {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		go func() {
			err := client.ConsumeSnapshotRequests(ctx, snapshotWorker.HandleSnapshotRequest)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
