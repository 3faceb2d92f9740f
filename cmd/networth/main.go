package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"networth/internal/amqp"
	"networth/internal/cli"
	"networth/internal/core"
	apphttp "networth/internal/http"
	applog "networth/internal/log"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
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
	bridges, caches := cli.NewBridgeService(cfg, res, recorder)

	// With a broker configured, generation requests are handed to
	// snapshot-worker instead of running inside the request.
	var publisher apphttp.RequestPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Snapshot generation queued via AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Snapshots: snapshots,
		Bridge:    bridges,
		Publisher: publisher,
		Ready: func(ctx context.Context) error {
			m := core.MonthOf(time.Now())
			_, err := res.Snapshots.ListSnapshots(ctx, m, m)
			return err
		},
		Registry: registry,
		Caches:   caches,
		Logger:   applog.New(applog.Config{Handler: logger.Handler()}),
	})

	// Generation of long ranges runs inside the request when no broker is
	// configured, so the write timeout is generous.
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2 * time.Minute
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting networth server",
		"port", cfg.Port,
		"backend", cfg.LedgerBackend,
		"metrics", registry != nil,
		"bridge_cache_ttl", cfg.BridgeCacheTTL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
