// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/networth, cmd/snapshot-worker, and cmd/snapshot.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"networth/internal/backend"
	"networth/internal/bridge"
	"networth/internal/cache"
	"networth/internal/config"
	applog "networth/internal/log"
	"networth/internal/metrics"
	"networth/internal/services"
	"networth/internal/sheets"
	"networth/internal/sheets/google"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL and
// sets it as the default logger.
func SetupLogger(level string) *slog.Logger {
	logger := applog.New(applog.Config{Level: applog.ParseLevel(level)})
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend creates the ledger and snapshot stores selected by
// LEDGER_BACKEND. Exits the process on failure.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.LedgerBackend)
		os.Exit(1)
	}
	return res
}

// InitMetrics returns a registry with the snapshot collector and the Go
// runtime collectors, or a no-op recorder when metrics are disabled.
func InitMetrics(logger *slog.Logger, cfg *config.Config) (metrics.Recorder, *prometheus.Registry) {
	if !cfg.MetricsEnabled {
		return metrics.Nop{}, nil
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(metrics.DefaultNamespace)
	if err := collector.Register(registry); err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}
	return collector, registry
}

// InitExporter creates the Google Sheets exporter when a spreadsheet is
// configured. Failures are logged and export is disabled.
func InitExporter(ctx context.Context, logger *slog.Logger, cfg *config.Config) sheets.SnapshotExporter {
	if cfg.GoogleSpreadsheetID == "" {
		return nil
	}
	exp, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.SnapshotSheetName)
	if err != nil {
		logger.Warn("Google Sheets export disabled", "error", err)
		return nil
	}
	logger.Info("Google Sheets export enabled", "sheet", cfg.SnapshotSheetName)
	return exp
}

// NewSnapshotService wires the snapshot service from configuration.
func NewSnapshotService(cfg *config.Config, res *backend.BackendResult, exporter sheets.SnapshotExporter, recorder metrics.Recorder) *services.SnapshotService {
	svcCfg := services.DefaultSnapshotServiceConfig()
	svcCfg.BatchSize = cfg.SnapshotBatchSize
	svcCfg.Concurrency = cfg.SnapshotConcurrency
	svcCfg.MaxMonths = cfg.SnapshotMaxMonths

	opts := []services.SnapshotOption{services.WithMetrics(recorder)}
	if exporter != nil {
		opts = append(opts, services.WithExporter(exporter))
	}
	return services.NewSnapshotService(res.Ledger, res.Snapshots, svcCfg, opts...)
}

// bridgeCacheSize bounds distinct cached periods.
const bridgeCacheSize = 256

// NewBridgeService wires the bridge service. When BRIDGE_CACHE_TTL is set the
// result cache is registered with the returned manager, whose cleanup is
// already running; the manager is nil otherwise.
func NewBridgeService(cfg *config.Config, res *backend.BackendResult, recorder metrics.Recorder) (*services.BridgeService, *cache.Manager) {
	opts := []services.BridgeOption{services.WithBridgeMetrics(recorder)}

	var manager *cache.Manager
	if cfg.BridgeCacheTTL > 0 {
		results := cache.NewLRUCache[bridge.Result](bridgeCacheSize, cfg.BridgeCacheTTL)
		manager = cache.NewManager()
		manager.Register(results)
		manager.StartCleanup(cfg.BridgeCacheTTL)
		opts = append(opts, services.WithBridgeCache(results))
	}

	svc := services.NewBridgeService(res.Ledger, bridge.Default(), services.BridgeServiceConfig{
		CashCategories: cfg.CashCategories,
		Clock:          time.Now,
	}, opts...)
	return svc, manager
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
