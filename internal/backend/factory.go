package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	bq "networth/internal/backend/bigquery"
	"networth/internal/backend/memory"
	"networth/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case BigQueryBackend:
		return f.createBigQueryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Ledger:    repo,
		Importer:  repo,
		Snapshots: repo,
		Cleanup:   repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend seed: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Ledger:    store,
		Importer:  store,
		Snapshots: store,
	}, nil
}

func (f *DefaultFactory) createBigQueryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	source, err := bq.NewSource(ctx, config.BigQueryProjectID, config.BigQueryDataset)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize BigQuery source: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("failed to initialize SQLite snapshot store: %w", err)
	}

	f.logger.Info("Initialized BigQuery backend",
		"project", config.BigQueryProjectID,
		"dataset", config.BigQueryDataset,
		"snapshot_db", config.SQLiteDBPath)

	return &BackendResult{
		Ledger:    source,
		Snapshots: repo,
		Cleanup: func() error {
			return errors.Join(source.Close(), repo.Close())
		},
	}, nil
}
