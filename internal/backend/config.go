package backend

import (
	"fmt"

	"networth/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite ledger and snapshot store; snapshots of the bigquery source
	// are kept here too.
	SQLiteDBPath string

	// BigQuery ledger source
	BigQueryProjectID string
	BigQueryDataset   string

	// Memory backend seed directory
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	MemoryBackend   BackendType = "memory"
	BigQueryBackend BackendType = "bigquery"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend, BigQueryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.LedgerBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.LedgerBackend)
	}

	return Config{
		Type:              backendType,
		SQLiteDBPath:      appConfig.SQLiteDBPath,
		BigQueryProjectID: appConfig.BigQueryProjectID,
		BigQueryDataset:   appConfig.BigQueryDataset,
		DataDirectory:     appConfig.LedgerDataDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case BigQueryBackend:
		if c.BigQueryProjectID == "" || c.BigQueryDataset == "" {
			return fmt.Errorf("BigQuery project and dataset are required for bigquery backend")
		}
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required to store snapshots for bigquery backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data"
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend, BigQueryBackend}
}
