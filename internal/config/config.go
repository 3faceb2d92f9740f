package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"networth/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Ledger source selection
	LedgerBackend string
	LedgerDataDir string

	// BigQuery ledger source
	BigQueryProjectID string
	BigQueryDataset   string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Snapshot generation
	SnapshotBatchSize   int
	SnapshotConcurrency int
	SnapshotInterval    time.Duration
	// SnapshotMaxMonths caps the months of a single generation request.
	SnapshotMaxMonths int

	// Bridge
	CashCategories []string
	// BridgeCacheTTL of zero disables the bridge result cache.
	BridgeCacheTTL time.Duration

	// Google Sheets export (optional)
	GoogleSpreadsheetID string
	SnapshotSheetName   string

	MetricsEnabled bool
	LogLevel       string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/networth.db"),

		LedgerBackend: getEnv("LEDGER_BACKEND", "sqlite"),
		LedgerDataDir: getEnv("LEDGER_DATA_DIR", "data"),

		BigQueryProjectID: getEnv("BIGQUERY_PROJECT_ID", ""),
		BigQueryDataset:   getEnv("BIGQUERY_DATASET", "ledger"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "networth"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_requests"),

		SnapshotBatchSize:   getEnvInt("SNAPSHOT_BATCH_SIZE", core.MaxSnapshotBatch),
		SnapshotConcurrency: getEnvInt("SNAPSHOT_CONCURRENCY", 4),
		SnapshotInterval:    getEnvDuration("SNAPSHOT_INTERVAL", time.Hour),
		SnapshotMaxMonths:   getEnvInt("SNAPSHOT_MAX_MONTHS", 240),

		CashCategories: getEnvList("CASH_CATEGORIES", []string{"Cash", "Bank"}),
		BridgeCacheTTL: getEnvDuration("BRIDGE_CACHE_TTL", 5*time.Minute),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		SnapshotSheetName:   getEnv("SNAPSHOT_SHEET_NAME", "Snapshots"),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"sqlite", "memory", "bigquery"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.LedgerBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	// sqlite also stores snapshots for the bigquery source
	if c.LedgerBackend == "sqlite" || c.LedgerBackend == "bigquery" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, fmt.Sprintf("SQLite database path cannot be empty when using %s backend", c.LedgerBackend))
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.LedgerBackend == "bigquery" {
		if c.BigQueryProjectID == "" {
			errors = append(errors, "BigQuery project ID is required when using bigquery backend")
		}
		if c.BigQueryDataset == "" {
			errors = append(errors, "BigQuery dataset is required when using bigquery backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SnapshotBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot batch size %d: must be at least 1", c.SnapshotBatchSize))
	} else if c.SnapshotBatchSize > core.MaxSnapshotBatch {
		errors = append(errors, fmt.Sprintf("invalid snapshot batch size %d: must be at most %d", c.SnapshotBatchSize, core.MaxSnapshotBatch))
	}

	if c.SnapshotConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot concurrency %d: must be at least 1", c.SnapshotConcurrency))
	}

	if c.SnapshotMaxMonths < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot max months %d: must be at least 1", c.SnapshotMaxMonths))
	}

	if c.SnapshotInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid snapshot interval %v: must be at least 1 minute", c.SnapshotInterval))
	} else if c.SnapshotInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid snapshot interval %v: must be at most 24 hours", c.SnapshotInterval))
	}

	if len(c.CashCategories) == 0 {
		errors = append(errors, "at least one cash category is required")
	}

	if c.BridgeCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid bridge cache TTL %v: must not be negative", c.BridgeCacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
