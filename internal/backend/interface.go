package backend

import (
	"context"

	"networth/internal/core"
)

// Ports for the ledger and snapshot stores.
type (
	// LedgerReader returns a closed-in-time copy of the ledger. Compute code
	// never reads the store directly.
	LedgerReader interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// LedgerImporter seeds a writable ledger.
	LedgerImporter interface {
		ImportLedger(ctx context.Context, accounts []core.Account, txs []core.Transaction) error
	}

	// SnapshotStore persists MonthlySnapshot documents keyed by month id.
	SnapshotStore interface {
		// SaveSnapshots replaces every snapshot of batch atomically.
		SaveSnapshots(ctx context.Context, batch []core.MonthlySnapshot) error
		GetSnapshot(ctx context.Context, m core.Month) (core.MonthlySnapshot, error)
		// ListSnapshots returns snapshots in [from, to] ordered by month.
		ListSnapshots(ctx context.Context, from, to core.Month) ([]core.MonthlySnapshot, error)
	}
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the stores created for one backend type. Importer
// is nil for read-only ledger sources.
type BackendResult struct {
	Ledger    LedgerReader
	Importer  LedgerImporter
	Snapshots SnapshotStore
	Cleanup   CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
