package sheets

import (
	"context"

	"networth/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotExporter mirrors persisted snapshots into an external
	// spreadsheet. Rows are keyed by month id and overwritten in place.
	SnapshotExporter interface {
		ExportSnapshots(ctx context.Context, snaps []core.MonthlySnapshot) error
	}
)
