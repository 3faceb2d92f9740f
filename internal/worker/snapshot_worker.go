// Package worker runs snapshot generation outside the request path: queued
// requests from AMQP and a periodic refresh of the current month.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"networth/internal/amqp"
	"networth/internal/core"
	"networth/internal/services"
	"networth/internal/snapshot"
)

// SnapshotGenerator is the part of services.SnapshotService the worker uses.
type SnapshotGenerator interface {
	Generate(ctx context.Context, months []core.Month) (*services.RunResult, error)
	VerifyChain(ctx context.Context, from, to core.Month) error
}

// SnapshotWorker turns requests into generation runs.
type SnapshotWorker struct {
	snapshots SnapshotGenerator
	now       func() time.Time
}

func NewSnapshotWorker(snapshots SnapshotGenerator, now func() time.Time) *SnapshotWorker {
	if now == nil {
		now = time.Now
	}
	return &SnapshotWorker{snapshots: snapshots, now: now}
}

// HandleSnapshotRequest processes a single request from AMQP. A request whose
// failures all come from ledger data is dropped: replaying the same ledger
// cannot fix it. Persistence failures and interrupted months are returned so
// the delivery is retried; the overwrite is idempotent.
func (w *SnapshotWorker) HandleSnapshotRequest(ctx context.Context, msg *amqp.SnapshotRequestMessage) error {
	months, err := msg.Months()
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Processing snapshot request",
		"request_id", msg.RequestID,
		"months", len(months),
		"first", months[0].String(),
		"last", months[len(months)-1].String())

	res, err := w.snapshots.Generate(ctx, months)
	if err != nil {
		var pe *core.PartialBatchCommitError
		var me *snapshot.MonthErrors
		switch {
		case errors.As(err, &pe):
			return fmt.Errorf("request %s: %w", msg.RequestID, err)
		case errors.As(err, &me) && onlyDataErrors(me), isDataError(err), errors.Is(err, core.ErrInvalidRange):
			return fmt.Errorf("request %s: %w: %w", msg.RequestID, amqp.ErrInvalidMessage, err)
		default:
			return fmt.Errorf("request %s: %w", msg.RequestID, err)
		}
	}

	if msg.Verify {
		if err := w.snapshots.VerifyChain(ctx, months[0], months[len(months)-1]); err != nil {
			// the snapshots are committed; a broken chain needs a human
			slog.ErrorContext(ctx, "Snapshot chain verification failed",
				"request_id", msg.RequestID,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Snapshot request completed",
		"request_id", msg.RequestID,
		"run_id", res.RunID,
		"committed", len(res.Committed))
	return nil
}

func isDataError(err error) bool {
	return errors.Is(err, core.ErrMissingAccount) || errors.Is(err, core.ErrInvalidAmount)
}

func onlyDataErrors(me *snapshot.MonthErrors) bool {
	for _, err := range me.Failed {
		if !isDataError(err) {
			return false
		}
	}
	return true
}

// RefreshCurrentMonth regenerates the month containing now. The current
// month keeps changing as transactions are recorded, so its snapshot is
// refreshed on a schedule.
func (w *SnapshotWorker) RefreshCurrentMonth(ctx context.Context) error {
	m := core.MonthOf(w.now())
	if _, err := w.snapshots.Generate(ctx, []core.Month{m}); err != nil {
		return fmt.Errorf("refresh %s: %w", m, err)
	}
	return nil
}
