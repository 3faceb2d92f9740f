package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"networth/internal/backend"
	"networth/internal/core"
	"networth/internal/ledger"
	"networth/internal/log"
	"networth/internal/metrics"
	"networth/internal/sheets"
	"networth/internal/snapshot"
)

var (
	ErrNoMonths    = errors.New("no months requested")
	ErrChainBroken = errors.New("snapshot chain broken")
)

// SnapshotServiceConfig holds configuration for the snapshot service
type SnapshotServiceConfig struct {
	// BatchSize is the number of snapshots per atomic chunk (default: 500, max: 500)
	BatchSize int

	// Concurrency bounds how many months are replayed at once (default: 4)
	Concurrency int

	// MaxMonths caps the months of one run (default: 240)
	MaxMonths int

	// Clock supplies CreatedAt (default: time.Now)
	Clock func() time.Time
}

// DefaultSnapshotServiceConfig returns sensible defaults
func DefaultSnapshotServiceConfig() SnapshotServiceConfig {
	return SnapshotServiceConfig{
		BatchSize:   core.MaxSnapshotBatch,
		Concurrency: 4,
		MaxMonths:   240,
		Clock:       time.Now,
	}
}

// SnapshotService fetches a closed copy of the ledger, generates monthly
// snapshots and persists them in atomic chunks.
type SnapshotService struct {
	ledger    backend.LedgerReader
	store     backend.SnapshotStore
	exporter  sheets.SnapshotExporter
	metrics   metrics.Recorder
	generator *snapshot.Generator
	config    SnapshotServiceConfig
}

// SnapshotOption configures optional collaborators.
type SnapshotOption func(*SnapshotService)

// WithExporter mirrors committed snapshots to an external sheet.
func WithExporter(e sheets.SnapshotExporter) SnapshotOption {
	return func(s *SnapshotService) { s.exporter = e }
}

// WithMetrics reports month and chunk outcomes to r.
func WithMetrics(r metrics.Recorder) SnapshotOption {
	return func(s *SnapshotService) {
		if r != nil {
			s.metrics = r
		}
	}
}

func NewSnapshotService(ledgerReader backend.LedgerReader, store backend.SnapshotStore, config SnapshotServiceConfig, opts ...SnapshotOption) *SnapshotService {
	if config.BatchSize <= 0 || config.BatchSize > core.MaxSnapshotBatch {
		config.BatchSize = core.MaxSnapshotBatch
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.MaxMonths <= 0 {
		config.MaxMonths = DefaultSnapshotServiceConfig().MaxMonths
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	s := &SnapshotService{
		ledger:  ledgerReader,
		store:   store,
		metrics: metrics.Nop{},
		config:  config,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.generator = snapshot.NewGenerator(
		snapshot.WithConcurrency(config.Concurrency),
		snapshot.WithClock(config.Clock),
		snapshot.WithObserver(func(_ core.Month, elapsed time.Duration, err error) {
			s.metrics.RecordMonth(err == nil, elapsed)
		}),
	)
	return s
}

// RunResult describes one generation run.
type RunResult struct {
	RunID     string
	Requested []core.Month
	Snapshots []core.MonthlySnapshot
	Committed []core.Month
}

// GenerateRange expands [from, to] and generates every month in it.
func (s *SnapshotService) GenerateRange(ctx context.Context, from, to core.Month) (*RunResult, error) {
	months, err := core.MonthRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, months)
}

// Generate regenerates and persists the given months. The returned result is
// non-nil whenever the ledger could be read, even on partial failure: months
// that failed to compute come back as a *snapshot.MonthErrors, chunks that
// failed to commit as a *core.PartialBatchCommitError. Both may be joined.
func (s *SnapshotService) Generate(ctx context.Context, months []core.Month) (*RunResult, error) {
	if len(months) == 0 {
		return nil, ErrNoMonths
	}
	if len(months) > s.config.MaxMonths {
		return nil, fmt.Errorf("%w: %d months requested, limit %d", core.ErrInvalidRange, len(months), s.config.MaxMonths)
	}
	runID := uuid.NewString()
	slog.InfoContext(ctx, "Snapshot run started", log.FieldRunID, runID, log.FieldMonths, len(months))

	accounts, txs, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	// nothing is generated or written from a log with invalid amounts
	if err := ledger.ValidateAmounts(txs); err != nil {
		return nil, fmt.Errorf("validate ledger: %w", err)
	}

	snaps, genErr := s.generator.Generate(ctx, accounts, txs, months)
	res := &RunResult{RunID: runID, Requested: months, Snapshots: snaps}

	committed, persistErr := s.persist(ctx, snaps)
	res.Committed = committed

	if len(committed) > 0 && s.exporter != nil {
		s.export(ctx, snaps[:len(committed)])
	}

	err = errors.Join(genErr, persistErr)
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogSnapshotRun(ctx, runID, len(months), len(committed), len(months)-len(committed), err)
	return res, err
}

func (s *SnapshotService) fetch(ctx context.Context) ([]core.Account, []core.Transaction, error) {
	accounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	return accounts, txs, nil
}

// persist writes snaps in chunks of BatchSize. It stops at the first failed
// chunk; that chunk and every later one are reported as failed.
func (s *SnapshotService) persist(ctx context.Context, snaps []core.MonthlySnapshot) ([]core.Month, error) {
	var committed []core.Month
	for start := 0; start < len(snaps); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(snaps))
		chunk := snaps[start:end]

		err := ctx.Err()
		if err == nil {
			err = s.store.SaveSnapshots(ctx, chunk)
		}
		s.metrics.RecordChunk(err == nil, len(chunk))
		if err != nil {
			slog.ErrorContext(ctx, "Snapshot chunk failed",
				log.FieldOperation, log.OpPersist,
				"chunk_start", start,
				"chunk_size", len(chunk),
				log.FieldError, err)
			return committed, &core.PartialBatchCommitError{
				Committed: committed,
				Failed:    snapshotMonths(snaps[start:]),
				Err:       err,
			}
		}
		committed = append(committed, snapshotMonths(chunk)...)
	}
	return committed, nil
}

func (s *SnapshotService) export(ctx context.Context, snaps []core.MonthlySnapshot) {
	if err := s.exporter.ExportSnapshots(ctx, snaps); err != nil {
		// Don't fail the run - snapshots are durable locally
		slog.ErrorContext(ctx, "Failed to export snapshots",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
	}
}

func (s *SnapshotService) GetSnapshot(ctx context.Context, m core.Month) (core.MonthlySnapshot, error) {
	return s.store.GetSnapshot(ctx, m)
}

func (s *SnapshotService) ListSnapshots(ctx context.Context, from, to core.Month) ([]core.MonthlySnapshot, error) {
	return s.store.ListSnapshots(ctx, from, to)
}

// ChainBreak is one account whose replayed balance disagrees with the next
// persisted snapshot.
type ChainBreak struct {
	From      core.Month
	To        core.Month
	AccountID string
	Replayed  decimal.Decimal
	Stored    decimal.Decimal
}

func (b ChainBreak) String() string {
	return fmt.Sprintf("%s->%s %s: replayed %s, stored %s", b.From, b.To, b.AccountID, b.Replayed, b.Stored)
}

// ChainError lists every break found by VerifyChain.
type ChainError struct {
	Breaks []ChainBreak
}

func (e *ChainError) Error() string {
	if len(e.Breaks) == 1 {
		return fmt.Sprintf("snapshot chain broken: %s", e.Breaks[0])
	}
	return fmt.Sprintf("snapshot chain broken at %d account(s), first %s", len(e.Breaks), e.Breaks[0])
}

func (e *ChainError) Is(target error) bool {
	return target == ErrChainBroken
}

// VerifyChain checks the persisted snapshots of [from, to]: replaying the
// transactions in (S(n).SnapshotDate, S(n+1).SnapshotDate] on top of S(n)
// must reproduce S(n+1). Months without a stored snapshot are skipped, so
// a gap restarts the chain.
func (s *SnapshotService) VerifyChain(ctx context.Context, from, to core.Month) error {
	if _, err := core.MonthRange(from, to); err != nil {
		return err
	}
	snaps, err := s.store.ListSnapshots(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	accounts, txs, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	var breaks []ChainBreak
	for i := 1; i < len(snaps); i++ {
		prev, next := snaps[i-1], snaps[i]
		prevMonth, err := prev.Month()
		if err != nil {
			return err
		}
		nextMonth, err := next.Month()
		if err != nil {
			return err
		}
		if prevMonth.Next() != nextMonth {
			continue
		}

		replayed, err := ledger.Apply(prev.Balances(), accounts, txs, prev.SnapshotDate, next.SnapshotDate)
		if err != nil {
			s.metrics.RecordChainCheck(false)
			return fmt.Errorf("replay %s->%s: %w", prevMonth, nextMonth, err)
		}
		stored := ledger.Balances(next.Balances())
		if replayed.Equal(stored) {
			continue
		}
		for _, id := range sortedKeys(replayed, stored) {
			if r, st := replayed.Get(id), stored.Get(id); !r.Equal(st) {
				breaks = append(breaks, ChainBreak{From: prevMonth, To: nextMonth, AccountID: id, Replayed: r, Stored: st})
			}
		}
	}

	s.metrics.RecordChainCheck(len(breaks) == 0)
	if len(breaks) > 0 {
		return &ChainError{Breaks: breaks}
	}
	slog.InfoContext(ctx, "Snapshot chain verified",
		log.FieldOperation, log.OpVerify,
		"snapshots", len(snaps))
	return nil
}

func snapshotMonths(snaps []core.MonthlySnapshot) []core.Month {
	out := make([]core.Month, 0, len(snaps))
	for _, s := range snaps {
		if m, err := s.Month(); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func sortedKeys(a, b ledger.Balances) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}
