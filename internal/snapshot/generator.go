// Package snapshot materializes MonthlySnapshot records.
//
// Every month is computed independently: a fresh full replay to the month's
// last instant plus a separate pass over the month's transactions for PnL.
// No state is carried between months, so regenerating a month twice yields
// identical output and regenerating one month never touches another.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"networth/internal/core"
	"networth/internal/ledger"
)

// Generator builds snapshots for an explicit list of months.
type Generator struct {
	concurrency int
	now         func() time.Time
	observe     ObserverFunc
}

// ObserverFunc is called once per computed month, concurrently.
type ObserverFunc func(m core.Month, elapsed time.Duration, err error)

// Option configures a Generator.
type Option func(*Generator)

// WithConcurrency bounds how many months are replayed at once.
func WithConcurrency(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// WithClock sets the source of CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithObserver registers a per-month callback, typically for metrics.
func WithObserver(fn ObserverFunc) Option {
	return func(g *Generator) {
		g.observe = fn
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		concurrency: runtime.GOMAXPROCS(0),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MonthErrors collects per-month failures. Months not listed succeeded.
type MonthErrors struct {
	Failed map[core.Month]error
}

func (e *MonthErrors) Error() string {
	months := e.Months()
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = fmt.Sprintf("%s: %v", m, e.Failed[m])
	}
	return fmt.Sprintf("snapshot generation failed for %d month(s): %s", len(months), strings.Join(parts, "; "))
}

// Unwrap exposes every month error to errors.Is and errors.As.
func (e *MonthErrors) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, m := range e.Months() {
		errs = append(errs, e.Failed[m])
	}
	return errs
}

// Months returns the failed months in chronological order.
func (e *MonthErrors) Months() []core.Month {
	months := make([]core.Month, 0, len(e.Failed))
	for m := range e.Failed {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// Generate computes one snapshot per requested month. Duplicate months are
// collapsed; output follows the request order. Failed months are omitted from
// the result and reported through a *MonthErrors; successful months are still
// returned. A non-positive amount anywhere in the log fails the whole call
// before any month is built. Cancellation is honored between months, never
// mid-month.
func (g *Generator) Generate(ctx context.Context, accounts []core.Account, transactions []core.Transaction, months []core.Month) ([]core.MonthlySnapshot, error) {
	if err := ledger.ValidateAmounts(transactions); err != nil {
		return nil, err
	}
	months = dedupe(months)
	createdAt := g.now().UTC()

	results := make([]*core.MonthlySnapshot, len(months))
	errs := make([]error, len(months))

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, m := range months {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			started := time.Now()
			snap, err := Build(m, accounts, transactions, createdAt)
			if g.observe != nil {
				g.observe(m, time.Since(started), err)
			}
			if err != nil {
				slog.WarnContext(ctx, "Snapshot month failed", "month", m.String(), "error", err)
				errs[i] = err
				return nil
			}
			slog.InfoContext(ctx, "Snapshot month computed",
				"month", m.String(),
				"net_worth", snap.Summary.NetWorth.String(),
				"accounts", len(snap.AccountsDetail),
				"duration_ms", time.Since(started).Milliseconds())
			results[i] = &snap
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]core.MonthlySnapshot, 0, len(months))
	failed := map[core.Month]error{}
	for i, m := range months {
		if errs[i] != nil {
			failed[m] = errs[i]
			continue
		}
		out = append(out, *results[i])
	}
	if len(failed) > 0 {
		return out, &MonthErrors{Failed: failed}
	}
	return out, nil
}

// Build computes the snapshot of a single month.
func Build(m core.Month, accounts []core.Account, transactions []core.Transaction, createdAt time.Time) (core.MonthlySnapshot, error) {
	cutoff := m.End()
	balances, err := ledger.ComputeBalances(accounts, transactions, cutoff)
	if err != nil {
		return core.MonthlySnapshot{}, fmt.Errorf("replay %s: %w", m, err)
	}

	summary, detail := Aggregate(accounts, balances)
	snap := core.MonthlySnapshot{
		ID:             m.String(),
		SnapshotDate:   cutoff,
		Summary:        summary,
		AccountsDetail: detail,
		PnL:            ComputePnL(transactions, m),
		CreatedAt:      createdAt,
	}
	if err := Verify(snap); err != nil {
		return core.MonthlySnapshot{}, err
	}
	return snap, nil
}

func dedupe(months []core.Month) []core.Month {
	seen := make(map[core.Month]struct{}, len(months))
	out := make([]core.Month, 0, len(months))
	for _, m := range months {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
