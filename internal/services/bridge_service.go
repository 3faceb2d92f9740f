package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"networth/internal/backend"
	"networth/internal/bridge"
	"networth/internal/cache"
	"networth/internal/log"
	"networth/internal/metrics"
)

// BridgeServiceConfig holds configuration for the bridge service
type BridgeServiceConfig struct {
	// CashCategories selects the cash accounts (default: Cash, Bank)
	CashCategories []string

	// Clock supplies Now (default: time.Now)
	Clock func() time.Time
}

// BridgeService computes cash-flow bridges against a fresh copy of the
// ledger, caching results by period.
type BridgeService struct {
	ledger     backend.LedgerReader
	classifier *bridge.Classifier
	cache      cache.Cache[bridge.Result]
	metrics    metrics.Recorder
	config     BridgeServiceConfig
}

// BridgeOption configures optional collaborators.
type BridgeOption func(*BridgeService)

// WithBridgeCache caches results by period until TTL or Invalidate.
func WithBridgeCache(c cache.Cache[bridge.Result]) BridgeOption {
	return func(s *BridgeService) { s.cache = c }
}

func WithBridgeMetrics(r metrics.Recorder) BridgeOption {
	return func(s *BridgeService) {
		if r != nil {
			s.metrics = r
		}
	}
}

func NewBridgeService(ledgerReader backend.LedgerReader, classifier *bridge.Classifier, config BridgeServiceConfig, opts ...BridgeOption) *BridgeService {
	if classifier == nil {
		classifier = bridge.Default()
	}
	if len(config.CashCategories) == 0 {
		config.CashCategories = bridge.DefaultCashCategories
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	s := &BridgeService{
		ledger:     ledgerReader,
		classifier: classifier,
		metrics:    metrics.Nop{},
		config:     config,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute returns the bridge for [start, end]. A zero end means now.
func (s *BridgeService) Compute(ctx context.Context, start, end time.Time) (bridge.Result, error) {
	key := periodKey(start, end)
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Bridge served from cache", log.FieldPeriodStart, start, log.FieldPeriodEnd, end)
			return res, nil
		}
	}

	started := time.Now()
	res, err := s.compute(ctx, start, end)
	s.metrics.RecordBridge(err == nil, time.Since(started))
	if err != nil {
		return bridge.Result{}, err
	}

	if s.cache != nil {
		s.cache.Set(key, res)
	}
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogBridge(ctx, res.PeriodStart, res.PeriodEnd, res.Opening.String(), res.Closing.String())
	return res, nil
}

func (s *BridgeService) compute(ctx context.Context, start, end time.Time) (bridge.Result, error) {
	accounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("list transactions: %w", err)
	}

	cash := bridge.SelectCashAccounts(accounts, s.config.CashCategories)
	return s.classifier.ComputeBridge(bridge.Input{
		Accounts:       accounts,
		Transactions:   txs,
		CashAccountIDs: cash,
		PeriodStart:    start,
		PeriodEnd:      end,
		Now:            s.config.Clock().UTC(),
		NowBalance:     bridge.LiveBalance(accounts, cash),
	})
}

// Invalidate drops cached bridges. Call it after the ledger changed.
func (s *BridgeService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func periodKey(start, end time.Time) string {
	if end.IsZero() {
		return start.UTC().Format(time.RFC3339Nano) + "|now"
	}
	return start.UTC().Format(time.RFC3339Nano) + "|" + end.UTC().Format(time.RFC3339Nano)
}
