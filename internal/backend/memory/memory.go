// Package memory is an in-process ledger and snapshot store seeded from JSON
// files. It backs local runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"
)

const (
	AccountsFile     = "accounts.json"
	TransactionsFile = "transactions.json"

	// maxBatchSize matches the SQLite store.
	maxBatchSize = 500
)

var ErrSnapshotNotFound = core.ErrSnapshotNotFound

type Store struct {
	mu        sync.Mutex
	accounts  []core.Account
	txs       []core.Transaction
	snapshots map[string]core.MonthlySnapshot
}

func New(accounts []core.Account, txs []core.Transaction) *Store {
	return &Store{
		accounts:  append([]core.Account(nil), accounts...),
		txs:       append([]core.Transaction(nil), txs...),
		snapshots: map[string]core.MonthlySnapshot{},
	}
}

// NewFromFiles seeds the store from accounts.json and transactions.json under
// base. Missing files yield an empty ledger; malformed ones are an error.
func NewFromFiles(base string) (*Store, error) {
	accounts, txs, err := LoadLedger(base)
	if err != nil {
		return nil, err
	}
	return New(accounts, txs), nil
}

// ListAccounts implements backend.LedgerReader
func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.accounts...), nil
}

// ListTransactions implements backend.LedgerReader
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...), nil
}

// ImportLedger replaces records by id and appends new ones.
func (s *Store) ImportLedger(_ context.Context, accounts []core.Account, txs []core.Transaction) error {
	for _, a := range accounts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %q: %w", a.ID, err)
		}
	}
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %q: %w", t.ID, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		s.accounts = upsert(s.accounts, a, func(x core.Account) string { return x.ID })
	}
	for _, t := range txs {
		s.txs = upsert(s.txs, t, func(x core.Transaction) string { return x.ID })
	}
	return nil
}

// SaveSnapshots implements backend.SnapshotStore
func (s *Store) SaveSnapshots(ctx context.Context, batch []core.MonthlySnapshot) error {
	if len(batch) > maxBatchSize {
		return fmt.Errorf("batch of %d exceeds %d", len(batch), maxBatchSize)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range batch {
		s.snapshots[snap.ID] = snap
	}
	return nil
}

// GetSnapshot implements backend.SnapshotStore
func (s *Store) GetSnapshot(_ context.Context, m core.Month) (core.MonthlySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[m.String()]
	if !ok {
		return core.MonthlySnapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, m)
	}
	return snap, nil
}

// ListSnapshots implements backend.SnapshotStore
func (s *Store) ListSnapshots(_ context.Context, from, to core.Month) ([]core.MonthlySnapshot, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("list snapshots %s..%s: %w", from, to, core.ErrInvalidRange)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MonthlySnapshot
	for id, snap := range s.snapshots {
		if id >= from.String() && id <= to.String() {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func upsert[T any](items []T, item T, key func(T) string) []T {
	for i := range items {
		if key(items[i]) == key(item) {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

// accountRecord and transactionRecord are the seed file formats.
type accountRecord struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Group          string          `json:"group"`
	Category       string          `json:"category"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Status         string          `json:"status"`
}

type transactionRecord struct {
	ID              string          `json:"id"`
	DateTime        time.Time       `json:"datetime"`
	Amount          decimal.Decimal `json:"amount"`
	DebitAccountID  string          `json:"debit_account_id"`
	CreditAccountID string          `json:"credit_account_id"`
	Type            string          `json:"type"`
	Group           string          `json:"group"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
}

// LoadLedger reads the seed files under dir.
func LoadLedger(dir string) ([]core.Account, []core.Transaction, error) {
	var accounts []core.Account
	if err := readFile(filepath.Join(dir, AccountsFile), func(r io.Reader) (err error) {
		accounts, err = DecodeAccounts(r)
		return err
	}); err != nil {
		return nil, nil, err
	}
	var txs []core.Transaction
	if err := readFile(filepath.Join(dir, TransactionsFile), func(r io.Reader) (err error) {
		txs, err = DecodeTransactions(r)
		return err
	}); err != nil {
		return nil, nil, err
	}
	return accounts, txs, nil
}

func DecodeAccounts(r io.Reader) ([]core.Account, error) {
	var records []accountRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]core.Account, len(records))
	for i, rec := range records {
		out[i] = core.Account{
			ID:             rec.ID,
			Name:           rec.Name,
			Group:          core.AccountGroup(rec.Group),
			Category:       rec.Category,
			CurrentBalance: rec.CurrentBalance,
			Status:         core.AccountStatus(rec.Status),
		}
		if err := out[i].Validate(); err != nil {
			return nil, fmt.Errorf("account %d (%q): %w", i, rec.ID, err)
		}
	}
	return out, nil
}

func DecodeTransactions(r io.Reader) ([]core.Transaction, error) {
	var records []transactionRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]core.Transaction, len(records))
	for i, rec := range records {
		out[i] = core.Transaction{
			ID:              rec.ID,
			DateTime:        rec.DateTime.UTC(),
			Amount:          rec.Amount,
			DebitAccountID:  rec.DebitAccountID,
			CreditAccountID: rec.CreditAccountID,
			Type:            core.TransactionType(rec.Type),
			Group:           core.AccountGroup(rec.Group),
			Category:        rec.Category,
			Description:     rec.Description,
		}
		if err := out[i].Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d (%q): %w", i, rec.ID, err)
		}
	}
	return out, nil
}

func readFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
