package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"
)

func TestNewFromFilesSeedsLedger(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	// No files -> empty ledger
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	accounts, _ := s.ListAccounts(context.Background())
	if len(accounts) != 0 {
		t.Fatalf("expected empty ledger, got %v", accounts)
	}

	mustWrite(AccountsFile, `[
		{"id":"cash","name":"Wallet","group":"ASSETS","category":"Cash","current_balance":"12.50","status":"ACTIVE"},
		{"id":"equity","group":"CAPITAL","category":"Equity Fund"}
	]`)
	mustWrite(TransactionsFile, `[
		{"id":"t1","datetime":"2024-01-05T10:00:00+02:00","amount":"12.5","debit_account_id":"cash","credit_account_id":"equity","group":"INCOME"}
	]`)

	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	accounts, _ = s.ListAccounts(context.Background())
	txs, _ := s.ListTransactions(context.Background())
	if len(accounts) != 2 || len(txs) != 1 {
		t.Fatalf("unexpected seed: %d accounts %d txs", len(accounts), len(txs))
	}
	if !accounts[0].CurrentBalance.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("balance = %s", accounts[0].CurrentBalance)
	}
	if txs[0].DateTime.Location() != time.UTC || txs[0].DateTime.Hour() != 8 {
		t.Fatalf("datetime not normalized to UTC: %v", txs[0].DateTime)
	}
}

func TestDecodeRejectsInvalidRecords(t *testing.T) {
	_, err := DecodeTransactions(strings.NewReader(`[{"id":"t","datetime":"2024-01-01T00:00:00Z","amount":"-1","debit_account_id":"a","credit_account_id":"b"}]`))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	_, err = DecodeAccounts(strings.NewReader(`[{"id":"x","group":"LIABILITIES"}]`))
	if !errors.Is(err, core.ErrInvalidGroup) {
		t.Fatalf("expected ErrInvalidGroup, got %v", err)
	}
}

func TestSnapshotStore(t *testing.T) {
	s := New(nil, nil)
	ctx := context.Background()
	jan, feb := core.NewMonth(2024, time.January), core.NewMonth(2024, time.February)

	if err := s.SaveSnapshots(ctx, []core.MonthlySnapshot{{ID: feb.String()}, {ID: jan.String()}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSnapshots(ctx, []core.MonthlySnapshot{{ID: jan.String(), Summary: core.Summary{NetWorth: decimal.NewFromInt(7)}}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.GetSnapshot(ctx, jan)
	if err != nil || !got.Summary.NetWorth.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected snapshot %+v err=%v", got, err)
	}
	list, _ := s.ListSnapshots(ctx, jan, feb)
	if len(list) != 2 || list[0].ID != "2024-01" {
		t.Fatalf("unexpected list %+v", list)
	}
	if _, err := s.GetSnapshot(ctx, feb.Next()); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestImportLedgerUpsertsByID(t *testing.T) {
	s := New([]core.Account{{ID: "cash", Group: core.GroupAssets}}, nil)
	err := s.ImportLedger(context.Background(), []core.Account{
		{ID: "cash", Group: core.GroupAssets, Category: "Bank"},
		{ID: "loan", Group: core.GroupCapital},
	}, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	accounts, _ := s.ListAccounts(context.Background())
	if len(accounts) != 2 || accounts[0].Category != "Bank" {
		t.Fatalf("unexpected accounts %+v", accounts)
	}
}
