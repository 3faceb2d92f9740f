package bigquery

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"networth/internal/core"
)

func TestAccountRowConversion(t *testing.T) {
	row := AccountRow{
		ID:             "cash",
		Name:           bigquery.NullString{StringVal: "Wallet", Valid: true},
		AccountGroup:   "ASSETS",
		Category:       bigquery.NullString{StringVal: "Cash", Valid: true},
		CurrentBalance: "1500.25",
	}
	a, err := row.toAccount()
	if err != nil {
		t.Fatalf("toAccount: %v", err)
	}
	if a.Group != core.GroupAssets || a.Name != "Wallet" || !a.CurrentBalance.Equal(decimal.RequireFromString("1500.25")) {
		t.Fatalf("unexpected account %+v", a)
	}

	row.CurrentBalance = "abc"
	if _, err := row.toAccount(); err == nil {
		t.Fatal("expected error for malformed balance")
	}
}

func TestTransactionRowConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	row := TransactionRow{
		ID:              "t1",
		OccurredAt:      time.Date(2024, 2, 1, 0, 30, 0, 0, loc),
		Amount:          "0.1",
		DebitAccountID:  "cash",
		CreditAccountID: "equity",
		TxType:          bigquery.NullString{StringVal: "CAPITAL_INJECTION", Valid: true},
	}
	tx, err := row.toTransaction()
	if err != nil {
		t.Fatalf("toTransaction: %v", err)
	}
	if tx.Type != core.TypeCapitalInjection {
		t.Fatalf("type = %s", tx.Type)
	}
	if core.MonthOf(tx.DateTime) != core.NewMonth(2024, time.January) {
		t.Fatalf("expected UTC month 2024-01, got %s", core.MonthOf(tx.DateTime))
	}
	if tx.Group != "" || tx.Category != "" {
		t.Fatalf("null columns should map to empty strings: %+v", tx)
	}
}

func TestTransactionsQueryBreaksTiesByIngestion(t *testing.T) {
	q := transactionsQuery("`p.d.transactions`")
	if !strings.Contains(q, "ORDER BY occurred_at, seq") {
		t.Fatalf("same-instant transactions must keep ingestion order:\n%s", q)
	}
	if strings.Contains(q, "occurred_at, id") {
		t.Fatalf("ids must not reorder same-instant transactions:\n%s", q)
	}
}
