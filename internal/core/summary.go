package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance is one row of a snapshot's accounts detail.
type AccountBalance struct {
	AccountID string          `json:"account_id"`
	Name      string          `json:"name,omitempty"`
	Group     AccountGroup    `json:"group"`
	Category  string          `json:"category"`
	Balance   decimal.Decimal `json:"balance"`
}

// Summary holds the balance-sheet totals of a snapshot.
type Summary struct {
	NetWorth         decimal.Decimal `json:"net_worth"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
}

// PnL is the categorical income/expense sum over a month.
type PnL struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Savings decimal.Decimal `json:"savings"`
}

// MaxSnapshotBatch is the most snapshots written in one atomic store call.
const MaxSnapshotBatch = 500

// MonthlySnapshot is the persisted materialization of a month end.
// It is replaced wholesale on regeneration.
type MonthlySnapshot struct {
	ID             string           `json:"id"`
	SnapshotDate   time.Time        `json:"snapshot_date"`
	Summary        Summary          `json:"summary"`
	AccountsDetail []AccountBalance `json:"accounts_detail"`
	PnL            PnL              `json:"pnl_performance"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Month returns the month identified by the snapshot id.
func (s MonthlySnapshot) Month() (Month, error) {
	return ParseMonth(s.ID)
}

// Balances returns the accounts detail as an id to balance map.
func (s MonthlySnapshot) Balances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s.AccountsDetail))
	for _, ab := range s.AccountsDetail {
		out[ab.AccountID] = ab.Balance
	}
	return out
}
