package snapshot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"networth/internal/core"
	"networth/internal/ledger"
)

// ErrIdentityViolation means a snapshot's summary disagrees with its detail.
var ErrIdentityViolation = errors.New("accounting identity violated")

// Aggregate turns replayed balances into summary totals and an accounts
// detail sorted by account id.
//
//	total_assets      = sum of ASSETS
//	total_liabilities = sum of CAPITAL where category != Equity Fund
//	total_equity      = sum of CAPITAL where category == Equity Fund
//	net_worth         = total_assets - total_liabilities
func Aggregate(accounts []core.Account, balances ledger.Balances) (core.Summary, []core.AccountBalance) {
	summary := core.Summary{
		NetWorth:         decimal.Zero,
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
	}
	detail := make([]core.AccountBalance, 0, len(accounts))

	for _, a := range accounts {
		if !a.Group.CarriesBalance() {
			continue
		}
		bal := balances.Get(a.ID)
		detail = append(detail, core.AccountBalance{
			AccountID: a.ID,
			Name:      a.Name,
			Group:     a.Group,
			Category:  a.Category,
			Balance:   bal,
		})
		switch {
		case a.Group == core.GroupAssets:
			summary.TotalAssets = summary.TotalAssets.Add(bal)
		case a.IsEquity():
			summary.TotalEquity = summary.TotalEquity.Add(bal)
		case a.IsLiability():
			summary.TotalLiabilities = summary.TotalLiabilities.Add(bal)
		}
	}
	summary.NetWorth = summary.TotalAssets.Sub(summary.TotalLiabilities)

	sort.Slice(detail, func(i, j int) bool { return detail[i].AccountID < detail[j].AccountID })
	return summary, detail
}

// ComputePnL sums transaction amounts by reporting group over the month.
// Polarity rules do not apply here.
func ComputePnL(transactions []core.Transaction, m core.Month) core.PnL {
	pnl := core.PnL{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range transactions {
		if !m.Contains(tx.DateTime) {
			continue
		}
		switch tx.Group {
		case core.GroupIncome:
			pnl.Income = pnl.Income.Add(tx.Amount)
		case core.GroupExpenses:
			pnl.Expense = pnl.Expense.Add(tx.Amount)
		}
	}
	pnl.Savings = pnl.Income.Sub(pnl.Expense)
	return pnl
}

// Verify recomputes the totals from the accounts detail and checks them
// against the summary, including net_worth = assets - liabilities.
func Verify(s core.MonthlySnapshot) error {
	assets, liabilities, equity := decimal.Zero, decimal.Zero, decimal.Zero
	for _, ab := range s.AccountsDetail {
		acc := core.Account{ID: ab.AccountID, Group: ab.Group, Category: ab.Category}
		switch {
		case acc.Group == core.GroupAssets:
			assets = assets.Add(ab.Balance)
		case acc.IsEquity():
			equity = equity.Add(ab.Balance)
		case acc.IsLiability():
			liabilities = liabilities.Add(ab.Balance)
		}
	}
	switch {
	case !assets.Equal(s.Summary.TotalAssets):
		return fmt.Errorf("%w: %s total_assets %s != %s", ErrIdentityViolation, s.ID, s.Summary.TotalAssets, assets)
	case !liabilities.Equal(s.Summary.TotalLiabilities):
		return fmt.Errorf("%w: %s total_liabilities %s != %s", ErrIdentityViolation, s.ID, s.Summary.TotalLiabilities, liabilities)
	case !equity.Equal(s.Summary.TotalEquity):
		return fmt.Errorf("%w: %s total_equity %s != %s", ErrIdentityViolation, s.ID, s.Summary.TotalEquity, equity)
	case !assets.Sub(liabilities).Equal(s.Summary.NetWorth):
		return fmt.Errorf("%w: %s net_worth %s != %s", ErrIdentityViolation, s.ID, s.Summary.NetWorth, assets.Sub(liabilities))
	}
	return nil
}
