// Package ledger reconstructs account balances by replaying the transaction
// log from a zero baseline.
//
// Polarity is keyed by the group of the touched account:
//
//	debit  ASSETS  -> +amount    credit ASSETS  -> -amount
//	debit  CAPITAL -> -amount    credit CAPITAL -> +amount
//
// INCOME and EXPENSES accounts never hold a replayed balance; a leg that does
// not resolve to an ASSETS or CAPITAL account aborts the replay with a
// *core.MissingAccountError.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"
)

// Balances maps account id to balance.
type Balances map[string]decimal.Decimal

// Get returns the balance of id, zero when absent.
func (b Balances) Get(id string) decimal.Decimal {
	if v, ok := b[id]; ok {
		return v
	}
	return decimal.Zero
}

func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Equal compares balances numerically; missing keys count as zero.
func (b Balances) Equal(o Balances) bool {
	for k, v := range b {
		if !v.Equal(o.Get(k)) {
			return false
		}
	}
	for k, v := range o {
		if !v.Equal(b.Get(k)) {
			return false
		}
	}
	return true
}

// StepFunc observes the balances right after tx has been applied. The map
// must not be retained or modified.
type StepFunc func(tx core.Transaction, balances Balances) error

// ComputeBalances replays every transaction with DateTime <= cutoff, in
// chronological order, starting from zero for every ASSETS/CAPITAL account.
// Callers must pass the complete history, not a delta.
func ComputeBalances(accounts []core.Account, transactions []core.Transaction, cutoff time.Time) (Balances, error) {
	return Walk(accounts, transactions, cutoff, nil)
}

// Walk is ComputeBalances with a per-transaction observer.
func Walk(accounts []core.Account, transactions []core.Transaction, cutoff time.Time, step StepFunc) (Balances, error) {
	if err := ValidateAmounts(transactions); err != nil {
		return nil, err
	}
	balances := zeroBalances(accounts)
	window := Window(transactions, time.Time{}, cutoff)
	if err := replay(balances, core.IndexAccounts(accounts), window, step); err != nil {
		return nil, err
	}
	return balances, nil
}

// Apply replays the transactions with DateTime in (after, cutoff] on top of a
// copy of base. It is the delta counterpart of ComputeBalances and is used to
// chain one snapshot into the next.
func Apply(base Balances, accounts []core.Account, transactions []core.Transaction, after, cutoff time.Time) (Balances, error) {
	if err := ValidateAmounts(transactions); err != nil {
		return nil, err
	}
	balances := zeroBalances(accounts)
	for id, v := range base {
		balances[id] = v
	}
	window := Window(transactions, after, cutoff)
	if err := replay(balances, core.IndexAccounts(accounts), window, nil); err != nil {
		return nil, err
	}
	return balances, nil
}

// ValidateAmounts rejects the whole log when any transaction, inside the
// replay window or not, has a non-positive amount.
func ValidateAmounts(transactions []core.Transaction) error {
	for _, tx := range transactions {
		if !tx.Amount.IsPositive() {
			return fmt.Errorf("transaction %s: %w", tx.ID, core.ErrInvalidAmount)
		}
	}
	return nil
}

// Window returns the transactions with DateTime in (after, cutoff], sorted
// chronologically. A zero after means no lower bound.
func Window(transactions []core.Transaction, after, cutoff time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.DateTime.After(cutoff) {
			continue
		}
		if !after.IsZero() && !tx.DateTime.After(after) {
			continue
		}
		out = append(out, tx)
	}
	sortStable(out)
	return out
}

// SortChronological returns a copy sorted by DateTime; ties keep their
// original relative order.
func SortChronological(transactions []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), transactions...)
	sortStable(out)
	return out
}

func sortStable(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].DateTime.Before(txs[j].DateTime)
	})
}

func zeroBalances(accounts []core.Account) Balances {
	balances := make(Balances, len(accounts))
	for _, a := range accounts {
		if a.Group.CarriesBalance() {
			balances[a.ID] = decimal.Zero
		}
	}
	return balances
}

func replay(balances Balances, idx map[string]core.Account, txs []core.Transaction, step StepFunc) error {
	for _, tx := range txs {
		debit, err := resolve(idx, tx, tx.DebitAccountID, core.SideDebit)
		if err != nil {
			return err
		}
		credit, err := resolve(idx, tx, tx.CreditAccountID, core.SideCredit)
		if err != nil {
			return err
		}

		switch debit.Group {
		case core.GroupAssets:
			balances[debit.ID] = balances.Get(debit.ID).Add(tx.Amount)
		case core.GroupCapital:
			balances[debit.ID] = balances.Get(debit.ID).Sub(tx.Amount)
		}
		switch credit.Group {
		case core.GroupAssets:
			balances[credit.ID] = balances.Get(credit.ID).Sub(tx.Amount)
		case core.GroupCapital:
			balances[credit.ID] = balances.Get(credit.ID).Add(tx.Amount)
		}

		if step != nil {
			if err := step(tx, balances); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolve(idx map[string]core.Account, tx core.Transaction, id string, side core.Side) (core.Account, error) {
	acc, ok := idx[id]
	if !ok {
		return core.Account{}, &core.MissingAccountError{TransactionID: tx.ID, AccountID: id, Side: side}
	}
	if !acc.Group.CarriesBalance() {
		return core.Account{}, &core.MissingAccountError{TransactionID: tx.ID, AccountID: id, Side: side, Group: acc.Group}
	}
	return acc, nil
}
