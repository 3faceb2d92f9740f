// Package bridge computes the cash-flow bridge (waterfall) of a period:
// opening cash, the Operating/Investing/Financing movements and closing cash.
//
// This file implements the classification table. Every literal used to
// bucket a transaction lives here; the classifier itself only consults a
// RuleTable, which callers may replace.
package bridge

import (
	"strings"

	"networth/internal/core"
)

// Bucket is a cash-flow bucket.
type Bucket string

const (
	Operating Bucket = "operating"
	Investing Bucket = "investing"
	Financing Bucket = "financing"
)

// RuleTable maps transaction attributes to buckets. Lookup order is Types,
// then Groups, then Categories; anything unmatched is Operating.
type RuleTable struct {
	Types      map[core.TransactionType]Bucket
	Groups     map[core.AccountGroup]Bucket
	Categories map[string]Bucket // keys normalized with normalizeCategory
}

// DefaultRules returns the canonical table.
func DefaultRules() RuleTable {
	r := RuleTable{
		Types: map[core.TransactionType]Bucket{
			core.TypeInterestLog: Operating,

			core.TypeAssetBuy:        Investing,
			core.TypeAssetSell:       Investing,
			core.TypeAssetInvestment: Investing,
			core.TypeLending:         Investing,
			core.TypeDebtCollection:  Investing,

			core.TypeBorrowing:         Financing,
			core.TypeDebtRepayment:     Financing,
			core.TypeCapitalInjection:  Financing,
			core.TypeCapitalWithdrawal: Financing,
		},
		Groups: map[core.AccountGroup]Bucket{
			core.GroupIncome:   Operating,
			core.GroupExpenses: Operating,
		},
		Categories: map[string]Bucket{},
	}
	for _, c := range []string{"Stocks", "Crypto", "Gold", "Real Estate", "Savings", "Receivables"} {
		r.Categories[normalizeCategory(c)] = Investing
	}
	for _, c := range []string{"Liability", core.CategoryEquityFund, "Bank Loan", "Personal Loan"} {
		r.Categories[normalizeCategory(c)] = Financing
	}
	return r
}

// WithCategory returns a copy of r with name mapped to b.
func (r RuleTable) WithCategory(name string, b Bucket) RuleTable {
	out := r.clone()
	out.Categories[normalizeCategory(name)] = b
	return out
}

// WithType returns a copy of r with t mapped to b.
func (r RuleTable) WithType(t core.TransactionType, b Bucket) RuleTable {
	out := r.clone()
	out.Types[t] = b
	return out
}

// Classify assigns tx to a bucket. Ambiguity is not an error: unmatched
// transactions are Operating.
func (r RuleTable) Classify(tx core.Transaction) Bucket {
	if b, ok := r.Types[tx.Type]; ok && tx.Type != "" {
		return b
	}
	if b, ok := r.Groups[tx.Group]; ok && tx.Group != "" {
		return b
	}
	if b, ok := r.Categories[normalizeCategory(tx.Category)]; ok && tx.Category != "" {
		return b
	}
	return Operating
}

func (r RuleTable) clone() RuleTable {
	out := RuleTable{
		Types:      make(map[core.TransactionType]Bucket, len(r.Types)),
		Groups:     make(map[core.AccountGroup]Bucket, len(r.Groups)),
		Categories: make(map[string]Bucket, len(r.Categories)),
	}
	for k, v := range r.Types {
		out.Types[k] = v
	}
	for k, v := range r.Groups {
		out.Groups[k] = v
	}
	for k, v := range r.Categories {
		out.Categories[k] = v
	}
	return out
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
