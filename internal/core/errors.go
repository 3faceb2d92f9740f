package core

import (
	"fmt"
	"strings"
)

// Side names which leg of a transaction referenced an account.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
	// SideCash marks a configured cash account rather than a transaction leg.
	SideCash Side = "cash"
)

// MissingAccountError is returned when a transaction references an account
// that does not exist or does not carry a balance (INCOME/EXPENSES).
// It is fatal for the month or period being computed and nothing else.
type MissingAccountError struct {
	TransactionID string
	AccountID     string
	Side          Side
	// Group is empty when the account does not exist at all.
	Group AccountGroup
}

func (e *MissingAccountError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("%s account %q not found", e.Side, e.AccountID)
	}
	if e.Group == "" {
		return fmt.Sprintf("transaction %s: %s account %q not found", e.TransactionID, e.Side, e.AccountID)
	}
	return fmt.Sprintf("transaction %s: %s account %q has group %s, expected ASSETS or CAPITAL",
		e.TransactionID, e.Side, e.AccountID, e.Group)
}

// Is lets errors.Is(err, ErrMissingAccount) match.
func (e *MissingAccountError) Is(target error) bool {
	return target == ErrMissingAccount
}

// PartialBatchCommitError reports a multi-chunk persistence that did not
// fully commit. Committed months are durable; Failed months must be retried.
type PartialBatchCommitError struct {
	Committed []Month
	Failed    []Month
	Err       error
}

func (e *PartialBatchCommitError) Error() string {
	return fmt.Sprintf("partial batch commit: %d committed [%s], %d failed [%s]: %v",
		len(e.Committed), joinMonths(e.Committed), len(e.Failed), joinMonths(e.Failed), e.Err)
}

func (e *PartialBatchCommitError) Unwrap() error {
	return e.Err
}

func joinMonths(months []Month) string {
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = m.String()
	}
	return strings.Join(parts, ",")
}
