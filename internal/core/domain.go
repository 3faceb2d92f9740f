package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	GroupAssets   AccountGroup = "ASSETS"
	GroupCapital  AccountGroup = "CAPITAL"
	GroupIncome   AccountGroup = "INCOME"
	GroupExpenses AccountGroup = "EXPENSES"
)

const (
	StatusActive AccountStatus = "ACTIVE"
	StatusClosed AccountStatus = "CLOSED"
)

// Transaction kinds. The set is open: unknown kinds are carried through and
// classified by group or category instead.
const (
	TypeAssetBuy          TransactionType = "ASSET_BUY"
	TypeAssetSell         TransactionType = "ASSET_SELL"
	TypeAssetInvestment   TransactionType = "ASSET_INVESTMENT"
	TypeBorrowing         TransactionType = "BORROWING"
	TypeDebtRepayment     TransactionType = "DEBT_REPAYMENT"
	TypeDebtCollection    TransactionType = "DEBT_COLLECTION"
	TypeCapitalInjection  TransactionType = "CAPITAL_INJECTION"
	TypeCapitalWithdrawal TransactionType = "CAPITAL_WITHDRAWAL"
	TypeInterestLog       TransactionType = "INTEREST_LOG"
	TypeLending           TransactionType = "LENDING"
	TypeDailyCashflow     TransactionType = "DAILY_CASHFLOW"
	TypeTransfer          TransactionType = "TRANSFER"
)

// CategoryEquityFund marks CAPITAL accounts that count as equity rather
// than liabilities.
const CategoryEquityFund = "Equity Fund"

type (
	AccountGroup    string
	AccountStatus   string
	TransactionType string

	Account struct {
		ID             string
		Name           string
		Group          AccountGroup
		Category       string
		CurrentBalance decimal.Decimal
		Status         AccountStatus
	}

	Transaction struct {
		ID              string
		DateTime        time.Time
		Amount          decimal.Decimal
		DebitAccountID  string
		CreditAccountID string
		Type            TransactionType
		Group           AccountGroup // reporting label, independent of the touched accounts
		Category        string
		Description     string
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyID        = errors.New("empty id")
	ErrInvalidGroup   = errors.New("invalid group")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrZeroDateTime   = errors.New("datetime cannot be zero")
	ErrMissingAccount = errors.New("missing account reference")

	// ErrSnapshotNotFound is returned by every snapshot store for an unknown month.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// IsValid reports whether g is one of the four known groups.
func (g AccountGroup) IsValid() bool {
	switch g {
	case GroupAssets, GroupCapital, GroupIncome, GroupExpenses:
		return true
	default:
		return false
	}
}

// CarriesBalance reports whether accounts of this group hold a running balance.
func (g AccountGroup) CarriesBalance() bool {
	return g == GroupAssets || g == GroupCapital
}

func (s AccountStatus) IsValid() bool {
	return s == StatusActive || s == StatusClosed
}

// IsEquity reports whether a CAPITAL account is an equity fund.
func (a Account) IsEquity() bool {
	return a.Group == GroupCapital && a.Category == CategoryEquityFund
}

// IsLiability reports whether a CAPITAL account counts toward liabilities.
func (a Account) IsLiability() bool {
	return a.Group == GroupCapital && a.Category != CategoryEquityFund
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if !a.Group.IsValid() {
		return ErrInvalidGroup
	}
	if a.Status != "" && !a.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if t.DateTime.IsZero() {
		return ErrZeroDateTime
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.DebitAccountID) == "" || strings.TrimSpace(t.CreditAccountID) == "" {
		return ErrMissingAccount
	}
	if t.Group != "" && !t.Group.IsValid() {
		return ErrInvalidGroup
	}
	return nil
}

// IndexAccounts builds an id lookup over accounts.
func IndexAccounts(accounts []Account) map[string]Account {
	idx := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		idx[a.ID] = a
	}
	return idx
}
