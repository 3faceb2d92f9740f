package bridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"
	"networth/internal/ledger"
)

var (
	// ErrNoCashAccounts is returned when no cash account is selected. A
	// ledger without cash accounts is valid; it simply has no bridge.
	ErrNoCashAccounts   = errors.New("no cash accounts")
	ErrInvalidPeriod    = errors.New("invalid bridge period")
	ErrUnbalancedBridge = errors.New("cash-flow bridge does not balance")
)

// StepName is part of the wire contract consumed by waterfall views.
type StepName string

const (
	StepOpening   StepName = "opening"
	StepOperating StepName = "operating"
	StepInvesting StepName = "investing"
	StepFinancing StepName = "financing"
	StepClosing   StepName = "closing"
)

// Direction of a cash movement.
type Direction string

const (
	Inflow  Direction = "inflow"
	Outflow Direction = "outflow"
)

// Input is everything ComputeBridge needs. PeriodEnd zero means Now.
type Input struct {
	Accounts       []core.Account
	Transactions   []core.Transaction
	CashAccountIDs []string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Now            time.Time
	// NowBalance is the authoritative live cash balance at Now.
	NowBalance decimal.Decimal
}

// Line is one drill-down entry of a bucket. Amount is signed.
type Line struct {
	TransactionID string               `json:"transaction_id"`
	DateTime      time.Time            `json:"datetime"`
	Amount        decimal.Decimal      `json:"amount"`
	Direction     Direction            `json:"direction"`
	CashAccountID string               `json:"cash_account_id"`
	Type          core.TransactionType `json:"type,omitempty"`
	Category      string               `json:"category,omitempty"`
	Description   string               `json:"description,omitempty"`
}

// Step is one bar of the waterfall.
type Step struct {
	Name    StepName        `json:"name"`
	Value   decimal.Decimal `json:"value"`
	Details []Line          `json:"details"`
}

// Result is a computed bridge. Steps are always ordered opening, operating,
// investing, financing, closing.
type Result struct {
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Opening     decimal.Decimal `json:"opening"`
	Operating   decimal.Decimal `json:"operating"`
	Investing   decimal.Decimal `json:"investing"`
	Financing   decimal.Decimal `json:"financing"`
	Closing     decimal.Decimal `json:"closing"`
	Steps       []Step          `json:"steps"`
}

// Classifier computes bridges with a given rule table.
type Classifier struct {
	rules RuleTable
}

func NewClassifier(rules RuleTable) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns a classifier using DefaultRules.
func Default() *Classifier {
	return NewClassifier(DefaultRules())
}

// Rules returns the classifier's table.
func (c *Classifier) Rules() RuleTable {
	return c.rules
}

// ComputeBridge derives the opening cash balance backwards from the live
// balance, opening = NowBalance - netFlow([PeriodStart, Now]), and attributes
// the period's movements to buckets. Only transactions touching exactly one
// cash account count; cash-to-cash transfers and non-cash transactions are
// excluded.
func (c *Classifier) ComputeBridge(in Input) (Result, error) {
	if len(in.CashAccountIDs) == 0 {
		return Result{}, ErrNoCashAccounts
	}
	if in.Now.IsZero() || in.PeriodStart.IsZero() {
		return Result{}, fmt.Errorf("%w: start and now are required", ErrInvalidPeriod)
	}
	// a period still running (the current month) closes at now
	end := in.PeriodEnd
	if end.IsZero() || end.After(in.Now) {
		end = in.Now
	}
	if end.Before(in.PeriodStart) {
		return Result{}, fmt.Errorf("%w: [%s, %s] with now %s", ErrInvalidPeriod,
			in.PeriodStart.Format(time.RFC3339), end.Format(time.RFC3339), in.Now.Format(time.RFC3339))
	}

	cash, err := cashSet(in.Accounts, in.CashAccountIDs)
	if err != nil {
		return Result{}, err
	}

	// [PeriodStart, Now], chronological.
	if err := ledger.ValidateAmounts(in.Transactions); err != nil {
		return Result{}, err
	}
	window := ledger.Window(in.Transactions, in.PeriodStart.Add(-time.Nanosecond), in.Now)

	netToNow := decimal.Zero
	netAfterEnd := decimal.Zero
	totals := map[Bucket]decimal.Decimal{Operating: decimal.Zero, Investing: decimal.Zero, Financing: decimal.Zero}
	details := map[Bucket][]Line{}

	for _, tx := range window {
		line, ok := cashLine(tx, cash)
		if !ok {
			continue
		}
		netToNow = netToNow.Add(line.Amount)
		if tx.DateTime.After(end) {
			netAfterEnd = netAfterEnd.Add(line.Amount)
			continue
		}
		b := c.rules.Classify(tx)
		totals[b] = totals[b].Add(line.Amount)
		details[b] = append(details[b], line)
	}

	opening := in.NowBalance.Sub(netToNow)
	closing := in.NowBalance.Sub(netAfterEnd)

	res := Result{
		PeriodStart: in.PeriodStart,
		PeriodEnd:   end,
		Opening:     opening,
		Operating:   totals[Operating],
		Investing:   totals[Investing],
		Financing:   totals[Financing],
		Closing:     closing,
	}
	res.Steps = []Step{
		{Name: StepOpening, Value: opening, Details: []Line{}},
		{Name: StepOperating, Value: res.Operating, Details: nonNil(details[Operating])},
		{Name: StepInvesting, Value: res.Investing, Details: nonNil(details[Investing])},
		{Name: StepFinancing, Value: res.Financing, Details: nonNil(details[Financing])},
		{Name: StepClosing, Value: closing, Details: []Line{}},
	}

	if err := res.Check(); err != nil {
		return Result{}, err
	}
	if end.Equal(in.Now) && !res.Closing.Equal(in.NowBalance) {
		return Result{}, fmt.Errorf("%w: closing %s != live balance %s", ErrUnbalancedBridge, res.Closing, in.NowBalance)
	}
	return res, nil
}

// Check asserts opening + operating + investing + financing == closing and
// that every bucket equals the sum of its details.
func (r Result) Check() error {
	sum := r.Opening.Add(r.Operating).Add(r.Investing).Add(r.Financing)
	if !sum.Equal(r.Closing) {
		return fmt.Errorf("%w: %s + %s + %s + %s = %s, closing %s", ErrUnbalancedBridge,
			r.Opening, r.Operating, r.Investing, r.Financing, sum, r.Closing)
	}
	for _, s := range r.Steps {
		if s.Name == StepOpening || s.Name == StepClosing {
			continue
		}
		total := decimal.Zero
		for _, l := range s.Details {
			total = total.Add(l.Amount)
		}
		if !total.Equal(s.Value) {
			return fmt.Errorf("%w: %s details sum to %s, bucket is %s", ErrUnbalancedBridge, s.Name, total, s.Value)
		}
	}
	return nil
}

// Step returns the named step.
func (r Result) Step(name StepName) (Step, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

func cashLine(tx core.Transaction, cash map[string]struct{}) (Line, bool) {
	_, debitCash := cash[tx.DebitAccountID]
	_, creditCash := cash[tx.CreditAccountID]
	if debitCash == creditCash {
		// both sides: internal transfer; neither side: not a cash movement
		return Line{}, false
	}
	line := Line{
		TransactionID: tx.ID,
		DateTime:      tx.DateTime,
		Type:          tx.Type,
		Category:      tx.Category,
		Description:   tx.Description,
	}
	if debitCash {
		line.Direction = Inflow
		line.Amount = tx.Amount
		line.CashAccountID = tx.DebitAccountID
	} else {
		line.Direction = Outflow
		line.Amount = tx.Amount.Neg()
		line.CashAccountID = tx.CreditAccountID
	}
	return line, true
}

func cashSet(accounts []core.Account, ids []string) (map[string]struct{}, error) {
	idx := core.IndexAccounts(accounts)
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := idx[id]; !ok {
			return nil, &core.MissingAccountError{AccountID: id, Side: core.SideCash}
		}
		set[id] = struct{}{}
	}
	return set, nil
}

func nonNil(lines []Line) []Line {
	if lines == nil {
		return []Line{}
	}
	return lines
}

// DefaultCashCategories are the account categories treated as cash.
var DefaultCashCategories = []string{"Cash", "Bank"}

// SelectCashAccounts returns the ids of active ASSETS accounts whose category
// is one of categories (case-insensitive).
func SelectCashAccounts(accounts []core.Account, categories []string) []string {
	want := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		want[normalizeCategory(c)] = struct{}{}
	}
	var ids []string
	for _, a := range accounts {
		if a.Group != core.GroupAssets || a.Status == core.StatusClosed {
			continue
		}
		if _, ok := want[normalizeCategory(a.Category)]; ok {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// LiveBalance sums the current balances of the given accounts.
func LiveBalance(accounts []core.Account, ids []string) decimal.Decimal {
	idx := core.IndexAccounts(accounts)
	total := decimal.Zero
	for _, id := range ids {
		if a, ok := idx[id]; ok {
			total = total.Add(a.CurrentBalance)
		}
	}
	return total
}

// String renders the waterfall on one line, for logs.
func (r Result) String() string {
	parts := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		parts[i] = fmt.Sprintf("%s=%s", s.Name, s.Value.StringFixed(2))
	}
	return strings.Join(parts, " ")
}
