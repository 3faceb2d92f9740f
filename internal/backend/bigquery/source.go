// Package bigquery reads the ledger from BigQuery tables. It is read-only:
// snapshots are persisted elsewhere.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"networth/internal/core"
)

const (
	accountsTable     = "accounts"
	transactionsTable = "transactions"
)

// AccountRow is one row of the accounts table.
type AccountRow struct {
	ID             string              `bigquery:"id"`
	Name           bigquery.NullString `bigquery:"name"`
	AccountGroup   string              `bigquery:"account_group"`
	Category       bigquery.NullString `bigquery:"category"`
	CurrentBalance string              `bigquery:"current_balance"`
	Status         bigquery.NullString `bigquery:"status"`
}

// TransactionRow is one row of the transactions table. Amounts are selected
// as STRING so that NUMERIC values keep their exact scale.
type TransactionRow struct {
	ID              string              `bigquery:"id"`
	OccurredAt      time.Time           `bigquery:"occurred_at"`
	Amount          string              `bigquery:"amount"`
	DebitAccountID  string              `bigquery:"debit_account_id"`
	CreditAccountID string              `bigquery:"credit_account_id"`
	TxType          bigquery.NullString `bigquery:"tx_type"`
	TxGroup         bigquery.NullString `bigquery:"tx_group"`
	Category        bigquery.NullString `bigquery:"category"`
	Description     bigquery.NullString `bigquery:"description"`
}

type Source struct {
	client  *bigquery.Client
	dataset string
}

// NewSource opens a client for projectID. Close releases it.
func NewSource(ctx context.Context, projectID, dataset string) (*Source, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return NewSourceWithClient(client, dataset), nil
}

func NewSourceWithClient(client *bigquery.Client, dataset string) *Source {
	return &Source{client: client, dataset: dataset}
}

func (s *Source) Close() error {
	return s.client.Close()
}

// ListAccounts implements backend.LedgerReader
func (s *Source) ListAccounts(ctx context.Context) ([]core.Account, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			id,
			name,
			account_group,
			category,
			CAST(current_balance AS STRING) AS current_balance,
			status
		FROM %s
		ORDER BY id
	`, s.table(accountsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: query read: %w", err)
	}

	var out []core.Account
	for {
		var r AccountRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: iter next: %w", err)
		}
		a, err := r.toAccount()
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// ListTransactions implements backend.LedgerReader
func (s *Source) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	q := s.client.Query(transactionsQuery(s.table(transactionsTable)))
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	var out []core.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		tx, err := r.toTransaction()
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

// transactionsQuery orders same-instant transactions by seq, the
// ingestion sequence the loader assigns, so ties replay in insertion order.
func transactionsQuery(table string) string {
	return fmt.Sprintf(`
		SELECT
			id,
			occurred_at,
			CAST(amount AS STRING) AS amount,
			debit_account_id,
			credit_account_id,
			tx_type,
			tx_group,
			category,
			description
		FROM %s
		ORDER BY occurred_at, seq
	`, table)
}

func (s *Source) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.client.Project(), s.dataset, name)
}

func (r AccountRow) toAccount() (core.Account, error) {
	balance, err := core.ParseBalance(r.CurrentBalance)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s balance: %w", r.ID, err)
	}
	return core.Account{
		ID:             r.ID,
		Name:           r.Name.StringVal,
		Group:          core.AccountGroup(r.AccountGroup),
		Category:       r.Category.StringVal,
		CurrentBalance: balance,
		Status:         core.AccountStatus(r.Status.StringVal),
	}, nil
}

func (r TransactionRow) toTransaction() (core.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount: %w", r.ID, err)
	}
	return core.Transaction{
		ID:              r.ID,
		DateTime:        r.OccurredAt.UTC(),
		Amount:          amount,
		DebitAccountID:  r.DebitAccountID,
		CreditAccountID: r.CreditAccountID,
		Type:            core.TransactionType(r.TxType.StringVal),
		Group:           core.AccountGroup(r.TxGroup.StringVal),
		Category:        r.Category.StringVal,
		Description:     r.Description.StringVal,
	}, nil
}
