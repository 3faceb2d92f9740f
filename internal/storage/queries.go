package storage

import (
	"context"
)

// Rows mirror the table layout. Decimals and timestamps are stored as TEXT so
// that values round-trip exactly.

type AccountRow struct {
	ID             string
	Name           string
	AccountGroup   string
	Category       string
	CurrentBalance string
	Status         string
}

type TransactionRow struct {
	ID              string
	OccurredAt      string
	Amount          string
	DebitAccountID  string
	CreditAccountID string
	TxType          string
	TxGroup         string
	Category        string
	Description     string
}

type SnapshotRow struct {
	ID             string
	SnapshotDate   string
	NetWorth       string
	Summary        string
	AccountsDetail string
	PnlPerformance string
	CreatedAt      string
}

const listAccounts = `-- name: ListAccounts :many
SELECT id, name, account_group, category, current_balance, status
FROM accounts
ORDER BY id
`

func (q *Queries) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountRow
	for rows.Next() {
		var i AccountRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.AccountGroup,
			&i.Category,
			&i.CurrentBalance,
			&i.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertAccount = `-- name: UpsertAccount :exec
INSERT INTO accounts (id, name, account_group, category, current_balance, status, updated_at)
VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    account_group = excluded.account_group,
    category = excluded.category,
    current_balance = excluded.current_balance,
    status = excluded.status,
    updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertAccount(ctx context.Context, arg AccountRow) error {
	_, err := q.db.ExecContext(ctx, upsertAccount,
		arg.ID,
		arg.Name,
		arg.AccountGroup,
		arg.Category,
		arg.CurrentBalance,
		arg.Status,
	)
	return err
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, occurred_at, amount, debit_account_id, credit_account_id, tx_type, tx_group, category, description
FROM transactions
ORDER BY occurred_at, rowid
`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(
			&i.ID,
			&i.OccurredAt,
			&i.Amount,
			&i.DebitAccountID,
			&i.CreditAccountID,
			&i.TxType,
			&i.TxGroup,
			&i.Category,
			&i.Description,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertTransaction = `-- name: UpsertTransaction :exec
INSERT INTO transactions (id, occurred_at, amount, debit_account_id, credit_account_id, tx_type, tx_group, category, description)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    occurred_at = excluded.occurred_at,
    amount = excluded.amount,
    debit_account_id = excluded.debit_account_id,
    credit_account_id = excluded.credit_account_id,
    tx_type = excluded.tx_type,
    tx_group = excluded.tx_group,
    category = excluded.category,
    description = excluded.description
`

func (q *Queries) UpsertTransaction(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, upsertTransaction,
		arg.ID,
		arg.OccurredAt,
		arg.Amount,
		arg.DebitAccountID,
		arg.CreditAccountID,
		arg.TxType,
		arg.TxGroup,
		arg.Category,
		arg.Description,
	)
	return err
}

const upsertSnapshot = `-- name: UpsertSnapshot :exec
INSERT INTO monthly_snapshots (id, snapshot_date, net_worth, summary, accounts_detail, pnl_performance, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    snapshot_date = excluded.snapshot_date,
    net_worth = excluded.net_worth,
    summary = excluded.summary,
    accounts_detail = excluded.accounts_detail,
    pnl_performance = excluded.pnl_performance,
    created_at = excluded.created_at
`

func (q *Queries) UpsertSnapshot(ctx context.Context, arg SnapshotRow) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot,
		arg.ID,
		arg.SnapshotDate,
		arg.NetWorth,
		arg.Summary,
		arg.AccountsDetail,
		arg.PnlPerformance,
		arg.CreatedAt,
	)
	return err
}

const getSnapshot = `-- name: GetSnapshot :one
SELECT id, snapshot_date, net_worth, summary, accounts_detail, pnl_performance, created_at
FROM monthly_snapshots
WHERE id = ?
`

func (q *Queries) GetSnapshot(ctx context.Context, id string) (SnapshotRow, error) {
	row := q.db.QueryRowContext(ctx, getSnapshot, id)
	var i SnapshotRow
	err := row.Scan(
		&i.ID,
		&i.SnapshotDate,
		&i.NetWorth,
		&i.Summary,
		&i.AccountsDetail,
		&i.PnlPerformance,
		&i.CreatedAt,
	)
	return i, err
}

const listSnapshots = `-- name: ListSnapshots :many
SELECT id, snapshot_date, net_worth, summary, accounts_detail, pnl_performance, created_at
FROM monthly_snapshots
WHERE id >= ? AND id <= ?
ORDER BY id
`

type ListSnapshotsParams struct {
	FromID string
	ToID   string
}

func (q *Queries) ListSnapshots(ctx context.Context, arg ListSnapshotsParams) ([]SnapshotRow, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots, arg.FromID, arg.ToID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnapshotRow
	for rows.Next() {
		var i SnapshotRow
		if err := rows.Scan(
			&i.ID,
			&i.SnapshotDate,
			&i.NetWorth,
			&i.Summary,
			&i.AccountsDetail,
			&i.PnlPerformance,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

