package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	ErrSnapshotNotFound = core.ErrSnapshotNotFound
	ErrBatchTooLarge    = errors.New("batch exceeds maximum size")
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListAccounts implements backend.LedgerReader
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		balance, err := core.ParseBalance(row.CurrentBalance)
		if err != nil {
			return nil, fmt.Errorf("account %s balance: %w", row.ID, err)
		}
		accounts = append(accounts, core.Account{
			ID:             row.ID,
			Name:           row.Name,
			Group:          core.AccountGroup(row.AccountGroup),
			Category:       row.Category,
			CurrentBalance: balance,
			Status:         core.AccountStatus(row.Status),
		})
	}
	return accounts, nil
}

// ListTransactions implements backend.LedgerReader
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(timeLayout, row.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("transaction %s datetime: %w", row.ID, err)
		}
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", row.ID, err)
		}
		txs = append(txs, core.Transaction{
			ID:              row.ID,
			DateTime:        at,
			Amount:          amount,
			DebitAccountID:  row.DebitAccountID,
			CreditAccountID: row.CreditAccountID,
			Type:            core.TransactionType(row.TxType),
			Group:           core.AccountGroup(row.TxGroup),
			Category:        row.Category,
			Description:     row.Description,
		})
	}
	return txs, nil
}

// ImportLedger upserts accounts and transactions in a single SQL transaction.
// Records are validated first; nothing is written if any is invalid.
func (r *SQLiteRepository) ImportLedger(ctx context.Context, accounts []core.Account, txs []core.Transaction) error {
	for _, a := range accounts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %q: %w", a.ID, err)
		}
	}
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %q: %w", t.ID, err)
		}
	}

	err := r.inTx(ctx, func(q *Queries) error {
		for _, a := range accounts {
			status := a.Status
			if status == "" {
				status = core.StatusActive
			}
			if err := q.UpsertAccount(ctx, AccountRow{
				ID:             a.ID,
				Name:           a.Name,
				AccountGroup:   string(a.Group),
				Category:       a.Category,
				CurrentBalance: a.CurrentBalance.String(),
				Status:         string(status),
			}); err != nil {
				return fmt.Errorf("upsert account %s: %w", a.ID, err)
			}
		}
		for _, t := range txs {
			if err := q.UpsertTransaction(ctx, TransactionRow{
				ID:              t.ID,
				OccurredAt:      t.DateTime.UTC().Format(timeLayout),
				Amount:          t.Amount.String(),
				DebitAccountID:  t.DebitAccountID,
				CreditAccountID: t.CreditAccountID,
				TxType:          string(t.Type),
				TxGroup:         string(t.Group),
				Category:        t.Category,
				Description:     t.Description,
			}); err != nil {
				return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Ledger imported to SQLite",
		"accounts", len(accounts),
		"transactions", len(txs))
	return nil
}

// SaveSnapshots implements backend.SnapshotStore. The batch is written in one
// SQL transaction: either every snapshot is replaced or none is.
func (r *SQLiteRepository) SaveSnapshots(ctx context.Context, batch []core.MonthlySnapshot) error {
	if len(batch) > core.MaxSnapshotBatch {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(batch), core.MaxSnapshotBatch)
	}

	rows := make([]SnapshotRow, len(batch))
	for i, s := range batch {
		row, err := toSnapshotRow(s)
		if err != nil {
			return err
		}
		rows[i] = row
	}

	err := r.inTx(ctx, func(q *Queries) error {
		for _, row := range rows {
			if err := q.UpsertSnapshot(ctx, row); err != nil {
				return fmt.Errorf("upsert snapshot %s: %w", row.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Snapshot batch committed", "size", len(batch))
	return nil
}

// GetSnapshot implements backend.SnapshotStore
func (r *SQLiteRepository) GetSnapshot(ctx context.Context, m core.Month) (core.MonthlySnapshot, error) {
	row, err := r.queries.GetSnapshot(ctx, m.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlySnapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, m)
	}
	if err != nil {
		return core.MonthlySnapshot{}, fmt.Errorf("get snapshot %s: %w", m, err)
	}
	return fromSnapshotRow(row)
}

// ListSnapshots implements backend.SnapshotStore. Both bounds are inclusive.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, from, to core.Month) ([]core.MonthlySnapshot, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("list snapshots %s..%s: %w", from, to, core.ErrInvalidRange)
	}
	rows, err := r.queries.ListSnapshots(ctx, ListSnapshotsParams{FromID: from.String(), ToID: to.String()})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]core.MonthlySnapshot, 0, len(rows))
	for _, row := range rows {
		s, err := fromSnapshotRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func toSnapshotRow(s core.MonthlySnapshot) (SnapshotRow, error) {
	summary, err := json.Marshal(s.Summary)
	if err != nil {
		return SnapshotRow{}, fmt.Errorf("marshal summary %s: %w", s.ID, err)
	}
	detail, err := json.Marshal(s.AccountsDetail)
	if err != nil {
		return SnapshotRow{}, fmt.Errorf("marshal accounts detail %s: %w", s.ID, err)
	}
	pnl, err := json.Marshal(s.PnL)
	if err != nil {
		return SnapshotRow{}, fmt.Errorf("marshal pnl %s: %w", s.ID, err)
	}
	return SnapshotRow{
		ID:             s.ID,
		SnapshotDate:   s.SnapshotDate.UTC().Format(timeLayout),
		NetWorth:       s.Summary.NetWorth.String(),
		Summary:        string(summary),
		AccountsDetail: string(detail),
		PnlPerformance: string(pnl),
		CreatedAt:      s.CreatedAt.UTC().Format(timeLayout),
	}, nil
}

func fromSnapshotRow(row SnapshotRow) (core.MonthlySnapshot, error) {
	s := core.MonthlySnapshot{ID: row.ID}
	var err error
	if s.SnapshotDate, err = time.Parse(timeLayout, row.SnapshotDate); err != nil {
		return s, fmt.Errorf("snapshot %s date: %w", row.ID, err)
	}
	if s.CreatedAt, err = time.Parse(timeLayout, row.CreatedAt); err != nil {
		return s, fmt.Errorf("snapshot %s created_at: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Summary), &s.Summary); err != nil {
		return s, fmt.Errorf("snapshot %s summary: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.AccountsDetail), &s.AccountsDetail); err != nil {
		return s, fmt.Errorf("snapshot %s accounts detail: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.PnlPerformance), &s.PnL); err != nil {
		return s, fmt.Errorf("snapshot %s pnl: %w", row.ID, err)
	}
	return s, nil
}
