package google

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"networth/internal/core"
)

// lastColumn is the rightmost column written by snapshotRow.
const lastColumn = "J"

var headers = []string{
	"Month", "Snapshot Date", "Net Worth", "Total Assets", "Total Liabilities",
	"Total Equity", "Income", "Expense", "Savings", "Created At",
}

type rowWrite struct {
	row      int
	snapshot core.MonthlySnapshot
}

type rowPlan struct {
	writes      []rowWrite
	needsHeader bool
	appended    int
}

// planRows maps each snapshot to a 1-based sheet row. col holds the current
// values of column A, header included.
func planRows(col [][]interface{}, snaps []core.MonthlySnapshot) rowPlan {
	existing := map[string]int{}
	for i, row := range col {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if _, err := core.ParseMonth(id); err == nil {
			existing[id] = i + 1
		}
	}

	plan := rowPlan{needsHeader: len(col) == 0}
	next := len(col) + 1
	if plan.needsHeader {
		next = 2
	}

	ordered := append([]core.MonthlySnapshot(nil), snaps...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, s := range ordered {
		row, ok := existing[s.ID]
		if !ok {
			row = next
			existing[s.ID] = row
			next++
			plan.appended++
		}
		plan.writes = append(plan.writes, rowWrite{row: row, snapshot: s})
	}
	return plan
}

func headerRow() []any {
	out := make([]any, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

func snapshotRow(s core.MonthlySnapshot) []any {
	return []any{
		s.ID,
		s.SnapshotDate.UTC().Format(time.RFC3339),
		core.FormatAmount(s.Summary.NetWorth),
		core.FormatAmount(s.Summary.TotalAssets),
		core.FormatAmount(s.Summary.TotalLiabilities),
		core.FormatAmount(s.Summary.TotalEquity),
		core.FormatAmount(s.PnL.Income),
		core.FormatAmount(s.PnL.Expense),
		core.FormatAmount(s.PnL.Savings),
		s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
