package google

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"
)

func TestPlanRows_EmptySheetWritesHeader(t *testing.T) {
	plan := planRows(nil, []core.MonthlySnapshot{{ID: "2024-02"}, {ID: "2024-01"}})
	if !plan.needsHeader {
		t.Fatal("expected header on empty sheet")
	}
	if len(plan.writes) != 2 || plan.appended != 2 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.writes[0].snapshot.ID != "2024-01" || plan.writes[0].row != 2 || plan.writes[1].row != 3 {
		t.Fatalf("rows not assigned in month order: %+v", plan.writes)
	}
}

func TestPlanRows_OverwritesExistingMonths(t *testing.T) {
	col := [][]interface{}{
		{"Month"},
		{"2024-01"},
		{},
		{"2024-03"},
	}
	plan := planRows(col, []core.MonthlySnapshot{{ID: "2024-03"}, {ID: "2024-04"}, {ID: "2024-01"}})
	if plan.needsHeader {
		t.Fatal("header already present")
	}
	want := map[string]int{"2024-01": 2, "2024-03": 4, "2024-04": 5}
	for _, w := range plan.writes {
		if want[w.snapshot.ID] != w.row {
			t.Errorf("%s -> row %d, want %d", w.snapshot.ID, w.row, want[w.snapshot.ID])
		}
	}
	if plan.appended != 1 {
		t.Fatalf("expected 1 appended row, got %d", plan.appended)
	}
}

func TestSnapshotRowLayout(t *testing.T) {
	s := core.MonthlySnapshot{
		ID:           "2024-01",
		SnapshotDate: core.NewMonth(2024, time.January).End(),
		Summary:      core.Summary{NetWorth: decimal.RequireFromString("2600"), TotalAssets: decimal.NewFromInt(7600)},
		PnL:          core.PnL{Income: decimal.NewFromInt(3000), Expense: decimal.NewFromInt(400), Savings: decimal.NewFromInt(2600)},
	}
	row := snapshotRow(s)
	if len(row) != len(headers) {
		t.Fatalf("row has %d columns, header %d", len(row), len(headers))
	}
	if row[0] != "2024-01" || row[2] != "2600.00" || row[8] != "2600.00" {
		t.Fatalf("unexpected row %v", row)
	}
	if row[1] != "2024-01-31T23:59:59Z" {
		t.Fatalf("snapshot date = %v", row[1])
	}
}
