package google

import (
	"context"
	"strings"
	"testing"

	"networth/internal/core"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := newSheetsService(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestNewSheetsService_UnreadableFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/sa.json")

	_, err := newSheetsService(context.Background())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestDefaultSheetName(t *testing.T) {
	c := newClient(nil, "id", "  ")
	if c.sheetName != defaultSheetName {
		t.Fatalf("sheet name = %q", c.sheetName)
	}
	c = newClient(nil, "id", "Net Worth")
	if c.sheetName != "Net Worth" {
		t.Fatalf("sheet name = %q", c.sheetName)
	}
}

func TestExportSnapshots_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: defaultSheetName}
	err := c.ExportSnapshots(context.Background(), []core.MonthlySnapshot{{ID: "2024-01"}})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}
