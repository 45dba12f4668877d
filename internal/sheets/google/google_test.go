package google

import (
	"context"
	"strings"
	"testing"
	"time"

	"manager/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
	if err.Error() != "missing spreadsheet ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-123"})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "sheet-123",
		CredentialsFile: "/nonexistent/creds.json",
	})
	if err == nil {
		t.Fatal("expected error for unreadable credentials file")
	}
	if !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAppend_RejectsInvalidReceipt(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-123", receiptsBase: "Receipts"}

	_, err := c.Append(context.Background(), core.Receipt{OwnerID: "", Sum: core.Money{Cents: 100}})
	if err == nil {
		t.Fatal("expected validation error for empty owner")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAppend_RequiresService(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-123", receiptsBase: "Receipts"}

	_, err := c.Append(context.Background(), core.Receipt{
		OwnerID:   "owner-1",
		Sum:       core.Money{Cents: 100},
		CreatedAt: time.Now(),
	})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected uninitialized service error, got: %v", err)
	}
}

func TestReceiptRow(t *testing.T) {
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	r := core.Receipt{OwnerID: "owner-1", Sum: core.Money{Cents: 1250}, Category: "fuel"}

	row := receiptRow(r, created)
	want := []any{3, 14, "fuel", 12.5, "owner-1"}
	if len(row) != len(want) {
		t.Fatalf("row length: got %d, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("row[%d] = %v, want %v", i, row[i], want[i])
		}
	}
}

func TestReceiptRow_EmptyCategory(t *testing.T) {
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	row := receiptRow(core.Receipt{OwnerID: "owner-1", Sum: core.Money{Cents: 100}}, created)
	if row[2] != "(uncategorized)" {
		t.Errorf("category placeholder: got %v", row[2])
	}
}
