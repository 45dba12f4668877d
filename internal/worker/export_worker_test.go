package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"manager/internal/amqp"
	"manager/internal/core"
	sheetsmem "manager/internal/sheets/memory"
	storagemem "manager/internal/storage/memory"
)

func seedReceipt(t *testing.T, store *storagemem.Store, sumCents int64) int64 {
	t.Helper()
	id, err := store.CreateReceipt(context.Background(), core.Receipt{
		OwnerID:   "alice",
		Sum:       core.Money{Cents: sumCents},
		Category:  "fuel",
		CreatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	return id
}

func TestHandleExportMessage(t *testing.T) {
	store := storagemem.New()
	exporter := sheetsmem.New()
	w := NewExportWorker(store, exporter, nil, 10)

	id := seedReceipt(t, store, 1250)

	msg := amqp.NewReceiptExportMessage(id, 1)
	if err := w.HandleExportMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleExportMessage() error = %v", err)
	}

	if got := store.SyncStatus(id); got != "synced" {
		t.Errorf("sync status = %q, want %q", got, "synced")
	}
	items := exporter.Items()
	if len(items) != 1 {
		t.Fatalf("exported %d receipts, want 1", len(items))
	}
	if items[0].Sum.Cents != 1250 {
		t.Errorf("exported sum = %d, want 1250", items[0].Sum.Cents)
	}
}

func TestHandleExportMessageMissingReceipt(t *testing.T) {
	store := storagemem.New()
	exporter := sheetsmem.New()
	w := NewExportWorker(store, exporter, nil, 10)

	msg := amqp.NewReceiptExportMessage(9999, 1)
	if err := w.HandleExportMessage(context.Background(), msg); err != nil {
		t.Fatalf("missing receipt should be dropped, got error %v", err)
	}
	if len(exporter.Items()) != 0 {
		t.Error("nothing should be exported for a missing receipt")
	}
}

func TestHandleExportMessageAppendFailure(t *testing.T) {
	store := storagemem.New()
	exporter := sheetsmem.New()
	exporter.AppendErr = errors.New("sheet unavailable")
	w := NewExportWorker(store, exporter, nil, 10)

	id := seedReceipt(t, store, 500)

	msg := amqp.NewReceiptExportMessage(id, 1)
	if err := w.HandleExportMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error when the sheet append fails")
	}
	if got := store.SyncStatus(id); got != "error" {
		t.Errorf("sync status = %q, want %q", got, "error")
	}
}

func TestProcessPendingReceipts(t *testing.T) {
	store := storagemem.New()
	exporter := sheetsmem.New()
	w := NewExportWorker(store, exporter, nil, 10)

	ids := []int64{
		seedReceipt(t, store, 100),
		seedReceipt(t, store, 200),
		seedReceipt(t, store, 300),
	}

	if err := w.ProcessPendingReceipts(context.Background()); err != nil {
		t.Fatalf("ProcessPendingReceipts() error = %v", err)
	}

	for _, id := range ids {
		if got := store.SyncStatus(id); got != "synced" {
			t.Errorf("receipt %d status = %q, want %q", id, got, "synced")
		}
	}
	if len(exporter.Items()) != 3 {
		t.Errorf("exported %d receipts, want 3", len(exporter.Items()))
	}

	// A second sweep finds nothing pending.
	if err := w.ProcessPendingReceipts(context.Background()); err != nil {
		t.Fatalf("second sweep error = %v", err)
	}
	if len(exporter.Items()) != 3 {
		t.Errorf("second sweep exported extra rows, total %d", len(exporter.Items()))
	}
}

func TestStartupCheckDrainsBacklog(t *testing.T) {
	store := storagemem.New()
	exporter := sheetsmem.New()
	w := NewExportWorker(store, exporter, nil, 2)

	// More receipts than one sweep batch; startup uses a larger window.
	for i := 0; i < 5; i++ {
		seedReceipt(t, store, int64(100*(i+1)))
	}

	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("StartupCheck() error = %v", err)
	}
	if len(exporter.Items()) != 5 {
		t.Errorf("exported %d receipts, want 5", len(exporter.Items()))
	}
}

func TestErroredReceiptsExcludedFromSweep(t *testing.T) {
	store := storagemem.New()
	exporter := sheetsmem.New()
	w := NewExportWorker(store, exporter, nil, 10)

	id := seedReceipt(t, store, 100)
	exporter.AppendErr = errors.New("sheet unavailable")

	if err := w.ProcessPendingReceipts(context.Background()); err != nil {
		t.Fatalf("sweep error = %v", err)
	}
	if got := store.SyncStatus(id); got != "error" {
		t.Fatalf("sync status = %q, want %q", got, "error")
	}

	// Once errored, the sweep no longer picks the receipt up.
	exporter.AppendErr = nil
	if err := w.ProcessPendingReceipts(context.Background()); err != nil {
		t.Fatalf("second sweep error = %v", err)
	}
	if len(exporter.Items()) != 0 {
		t.Errorf("errored receipt was re-exported, items = %d", len(exporter.Items()))
	}
}

func TestReconcileCurrentMonthNilReader(t *testing.T) {
	store := storagemem.New()
	w := NewExportWorker(store, sheetsmem.New(), nil, 10)

	// Must be a no-op without a reader.
	w.ReconcileCurrentMonth(context.Background())
}
