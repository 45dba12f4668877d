// Package worker books receipts to the external bookkeeping sheet. It
// consumes export messages from AMQP and periodically sweeps for receipts
// the message path missed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"manager/internal/amqp"
	"manager/internal/core"
	"manager/internal/sheets"
	"manager/internal/storage"
)

// Store is the slice of the repository the worker needs.
type Store interface {
	GetReceipt(ctx context.Context, id int64) (core.Receipt, error)
	GetPendingExportReceipts(ctx context.Context, limit int) ([]storage.PendingExportReceipt, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// ExportWorker moves pending receipts into the bookkeeping sheet.
type ExportWorker struct {
	store     Store
	writer    sheets.ReceiptWriter
	reader    sheets.MonthTotalReader // optional, reconciliation logging only
	batchSize int
}

func NewExportWorker(store Store, writer sheets.ReceiptWriter, reader sheets.MonthTotalReader, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		store:     store,
		writer:    writer,
		reader:    reader,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single receipt export message. A missing
// receipt is dropped with a warning; requeueing it can never succeed.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ReceiptExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"id", msg.ID,
		"version", msg.Version)

	receipt, err := w.store.GetReceipt(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Receipt in export message no longer exists, dropping",
				"id", msg.ID)
			return nil
		}
		return fmt.Errorf("get receipt from storage: %w", err)
	}

	return w.exportReceipt(ctx, receipt)
}

// exportReceipt appends the receipt to the sheet and records the outcome.
func (w *ExportWorker) exportReceipt(ctx context.Context, receipt core.Receipt) error {
	ref, err := w.writer.Append(ctx, receipt)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, receipt.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", receipt.ID, "error", markErr)
		}
		return fmt.Errorf("append receipt to sheet: %w", err)
	}

	if err := w.store.MarkSynced(ctx, receipt.ID); err != nil {
		return fmt.Errorf("mark receipt synced: %w", err)
	}

	slog.InfoContext(ctx, "Receipt booked",
		"id", receipt.ID,
		"sum_cents", receipt.Sum.Cents,
		"sheets_ref", ref)
	return nil
}

// ProcessPendingReceipts sweeps receipts the message path missed. Per-receipt
// failures are logged and skipped so one bad row cannot stall the sweep.
func (w *ExportWorker) ProcessPendingReceipts(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupCheck drains a larger pending backlog once at worker start,
// recovering from missed messages or downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingExportReceipts(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending receipts for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending receipts found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending receipts on startup, processing", "count", len(pending))
	w.exportBatch(ctx, pending)
	return nil
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) error {
	pending, err := w.store.GetPendingExportReceipts(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending receipts: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending receipts", "count", len(pending))
	w.exportBatch(ctx, pending)
	return nil
}

func (w *ExportWorker) exportBatch(ctx context.Context, pending []storage.PendingExportReceipt) {
	for _, p := range pending {
		receipt, err := w.store.GetReceipt(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending receipt", "id", p.ID, "error", err)
			if markErr := w.store.MarkSyncError(ctx, p.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", p.ID, "error", markErr)
			}
			continue
		}

		if err := w.exportReceipt(ctx, receipt); err != nil {
			slog.ErrorContext(ctx, "Failed to export receipt", "id", p.ID, "error", err)
		}
	}
}

// ReconcileCurrentMonth logs the sheet's total for the current month, an
// operator aid to spot drift between the local store and the sheet. A nil
// reader disables it.
func (w *ExportWorker) ReconcileCurrentMonth(ctx context.Context) {
	if w.reader == nil {
		return
	}

	now := time.Now().UTC()
	total, err := w.reader.ReadMonthTotal(ctx, now.Year(), int(now.Month()))
	if err != nil {
		slog.WarnContext(ctx, "Failed to read sheet month total", "error", err)
		return
	}
	slog.InfoContext(ctx, "Sheet month total",
		"year", now.Year(),
		"month", int(now.Month()),
		"sum_cents", total.Cents)
}

// Run consumes export messages and runs the periodic pending sweep until the
// context is cancelled or the consumer fails.
func (w *ExportWorker) Run(ctx context.Context, client *amqp.Client, sweepInterval time.Duration) error {
	if err := w.StartupCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup check failed", "error", err)
	}
	w.ReconcileCurrentMonth(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeReceiptExport(ctx, func(msg *amqp.ReceiptExportMessage) error {
			return w.HandleExportMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPendingReceipts(ctx); err != nil {
					slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}
