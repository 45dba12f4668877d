package services

import (
	"context"
	"fmt"
	"log/slog"

	"manager/internal/amqp"
	"manager/internal/core"
)

// ReceiptService orchestrates receipt creation across the local store and
// the bookkeeping export queue. The local write is authoritative; export
// publishing is best effort and never fails the request.
type ReceiptService struct {
	store      ReceiptStore
	amqpClient *amqp.Client
}

func NewReceiptService(store ReceiptStore, amqpClient *amqp.Client) *ReceiptService {
	return &ReceiptService{
		store:      store,
		amqpClient: amqpClient,
	}
}

// CreateReceipt validates and saves a receipt, then publishes an export
// message for the bookkeeping worker.
func (s *ReceiptService) CreateReceipt(ctx context.Context, r core.Receipt) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.CreateReceipt(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("save receipt: %w", err)
	}

	if err := s.publishExportMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish receipt export message",
			"id", id, "error", err)
		// Receipt is saved locally; the worker's catch-up scan picks it up.
	}

	return id, nil
}

// ListReceipts returns the owner's most recent receipts.
func (s *ReceiptService) ListReceipts(ctx context.Context, ownerID string, limit int) ([]core.Receipt, error) {
	receipts, err := s.store.ListReceiptsByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return receipts, nil
}

func (s *ReceiptService) publishExportMessage(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping export message")
		return nil
	}
	return s.amqpClient.PublishReceiptExport(ctx, id, 1)
}
