package sheets

import (
	"context"

	"manager/internal/core"
)

// Ports for outbound bookkeeping adapters.
type (
	ReceiptWriter interface {
		Append(ctx context.Context, r core.Receipt) (rowRef string, err error)
	}

	// MonthTotalReader returns the booked total for a year and month, used
	// by the worker to reconcile after a catch-up scan.
	MonthTotalReader interface {
		ReadMonthTotal(ctx context.Context, year int, month int) (core.Money, error)
	}
)
