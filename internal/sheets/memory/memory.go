package memory

import (
	"context"
	"fmt"
	"sync"

	"manager/internal/core"
)

// Exporter is an in-memory bookkeeping destination. It backs local
// development runs without Google credentials and the worker tests.
type Exporter struct {
	mu    sync.Mutex
	items []core.Receipt

	// AppendErr, when set, is returned by Append to simulate a failing
	// bookkeeping backend.
	AppendErr error
}

func New() *Exporter {
	return &Exporter{}
}

// Append stores the receipt and returns a synthetic row reference.
func (e *Exporter) Append(_ context.Context, r core.Receipt) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.AppendErr != nil {
		return "", e.AppendErr
	}
	e.items = append(e.items, r)
	return fmt.Sprintf("mem:%d", len(e.items)), nil
}

// ReadMonthTotal sums appended receipts created in the given year and month.
func (e *Exporter) ReadMonthTotal(_ context.Context, year int, month int) (core.Money, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total int64
	for _, r := range e.items {
		if r.CreatedAt.Year() == year && int(r.CreatedAt.Month()) == month {
			total += r.Sum.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

// Items returns a copy of everything appended so far.
func (e *Exporter) Items() []core.Receipt {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Receipt(nil), e.items...)
}
