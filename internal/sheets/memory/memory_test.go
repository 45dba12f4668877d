package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"manager/internal/core"
)

func TestExporterAppend(t *testing.T) {
	e := New()

	ref, err := e.Append(context.Background(), core.Receipt{
		OwnerID:   "owner-1",
		Sum:       core.Money{Cents: 123},
		Category:  "materials",
		CreatedAt: time.Now(),
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	if got := len(e.Items()); got != 1 {
		t.Fatalf("items: got %d, want 1", got)
	}
}

func TestExporterAppendValidates(t *testing.T) {
	e := New()

	_, err := e.Append(context.Background(), core.Receipt{OwnerID: "owner-1", Sum: core.Money{Cents: 0}})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestExporterAppendErr(t *testing.T) {
	e := New()
	e.AppendErr = errors.New("backend down")

	_, err := e.Append(context.Background(), core.Receipt{
		OwnerID:   "owner-1",
		Sum:       core.Money{Cents: 100},
		CreatedAt: time.Now(),
	})
	if err == nil || err.Error() != "backend down" {
		t.Fatalf("expected injected error, got %v", err)
	}
	if got := len(e.Items()); got != 0 {
		t.Fatalf("items after failed append: got %d, want 0", got)
	}
}

func TestExporterReadMonthTotal(t *testing.T) {
	e := New()
	ctx := context.Background()

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	for _, r := range []core.Receipt{
		{OwnerID: "owner-1", Sum: core.Money{Cents: 100}, CreatedAt: jan},
		{OwnerID: "owner-1", Sum: core.Money{Cents: 250}, CreatedAt: jan},
		{OwnerID: "owner-1", Sum: core.Money{Cents: 999}, CreatedAt: feb},
	} {
		if _, err := e.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	total, err := e.ReadMonthTotal(ctx, 2026, 1)
	if err != nil {
		t.Fatalf("read month total: %v", err)
	}
	if total.Cents != 350 {
		t.Fatalf("january total: got %d, want 350", total.Cents)
	}

	total, _ = e.ReadMonthTotal(ctx, 2026, 3)
	if total.Cents != 0 {
		t.Fatalf("empty month total: got %d, want 0", total.Cents)
	}
}
