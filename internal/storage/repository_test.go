package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"manager/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "manager.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReceiptLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	jan := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)

	id1, err := repo.CreateReceipt(ctx, core.Receipt{
		OwnerID: "owner-1", Sum: core.Money{Cents: 1000}, Category: "materials", CreatedAt: jan,
	})
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	_, err = repo.CreateReceipt(ctx, core.Receipt{
		OwnerID: "owner-1", Sum: core.Money{Cents: 2500}, Category: "fuel", CreatedAt: feb,
	})
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	_, err = repo.CreateReceipt(ctx, core.Receipt{
		OwnerID: "owner-2", Sum: core.Money{Cents: 9999}, CreatedAt: jan,
	})
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}

	got, err := repo.GetReceipt(ctx, id1)
	if err != nil {
		t.Fatalf("get receipt: %v", err)
	}
	if got.OwnerID != "owner-1" || got.Sum.Cents != 1000 || got.Category != "materials" {
		t.Errorf("unexpected receipt: %+v", got)
	}

	if _, err := repo.GetReceipt(ctx, 12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	count, err := repo.CountReceiptsByOwner(ctx, "owner-1")
	if err != nil || count != 2 {
		t.Errorf("count: got %d err=%v, want 2", count, err)
	}

	// Range is inclusive at both ends.
	inRange, err := repo.ListReceiptsInRange(ctx, "owner-1", jan, feb)
	if err != nil {
		t.Fatalf("list in range: %v", err)
	}
	if len(inRange) != 2 {
		t.Fatalf("in range: got %d receipts, want 2", len(inRange))
	}
	if !inRange[0].CreatedAt.Before(inRange[1].CreatedAt) {
		t.Error("range results should be sorted ascending by creation time")
	}

	narrow, err := repo.ListReceiptsInRange(ctx, "owner-1", jan.Add(time.Hour), feb)
	if err != nil {
		t.Fatalf("list in range: %v", err)
	}
	if len(narrow) != 1 || narrow[0].Sum.Cents != 2500 {
		t.Errorf("narrow range: got %+v", narrow)
	}

	sum, err := repo.SumReceiptsForYear(ctx, "owner-1", 2026)
	if err != nil || sum != 3500 {
		t.Errorf("year sum: got %d err=%v, want 3500", sum, err)
	}
	sum, err = repo.SumReceiptsForYear(ctx, "owner-1", 2025)
	if err != nil || sum != 0 {
		t.Errorf("empty year sum: got %d err=%v, want 0", sum, err)
	}

	recent, err := repo.ListReceiptsByOwner(ctx, "owner-1", 1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("list with limit: got %d err=%v", len(recent), err)
	}
	if recent[0].Sum.Cents != 2500 {
		t.Errorf("newest first: got %+v", recent[0])
	}
}

func TestFixedExpenseLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	day := 15
	fe := core.FixedExpense{
		OwnerID:    "owner-1",
		Title:      "Office rent",
		Category:   "rent",
		Amount:     core.Money{Cents: 90000},
		Frequency:  core.Monthly,
		DayOfMonth: &day,
		StartDate:  core.NewDate(2026, 1, 1),
		IsActive:   true,
	}
	id, err := repo.CreateFixedExpense(ctx, fe)
	if err != nil {
		t.Fatalf("create fixed expense: %v", err)
	}

	_, err = repo.CreateFixedExpense(ctx, core.FixedExpense{
		OwnerID:   "owner-1",
		Title:     "Insurance",
		Amount:    core.Money{Cents: 12000},
		Frequency: core.Yearly,
		StartDate: core.NewDate(2026, 1, 1),
		IsActive:  false,
	})
	if err != nil {
		t.Fatalf("create fixed expense: %v", err)
	}

	all, err := repo.ListFixedExpensesByOwner(ctx, "owner-1")
	if err != nil || len(all) != 2 {
		t.Fatalf("list all: got %d err=%v, want 2", len(all), err)
	}

	active, err := repo.ListActiveFixedExpensesByOwner(ctx, "owner-1")
	if err != nil || len(active) != 1 {
		t.Fatalf("list active: got %d err=%v, want 1", len(active), err)
	}
	if active[0].Title != "Office rent" {
		t.Errorf("active: got %q", active[0].Title)
	}
	if active[0].DayOfMonth == nil || *active[0].DayOfMonth != 15 {
		t.Errorf("day of month round trip: got %v", active[0].DayOfMonth)
	}
	if active[0].DayOfWeek != nil || active[0].Month != nil {
		t.Errorf("unset optionals should stay nil: %+v", active[0])
	}
	if !active[0].EndDate.IsEmpty() {
		t.Errorf("open-ended end date should be empty, got %v", active[0].EndDate)
	}

	if err := repo.SetFixedExpenseActive(ctx, "owner-1", id, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	active, _ = repo.ListActiveFixedExpensesByOwner(ctx, "owner-1")
	if len(active) != 0 {
		t.Errorf("after toggle: got %d active, want 0", len(active))
	}

	if err := repo.SetFixedExpenseActive(ctx, "owner-2", id, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner toggle: got %v, want ErrNotFound", err)
	}

	sum, err := repo.SumActiveFixedExpensesForYear(ctx, "owner-1", time.Now().UTC().Year())
	if err != nil || sum != 0 {
		t.Errorf("sum after deactivation: got %d err=%v, want 0", sum, err)
	}
}

func TestProjectAndPaymentDetails(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateProject(ctx, core.Project{OwnerID: "owner-1", Name: "Garden renovation"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	paidAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = repo.AddPaymentDetail(ctx, "owner-1", core.PaymentDetail{
		ProjectID: id, Amount: core.Money{Cents: 50000}, Date: paidAt,
	})
	if err != nil {
		t.Fatalf("add payment detail: %v", err)
	}

	_, err = repo.AddPaymentDetail(ctx, "owner-2", core.PaymentDetail{
		ProjectID: id, Amount: core.Money{Cents: 100}, Date: paidAt,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner payment: got %v, want ErrNotFound", err)
	}

	projects, err := repo.ListProjectsByOwner(ctx, "owner-1")
	if err != nil || len(projects) != 1 {
		t.Fatalf("list projects: got %d err=%v, want 1", len(projects), err)
	}
	p := projects[0]
	if p.Paid.Cents != 50000 {
		t.Errorf("paid total: got %d, want 50000", p.Paid.Cents)
	}
	if len(p.PaymentDetails) != 1 || p.PaymentDetails[0].Amount.Cents != 50000 {
		t.Errorf("payment details: %+v", p.PaymentDetails)
	}
}

func TestPendingExportQueue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, _ := repo.CreateReceipt(ctx, core.Receipt{
		OwnerID: "owner-1", Sum: core.Money{Cents: 100},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	second, _ := repo.CreateReceipt(ctx, core.Receipt{
		OwnerID: "owner-1", Sum: core.Money{Cents: 200},
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	})

	pending, err := repo.GetPendingExportReceipts(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first || pending[1].ID != second {
		t.Fatalf("pending order: %+v", pending)
	}

	if err := repo.MarkSynced(ctx, first); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, second); err != nil {
		t.Fatalf("mark sync error: %v", err)
	}

	pending, _ = repo.GetPendingExportReceipts(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("pending after marking: got %d, want 0", len(pending))
	}

	if err := repo.MarkSynced(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("mark missing: got %v, want ErrNotFound", err)
	}
}
