package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"manager/internal/cache"
	"manager/internal/core"
)

const (
	// GeneralProjectName labels receipts that are not attached to a project.
	GeneralProjectName = "General"

	// FixedExpenseProjectName labels projected fixed-expense occurrences.
	FixedExpenseProjectName = "Fixed Expense"
)

// ErrNoReceipts is returned by CashFlowExpenses when the owner has never
// recorded a receipt, regardless of the requested period. The incomes path
// and the year totals deliberately do not share this behavior.
var ErrNoReceipts = errors.New("no receipts recorded for owner")

// FixedExpenseStore persists fixed (recurring) expense definitions.
// Definitions are soft-disabled via SetFixedExpenseActive, never deleted.
type FixedExpenseStore interface {
	CreateFixedExpense(ctx context.Context, fe core.FixedExpense) (int64, error)
	ListFixedExpensesByOwner(ctx context.Context, ownerID string) ([]core.FixedExpense, error)
	ListActiveFixedExpensesByOwner(ctx context.Context, ownerID string) ([]core.FixedExpense, error)
	SetFixedExpenseActive(ctx context.Context, ownerID string, id int64, active bool) error
	// SumActiveFixedExpensesForYear sums amounts of active definitions
	// created within the calendar year. No day or frequency gating.
	SumActiveFixedExpensesForYear(ctx context.Context, ownerID string, year int) (int64, error)
}

// ReceiptStore persists realized expense events.
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, r core.Receipt) (int64, error)
	ListReceiptsByOwner(ctx context.Context, ownerID string, limit int) ([]core.Receipt, error)
	// ListReceiptsInRange returns receipts with createdAt in [from, to],
	// both ends inclusive. The range filter runs in the store so the
	// owner's full history is never loaded.
	ListReceiptsInRange(ctx context.Context, ownerID string, from, to time.Time) ([]core.Receipt, error)
	CountReceiptsByOwner(ctx context.Context, ownerID string) (int64, error)
	SumReceiptsForYear(ctx context.Context, ownerID string, year int) (int64, error)
}

// ProjectStore persists projects and their income payment details.
type ProjectStore interface {
	CreateProject(ctx context.Context, p core.Project) (int64, error)
	ListProjectsByOwner(ctx context.Context, ownerID string) ([]core.Project, error)
	AddPaymentDetail(ctx context.Context, ownerID string, pd core.PaymentDetail) (int64, error)
}

// TotalExpensesReport is the year rollup returned by TotalExpenses.
type TotalExpensesReport struct {
	TotalExpenses int64                  `json:"totalExpenses"`
	Breakdown     TotalExpensesBreakdown `json:"breakdown"`
}

type TotalExpensesBreakdown struct {
	Receipts int64 `json:"receipts"`
	Fixed    int64 `json:"fixed"`
}

// CashFlowService merges realized receipts, project income events and
// projected fixed-expense occurrences into chronologically sorted
// cash-flow views. All operations are read-only and retry-safe.
type CashFlowService struct {
	fixed    FixedExpenseStore
	receipts ReceiptStore
	projects ProjectStore

	// names caches the per-owner projectID -> name map between calls.
	// May be nil, in which case the map is rebuilt on every call.
	names *cache.LRU[map[int64]string]

	// Now is the clock used for "today". Overridable in tests.
	Now func() time.Time
}

func NewCashFlowService(fixed FixedExpenseStore, receipts ReceiptStore, projects ProjectStore, names *cache.LRU[map[int64]string]) *CashFlowService {
	return &CashFlowService{
		fixed:    fixed,
		receipts: receipts,
		projects: projects,
		names:    names,
		Now:      time.Now,
	}
}

// CashFlowExpenses returns the owner's receipts within the requested
// period window merged with all projected fixed-expense occurrences,
// sorted ascending by payment date.
//
// Projected occurrences are not filtered by the window: once due, they
// appear for every period keyword. Callers with zero receipts ever get
// ErrNoReceipts even when fixed expenses exist.
func (s *CashFlowService) CashFlowExpenses(ctx context.Context, ownerID, period string) ([]core.CashFlowEntry, error) {
	now := s.Now()
	start := ResolvePeriod(period, now)

	total, err := s.receipts.CountReceiptsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count receipts: %w", err)
	}
	if total == 0 {
		return nil, ErrNoReceipts
	}

	fixed, err := s.fixed.ListActiveFixedExpensesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list active fixed expenses: %w", err)
	}
	occurrences := ProjectOccurrences(fixed, now)

	receipts, err := s.receipts.ListReceiptsInRange(ctx, ownerID, start, now)
	if err != nil {
		return nil, fmt.Errorf("list receipts in range: %w", err)
	}

	names, err := s.projectNames(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("resolve project names: %w", err)
	}

	entries := make([]core.CashFlowEntry, 0, len(receipts)+len(occurrences))
	for _, r := range receipts {
		name := GeneralProjectName
		if r.ProjectID != nil {
			if n, ok := names[*r.ProjectID]; ok {
				name = n
			}
		}
		entries = append(entries, core.CashFlowEntry{
			Payments: core.CashFlowPayment{
				SumOfReceipt: r.Sum.Cents,
				Category:     r.Category,
				Date:         r.CreatedAt,
			},
			ProjectName: name,
		})
	}
	for _, occ := range occurrences {
		entries = append(entries, core.CashFlowEntry{
			Payments: core.CashFlowPayment{
				Amount:   occ.Amount.Cents,
				Category: occ.Category,
				Date:     occ.Date,
				IsFixed:  true,
			},
			ProjectName: FixedExpenseProjectName,
		})
	}

	sortEntriesByDate(entries)

	slog.DebugContext(ctx, "Cash flow expenses computed",
		"owner", ownerID,
		"period", period,
		"receipts", len(receipts),
		"occurrences", len(occurrences))

	return entries, nil
}

// CashFlowIncomes flattens the payment details of every project owned by
// ownerID into cash-flow entries within the period window, tagged with the
// owning project's name and sorted ascending by date. An owner without
// matching income simply gets an empty list.
func (s *CashFlowService) CashFlowIncomes(ctx context.Context, ownerID, period string) ([]core.CashFlowEntry, error) {
	now := s.Now()
	start := ResolvePeriod(period, now)

	projects, err := s.projects.ListProjectsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	entries := make([]core.CashFlowEntry, 0)
	for _, p := range projects {
		for _, pd := range p.PaymentDetails {
			if pd.Date.Before(start) || pd.Date.After(now) {
				continue
			}
			entries = append(entries, core.CashFlowEntry{
				Payments: core.CashFlowPayment{
					Amount: pd.Amount.Cents,
					Date:   pd.Date,
				},
				ProjectName: p.Name,
			})
		}
	}

	sortEntriesByDate(entries)
	return entries, nil
}

// TotalExpenses sums the owner's receipts and active fixed expenses for
// the current calendar year. Fixed expenses are gated only by isActive and
// creation within the year; the day gate of the cash-flow path does not
// apply here. Empty buckets report zero, never an error.
func (s *CashFlowService) TotalExpenses(ctx context.Context, ownerID string) (TotalExpensesReport, error) {
	year := s.Now().Year()

	receiptSum, err := s.receipts.SumReceiptsForYear(ctx, ownerID, year)
	if err != nil {
		return TotalExpensesReport{}, fmt.Errorf("sum receipts for year: %w", err)
	}

	fixedSum, err := s.fixed.SumActiveFixedExpensesForYear(ctx, ownerID, year)
	if err != nil {
		return TotalExpensesReport{}, fmt.Errorf("sum fixed expenses for year: %w", err)
	}

	return TotalExpensesReport{
		TotalExpenses: receiptSum + fixedSum,
		Breakdown: TotalExpensesBreakdown{
			Receipts: receiptSum,
			Fixed:    fixedSum,
		},
	}, nil
}

// projectNames builds (or fetches from cache) the owner's projectID to
// name map. Built once per call at most.
func (s *CashFlowService) projectNames(ctx context.Context, ownerID string) (map[int64]string, error) {
	if s.names != nil {
		if m, ok := s.names.Get(ownerID); ok {
			return m, nil
		}
	}

	projects, err := s.projects.ListProjectsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	m := make(map[int64]string, len(projects))
	for _, p := range projects {
		m[p.ID] = p.Name
	}

	if s.names != nil {
		s.names.Set(ownerID, m)
	}
	return m, nil
}

// InvalidateProjectNames drops the cached name map for an owner. Called
// after project mutations so stale names never outlive the cache TTL.
func (s *CashFlowService) InvalidateProjectNames(ownerID string) {
	if s.names != nil {
		s.names.Delete(ownerID)
	}
}

func sortEntriesByDate(entries []core.CashFlowEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Payments.Date.Before(entries[j].Payments.Date)
	})
}
