// Package memory is an in-memory implementation of the domain stores. It
// backs unit tests and credential-free local runs; semantics mirror the
// SQLite repository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"manager/internal/core"
	"manager/internal/storage"
)

type Store struct {
	mu sync.Mutex

	fixedSeq   int64
	receiptSeq int64
	projectSeq int64
	paymentSeq int64

	fixed      []core.FixedExpense
	receipts   []core.Receipt
	projects   []core.Project
	syncStatus map[int64]string
	versions   map[int64]int64
}

func New() *Store {
	return &Store{
		syncStatus: make(map[int64]string),
		versions:   make(map[int64]int64),
	}
}

// --- fixed expenses ---

func (s *Store) CreateFixedExpense(_ context.Context, fe core.FixedExpense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fixedSeq++
	fe.ID = s.fixedSeq
	if fe.CreatedAt.IsZero() {
		fe.CreatedAt = time.Now().UTC()
	}
	s.fixed = append(s.fixed, fe)
	return fe.ID, nil
}

func (s *Store) ListFixedExpensesByOwner(_ context.Context, ownerID string) ([]core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.FixedExpense
	for _, fe := range s.fixed {
		if fe.OwnerID == ownerID {
			out = append(out, fe)
		}
	}
	sortFixedNewestFirst(out)
	return out, nil
}

func (s *Store) ListActiveFixedExpensesByOwner(_ context.Context, ownerID string) ([]core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.FixedExpense
	for _, fe := range s.fixed {
		if fe.OwnerID == ownerID && fe.IsActive {
			out = append(out, fe)
		}
	}
	sortFixedNewestFirst(out)
	return out, nil
}

func (s *Store) SetFixedExpenseActive(_ context.Context, ownerID string, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.fixed {
		if s.fixed[i].ID == id && s.fixed[i].OwnerID == ownerID {
			s.fixed[i].IsActive = active
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) SumActiveFixedExpensesForYear(_ context.Context, ownerID string, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, fe := range s.fixed {
		if fe.OwnerID == ownerID && fe.IsActive && fe.CreatedAt.Year() == year {
			sum += fe.Amount.Cents
		}
	}
	return sum, nil
}

// --- receipts ---

func (s *Store) CreateReceipt(_ context.Context, r core.Receipt) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.receiptSeq++
	r.ID = s.receiptSeq
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.receipts = append(s.receipts, r)
	s.syncStatus[r.ID] = "pending"
	s.versions[r.ID] = 1
	return r.ID, nil
}

func (s *Store) GetReceipt(_ context.Context, id int64) (core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.receipts {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Receipt{}, storage.ErrNotFound
}

func (s *Store) ListReceiptsByOwner(_ context.Context, ownerID string, limit int) ([]core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	var out []core.Receipt
	for _, r := range s.receipts {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListReceiptsInRange(_ context.Context, ownerID string, from, to time.Time) ([]core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Receipt
	for _, r := range s.receipts {
		if r.OwnerID != ownerID {
			continue
		}
		if r.CreatedAt.Before(from) || r.CreatedAt.After(to) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CountReceiptsByOwner(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.receipts {
		if r.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumReceiptsForYear(_ context.Context, ownerID string, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, r := range s.receipts {
		if r.OwnerID == ownerID && r.CreatedAt.Year() == year {
			sum += r.Sum.Cents
		}
	}
	return sum, nil
}

// --- projects ---

func (s *Store) CreateProject(_ context.Context, p core.Project) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projectSeq++
	p.ID = s.projectSeq
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.projects = append(s.projects, p)
	return p.ID, nil
}

func (s *Store) ListProjectsByOwner(_ context.Context, ownerID string) ([]core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Project
	for _, p := range s.projects {
		if p.OwnerID == ownerID {
			cp := p
			cp.PaymentDetails = append([]core.PaymentDetail(nil), p.PaymentDetails...)
			out = append(out, cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) AddPaymentDetail(_ context.Context, ownerID string, pd core.PaymentDetail) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.projects {
		if s.projects[i].ID != pd.ProjectID || s.projects[i].OwnerID != ownerID {
			continue
		}
		s.paymentSeq++
		pd.ID = s.paymentSeq
		s.projects[i].PaymentDetails = append(s.projects[i].PaymentDetails, pd)
		s.projects[i].Paid.Cents += pd.Amount.Cents
		return pd.ID, nil
	}
	return 0, storage.ErrNotFound
}

// --- bookkeeping export queue ---

func (s *Store) GetPendingExportReceipts(_ context.Context, limit int) ([]storage.PendingExportReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	var out []storage.PendingExportReceipt
	for _, r := range s.receipts {
		if s.syncStatus[r.ID] != "pending" {
			continue
		}
		out = append(out, storage.PendingExportReceipt{
			ID:        r.ID,
			Version:   s.versions[r.ID],
			CreatedAt: r.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, id int64) error {
	return s.setSyncStatus(id, "synced")
}

func (s *Store) MarkSyncError(_ context.Context, id int64) error {
	return s.setSyncStatus(id, "error")
}

func (s *Store) setSyncStatus(id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.syncStatus[id]; !ok {
		return storage.ErrNotFound
	}
	s.syncStatus[id] = status
	s.versions[id]++
	return nil
}

// SyncStatus reports the export state of a receipt, for tests.
func (s *Store) SyncStatus(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncStatus[id]
}

func sortFixedNewestFirst(fixed []core.FixedExpense) {
	sort.SliceStable(fixed, func(i, j int) bool {
		if fixed[i].CreatedAt.Equal(fixed[j].CreatedAt) {
			return fixed[i].ID > fixed[j].ID
		}
		return fixed[i].CreatedAt.After(fixed[j].CreatedAt)
	})
}
