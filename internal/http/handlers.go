package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"manager/internal/core"
	"manager/internal/services"
	"manager/internal/storage"
)

// amountCents decodes a monetary amount supplied either as a JSON number or
// as a decimal string ("12.50"), normalizing to integer cents.
type amountCents int64

func (a *amountCents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return err
	}
	*a = amountCents(cents)
	return nil
}

// isoDate decodes a "2006-01-02" date string.
type isoDate struct {
	time.Time
}

func (d *isoDate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

type createProjectRequest struct {
	Name string `json:"name"`
}

type projectResponse struct {
	ID             int64                   `json:"id"`
	Name           string                  `json:"name"`
	Paid           int64                   `json:"paid"`
	Expenses       int64                   `json:"expenses"`
	PaymentDetails []paymentDetailResponse `json:"paymentDetails"`
	CreatedAt      time.Time               `json:"createdAt"`
}

type paymentDetailResponse struct {
	ID     int64     `json:"id"`
	Amount int64     `json:"amount"`
	Date   time.Time `json:"date"`
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateProject(w, r)
	case http.MethodGet:
		s.handleListProjects(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	var req createProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := core.Project{OwnerID: owner, Name: strings.TrimSpace(req.Name)}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.projects.CreateProject(r.Context(), p)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create project", "error", err, "owner", owner)
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	s.cashflow.InvalidateProjectNames(owner)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	projects, err := s.projects.ListProjectsByOwner(r.Context(), owner)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list projects", "error", err, "owner", owner)
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		details := make([]paymentDetailResponse, 0, len(p.PaymentDetails))
		for _, pd := range p.PaymentDetails {
			details = append(details, paymentDetailResponse{ID: pd.ID, Amount: pd.Amount.Cents, Date: pd.Date})
		}
		out = append(out, projectResponse{
			ID:             p.ID,
			Name:           p.Name,
			Paid:           p.Paid.Cents,
			Expenses:       p.Expenses.Cents,
			PaymentDetails: details,
			CreatedAt:      p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type addPaymentRequest struct {
	ProjectID int64       `json:"projectId"`
	Amount    amountCents `json:"amount"`
	Date      isoDate     `json:"date"`
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	owner := ownerFromContext(r.Context())

	var req addPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pd := core.PaymentDetail{
		ProjectID: req.ProjectID,
		Amount:    core.Money{Cents: int64(req.Amount)},
		Date:      req.Date.Time,
	}
	if pd.Date.IsZero() {
		pd.Date = time.Now().UTC()
	}
	if err := pd.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.projects.AddPaymentDetail(r.Context(), owner, pd)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to add payment", "error", err, "owner", owner, "project_id", req.ProjectID)
		writeError(w, http.StatusInternalServerError, "failed to add payment")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type createReceiptRequest struct {
	Sum       amountCents `json:"sum"`
	Category  string      `json:"category"`
	ProjectID *int64      `json:"projectId"`
}

type receiptResponse struct {
	ID        int64     `json:"id"`
	Sum       int64     `json:"sum"`
	Category  string    `json:"category"`
	ProjectID *int64    `json:"projectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateReceipt(w, r)
	case http.MethodGet:
		s.handleListReceipts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	var req createReceiptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt := core.Receipt{
		OwnerID:   owner,
		ProjectID: req.ProjectID,
		Sum:       core.Money{Cents: int64(req.Sum)},
		Category:  strings.TrimSpace(req.Category),
	}
	if err := receipt.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.receipts.CreateReceipt(r.Context(), receipt)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create receipt", "error", err, "owner", owner)
		writeError(w, http.StatusInternalServerError, "failed to create receipt")
		return
	}

	s.invalidateTotals(owner)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	receipts, err := s.receipts.ListReceipts(r.Context(), owner, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list receipts", "error", err, "owner", owner)
		writeError(w, http.StatusInternalServerError, "failed to list receipts")
		return
	}

	out := make([]receiptResponse, 0, len(receipts))
	for _, rc := range receipts {
		out = append(out, receiptResponse{
			ID:        rc.ID,
			Sum:       rc.Sum.Cents,
			Category:  rc.Category,
			ProjectID: rc.ProjectID,
			CreatedAt: rc.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type createFixedExpenseRequest struct {
	Title      string      `json:"title"`
	Category   string      `json:"category"`
	Amount     amountCents `json:"amount"`
	Frequency  string      `json:"frequency"`
	DayOfMonth *int        `json:"dayOfMonth"`
	DayOfWeek  *int        `json:"dayOfWeek"`
	Month      *int        `json:"month"`
	StartDate  isoDate     `json:"startDate"`
	EndDate    isoDate     `json:"endDate"`
}

type fixedExpenseResponse struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Amount     int64     `json:"amount"`
	Frequency  string    `json:"frequency"`
	DayOfMonth *int      `json:"dayOfMonth,omitempty"`
	DayOfWeek  *int      `json:"dayOfWeek,omitempty"`
	Month      *int      `json:"month,omitempty"`
	StartDate  string    `json:"startDate,omitempty"`
	EndDate    string    `json:"endDate,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Server) handleFixedExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateFixedExpense(w, r)
	case http.MethodGet:
		s.handleListFixedExpenses(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCreateFixedExpense(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	var req createFixedExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fe := core.FixedExpense{
		OwnerID:    owner,
		Title:      strings.TrimSpace(req.Title),
		Category:   strings.TrimSpace(req.Category),
		Amount:     core.Money{Cents: int64(req.Amount)},
		Frequency:  core.Frequency(req.Frequency),
		DayOfMonth: req.DayOfMonth,
		DayOfWeek:  req.DayOfWeek,
		Month:      req.Month,
		StartDate:  core.Date{Time: req.StartDate.Time},
		EndDate:    core.Date{Time: req.EndDate.Time},
		IsActive:   true,
	}
	if fe.StartDate.IsEmpty() {
		fe.StartDate = core.Date{Time: time.Now().UTC()}
	}
	if err := fe.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.fixed.CreateFixedExpense(r.Context(), fe)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create fixed expense", "error", err, "owner", owner)
		writeError(w, http.StatusInternalServerError, "failed to create fixed expense")
		return
	}

	s.invalidateTotals(owner)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListFixedExpenses(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	expenses, err := s.fixed.ListFixedExpensesByOwner(r.Context(), owner)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list fixed expenses", "error", err, "owner", owner)
		writeError(w, http.StatusInternalServerError, "failed to list fixed expenses")
		return
	}

	out := make([]fixedExpenseResponse, 0, len(expenses))
	for _, fe := range expenses {
		resp := fixedExpenseResponse{
			ID:         fe.ID,
			Title:      fe.Title,
			Category:   fe.Category,
			Amount:     fe.Amount.Cents,
			Frequency:  string(fe.Frequency),
			DayOfMonth: fe.DayOfMonth,
			DayOfWeek:  fe.DayOfWeek,
			Month:      fe.Month,
			IsActive:   fe.IsActive,
			CreatedAt:  fe.CreatedAt,
		}
		if !fe.StartDate.IsEmpty() {
			resp.StartDate = fe.StartDate.Format("2006-01-02")
		}
		if !fe.EndDate.IsEmpty() {
			resp.EndDate = fe.EndDate.Format("2006-01-02")
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

type toggleFixedExpenseRequest struct {
	ID     int64 `json:"id"`
	Active bool  `json:"active"`
}

func (s *Server) handleToggleFixedExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	owner := ownerFromContext(r.Context())

	var req toggleFixedExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.fixed.SetFixedExpenseActive(r.Context(), owner, req.ID, req.Active); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "fixed expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to toggle fixed expense", "error", err, "owner", owner, "id", req.ID)
		writeError(w, http.StatusInternalServerError, "failed to toggle fixed expense")
		return
	}

	s.invalidateTotals(owner)
	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

func (s *Server) handleCashFlowExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	owner := ownerFromContext(r.Context())
	period := r.URL.Query().Get("period")

	entries, err := s.cashflow.CashFlowExpenses(r.Context(), owner, period)
	if err != nil {
		if errors.Is(err, services.ErrNoReceipts) {
			writeError(w, http.StatusNotFound, "no receipts found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to build expense cash flow", "error", err, "owner", owner, "period", period)
		writeError(w, http.StatusInternalServerError, "failed to build cash flow")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCashFlowIncomes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	owner := ownerFromContext(r.Context())
	period := r.URL.Query().Get("period")

	entries, err := s.cashflow.CashFlowIncomes(r.Context(), owner, period)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build income cash flow", "error", err, "owner", owner, "period", period)
		writeError(w, http.StatusInternalServerError, "failed to build cash flow")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleTotalExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	owner := ownerFromContext(r.Context())

	if s.totalsCache != nil {
		if cached, ok := s.totalsCache.Get(totalsCacheKey(owner)); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	report, err := s.cashflow.TotalExpenses(r.Context(), owner)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute total expenses", "error", err, "owner", owner)
		writeError(w, http.StatusInternalServerError, "failed to compute total expenses")
		return
	}

	if s.totalsCache != nil {
		s.totalsCache.Set(totalsCacheKey(owner), report)
	}
	writeJSON(w, http.StatusOK, report)
}

func totalsCacheKey(owner string) string {
	return "totals:" + owner
}

// invalidateTotals drops the cached TotalExpenses response after a write
// that can change the rollup.
func (s *Server) invalidateTotals(owner string) {
	if s.totalsCache != nil {
		s.totalsCache.Delete(totalsCacheKey(owner))
	}
}
