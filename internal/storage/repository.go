package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"manager/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row lookup matches nothing for the owner.
var ErrNotFound = errors.New("not found")

// SQLiteRepository backs all three domain stores with a single SQLite
// database. Ownership is enforced in every query; an ID from another owner
// behaves like a missing row.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- fixed expenses ---

func (r *SQLiteRepository) CreateFixedExpense(ctx context.Context, fe core.FixedExpense) (int64, error) {
	var endDate any
	if !fe.EndDate.IsEmpty() {
		endDate = fe.EndDate.Time
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO fixed_expenses
			(owner_id, title, category, amount_cents, frequency,
			 day_of_month, day_of_week, month, start_date, end_date, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fe.OwnerID, fe.Title, fe.Category, fe.Amount.Cents, string(fe.Frequency),
		nullableInt(fe.DayOfMonth), nullableInt(fe.DayOfWeek), nullableInt(fe.Month),
		fe.StartDate.Time, endDate, fe.IsActive, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert fixed expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fixed expense id: %w", err)
	}

	slog.InfoContext(ctx, "Fixed expense saved",
		"id", id,
		"owner", fe.OwnerID,
		"title", fe.Title,
		"frequency", fe.Frequency)

	return id, nil
}

func (r *SQLiteRepository) ListFixedExpensesByOwner(ctx context.Context, ownerID string) ([]core.FixedExpense, error) {
	return r.listFixedExpenses(ctx, `
		SELECT id, owner_id, title, category, amount_cents, frequency,
		       day_of_month, day_of_week, month, start_date, end_date, is_active, created_at
		FROM fixed_expenses
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC`, ownerID)
}

func (r *SQLiteRepository) ListActiveFixedExpensesByOwner(ctx context.Context, ownerID string) ([]core.FixedExpense, error) {
	return r.listFixedExpenses(ctx, `
		SELECT id, owner_id, title, category, amount_cents, frequency,
		       day_of_month, day_of_week, month, start_date, end_date, is_active, created_at
		FROM fixed_expenses
		WHERE owner_id = ? AND is_active = 1
		ORDER BY created_at DESC, id DESC`, ownerID)
}

func (r *SQLiteRepository) listFixedExpenses(ctx context.Context, query string, args ...any) ([]core.FixedExpense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fixed expenses: %w", err)
	}
	defer rows.Close()

	var out []core.FixedExpense
	for rows.Next() {
		var (
			fe         core.FixedExpense
			frequency  string
			dayOfMonth sql.NullInt64
			dayOfWeek  sql.NullInt64
			month      sql.NullInt64
			startDate  time.Time
			endDate    sql.NullTime
		)
		if err := rows.Scan(&fe.ID, &fe.OwnerID, &fe.Title, &fe.Category, &fe.Amount.Cents,
			&frequency, &dayOfMonth, &dayOfWeek, &month, &startDate, &endDate,
			&fe.IsActive, &fe.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fixed expense: %w", err)
		}
		fe.Frequency = core.Frequency(frequency)
		fe.DayOfMonth = intPtr(dayOfMonth)
		fe.DayOfWeek = intPtr(dayOfWeek)
		fe.Month = intPtr(month)
		fe.StartDate = core.Date{Time: startDate}
		if endDate.Valid {
			fe.EndDate = core.Date{Time: endDate.Time}
		}
		out = append(out, fe)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SetFixedExpenseActive(ctx context.Context, ownerID string, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fixed_expenses SET is_active = ? WHERE id = ? AND owner_id = ?`,
		active, id, ownerID)
	if err != nil {
		return fmt.Errorf("update fixed expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Fixed expense toggled", "id", id, "owner", ownerID, "active", active)
	return nil
}

func (r *SQLiteRepository) SumActiveFixedExpensesForYear(ctx context.Context, ownerID string, year int) (int64, error) {
	from, to := yearBounds(year)

	var sum sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents)
		FROM fixed_expenses
		WHERE owner_id = ? AND is_active = 1 AND created_at >= ? AND created_at < ?`,
		ownerID, from, to).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum fixed expenses: %w", err)
	}
	return sum.Int64, nil
}

// --- receipts ---

func (r *SQLiteRepository) CreateReceipt(ctx context.Context, receipt core.Receipt) (int64, error) {
	createdAt := receipt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var projectID any
	if receipt.ProjectID != nil {
		projectID = *receipt.ProjectID
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO receipts (owner_id, project_id, sum_cents, category, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		receipt.OwnerID, projectID, receipt.Sum.Cents, receipt.Category, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert receipt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("receipt id: %w", err)
	}

	slog.InfoContext(ctx, "Receipt saved",
		"id", id,
		"owner", receipt.OwnerID,
		"sum_cents", receipt.Sum.Cents)

	return id, nil
}

func (r *SQLiteRepository) GetReceipt(ctx context.Context, id int64) (core.Receipt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, project_id, sum_cents, category, created_at
		FROM receipts WHERE id = ?`, id)

	receipt, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Receipt{}, ErrNotFound
	}
	if err != nil {
		return core.Receipt{}, fmt.Errorf("get receipt: %w", err)
	}
	return receipt, nil
}

func (r *SQLiteRepository) ListReceiptsByOwner(ctx context.Context, ownerID string, limit int) ([]core.Receipt, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.listReceipts(ctx, `
		SELECT id, owner_id, project_id, sum_cents, category, created_at
		FROM receipts
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, ownerID, limit)
}

func (r *SQLiteRepository) ListReceiptsInRange(ctx context.Context, ownerID string, from, to time.Time) ([]core.Receipt, error) {
	return r.listReceipts(ctx, `
		SELECT id, owner_id, project_id, sum_cents, category, created_at
		FROM receipts
		WHERE owner_id = ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC, id ASC`, ownerID, from, to)
}

func (r *SQLiteRepository) listReceipts(ctx context.Context, query string, args ...any) ([]core.Receipt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var out []core.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, receipt)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountReceiptsByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM receipts WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count receipts: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SumReceiptsForYear(ctx context.Context, ownerID string, year int) (int64, error) {
	from, to := yearBounds(year)

	var sum sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(sum_cents)
		FROM receipts
		WHERE owner_id = ? AND created_at >= ? AND created_at < ?`,
		ownerID, from, to).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum receipts: %w", err)
	}
	return sum.Int64, nil
}

// --- projects ---

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (int64, error) {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (owner_id, name, paid_cents, expenses_cents, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.OwnerID, p.Name, p.Paid.Cents, p.Expenses.Cents, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("project id: %w", err)
	}

	slog.InfoContext(ctx, "Project saved", "id", id, "owner", p.OwnerID, "name", p.Name)
	return id, nil
}

func (r *SQLiteRepository) ListProjectsByOwner(ctx context.Context, ownerID string) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, paid_cents, expenses_cents, created_at
		FROM projects
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	byID := make(map[int64]int)
	for rows.Next() {
		var p core.Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Paid.Cents, &p.Expenses.Cents, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		byID[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	details, err := r.listPaymentDetails(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, pd := range details {
		if idx, ok := byID[pd.ProjectID]; ok {
			out[idx].PaymentDetails = append(out[idx].PaymentDetails, pd)
		}
	}
	return out, nil
}

func (r *SQLiteRepository) listPaymentDetails(ctx context.Context, ownerID string) ([]core.PaymentDetail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pd.id, pd.project_id, pd.amount_cents, pd.paid_at
		FROM payment_details pd
		JOIN projects p ON p.id = pd.project_id
		WHERE p.owner_id = ?
		ORDER BY pd.paid_at ASC, pd.id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query payment details: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentDetail
	for rows.Next() {
		var pd core.PaymentDetail
		if err := rows.Scan(&pd.ID, &pd.ProjectID, &pd.Amount.Cents, &pd.Date); err != nil {
			return nil, fmt.Errorf("scan payment detail: %w", err)
		}
		out = append(out, pd)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddPaymentDetail(ctx context.Context, ownerID string, pd core.PaymentDetail) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// The project must belong to the caller before any money moves.
	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM projects WHERE id = ? AND owner_id = ?`,
		pd.ProjectID, ownerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("check project owner: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO payment_details (project_id, amount_cents, paid_at)
		VALUES (?, ?, ?)`,
		pd.ProjectID, pd.Amount.Cents, pd.Date)
	if err != nil {
		return 0, fmt.Errorf("insert payment detail: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("payment detail id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE projects SET paid_cents = paid_cents + ? WHERE id = ?`,
		pd.Amount.Cents, pd.ProjectID)
	if err != nil {
		return 0, fmt.Errorf("update project paid total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit payment detail: %w", err)
	}

	slog.InfoContext(ctx, "Payment detail saved",
		"id", id,
		"project_id", pd.ProjectID,
		"amount_cents", pd.Amount.Cents)

	return id, nil
}

// --- bookkeeping export queue ---

// PendingExportReceipt is the minimal row shape the worker needs to enqueue
// catch-up exports.
type PendingExportReceipt struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingExportReceipts returns receipts not yet booked, oldest first.
func (r *SQLiteRepository) GetPendingExportReceipts(ctx context.Context, limit int) ([]PendingExportReceipt, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at
		FROM receipts
		WHERE sync_status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending export receipts: %w", err)
	}
	defer rows.Close()

	var out []PendingExportReceipt
	for rows.Next() {
		var p PendingExportReceipt
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending export receipt: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a receipt as successfully booked.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, "synced"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Receipt marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a receipt as failing to book. Errored receipts are
// retried by the catch-up scan only after an operator resets them.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, "error"); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Receipt marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE receipts SET sync_status = ?, version = version + 1 WHERE id = ?`,
		status, id)
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (core.Receipt, error) {
	var (
		receipt   core.Receipt
		projectID sql.NullInt64
	)
	if err := row.Scan(&receipt.ID, &receipt.OwnerID, &projectID,
		&receipt.Sum.Cents, &receipt.Category, &receipt.CreatedAt); err != nil {
		return core.Receipt{}, err
	}
	if projectID.Valid {
		id := projectID.Int64
		receipt.ProjectID = &id
	}
	return receipt, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func yearBounds(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}
