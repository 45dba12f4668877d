package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly Frequency = "monthly"
	Weekly  Frequency = "weekly"
	Yearly  Frequency = "yearly"
	Custom  Frequency = "custom"
)

type (
	// Frequency is the repetition cadence of a fixed expense.
	Frequency string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// FixedExpense is a recurring obligation definition. It is never stored
	// as discrete events; occurrences are projected on demand.
	FixedExpense struct {
		ID         int64
		OwnerID    string
		Title      string
		Category   string
		Amount     Money
		Frequency  Frequency
		DayOfMonth *int // 1-31, used for monthly and yearly
		DayOfWeek  *int // 0-6, used for weekly
		Month      *int // 0-11, used for yearly
		StartDate  Date
		EndDate    Date // zero = open-ended
		IsActive   bool
		CreatedAt  time.Time
	}

	// Receipt is an already-realized expense event. Immutable once created.
	Receipt struct {
		ID        int64
		OwnerID   string
		ProjectID *int64 // nil means "General"
		Sum       Money
		Category  string
		CreatedAt time.Time
	}

	// PaymentDetail is a realized income event attached to a project.
	PaymentDetail struct {
		ID        int64
		ProjectID int64
		Amount    Money
		Date      time.Time
	}

	Project struct {
		ID             int64
		OwnerID        string
		Name           string
		Paid           Money
		Expenses       Money
		PaymentDetails []PaymentDetail
		CreatedAt      time.Time
	}

	// ProjectedOccurrence is a synthesized, non-persisted record of a fixed
	// expense being due as of the query time.
	ProjectedOccurrence struct {
		Amount   Money
		Category string
		Date     time.Time
		IsFixed  bool
	}

	// CashFlowPayment carries the monetary part of a cash-flow entry.
	// Receipts report their amount as sumOfReceipt, projected fixed
	// expenses as amount; both are integer cents.
	CashFlowPayment struct {
		Amount       int64     `json:"amount,omitempty"`
		SumOfReceipt int64     `json:"sumOfReceipt,omitempty"`
		Category     string    `json:"category"`
		Date         time.Time `json:"date"`
		IsFixed      bool      `json:"isFixed,omitempty"`
	}

	// CashFlowEntry is the unit returned to callers of the cash-flow
	// endpoints, sorted ascending by Payments.Date.
	CashFlowEntry struct {
		Payments    CashFlowPayment `json:"payments"`
		ProjectName string          `json:"projectName"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyOwner       = errors.New("empty owner")
	ErrEmptyName        = errors.New("empty name")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true for the zero date (used for optional end dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (f Frequency) IsValid() bool {
	switch f {
	case Monthly, Weekly, Yearly, Custom:
		return true
	}
	return false
}

func (fe FixedExpense) Validate() error {
	if strings.TrimSpace(fe.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(fe.Title) == "" {
		return ErrEmptyTitle
	}
	if len(fe.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := fe.Amount.Validate(); err != nil {
		return err
	}
	if !fe.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if fe.DayOfMonth != nil && (*fe.DayOfMonth < 1 || *fe.DayOfMonth > 31) {
		return ErrInvalidDay
	}
	if fe.DayOfWeek != nil && (*fe.DayOfWeek < 0 || *fe.DayOfWeek > 6) {
		return ErrInvalidDay
	}
	if fe.Month != nil && (*fe.Month < 0 || *fe.Month > 11) {
		return ErrInvalidMonth
	}
	if fe.StartDate.IsZero() {
		return errors.New("start date cannot be zero")
	}
	if !fe.EndDate.IsEmpty() && fe.EndDate.Before(fe.StartDate.Time) {
		return errors.New("end date must not be before start date")
	}
	return nil
}

func (r Receipt) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if r.Sum.Cents <= 0 {
		return ErrInvalidAmount
	}
	if len(r.Category) > 200 {
		return errors.New("category too long (max 200 characters)")
	}
	return nil
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (pd PaymentDetail) Validate() error {
	if pd.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if pd.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}
