package services

import (
	"testing"
	"time"

	"manager/internal/core"
)

func intp(v int) *int { return &v }

func TestMonthlyCheckerDayGate(t *testing.T) {
	fe := core.FixedExpense{Frequency: core.Monthly, DayOfMonth: intp(15)}

	tests := []struct {
		name string
		day  int
		want bool
	}{
		{"before due day", 14, false},
		{"on due day", 15, true},
		{"after due day keeps surfacing", 28, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			today := time.Date(2026, time.June, tt.day, 0, 0, 0, 0, time.UTC)
			if got := (MonthlyChecker{}).Occurs(fe, today); got != tt.want {
				t.Errorf("Occurs(day=%d) = %v, want %v", tt.day, got, tt.want)
			}
		})
	}
}

func TestMonthlyCheckerNoDueDay(t *testing.T) {
	fe := core.FixedExpense{Frequency: core.Monthly}
	today := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	if !(MonthlyChecker{}).Occurs(fe, today) {
		t.Error("monthly expense without a due day should always occur")
	}
}

func TestUngatedFrequencies(t *testing.T) {
	// Weekly, yearly, and custom expenses surface regardless of their
	// day and month fields.
	today := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		fe   core.FixedExpense
	}{
		{"weekly with day of week", core.FixedExpense{Frequency: core.Weekly, DayOfWeek: intp(5)}},
		{"yearly with month and day", core.FixedExpense{Frequency: core.Yearly, Month: intp(11), DayOfMonth: intp(25)}},
		{"custom", core.FixedExpense{Frequency: core.Custom}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			checker, err := GetOccurrenceChecker(tt.fe.Frequency)
			if err != nil {
				t.Fatalf("GetOccurrenceChecker(%s) error = %v", tt.fe.Frequency, err)
			}
			if !checker.Occurs(tt.fe, today) {
				t.Errorf("%s expense should always occur", tt.fe.Frequency)
			}
		})
	}
}

func TestGetOccurrenceCheckerUnknown(t *testing.T) {
	if _, err := GetOccurrenceChecker("fortnightly"); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}

func TestRegisterOccurrenceChecker(t *testing.T) {
	const freq core.Frequency = "quarterly-test"
	RegisterOccurrenceChecker(freq, CustomChecker{})
	t.Cleanup(func() { delete(occurrenceStrategies, freq) })

	checker, err := GetOccurrenceChecker(freq)
	if err != nil {
		t.Fatalf("GetOccurrenceChecker after register: %v", err)
	}
	if !checker.Occurs(core.FixedExpense{}, time.Now()) {
		t.Error("registered checker should occur")
	}
}
