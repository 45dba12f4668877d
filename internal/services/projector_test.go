package services

import (
	"testing"
	"time"

	"manager/internal/core"
)

func TestProjectOccurrences(t *testing.T) {
	today := time.Date(2026, time.June, 17, 12, 0, 0, 0, time.UTC)
	created := today.AddDate(0, -1, 0)

	fixed := []core.FixedExpense{
		{
			ID: 1, Title: "Rent", Amount: core.Money{Cents: 90000},
			Frequency: core.Monthly, DayOfMonth: intp(1),
			IsActive: true, CreatedAt: created,
		},
		{
			ID: 2, Title: "Gym", Amount: core.Money{Cents: 3000},
			Frequency: core.Monthly, DayOfMonth: intp(25),
			IsActive: true, CreatedAt: created,
		},
		{
			ID: 3, Title: "Cleaning", Amount: core.Money{Cents: 5000},
			Frequency: core.Weekly, DayOfWeek: intp(2),
			IsActive: true, CreatedAt: created,
		},
		{
			ID: 4, Title: "Insurance", Amount: core.Money{Cents: 40000},
			Frequency: core.Yearly, Month: intp(0), DayOfMonth: intp(10),
			IsActive: true, CreatedAt: created,
		},
		{
			ID: 5, Title: "Disabled", Amount: core.Money{Cents: 1000},
			Frequency: core.Monthly, IsActive: false, CreatedAt: created,
		},
		{
			ID: 6, Title: "Future", Amount: core.Money{Cents: 1000},
			Frequency: core.Monthly, IsActive: true, CreatedAt: today.AddDate(0, 0, 1),
		},
	}

	got := ProjectOccurrences(fixed, today)

	// Rent (due day passed), Cleaning (weekly, ungated), Insurance
	// (yearly, ungated). Gym is gated out, Disabled and Future skipped.
	if len(got) != 3 {
		t.Fatalf("projected %d occurrences, want 3: %+v", len(got), got)
	}

	byTitle := make(map[string]core.ProjectedOccurrence, len(got))
	for _, occ := range got {
		if !occ.IsFixed {
			t.Errorf("%s: IsFixed = false, want true", occ.Category)
		}
		byTitle[occ.Category] = occ
	}

	rent, ok := byTitle["Rent"]
	if !ok {
		t.Fatal("rent not projected")
	}
	// Anchored to the due day in the current month.
	wantDate := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	if !rent.Date.Equal(wantDate) {
		t.Errorf("rent date = %v, want %v", rent.Date, wantDate)
	}

	cleaning, ok := byTitle["Cleaning"]
	if !ok {
		t.Fatal("cleaning not projected")
	}
	// No due day, so anchored to today's day.
	wantDate = time.Date(2026, time.June, 17, 0, 0, 0, 0, time.UTC)
	if !cleaning.Date.Equal(wantDate) {
		t.Errorf("cleaning date = %v, want %v", cleaning.Date, wantDate)
	}

	insurance, ok := byTitle["Insurance"]
	if !ok {
		t.Fatal("insurance not projected")
	}
	// Yearly dates stay in the current month too, only the day is honored.
	wantDate = time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	if !insurance.Date.Equal(wantDate) {
		t.Errorf("insurance date = %v, want %v", insurance.Date, wantDate)
	}
}

func TestProjectOccurrencesSkipsUnknownFrequency(t *testing.T) {
	today := time.Date(2026, time.June, 17, 0, 0, 0, 0, time.UTC)
	fixed := []core.FixedExpense{
		{ID: 1, Title: "Odd", Frequency: "fortnightly", IsActive: true, CreatedAt: today.AddDate(0, -1, 0)},
	}

	if got := ProjectOccurrences(fixed, today); len(got) != 0 {
		t.Errorf("projected %d occurrences, want 0", len(got))
	}
}

func TestProjectOccurrencesEmpty(t *testing.T) {
	if got := ProjectOccurrences(nil, time.Now()); len(got) != 0 {
		t.Errorf("projected %d occurrences from nil input", len(got))
	}
}
