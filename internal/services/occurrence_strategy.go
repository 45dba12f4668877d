// Package services provides the business logic of the manager server:
// period resolution, fixed-expense occurrence projection, cash-flow
// merging and receipt orchestration.
//
// This file implements the Strategy Pattern for fixed-expense occurrence
// checking. Each frequency has its own strategy that decides whether the
// expense counts as occurred for the current query date.
package services

import (
	"fmt"
	"time"

	"manager/internal/core"
)

// OccurrenceChecker is the strategy interface for deciding whether a fixed
// expense has an occurrence as of today.
type OccurrenceChecker interface {
	// Occurs reports whether the expense should surface in today's
	// cash-flow projection.
	Occurs(fe core.FixedExpense, today time.Time) bool
}

// MonthlyChecker implements OccurrenceChecker for monthly fixed expenses.
type MonthlyChecker struct{}

// Occurs returns true once the due day of the current month has arrived.
// An expense without a due day surfaces unconditionally. The gate is
// coarse on purpose: after the due day passes, the expense keeps
// surfacing for the remainder of the month.
func (MonthlyChecker) Occurs(fe core.FixedExpense, today time.Time) bool {
	if fe.DayOfMonth == nil {
		return true
	}
	return today.Day() >= *fe.DayOfMonth
}

// WeeklyChecker implements OccurrenceChecker for weekly fixed expenses.
type WeeklyChecker struct{}

// Occurs always returns true: weekly expenses are not day-gated, DayOfWeek
// is carried on the definition but does not restrict projection.
func (WeeklyChecker) Occurs(core.FixedExpense, time.Time) bool {
	return true
}

// YearlyChecker implements OccurrenceChecker for yearly fixed expenses.
type YearlyChecker struct{}

// Occurs always returns true: yearly expenses surface whenever active,
// regardless of their Month and DayOfMonth fields.
func (YearlyChecker) Occurs(core.FixedExpense, time.Time) bool {
	return true
}

// CustomChecker implements OccurrenceChecker for custom-cadence expenses.
type CustomChecker struct{}

func (CustomChecker) Occurs(core.FixedExpense, time.Time) bool {
	return true
}

// occurrenceStrategies maps frequencies to their checkers.
var occurrenceStrategies = map[core.Frequency]OccurrenceChecker{
	core.Monthly: MonthlyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Yearly:  YearlyChecker{},
	core.Custom:  CustomChecker{},
}

// GetOccurrenceChecker returns the checker for a frequency, or an error for
// unknown frequencies.
func GetOccurrenceChecker(frequency core.Frequency) (OccurrenceChecker, error) {
	checker, ok := occurrenceStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return checker, nil
}

// RegisterOccurrenceChecker registers a checker for a new frequency,
// allowing extension without modifying the registry.
func RegisterOccurrenceChecker(frequency core.Frequency, checker OccurrenceChecker) {
	occurrenceStrategies[frequency] = checker
}
