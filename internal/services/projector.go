package services

import (
	"log/slog"
	"time"

	"manager/internal/core"
)

// ProjectOccurrences synthesizes point-in-time records for the fixed
// expenses considered due as of today. Inactive definitions and
// definitions created after today are skipped. Nothing is persisted:
// two calls with the same inputs produce the same occurrence set.
//
// The synthesized date is always anchored to today's month, using the
// expense's due day when set and today's day otherwise. That holds for
// every frequency, including yearly.
func ProjectOccurrences(fixed []core.FixedExpense, today time.Time) []core.ProjectedOccurrence {
	out := make([]core.ProjectedOccurrence, 0, len(fixed))
	for _, fe := range fixed {
		if !fe.IsActive {
			continue
		}
		if fe.CreatedAt.After(today) {
			continue
		}

		checker, err := GetOccurrenceChecker(fe.Frequency)
		if err != nil {
			slog.Warn("Skipping fixed expense with unknown frequency",
				"id", fe.ID,
				"frequency", string(fe.Frequency))
			continue
		}
		if !checker.Occurs(fe, today) {
			continue
		}

		day := today.Day()
		if fe.DayOfMonth != nil {
			day = *fe.DayOfMonth
		}

		out = append(out, core.ProjectedOccurrence{
			Amount:   fe.Amount,
			Category: fe.Title,
			Date:     time.Date(today.Year(), today.Month(), day, 0, 0, 0, 0, today.Location()),
			IsFixed:  true,
		})
	}
	return out
}
