package services

import "time"

// Period keywords accepted by the cash-flow endpoints.
const (
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

// ResolvePeriod maps a period keyword to the start of the reporting window
// ending at now. The quarter window is a trailing three-month window (first
// day of the month two months back), not a calendar quarter. Unrecognized
// keywords resolve as "month"; callers are never signalled about the
// fallback.
func ResolvePeriod(period string, now time.Time) time.Time {
	switch period {
	case PeriodQuarter:
		// time.Date normalizes out-of-range months, so January rolls back
		// into November of the previous year.
		return time.Date(now.Year(), now.Month()-2, 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}
