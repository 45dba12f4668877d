package services

import (
	"testing"
	"time"
)

func TestResolvePeriod(t *testing.T) {
	now := time.Date(2026, time.June, 17, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		period string
		want   time.Time
	}{
		{
			name:   "month",
			period: PeriodMonth,
			want:   time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "quarter is a trailing three month window",
			period: PeriodQuarter,
			want:   time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "year",
			period: PeriodYear,
			want:   time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "empty falls back to month",
			period: "",
			want:   time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "unknown keyword falls back to month",
			period: "decade",
			want:   time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePeriod(tt.period, now)
			if !got.Equal(tt.want) {
				t.Errorf("ResolvePeriod(%q) = %v, want %v", tt.period, got, tt.want)
			}
		})
	}
}

func TestResolvePeriodQuarterYearRollback(t *testing.T) {
	// January minus two months normalizes into November of the prior year.
	now := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	got := ResolvePeriod(PeriodQuarter, now)
	want := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ResolvePeriod(quarter) in January = %v, want %v", got, want)
	}

	// February reaches back into December.
	now = time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)
	got = ResolvePeriod(PeriodQuarter, now)
	want = time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ResolvePeriod(quarter) in February = %v, want %v", got, want)
	}
}
