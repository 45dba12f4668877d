package google

import (
	"fmt"
	"strconv"
	"strings"
)

// sumMonthRows sums the Amount column (index 3) of all rows whose Month
// column (index 0) equals month. Header rows and rows with non-numeric
// months are skipped.
func sumMonthRows(values [][]interface{}, month int) int64 {
	var total int64
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) < 4 {
			continue
		}
		m, err := strconv.Atoi(strings.TrimSpace(cols[0]))
		if err != nil || m != month {
			continue
		}
		if cents, ok := parseAmountToCents(cols[3]); ok {
			total += cents
		}
	}
	return total
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// parseAmountToCents parses a sheet cell holding a decimal amount. The
// decimal separator may be a comma depending on the spreadsheet locale.
func parseAmountToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	cents := int64((f * 100.0) + 0.5)
	return cents, true
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
