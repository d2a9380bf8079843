package engine

import (
	"fmt"
	"time"
)

// DateKey builds the canonical YYYY-MM-DD history key.
func DateKey(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// DaysInMonth returns the real length of the month (28/29/30/31). Day zero of
// the following month normalizes to the last day of this one.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthKeys returns the date keys of every day in the month, in order.
func MonthKeys(year int, month time.Month) []string {
	n := DaysInMonth(year, month)
	keys := make([]string, n)
	for d := 1; d <= n; d++ {
		keys[d-1] = DateKey(year, month, d)
	}
	return keys
}
