// utils/date.go - Calendar-day helpers
package utils

import "time"

const dayLayout = "2006-01-02"

// DateOf formats a timestamp as a UTC calendar day (YYYY-MM-DD).
// All habit bookkeeping is keyed on these strings; they compare
// chronologically as plain strings.
func DateOf(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Yesterday returns the calendar day before the given timestamp.
func Yesterday(t time.Time) string {
	return DateOf(t.UTC().AddDate(0, 0, -1))
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD day.
func ValidDate(s string) bool {
	_, err := time.Parse(dayLayout, s)
	return err == nil
}
