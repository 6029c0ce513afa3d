package patient

import (
	"fmt"
	"time"
)

// DateLayout is the significant prefix of every date column.
const DateLayout = "2006-01-02"

// Age returns the number of whole years between dob and asOf. A birthday that
// has not yet been reached in asOf's year does not count.
func Age(asOf, dob time.Time) int {
	age := asOf.Year() - dob.Year()
	if asOf.Month() < dob.Month() || (asOf.Month() == dob.Month() && asOf.Day() < dob.Day()) {
		age--
	}
	return age
}

// ParseDate parses the first 10 characters of s as YYYY-MM-DD. Anything after
// them, typically a time of day, is ignored.
func ParseDate(s string) (time.Time, error) {
	if len(s) < len(DateLayout) {
		return time.Time{}, fmt.Errorf("date %q is shorter than %s", s, DateLayout)
	}
	d, err := time.Parse(DateLayout, s[:len(DateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
