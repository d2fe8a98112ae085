package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// CALENDAR DATE - Timezone-free date handling
// =============================================================================
// Due dates and payment dates are calendar dates with no time-of-day.
// Parsing "2025-03-15" must yield March 15 regardless of the host timezone;
// naive time.Parse with location conversion drifts a day near midnight,
// which is exactly the bug this type exists to avoid.

// CalendarDate is a calendar day with no time component and no timezone.
type CalendarDate struct {
	t time.Time // midnight UTC, day granularity
}

// NewDate constructs a calendar date.
func NewDate(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date, keeping the wall-clock
// year/month/day as seen in t's own location.
func DateOf(t time.Time) CalendarDate {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date in local time.
func Today() CalendarDate { return DateOf(time.Now()) }

// ParseLocalDate interprets the leading YYYY-MM-DD of s as a calendar date
// with no timezone conversion. Input without that prefix falls back to
// RFC 3339 parsing, from which only the calendar date is kept.
func ParseLocalDate(s string) (CalendarDate, error) {
	if len(s) >= 10 && isISODatePrefix(s[:10]) {
		var y, m, d int
		if _, err := fmt.Sscanf(s[:10], "%04d-%02d-%02d", &y, &m, &d); err != nil {
			return CalendarDate{}, &InvalidDateError{Input: s}
		}
		cd := NewDate(y, time.Month(m), d)
		// time.Date normalizes out-of-range components (Feb 30 -> Mar 2);
		// a round-trip mismatch means the input was not a real date.
		if cd.Year() != y || int(cd.Month()) != m || cd.Day() != d {
			return CalendarDate{}, &InvalidDateError{Input: s}
		}
		return cd, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return CalendarDate{}, &InvalidDateError{Input: s}
	}
	return DateOf(t), nil
}

// MustDate parses an ISO date and panics on failure. Test helper.
func MustDate(s string) CalendarDate {
	d, err := ParseLocalDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func isISODatePrefix(s string) bool {
	for i, r := range s {
		if i == 4 || i == 7 {
			if r != '-' {
				return false
			}
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ISO renders the date as YYYY-MM-DD.
func (d CalendarDate) ISO() string { return d.t.Format("2006-01-02") }

func (d CalendarDate) String() string { return d.ISO() }

// Properties
func (d CalendarDate) Year() int         { return d.t.Year() }
func (d CalendarDate) Month() time.Month { return d.t.Month() }
func (d CalendarDate) Day() int          { return d.t.Day() }
func (d CalendarDate) IsZero() bool      { return d.t.IsZero() }

// Comparison
func (d CalendarDate) Before(o CalendarDate) bool { return d.t.Before(o.t) }
func (d CalendarDate) After(o CalendarDate) bool  { return d.t.After(o.t) }
func (d CalendarDate) Equal(o CalendarDate) bool  { return d.t.Equal(o.t) }

// Arithmetic
func (d CalendarDate) AddDays(n int) CalendarDate   { return CalendarDate{t: d.t.AddDate(0, 0, n)} }
func (d CalendarDate) AddMonths(n int) CalendarDate { return CalendarDate{t: d.t.AddDate(0, n, 0)} }

// DaysBetween returns to - from in whole calendar days.
func DaysBetween(from, to CalendarDate) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// LastDayOfMonth returns the day count of the given month.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EndOfMonth returns the last calendar day of the given month.
func EndOfMonth(year int, month time.Month) CalendarDate {
	return CalendarDate{t: time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)}
}

// MonthEndAfter returns the last calendar day of the month that is `months`
// months after d's month. The day-of-month of d is irrelevant: schedules
// re-align to month-end cadence from the anchor's month.
func MonthEndAfter(d CalendarDate, months int) CalendarDate {
	return EndOfMonth(d.Year(), d.Month()+time.Month(months))
}

// =============================================================================
// JSON
// =============================================================================

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ISO())
}

func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = CalendarDate{}
		return nil
	}
	parsed, err := ParseLocalDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
