// Package calendar provides pure calendar-date arithmetic for recurring
// schedules.
//
// All values are civil.Date (year, month, day) with no time-of-day and no
// location, so stepping through months never picks up daylight-saving or
// timezone artifacts. The only place a location is involved is the Clock,
// which decides what "today" is for the caller.
package calendar

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Layout is the canonical date format used in storage, CSV files and flags.
const Layout = "2006-01-02"

// Parse parses a YYYY-MM-DD string into a civil.Date.
func Parse(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: expected %s", s, Layout)
	}
	return d, nil
}

// MustParse is Parse for literals in tests and defaults. It panics on bad input.
func MustParse(s string) civil.Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Date builds a civil.Date from its parts.
func Date(year int, month time.Month, day int) civil.Date {
	return civil.Date{Year: year, Month: month, Day: day}
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// Clamp returns the date for day in the given month, clamped to the last
// valid day of that month. Clamp(2024, February, 31) is 2024-02-29.
// day must be at least 1; Template.Validate rejects anchors outside 1-31.
func Clamp(year int, month time.Month, day int) civil.Date {
	if dim := DaysInMonth(year, month); day > dim {
		day = dim
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// FirstOfMonth returns the first day of d's month.
func FirstOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// AddMonths moves d's month forward by n months (n may be negative) and
// returns the first day of the resulting month. Resetting to day 1 keeps
// month stepping free of drift from variable month lengths.
func AddMonths(d civil.Date, n int) civil.Date {
	idx := MonthIndex(d) + n
	return civil.Date{Year: floorDiv(idx, 12), Month: time.Month(floorMod(idx, 12) + 1), Day: 1}
}

// MonthIndex numbers months consecutively (year*12 + month-1), which makes
// "how many months apart" a subtraction.
func MonthIndex(d civil.Date) int {
	return d.Year*12 + int(d.Month) - 1
}

// Weekday returns the day of the week of d (Sunday = 0).
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// DaysBetween returns b - a in whole days. It is negative when b is before a.
func DaysBetween(a, b civil.Date) int {
	return b.DaysSince(a)
}

// AbsDaysBetween is |DaysBetween(a, b)|.
func AbsDaysBetween(a, b civil.Date) int {
	n := DaysBetween(a, b)
	if n < 0 {
		return -n
	}
	return n
}

// Max returns the later of a and b.
func Max(a, b civil.Date) civil.Date {
	if a.After(b) {
		return a
	}
	return b
}

// Min returns the earlier of a and b.
func Min(a, b civil.Date) civil.Date {
	if a.Before(b) {
		return a
	}
	return b
}

// IsZero reports whether d is the zero value.
func IsZero(d civil.Date) bool {
	return d == civil.Date{}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
