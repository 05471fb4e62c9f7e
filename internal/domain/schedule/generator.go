// Package schedule turns recurrence templates into concrete expected dates
// and draft occurrences.
//
// Alignment starts at max(fromDate, StartDate): the first anchor day on or
// after that date is period zero and every later period is a fixed step
// from it. Callers that need a stable fortnightly, quarterly or annual phase
// across sweeps pass a fromDate that is already on the series, such as the
// last stored expected date.
package schedule

import (
	"cloud.google.com/go/civil"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// Window is an inclusive date range.
type Window struct {
	From civil.Date
	To   civil.Date
}

// NewWindow returns [from, from+daysAhead].
func NewWindow(from civil.Date, daysAhead int) Window {
	return Window{From: from, To: from.AddDays(daysAhead)}
}

// Empty reports whether the window contains no dates.
func (w Window) Empty() bool {
	return w.From.After(w.To)
}

// Dates returns the ascending dates of t that fall in [from, from+daysAhead]
// and in [StartDate, EndDate]. An invalid template is rejected before any
// date is produced. A window that lies entirely after EndDate (or a negative
// daysAhead) yields no dates and no error.
func Dates(t recurrence.Template, from civil.Date, daysAhead int) ([]civil.Date, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if daysAhead < 0 {
		return nil, nil
	}
	return DatesIn(t, NewWindow(from, daysAhead)), nil
}

// DatesIn is Dates for an already validated template and explicit window.
func DatesIn(t recurrence.Template, w Window) []civil.Date {
	lower := calendar.Max(w.From, t.StartDate)
	upper := w.To
	if t.EndDate != nil {
		upper = calendar.Min(upper, *t.EndDate)
	}
	if lower.After(upper) {
		return nil
	}

	if t.Frequency.DayBased() {
		return dayStepped(t, lower, upper)
	}
	return monthStepped(t, lower, upper)
}

// Next returns the first date strictly after d of the series aligned from d,
// or false if the series ends first. When d is itself an anchor date the
// result is exactly one period later.
func Next(t recurrence.Template, d civil.Date) (civil.Date, bool) {
	// one period is at most a year and a day past any clamped anniversary
	for _, next := range DatesIn(t, Window{From: d, To: d.AddDays(367)}) {
		if next.After(d) {
			return next, true
		}
	}
	return civil.Date{}, false
}

func dayStepped(t recurrence.Template, lower, upper civil.Date) []civil.Date {
	step := t.Frequency.StepDays()
	first := alignWeekday(lower, t.AnchorDayOfWeek())

	var dates []civil.Date
	for d := first; !d.After(upper); d = d.AddDays(step) {
		dates = append(dates, d)
	}
	return dates
}

// alignWeekday advances d by (target - current + 7) mod 7 days.
func alignWeekday(d civil.Date, target int) civil.Date {
	current := int(calendar.Weekday(d))
	return d.AddDays((target - current + 7) % 7)
}

func monthStepped(t recurrence.Template, lower, upper civil.Date) []civil.Date {
	step := t.Frequency.StepMonths()
	target := t.AnchorDayOfMonth()

	origin := calendar.FirstOfMonth(lower)
	if lower.Day > target {
		origin = calendar.AddMonths(origin, step)
	}

	var dates []civil.Date
	for period := 0; ; period++ {
		d := periodDate(origin, period, step, target)
		if d.After(upper) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}

// periodDate steps from the first of the origin month and clamps target
// against that period's own month length, so a day-31 anchor lands on
// Jan 31, Feb 29, Mar 31, Apr 30 rather than sticking at an earlier clamp.
func periodDate(origin civil.Date, period, step, target int) civil.Date {
	first := calendar.AddMonths(origin, period*step)
	return calendar.Clamp(first.Year, first.Month, target)
}
