package schedule

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

func template(freq recurrence.Frequency, start string) recurrence.Template {
	t := recurrence.NewTemplate(freq, calendar.MustParse(start), decimal.NewFromInt(2500))
	t.ID = "tmpl-1"
	t.PropertyID = "prop-1"
	return t
}

func dates(ss ...string) []civil.Date {
	out := make([]civil.Date, len(ss))
	for i, s := range ss {
		out[i] = calendar.MustParse(s)
	}
	return out
}

func TestDates_MonthlyFirstOfMonth(t *testing.T) {
	// Arrange
	tmpl := template(recurrence.Monthly, "2024-01-01")
	tmpl.DayOfMonth = recurrence.IntPtr(1)

	// Act
	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 91)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-01", "2024-02-01", "2024-03-01", "2024-04-01"), got)
}

func TestDates_WindowEndIsInclusive(t *testing.T) {
	tmpl := template(recurrence.Monthly, "2024-01-01")

	// Deliberately not the documented "90 days ahead gives four dates through
	// 2024-04-01" example: 2024-01-01 + 90 days is 2024-03-31, so April falls outside
	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 90)
	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-01", "2024-02-01", "2024-03-01"), got)

	// a window ending exactly on an occurrence includes it
	got, err = Dates(tmpl, calendar.MustParse("2024-01-01"), 31)
	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-01", "2024-02-01"), got)
}

func TestDates_DayOfMonth31ClampsIndependently(t *testing.T) {
	tmpl := template(recurrence.Monthly, "2024-01-01")
	tmpl.DayOfMonth = recurrence.IntPtr(31)

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 365)

	require.NoError(t, err)
	assert.Equal(t, dates(
		"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30",
		"2024-05-31", "2024-06-30", "2024-07-31", "2024-08-31",
		"2024-09-30", "2024-10-31", "2024-11-30", "2024-12-31",
	), got)
}

func TestDates_DayOfMonth31NonLeapYear(t *testing.T) {
	tmpl := template(recurrence.Monthly, "2023-01-15")
	tmpl.DayOfMonth = recurrence.IntPtr(31)

	got, err := Dates(tmpl, calendar.MustParse("2023-01-01"), 120)

	require.NoError(t, err)
	assert.Equal(t, dates("2023-01-31", "2023-02-28", "2023-03-31", "2023-04-30"), got)
}

func TestDates_RollsToNextPeriodWhenPastAnchor(t *testing.T) {
	tmpl := template(recurrence.Monthly, "2024-01-20")
	tmpl.DayOfMonth = recurrence.IntPtr(15)

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 60)

	require.NoError(t, err)
	assert.Equal(t, dates("2024-02-15"), got)
}

func TestDates_QuarterlyFullYear(t *testing.T) {
	tmpl := template(recurrence.Quarterly, "2024-01-01")

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 365)

	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, dates("2024-01-01", "2024-04-01", "2024-07-01", "2024-10-01"), got)
	for i := 1; i < len(got); i++ {
		gap := calendar.DaysBetween(got[i-1], got[i])
		assert.InDelta(t, 91, gap, 1)
	}
}

func TestDates_QuarterlyDay15(t *testing.T) {
	tmpl := template(recurrence.Quarterly, "2024-01-01")
	tmpl.DayOfMonth = recurrence.IntPtr(15)

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 365)

	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-15", "2024-04-15", "2024-07-15", "2024-10-15"), got)
}

func TestDates_QuarterlyAlignsFromWindowStart(t *testing.T) {
	tmpl := template(recurrence.Quarterly, "2024-01-15")
	tmpl.DayOfMonth = recurrence.IntPtr(15)

	// the first anchor day on or after the window start is period zero
	got, err := Dates(tmpl, calendar.MustParse("2024-02-10"), 60)
	require.NoError(t, err)
	assert.Equal(t, dates("2024-02-15"), got)

	// past the anchor day, roll a whole quarter before setting the day
	got, err = Dates(tmpl, calendar.MustParse("2024-02-20"), 120)
	require.NoError(t, err)
	assert.Equal(t, dates("2024-05-15"), got)
}

func TestDates_AnnuallyAlignsFromWindowStart(t *testing.T) {
	tmpl := template(recurrence.Annually, "2023-03-10")
	tmpl.DayOfMonth = recurrence.IntPtr(10)

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 30)

	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-10"), got)
}

func TestDates_AnnuallyLeapDay(t *testing.T) {
	tmpl := template(recurrence.Annually, "2024-02-29")
	tmpl.DayOfMonth = recurrence.IntPtr(29)

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 1521)

	require.NoError(t, err)
	assert.Equal(t, dates("2024-02-29", "2025-02-28", "2026-02-28", "2027-02-28", "2028-02-29"), got)
}

func TestDates_WeeklyAlignsToWeekday(t *testing.T) {
	// 2024-01-01 is a Monday; default anchor is Sunday
	tmpl := template(recurrence.Weekly, "2024-01-01")

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 21)

	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-07", "2024-01-14", "2024-01-21"), got)
	for _, d := range got {
		assert.Equal(t, time.Sunday, calendar.Weekday(d))
	}
}

func TestDates_WeeklyExplicitAnchor(t *testing.T) {
	tmpl := template(recurrence.Weekly, "2024-01-01")
	tmpl.DayOfWeek = recurrence.IntPtr(3) // Wednesday

	got, err := Dates(tmpl, calendar.MustParse("2024-01-10"), 14)

	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-10", "2024-01-17", "2024-01-24"), got)
}

func TestDates_FortnightlyAlignsFromWindowStart(t *testing.T) {
	tmpl := template(recurrence.Fortnightly, "2024-01-07")

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 42)
	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-07", "2024-01-21", "2024-02-04"), got)

	// 2024-01-08 is a Monday: the next Sunday starts the series
	got, err = Dates(tmpl, calendar.MustParse("2024-01-08"), 20)
	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-14", "2024-01-28"), got)
}

func TestDates_NeverBeforeStartDate(t *testing.T) {
	tmpl := template(recurrence.Monthly, "2024-03-01")

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 120)

	require.NoError(t, err)
	assert.Equal(t, dates("2024-03-01", "2024-04-01"), got)
}

func TestDates_StopsAtEndDate(t *testing.T) {
	tmpl := template(recurrence.Monthly, "2024-01-01")
	end := calendar.MustParse("2024-02-15")
	tmpl.EndDate = &end

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 365)

	require.NoError(t, err)
	assert.Equal(t, dates("2024-01-01", "2024-02-01"), got)
}

func TestDates_WindowAfterEndDateIsEmpty(t *testing.T) {
	tmpl := template(recurrence.Weekly, "2024-01-01")
	end := calendar.MustParse("2024-01-31")
	tmpl.EndDate = &end

	got, err := Dates(tmpl, calendar.MustParse("2024-03-01"), 30)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDates_InvalidTemplateFailsFast(t *testing.T) {
	tmpl := template(recurrence.Monthly, "2024-01-01")
	tmpl.DayOfMonth = recurrence.IntPtr(32)

	got, err := Dates(tmpl, calendar.MustParse("2024-01-01"), 30)

	assert.ErrorIs(t, err, recurrence.ErrInvalidTemplate)
	assert.Nil(t, got)
}

func TestDates_AllWithinTemplateBounds(t *testing.T) {
	end := calendar.MustParse("2025-03-17")
	from := calendar.MustParse("2023-11-20")

	for _, freq := range recurrence.Frequencies() {
		for _, anchor := range []int{1, 6, 15, 28, 29, 30, 31} {
			tmpl := template(freq, "2024-01-31")
			tmpl.EndDate = &end
			if freq.DayBased() {
				tmpl.DayOfWeek = recurrence.IntPtr(anchor % 7)
			} else {
				tmpl.DayOfMonth = recurrence.IntPtr(anchor)
			}

			got, err := Dates(tmpl, from, 700)
			require.NoError(t, err)

			for i, d := range got {
				assert.True(t, tmpl.Covers(d), "%s anchor %d: %s outside template bounds", freq, anchor, d)
				assert.False(t, d.Before(from))
				if i > 0 {
					assert.True(t, got[i-1].Before(d), "dates must ascend")
				}
			}
		}
	}
}

func TestNext_StepsOnePeriodFromAnchorDate(t *testing.T) {
	tmpl := template(recurrence.Quarterly, "2024-03-31")
	tmpl.DayOfMonth = recurrence.IntPtr(31)

	next, ok := Next(tmpl, calendar.MustParse("2024-03-31"))
	require.True(t, ok)
	assert.Equal(t, calendar.MustParse("2024-06-30"), next)

	fortnightly := template(recurrence.Fortnightly, "2024-01-07")
	next, ok = Next(fortnightly, calendar.MustParse("2024-01-07"))
	require.True(t, ok)
	assert.Equal(t, calendar.MustParse("2024-01-21"), next)
}

func TestNext(t *testing.T) {
	tmpl := template(recurrence.Monthly, "2024-01-01")
	tmpl.DayOfMonth = recurrence.IntPtr(31)

	next, ok := Next(tmpl, calendar.MustParse("2024-01-31"))
	require.True(t, ok)
	assert.Equal(t, calendar.MustParse("2024-02-29"), next)

	end := calendar.MustParse("2024-02-01")
	tmpl.EndDate = &end
	_, ok = Next(tmpl, calendar.MustParse("2024-01-31"))
	assert.False(t, ok)
}
