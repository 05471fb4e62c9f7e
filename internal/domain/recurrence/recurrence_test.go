package recurrence

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
)

func validTemplate() Template {
	t := NewTemplate(Monthly, calendar.MustParse("2024-01-01"), decimal.NewFromInt(2500))
	t.OwnerID = "owner-1"
	t.PropertyID = "prop-1"
	return t
}

func TestParseFrequency(t *testing.T) {
	for _, f := range Frequencies() {
		parsed, err := ParseFrequency(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	parsed, err := ParseFrequency("  Monthly ")
	require.NoError(t, err)
	assert.Equal(t, Monthly, parsed)
}

func TestParseFrequency_UnknownIsRejected(t *testing.T) {
	_, err := ParseFrequency("biweekly")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFrequency))
	assert.True(t, errors.Is(err, ErrInvalidTemplate))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "frequency", verr.Field)
}

func TestFrequency_Steps(t *testing.T) {
	assert.Equal(t, 7, Weekly.StepDays())
	assert.Equal(t, 14, Fortnightly.StepDays())
	assert.Equal(t, 0, Monthly.StepDays())
	assert.Equal(t, 1, Monthly.StepMonths())
	assert.Equal(t, 3, Quarterly.StepMonths())
	assert.Equal(t, 12, Annually.StepMonths())
	assert.True(t, Fortnightly.DayBased())
	assert.False(t, Annually.DayBased())
}

func TestFrequency_TextRoundTrip(t *testing.T) {
	var f Frequency
	require.NoError(t, f.UnmarshalText([]byte("quarterly")))
	assert.Equal(t, Quarterly, f)

	_, err := Frequency(0).MarshalText()
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("missed")
	require.NoError(t, err)
	assert.Equal(t, StatusMissed, s)

	_, err = ParseStatus("done")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestParseTransactionType(t *testing.T) {
	tt, err := ParseTransactionType("Income")
	require.NoError(t, err)
	assert.Equal(t, Income, tt)

	_, err = ParseTransactionType("transfer")
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestTemplate_Defaults(t *testing.T) {
	tmpl := NewTemplate(Weekly, calendar.MustParse("2024-01-01"), decimal.NewFromInt(100))

	assert.True(t, tmpl.AmountTolerancePercent.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 3, tmpl.DateToleranceDays)
	assert.Equal(t, 3, tmpl.AlertDelayDays)
	assert.True(t, tmpl.Active)
	assert.Equal(t, 1, tmpl.AnchorDayOfMonth())
	assert.Equal(t, 0, tmpl.AnchorDayOfWeek())
}

func TestTemplate_Validate(t *testing.T) {
	end := calendar.MustParse("2023-12-31")

	tests := []struct {
		name   string
		mutate func(*Template)
		field  string
	}{
		{"unknown frequency", func(t *Template) { t.Frequency = 0 }, "frequency"},
		{"day of month zero", func(t *Template) { t.DayOfMonth = IntPtr(0) }, "dayOfMonth"},
		{"day of month 32", func(t *Template) { t.DayOfMonth = IntPtr(32) }, "dayOfMonth"},
		{"day of week 7", func(t *Template) { t.DayOfWeek = IntPtr(7) }, "dayOfWeek"},
		{"day of week negative", func(t *Template) { t.DayOfWeek = IntPtr(-1) }, "dayOfWeek"},
		{"end before start", func(t *Template) { t.EndDate = &end }, "endDate"},
		{"negative tolerance", func(t *Template) { t.AmountTolerancePercent = decimal.NewFromInt(-1) }, "amountTolerancePercent"},
		{"negative alert delay", func(t *Template) { t.AlertDelayDays = -1 }, "alertDelayDays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.mutate(&tmpl)

			err := tmpl.Validate()

			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestTemplate_ValidateBoundaries(t *testing.T) {
	tmpl := validTemplate()
	tmpl.DayOfMonth = IntPtr(31)
	tmpl.DayOfWeek = IntPtr(6)
	assert.NoError(t, tmpl.Validate())

	tmpl.DayOfMonth = IntPtr(1)
	tmpl.DayOfWeek = IntPtr(0)
	assert.NoError(t, tmpl.Validate())
}

func TestTemplate_ValidateForCreate(t *testing.T) {
	tmpl := validTemplate()
	require.NoError(t, tmpl.ValidateForCreate())

	tmpl.Amount = decimal.Zero
	err := tmpl.ValidateForCreate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "amount", verr.Field)

	tmpl = validTemplate()
	tmpl.PropertyID = ""
	assert.Error(t, tmpl.ValidateForCreate())
}

func TestTemplate_Covers(t *testing.T) {
	tmpl := validTemplate()
	end := calendar.MustParse("2024-06-30")
	tmpl.EndDate = &end

	assert.False(t, tmpl.Covers(calendar.MustParse("2023-12-31")))
	assert.True(t, tmpl.Covers(calendar.MustParse("2024-01-01")))
	assert.True(t, tmpl.Covers(end))
	assert.False(t, tmpl.Covers(calendar.MustParse("2024-07-01")))
}

func TestOccurrence_Transition(t *testing.T) {
	tests := []struct {
		name    string
		to      Status
		txnID   string
		wantErr error
	}{
		{"matched with txn", StatusMatched, "txn-1", nil},
		{"matched without txn", StatusMatched, "", ErrInvalidTransition},
		{"missed", StatusMissed, "", nil},
		{"missed with txn", StatusMissed, "txn-1", ErrInvalidTransition},
		{"skipped", StatusSkipped, "", nil},
		{"back to pending", StatusPending, "", ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ := Occurrence{ID: "occ-1", Status: StatusPending}

			err := occ.Transition(tt.to, tt.txnID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, StatusPending, occ.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, occ.Status)
			assert.Equal(t, tt.txnID, occ.MatchedTransactionID)
		})
	}
}

func TestOccurrence_TerminalStatesAreFinal(t *testing.T) {
	for _, from := range []Status{StatusMatched, StatusMissed, StatusSkipped} {
		occ := Occurrence{ID: "occ-1", Status: from}

		err := occ.Transition(StatusSkipped, "")

		assert.ErrorIs(t, err, ErrTerminalStatus, "from %s", from)
		assert.Equal(t, from, occ.Status)
	}
}

func TestOccurrence_Key(t *testing.T) {
	d := calendar.MustParse("2024-02-01")
	occ := Occurrence{TemplateID: "tmpl-1", ExpectedDate: d}

	assert.Equal(t, Key{TemplateID: "tmpl-1", ExpectedDate: d}, occ.Key())
}
