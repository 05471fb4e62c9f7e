package pattern

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// series builds transactions starting at start, separated by the given gaps.
func series(prefix, category, amount, start string, gaps ...int) []recurrence.Transaction {
	date := calendar.MustParse(start)
	txns := []recurrence.Transaction{{
		ID:          prefix + "-0",
		PropertyID:  "prop-1",
		Date:        date,
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		Description: "RENT PAYMENT",
	}}
	for i, gap := range gaps {
		date = date.AddDays(gap)
		txns = append(txns, recurrence.Transaction{
			ID:          fmt.Sprintf("%s-%d", prefix, i+1),
			PropertyID:  "prop-1",
			Date:        date,
			Amount:      decimal.RequireFromString(amount),
			Category:    category,
			Description: "RENT PAYMENT",
		})
	}
	return txns
}

func TestDetect_PerfectMonthly(t *testing.T) {
	// Arrange
	txns := series("rent", "rent", "-2500", "2024-01-01", 30, 30, 30, 30, 30)

	// Act
	got := Detect(txns)

	// Assert
	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, recurrence.Monthly, s.Frequency)
	assert.InDelta(t, 1.0, s.Confidence, 1e-9)
	assert.InDelta(t, 30.0, s.MeanIntervalDays, 1e-9)
	assert.InDelta(t, 0.0, s.StdDevDays, 1e-9)
	assert.Equal(t, 6, s.OccurrenceCount)
	assert.Len(t, s.TransactionIDs, 6)
	assert.Equal(t, "2500", s.AverageAmount.String())
	assert.Equal(t, "rent|prop-1|2500", s.Key)
	assert.Equal(t, recurrence.Expense, s.TransactionType)
	assert.Equal(t, calendar.MustParse("2024-05-30"), s.LastSeen)
	assert.Equal(t, calendar.MustParse("2024-06-30"), s.NextExpected)
}

func TestDetect_TooFewTransactions(t *testing.T) {
	txns := series("rent", "rent", "-2500", "2024-01-01", 30)

	assert.Empty(t, Detect(txns))
}

func TestDetect_MeanOutsideEveryBand(t *testing.T) {
	txns := series("odd", "repairs", "-300", "2024-01-01", 20, 20, 20)

	assert.Empty(t, Detect(txns))
}

func TestDetect_ConfidenceFromJitter(t *testing.T) {
	tests := []struct {
		name     string
		gaps     []int
		wantConf float64
		wantKept bool
	}{
		{name: "stddev 1 kept", gaps: []int{29, 31, 29, 31}, wantConf: 0.75, wantKept: true},
		// sample stddev would be 1.41 and fall under the floor
		{name: "two gaps use population stddev", gaps: []int{29, 31}, wantConf: 0.75, wantKept: true},
		{name: "stddev 2 dropped", gaps: []int{28, 32, 28, 32}, wantKept: false},
		{name: "stddev at band edge dropped", gaps: []int{26, 34, 26, 34}, wantKept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			txns := series("rent", "rent", "-2500", "2024-01-01", tt.gaps...)

			// Act
			got := Detect(txns)

			// Assert
			if !tt.wantKept {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.InDelta(t, tt.wantConf, got[0].Confidence, 1e-9)
		})
	}
}

func TestDetect_SortedByConfidence(t *testing.T) {
	// Arrange
	var txns []recurrence.Transaction
	txns = append(txns, series("rent", "rent", "-2500", "2024-01-01", 29, 31, 29, 31)...)
	txns = append(txns, series("clean", "cleaning", "-80", "2024-01-01", 7, 7, 7)...)

	// Act
	got := Detect(txns)

	// Assert
	require.Len(t, got, 2)
	assert.Equal(t, recurrence.Weekly, got[0].Frequency)
	assert.Equal(t, recurrence.Monthly, got[1].Frequency)
	assert.GreaterOrEqual(t, got[0].Confidence, got[1].Confidence)
}

func TestDetect_AllBands(t *testing.T) {
	tests := []struct {
		gap  int
		want recurrence.Frequency
	}{
		{gap: 7, want: recurrence.Weekly},
		{gap: 14, want: recurrence.Fortnightly},
		{gap: 30, want: recurrence.Monthly},
		{gap: 91, want: recurrence.Quarterly},
		{gap: 365, want: recurrence.Annually},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			got := Detect(series("s", "insurance", "-1200", "2020-01-01", tt.gap, tt.gap, tt.gap))

			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Frequency)
		})
	}
}

func TestDetect_GroupsByBucketCategoryAndProperty(t *testing.T) {
	// Arrange: amounts within one $100 band cluster together
	txns := series("rent", "rent", "-2480", "2024-01-01", 30, 30)
	txns[1].Amount = decimal.RequireFromString("-2520")
	other := series("other", "rent", "-2500", "2024-01-01", 30, 30)
	for i := range other {
		other[i].PropertyID = "prop-2"
	}
	txns = append(txns, other...)

	// Act
	got := Detect(txns)

	// Assert
	require.Len(t, got, 2)
	keys := []string{got[0].Key, got[1].Key}
	assert.ElementsMatch(t, []string{"rent|prop-1|2500", "rent|prop-2|2500"}, keys)
}

func TestDetect_IncomeFromPositiveAmounts(t *testing.T) {
	got := Detect(series("rent", "rental_income", "2200", "2024-01-01", 30, 30, 30))

	require.Len(t, got, 1)
	assert.Equal(t, recurrence.Income, got[0].TransactionType)
}

func TestBucket(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{amount: "-2449.99", want: "2400"},
		{amount: "2450", want: "2500"},
		{amount: "49", want: "0"},
		{amount: "-150", want: "200"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, Bucket(decimal.RequireFromString(tt.amount)).String())
		})
	}
}

func TestRepresentativeDescription(t *testing.T) {
	txns := series("rent", "rent", "-2500", "2024-01-01", 30, 30)
	txns[0].Description = "RENT PAYMNT"
	txns[1].Description = " Rent Payment "

	assert.Equal(t, "Rent Payment", representativeDescription(txns))
}

func TestSuggestion_ProposedTemplate(t *testing.T) {
	// Arrange
	got := Detect(series("rent", "rent", "-2500", "2024-01-01", 30, 30, 30, 30, 30))
	require.Len(t, got, 1)

	// Act
	tmpl := got[0].ProposedTemplate("owner-1")

	// Assert
	require.NoError(t, tmpl.ValidateForCreate())
	assert.Equal(t, recurrence.Monthly, tmpl.Frequency)
	assert.Equal(t, calendar.MustParse("2024-06-30"), tmpl.StartDate)
	require.NotNil(t, tmpl.DayOfMonth)
	assert.Equal(t, 30, *tmpl.DayOfMonth)
	assert.Equal(t, "owner-1", tmpl.OwnerID)
	assert.Equal(t, "prop-1", tmpl.PropertyID)
	assert.Equal(t, recurrence.Expense, tmpl.TransactionType)
	assert.True(t, tmpl.Amount.Equal(decimal.NewFromInt(2500)))
}

func TestMarkTracked(t *testing.T) {
	// Arrange
	got := Detect(series("rent", "rent", "-2500", "2024-01-01", 30, 30))
	require.Len(t, got, 1)
	tmpl := recurrence.NewTemplate(recurrence.Monthly, calendar.MustParse("2024-01-01"), decimal.RequireFromString("2510"))
	tmpl.Category = "rent"
	tmpl.PropertyID = "prop-1"

	// Act
	marked := MarkTracked(got, []recurrence.Template{tmpl})

	// Assert
	assert.True(t, marked[0].AlreadyTracked)

	tmpl.Active = false
	assert.False(t, MarkTracked(got, []recurrence.Template{tmpl})[0].AlreadyTracked)
}
