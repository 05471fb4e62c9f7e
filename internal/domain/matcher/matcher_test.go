package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// Helper to create a pending occurrence for prop-1
func makeOccurrence(amount string, date string) recurrence.Occurrence {
	return recurrence.Occurrence{
		ID:             "occ-1",
		TemplateID:     "tmpl-1",
		PropertyID:     "prop-1",
		ExpectedDate:   calendar.MustParse(date),
		ExpectedAmount: decimal.RequireFromString(amount),
		Status:         recurrence.StatusPending,
	}
}

// Helper to create test transaction
func makeTransaction(id string, amount string, date string) recurrence.Transaction {
	return recurrence.Transaction{
		ID:         id,
		PropertyID: "prop-1",
		Date:       calendar.MustParse(date),
		Amount:     decimal.RequireFromString(amount),
		Category:   "rent",
	}
}

func TestMatcher_ExactMatch(t *testing.T) {
	// Arrange
	matcher := NewMatcher(DefaultConfig())
	occ := makeOccurrence("2500", "2024-02-01")
	pool := []recurrence.Transaction{
		makeTransaction("tx1", "-2500", "2024-02-01"),
	}

	// Act
	result := matcher.FindCandidates(occ, pool, nil)

	// Assert
	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.Equal(t, "tx1", c.Transaction.ID)
	assert.True(t, c.AmountDeviationPercent.IsZero())
	assert.Equal(t, 0, c.DateDeviationDays)
	assert.Equal(t, High, c.Confidence)
	assert.Empty(t, result.Warning)
}

func TestMatcher_SignIsIgnored(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	occ := makeOccurrence("2500", "2024-02-01")
	pool := []recurrence.Transaction{
		makeTransaction("income", "2500", "2024-02-01"),
		makeTransaction("expense", "-2500", "2024-02-01"),
	}

	result := matcher.FindCandidates(occ, pool, nil)

	assert.Len(t, result.Candidates, 2)
}

func TestMatcher_ConfidenceBoundaries(t *testing.T) {
	config := Config{AmountTolerancePercent: decimal.NewFromInt(10), DateToleranceDays: 10}

	tests := []struct {
		name      string
		amount    string
		date      string
		want      Confidence
		accepted  bool
		deviation string
	}{
		{"1.00% and 2 days is high", "-101.00", "2024-01-03", High, true, "1"},
		{"1.01% is not high", "-101.01", "2024-01-01", Medium, true, "1.01"},
		{"under by 1% is high", "-99", "2024-01-01", High, true, "1"},
		{"3 days is not high", "-100", "2024-01-04", Medium, true, "0"},
		{"5.00% and 5 days is medium", "-105", "2024-01-06", Medium, true, "5"},
		{"5.01% is low", "-105.01", "2024-01-01", Low, true, "5.01"},
		{"6 days is low", "-100", "2024-01-07", Low, true, "0"},
		{"outside amount gate", "-110.01", "2024-01-01", 0, false, ""},
		{"outside date gate", "-100", "2024-01-12", 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			matcher := NewMatcher(config)
			occ := makeOccurrence("100", "2024-01-01")

			// Act
			result := matcher.FindCandidates(occ, []recurrence.Transaction{
				makeTransaction("tx1", tt.amount, tt.date),
			}, nil)

			// Assert
			if !tt.accepted {
				assert.Empty(t, result.Candidates)
				return
			}
			require.Len(t, result.Candidates, 1)
			assert.Equal(t, tt.want, result.Candidates[0].Confidence)
			assert.True(t, decimal.RequireFromString(tt.deviation).Equal(result.Candidates[0].AmountDeviationPercent),
				"deviation %s", result.Candidates[0].AmountDeviationPercent)
		})
	}
}

func TestMatcher_AcceptanceGateUsesTemplateTolerance(t *testing.T) {
	// Arrange
	tmpl := recurrence.NewTemplate(recurrence.Monthly, calendar.MustParse("2024-01-01"), decimal.NewFromInt(200))
	matcher := NewMatcher(ConfigFor(tmpl))
	occ := makeOccurrence("200", "2024-01-10")
	pool := []recurrence.Transaction{
		makeTransaction("at-limit", "-210", "2024-01-13"),   // 5%, 3 days
		makeTransaction("too-much", "-210.02", "2024-01-10"), // 5.01%
		makeTransaction("too-late", "-200", "2024-01-14"),    // 4 days
	}

	// Act
	result := matcher.FindCandidates(occ, pool, nil)

	// Assert
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "at-limit", result.Candidates[0].Transaction.ID)
	assert.Equal(t, Medium, result.Candidates[0].Confidence)
}

func TestMatcher_NeverMatchesAcrossProperties(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	occ := makeOccurrence("2500", "2024-02-01")
	other := makeTransaction("tx1", "-2500", "2024-02-01")
	other.PropertyID = "prop-2"

	result := matcher.FindCandidates(occ, []recurrence.Transaction{other}, nil)

	assert.Empty(t, result.Candidates)
}

func TestMatcher_SkipsUsedTransactions(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	occ := makeOccurrence("2500", "2024-02-01")
	pool := []recurrence.Transaction{
		makeTransaction("tx1", "-2500", "2024-02-01"),
		makeTransaction("tx2", "-2500", "2024-02-02"),
	}

	result := matcher.FindCandidates(occ, pool, map[string]bool{"tx1": true})

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "tx2", result.Candidates[0].Transaction.ID)
}

func TestMatcher_RanksByTierThenDate(t *testing.T) {
	// Arrange
	matcher := NewMatcher(Config{AmountTolerancePercent: decimal.NewFromInt(10), DateToleranceDays: 7})
	occ := makeOccurrence("1000", "2024-03-10")
	pool := []recurrence.Transaction{
		makeTransaction("low", "-1080", "2024-03-10"),       // 8% -> low
		makeTransaction("medium-far", "-1030", "2024-03-14"), // 3%, 4 days -> medium
		makeTransaction("high-far", "-1000", "2024-03-12"),   // 0%, 2 days -> high
		makeTransaction("medium-near", "-1020", "2024-03-09"), // 2%, 1 day -> medium
		makeTransaction("high-near", "-1005", "2024-03-10"),  // 0.5%, 0 days -> high
	}

	// Act
	result := matcher.FindCandidates(occ, pool, nil)

	// Assert
	var ids []string
	for _, c := range result.Candidates {
		ids = append(ids, c.Transaction.ID)
	}
	assert.Equal(t, []string{"high-near", "high-far", "medium-near", "medium-far", "low"}, ids)
}

func TestMatcher_TiesKeepPoolOrder(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	occ := makeOccurrence("500", "2024-03-10")
	pool := []recurrence.Transaction{
		makeTransaction("second", "-502", "2024-03-11"),
		makeTransaction("first", "-500", "2024-03-09"),
	}

	result := matcher.FindCandidates(occ, pool, nil)

	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "second", result.Candidates[0].Transaction.ID)
	assert.Equal(t, "first", result.Candidates[1].Transaction.ID)
}

func TestMatcher_NonPositiveExpectedAmount(t *testing.T) {
	for _, amount := range []string{"0", "-10"} {
		// Arrange
		matcher := NewMatcher(DefaultConfig())
		occ := makeOccurrence(amount, "2024-02-01")
		pool := []recurrence.Transaction{makeTransaction("tx1", "0", "2024-02-01")}

		// Act
		result := matcher.FindCandidates(occ, pool, nil)

		// Assert - excluded with a warning rather than a panic or error
		assert.Empty(t, result.Candidates)
		assert.Contains(t, result.Warning, "not positive")
		_, ok := result.Best()
		assert.False(t, ok)
	}
}

func TestMatcher_EmptyPool(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())

	result := matcher.FindCandidates(makeOccurrence("100", "2024-02-01"), nil, nil)

	assert.Empty(t, result.Candidates)
	assert.Empty(t, result.Warning)
	assert.Equal(t, "occ-1", result.OccurrenceID)
}

func TestResult_AutoConfirmable(t *testing.T) {
	high := &Result{Candidates: []Candidate{{Confidence: High}, {Confidence: Low}}}
	medium := &Result{Candidates: []Candidate{{Confidence: Medium}}}

	_, ok := high.AutoConfirmable()
	assert.True(t, ok)

	_, ok = medium.AutoConfirmable()
	assert.False(t, ok)

	var nilResult *Result
	_, ok = nilResult.AutoConfirmable()
	assert.False(t, ok)
}

func TestConfidence_String(t *testing.T) {
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "medium", Medium.String())
	assert.Equal(t, "low", Low.String())
	assert.Less(t, High.Rank(), Medium.Rank())
	assert.Less(t, Medium.Rank(), Low.Rank())
}
