// Package matcher scores actual transactions against one expected
// occurrence.
//
// Matching rules:
//   - Candidate must belong to the occurrence's property
//   - Amount deviation (percent of the expected amount) within tolerance
//   - Date deviation (days) within tolerance
//   - Transaction must not be already used
//
// Accepted candidates get a confidence tier and are ranked by tier, then by
// date deviation. The caller decides whether to auto-confirm.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.ConfigFor(template))
//	result := m.FindCandidates(occurrence, pool, claimedIDs)
//	if best, ok := result.AutoConfirmable(); ok {
//		// confirm best.Transaction.ID
//	}
package matcher

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

var hundred = decimal.NewFromInt(100)

// Matcher matches expected occurrences with actual transactions
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// FindCandidates scores every eligible transaction in pool against occ and
// returns them ranked. usedTransactionIDs may be nil.
func (m *Matcher) FindCandidates(
	occ recurrence.Occurrence,
	pool []recurrence.Transaction,
	usedTransactionIDs map[string]bool,
) *Result {
	result := &Result{OccurrenceID: occ.ID}

	expected := occ.ExpectedAmount
	if !expected.IsPositive() {
		result.Warning = "expected amount " + expected.String() + " is not positive; percentage deviation is undefined"
		return result
	}

	for _, tx := range pool {
		if usedTransactionIDs[tx.ID] {
			continue
		}
		if tx.PropertyID != occ.PropertyID {
			continue
		}

		dateDiff := calendar.AbsDaysBetween(occ.ExpectedDate, tx.Date)
		if dateDiff > m.config.DateToleranceDays {
			continue
		}

		// |abs(amount) - expected|, compared as diff*100 <= limit*expected so
		// tier boundaries are exact
		amountDiff := tx.Amount.Abs().Sub(expected).Abs()
		scaled := amountDiff.Mul(hundred)
		if !withinPercent(scaled, expected, m.config.AmountTolerancePercent) {
			continue
		}

		result.Candidates = append(result.Candidates, Candidate{
			Transaction:            tx,
			AmountDeviationPercent: scaled.Div(expected),
			DateDeviationDays:      dateDiff,
			Confidence:             tier(scaled, expected, dateDiff),
		})
	}

	sort.SliceStable(result.Candidates, func(i, j int) bool {
		a, b := result.Candidates[i], result.Candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence.Rank() < b.Confidence.Rank()
		}
		return a.DateDeviationDays < b.DateDeviationDays
	})

	return result
}

func tier(scaledDiff, expected decimal.Decimal, dateDiff int) Confidence {
	switch {
	case withinPercent(scaledDiff, expected, highAmountPercent) && dateDiff <= highDateDays:
		return High
	case withinPercent(scaledDiff, expected, mediumAmountPercent) && dateDiff <= mediumDateDays:
		return Medium
	default:
		return Low
	}
}

// withinPercent reports diff*100 <= limit*expected.
func withinPercent(scaledDiff, expected, limitPercent decimal.Decimal) bool {
	return scaledDiff.LessThanOrEqual(limitPercent.Mul(expected))
}
