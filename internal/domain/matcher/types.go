package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// Confidence is the strength of a proposed match. Lower rank is stronger.
type Confidence int

const (
	High Confidence = iota + 1
	Medium
	Low
)

// Rank orders tiers for sorting: high < medium < low.
func (c Confidence) Rank() int {
	return int(c)
}

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	}
	return fmt.Sprintf("Confidence(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Tier limits. These are fixed: reconciliation elsewhere depends on the
// exact boundaries (both inclusive).
var (
	highAmountPercent   = decimal.NewFromInt(1)
	mediumAmountPercent = decimal.NewFromInt(5)
)

const (
	highDateDays   = 2
	mediumDateDays = 5
)

// Config holds the acceptance gate for one occurrence.
type Config struct {
	AmountTolerancePercent decimal.Decimal // Default: 5.0
	DateToleranceDays      int             // Default: 3
}

// DefaultConfig returns the template defaults.
func DefaultConfig() Config {
	return Config{
		AmountTolerancePercent: recurrence.DefaultAmountTolerancePercent,
		DateToleranceDays:      recurrence.DefaultDateToleranceDays,
	}
}

// ConfigFor takes the tolerances from a template.
func ConfigFor(t recurrence.Template) Config {
	return Config{
		AmountTolerancePercent: t.AmountTolerancePercent,
		DateToleranceDays:      t.DateToleranceDays,
	}
}

// Candidate is one transaction that passed the acceptance gate.
type Candidate struct {
	Transaction            recurrence.Transaction
	AmountDeviationPercent decimal.Decimal
	DateDeviationDays      int
	Confidence             Confidence
}

// Result is the ranked candidate list for one occurrence.
type Result struct {
	OccurrenceID string
	Candidates   []Candidate

	// Warning is set when the occurrence could not be scored at all, e.g. a
	// non-positive expected amount. Candidates is empty in that case.
	Warning string
}

// Best returns the top-ranked candidate.
func (r *Result) Best() (Candidate, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// AutoConfirmable returns the top candidate only when it is high confidence.
// Anything weaker should be presented for manual confirmation.
func (r *Result) AutoConfirmable() (Candidate, bool) {
	best, ok := r.Best()
	if !ok || best.Confidence != High {
		return Candidate{}, false
	}
	return best, true
}
