package schedule

import (
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// DefaultHorizonDays is the look-ahead of the routine sweep.
const DefaultHorizonDays = 14

// DateSet is the set of expected dates already recorded for a template.
type DateSet map[civil.Date]struct{}

// NewDateSet builds a DateSet from dates.
func NewDateSet(dates ...civil.Date) DateSet {
	set := make(DateSet, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// Has reports whether d is in the set.
func (s DateSet) Has(d civil.Date) bool {
	_, ok := s[d]
	return ok
}

// Add inserts d.
func (s DateSet) Add(d civil.Date) {
	s[d] = struct{}{}
}

// ExpectationGenerator drafts pending occurrences for dates that are not on
// record yet. It never persists anything.
type ExpectationGenerator struct {
	newID func() string
}

// NewExpectationGenerator returns a generator that assigns UUID ids.
func NewExpectationGenerator() *ExpectationGenerator {
	return &ExpectationGenerator{newID: uuid.NewString}
}

// NewExpectationGeneratorWithIDs lets tests supply deterministic ids.
func NewExpectationGeneratorWithIDs(newID func() string) *ExpectationGenerator {
	return &ExpectationGenerator{newID: newID}
}

// Generate returns draft occurrences for the dates of t in
// [from, from+horizonDays] that are missing from existing. Calling it again
// with the returned dates added to existing yields nothing. A horizon of
// zero or less uses DefaultHorizonDays. Inactive templates produce nothing.
func (g *ExpectationGenerator) Generate(
	t recurrence.Template,
	existing DateSet,
	from civil.Date,
	horizonDays int,
) ([]recurrence.Occurrence, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	dates, err := Dates(t, from, horizonDays)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, nil
	}

	var drafts []recurrence.Occurrence
	for _, d := range dates {
		if existing.Has(d) {
			continue
		}
		drafts = append(drafts, recurrence.Occurrence{
			ID:             g.newID(),
			TemplateID:     t.ID,
			PropertyID:     t.PropertyID,
			ExpectedDate:   d,
			ExpectedAmount: t.Amount,
			Status:         recurrence.StatusPending,
		})
	}
	return drafts, nil
}
