// Package pattern infers unlabeled recurring series from transaction
// history.
//
// Transactions are grouped by (category, property, $100 amount bucket).
// Groups with at least three members are classified by the mean gap between
// consecutive dates, and scored by how regular those gaps are. The output is
// always a proposal: nothing here creates a template.
package pattern

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/schedule"
)

const (
	// MinSupport is the smallest group considered for frequency inference.
	MinSupport = 3

	// MinConfidence is the floor for emitted suggestions.
	MinConfidence = 0.70
)

// BucketWidth is the width of an amount band. It is flat regardless of
// magnitude.
var BucketWidth = decimal.NewFromInt(100)

// Band is the accepted range of mean interval days for a frequency.
type Band struct {
	Frequency recurrence.Frequency
	MinDays   float64
	MaxDays   float64
}

// MaxAcceptableStdDev is half the band width.
func (b Band) MaxAcceptableStdDev() float64 {
	return (b.MaxDays - b.MinDays) / 2
}

// Bands are checked in order; the first containing the mean wins.
var Bands = []Band{
	{Frequency: recurrence.Weekly, MinDays: 5, MaxDays: 9},
	{Frequency: recurrence.Fortnightly, MinDays: 12, MaxDays: 16},
	{Frequency: recurrence.Monthly, MinDays: 26, MaxDays: 34},
	{Frequency: recurrence.Quarterly, MinDays: 85, MaxDays: 97},
	{Frequency: recurrence.Annually, MinDays: 358, MaxDays: 372},
}

// Suggestion is a candidate recurring template inferred from history.
type Suggestion struct {
	Key             string
	Description     string
	Category        string
	PropertyID      string
	TransactionType recurrence.TransactionType
	AverageAmount   decimal.Decimal
	AmountBucket    decimal.Decimal
	Frequency       recurrence.Frequency
	Confidence      float64
	TransactionIDs  []string

	OccurrenceCount  int
	MeanIntervalDays float64
	StdDevDays       float64
	LastSeen         civil.Date
	NextExpected     civil.Date
	AlreadyTracked   bool
}

// Bucket rounds |amount| to the nearest BucketWidth.
func Bucket(amount decimal.Decimal) decimal.Decimal {
	return amount.Abs().Div(BucketWidth).Round(0).Mul(BucketWidth)
}

// GroupKey is the clustering key of a transaction.
func GroupKey(category, propertyID string, amount decimal.Decimal) string {
	return fmt.Sprintf("%s|%s|%s", category, propertyID, Bucket(amount).String())
}

// Detect returns suggestions with confidence >= MinConfidence, highest
// confidence first.
func Detect(txns []recurrence.Transaction) []Suggestion {
	groups := make(map[string][]recurrence.Transaction)
	for _, tx := range txns {
		key := GroupKey(tx.Category, tx.PropertyID, tx.Amount)
		groups[key] = append(groups[key], tx)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var suggestions []Suggestion
	for _, key := range keys {
		s, ok := analyze(key, groups[key])
		if !ok || s.Confidence < MinConfidence {
			continue
		}
		suggestions = append(suggestions, s)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions
}

func analyze(key string, group []recurrence.Transaction) (Suggestion, bool) {
	if len(group) < MinSupport {
		return Suggestion{}, false
	}

	sorted := make([]recurrence.Transaction, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, float64(sorted[i].Date.DaysSince(sorted[i-1].Date)))
	}
	mean, stdDev := stat.PopMeanStdDev(gaps, nil)

	band, ok := classify(mean)
	if !ok {
		return Suggestion{}, false
	}
	confidence := math.Max(0, 1-stdDev/band.MaxAcceptableStdDev())

	ids := make([]string, len(sorted))
	absTotal := decimal.Zero
	signedTotal := decimal.Zero
	for i, tx := range sorted {
		ids[i] = tx.ID
		absTotal = absTotal.Add(tx.Amount.Abs())
		signedTotal = signedTotal.Add(tx.Amount)
	}
	count := decimal.NewFromInt(int64(len(sorted)))

	txType := recurrence.Expense
	if signedTotal.IsPositive() {
		txType = recurrence.Income
	}

	first := sorted[0]
	last := sorted[len(sorted)-1]
	s := Suggestion{
		Key:              key,
		Description:      representativeDescription(sorted),
		Category:         first.Category,
		PropertyID:       first.PropertyID,
		TransactionType:  txType,
		AverageAmount:    absTotal.Div(count).Round(2),
		AmountBucket:     Bucket(first.Amount),
		Frequency:        band.Frequency,
		Confidence:       confidence,
		TransactionIDs:   ids,
		OccurrenceCount:  len(sorted),
		MeanIntervalDays: mean,
		StdDevDays:       stdDev,
		LastSeen:         last.Date,
	}
	if next, ok := schedule.Next(s.anchoredAt(last.Date), last.Date); ok {
		s.NextExpected = next
	}
	return s, true
}

func classify(meanDays float64) (Band, bool) {
	for _, b := range Bands {
		if meanDays >= b.MinDays && meanDays <= b.MaxDays {
			return b, true
		}
	}
	return Band{}, false
}

// representativeDescription picks the description with the smallest summed
// edit distance to the others; ties go to the earliest transaction.
func representativeDescription(group []recurrence.Transaction) string {
	best := 0
	bestScore := -1
	for i := range group {
		score := 0
		for j := range group {
			if i == j {
				continue
			}
			score += levenshtein.ComputeDistance(
				strings.ToUpper(strings.TrimSpace(group[i].Description)),
				strings.ToUpper(strings.TrimSpace(group[j].Description)),
			)
		}
		if bestScore < 0 || score < bestScore {
			best, bestScore = i, score
		}
	}
	return strings.TrimSpace(group[best].Description)
}

// anchoredAt is a template skeleton whose series passes through d.
func (s Suggestion) anchoredAt(d civil.Date) recurrence.Template {
	t := recurrence.NewTemplate(s.Frequency, d, s.AverageAmount)
	if s.Frequency.DayBased() {
		t.DayOfWeek = recurrence.IntPtr(int(calendar.Weekday(d)))
	} else {
		t.DayOfMonth = recurrence.IntPtr(d.Day)
	}
	return t
}

// ProposedTemplate turns the suggestion into an unsaved template starting at
// the next expected date, for the owner to confirm or discard.
func (s Suggestion) ProposedTemplate(ownerID string) recurrence.Template {
	start := s.NextExpected
	if calendar.IsZero(start) {
		start = s.LastSeen
	}
	t := s.anchoredAt(s.LastSeen)
	t.StartDate = start
	t.OwnerID = ownerID
	t.PropertyID = s.PropertyID
	t.Description = s.Description
	t.Category = s.Category
	t.TransactionType = s.TransactionType
	return t
}

// MarkTracked flags suggestions already covered by an active template with
// the same category, property and amount bucket.
func MarkTracked(suggestions []Suggestion, templates []recurrence.Template) []Suggestion {
	tracked := make(map[string]bool, len(templates))
	for _, t := range templates {
		if t.Active {
			tracked[GroupKey(t.Category, t.PropertyID, t.Amount)] = true
		}
	}
	for i := range suggestions {
		suggestions[i].AlreadyTracked = tracked[suggestions[i].Key]
	}
	return suggestions
}
