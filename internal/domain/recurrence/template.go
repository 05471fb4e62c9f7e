package recurrence

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
)

// Defaults applied by NewTemplate.
const (
	DefaultDateToleranceDays = 3
	DefaultAlertDelayDays    = 3
	DefaultDayOfMonth        = 1
	DefaultDayOfWeek         = 0
)

// DefaultAmountTolerancePercent is 5.0%.
var DefaultAmountTolerancePercent = decimal.NewFromInt(5)

// Template is a user-defined recurring financial event such as rent, a
// utility bill or a loan repayment.
type Template struct {
	ID              string
	OwnerID         string
	PropertyID      string
	Description     string
	Amount          decimal.Decimal
	Category        string
	TransactionType TransactionType
	Frequency       Frequency

	// DayOfMonth anchors monthly, quarterly and annual series (1-31).
	// DayOfWeek anchors weekly and fortnightly series (0 = Sunday).
	// Nil means the default anchor.
	DayOfMonth *int
	DayOfWeek  *int

	StartDate civil.Date
	EndDate   *civil.Date

	AmountTolerancePercent decimal.Decimal
	DateToleranceDays      int
	AlertDelayDays         int
	Active                 bool
}

// NewTemplate returns an active template with the default tolerances.
func NewTemplate(freq Frequency, startDate civil.Date, amount decimal.Decimal) Template {
	return Template{
		Amount:                 amount,
		TransactionType:        Expense,
		Frequency:              freq,
		StartDate:              startDate,
		AmountTolerancePercent: DefaultAmountTolerancePercent,
		DateToleranceDays:      DefaultDateToleranceDays,
		AlertDelayDays:         DefaultAlertDelayDays,
		Active:                 true,
	}
}

// AnchorDayOfMonth returns the configured day of month or the default.
func (t Template) AnchorDayOfMonth() int {
	if t.DayOfMonth == nil {
		return DefaultDayOfMonth
	}
	return *t.DayOfMonth
}

// AnchorDayOfWeek returns the configured weekday or the default (Sunday).
func (t Template) AnchorDayOfWeek() int {
	if t.DayOfWeek == nil {
		return DefaultDayOfWeek
	}
	return *t.DayOfWeek
}

// Validate checks the fields date generation depends on. Validation runs
// before any date is produced: an out-of-range anchor or unknown frequency
// is rejected rather than coerced.
func (t Template) Validate() error {
	if !t.Frequency.Valid() {
		return &ValidationError{Field: "frequency", Value: t.Frequency, Reason: "unknown frequency", Err: ErrUnknownFrequency}
	}
	if t.DayOfMonth != nil && (*t.DayOfMonth < 1 || *t.DayOfMonth > 31) {
		return &ValidationError{Field: "dayOfMonth", Value: *t.DayOfMonth, Reason: "must be between 1 and 31"}
	}
	if t.DayOfWeek != nil && (*t.DayOfWeek < 0 || *t.DayOfWeek > 6) {
		return &ValidationError{Field: "dayOfWeek", Value: *t.DayOfWeek, Reason: "must be between 0 and 6"}
	}
	if calendar.IsZero(t.StartDate) || !t.StartDate.IsValid() {
		return &ValidationError{Field: "startDate", Value: t.StartDate, Reason: "must be a valid date"}
	}
	if t.EndDate != nil {
		if !t.EndDate.IsValid() {
			return &ValidationError{Field: "endDate", Value: *t.EndDate, Reason: "must be a valid date"}
		}
		if t.EndDate.Before(t.StartDate) {
			return &ValidationError{Field: "endDate", Value: *t.EndDate, Reason: "is before startDate"}
		}
	}
	if t.AmountTolerancePercent.IsNegative() {
		return &ValidationError{Field: "amountTolerancePercent", Value: t.AmountTolerancePercent, Reason: "must not be negative"}
	}
	if t.DateToleranceDays < 0 {
		return &ValidationError{Field: "dateToleranceDays", Value: t.DateToleranceDays, Reason: "must not be negative"}
	}
	if t.AlertDelayDays < 0 {
		return &ValidationError{Field: "alertDelayDays", Value: t.AlertDelayDays, Reason: "must not be negative"}
	}
	return nil
}

// ValidateForCreate is Validate plus the checks that only matter when a
// template is first saved.
func (t Template) ValidateForCreate() error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.OwnerID == "" {
		return &ValidationError{Field: "ownerId", Value: t.OwnerID, Reason: "is required"}
	}
	if t.PropertyID == "" {
		return &ValidationError{Field: "propertyId", Value: t.PropertyID, Reason: "is required"}
	}
	if !t.TransactionType.Valid() {
		return &ValidationError{Field: "transactionType", Value: t.TransactionType, Reason: "must be income or expense"}
	}
	if !t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Value: t.Amount, Reason: "must be positive"}
	}
	return nil
}

// Covers reports whether d lies in [StartDate, EndDate].
func (t Template) Covers(d civil.Date) bool {
	if d.Before(t.StartDate) {
		return false
	}
	return t.EndDate == nil || !d.After(*t.EndDate)
}

// IntPtr is a helper for setting optional anchors.
func IntPtr(v int) *int {
	return &v
}
