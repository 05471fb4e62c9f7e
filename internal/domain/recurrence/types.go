// Package recurrence defines the data model shared by the expectation and
// reconciliation engine: recurrence templates, the occurrences generated
// from them and the actual transactions they are reconciled against.
//
// Frequency, Status and TransactionType are closed enums. Their zero value
// is invalid, so an unset field is caught by validation instead of being
// silently treated as a default.
package recurrence

import (
	"fmt"
	"strings"
)

// Frequency is how often a recurring event happens.
type Frequency int

const (
	Weekly Frequency = iota + 1
	Fortnightly
	Monthly
	Quarterly
	Annually
)

var frequencyNames = map[Frequency]string{
	Weekly:      "weekly",
	Fortnightly: "fortnightly",
	Monthly:     "monthly",
	Quarterly:   "quarterly",
	Annually:    "annually",
}

// Frequencies lists every valid frequency in ascending period length.
func Frequencies() []Frequency {
	return []Frequency{Weekly, Fortnightly, Monthly, Quarterly, Annually}
}

// ParseFrequency converts a frequency name. Unknown names are rejected, never
// coerced to a default.
func ParseFrequency(s string) (Frequency, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range frequencyNames {
		if n == name {
			return f, nil
		}
	}
	return 0, &ValidationError{Field: "frequency", Value: s, Reason: "unknown frequency", Err: ErrUnknownFrequency}
}

// String returns the lowercase name of the frequency.
func (f Frequency) String() string {
	if n, ok := frequencyNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// Valid reports whether f is one of the defined frequencies.
func (f Frequency) Valid() bool {
	_, ok := frequencyNames[f]
	return ok
}

// DayBased reports whether the frequency steps by a fixed number of days
// and anchors on a weekday.
func (f Frequency) DayBased() bool {
	return f == Weekly || f == Fortnightly
}

// StepDays is the fixed step for day-based frequencies, 0 otherwise.
func (f Frequency) StepDays() int {
	switch f {
	case Weekly:
		return 7
	case Fortnightly:
		return 14
	}
	return 0
}

// StepMonths is the month step for month-based frequencies, 0 otherwise.
func (f Frequency) StepMonths() int {
	switch f {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Annually:
		return 12
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (f Frequency) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", f)
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Status is the lifecycle state of an expected occurrence.
type Status int

const (
	StatusPending Status = iota + 1
	StatusMatched
	StatusMissed
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusPending: "pending",
	StatusMatched: "matched",
	StatusMissed:  "missed",
	StatusSkipped: "skipped",
}

// ParseStatus converts a status name.
func ParseStatus(s string) (Status, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for st, n := range statusNames {
		if n == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusMatched || s == StatusMissed || s == StatusSkipped
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TransactionType says whether a template describes money in or money out.
type TransactionType int

const (
	Income TransactionType = iota + 1
	Expense
)

// ParseTransactionType converts "income" or "expense".
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	}
	return 0, &ValidationError{Field: "transactionType", Value: s, Reason: "must be income or expense"}
}

func (t TransactionType) String() string {
	switch t {
	case Income:
		return "income"
	case Expense:
		return "expense"
	}
	return fmt.Sprintf("TransactionType(%d)", int(t))
}

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// MarshalText implements encoding.TextMarshaler.
func (t TransactionType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TransactionType) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
