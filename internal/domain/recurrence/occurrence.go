package recurrence

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Occurrence is one predicted event derived from a template for a specific
// date. (TemplateID, ExpectedDate) identifies it uniquely.
type Occurrence struct {
	ID                   string
	TemplateID           string
	PropertyID           string
	ExpectedDate         civil.Date
	ExpectedAmount       decimal.Decimal
	Status               Status
	MatchedTransactionID string
}

// Key is the natural key of an occurrence.
type Key struct {
	TemplateID   string
	ExpectedDate civil.Date
}

// Key returns the (template, date) key.
func (o Occurrence) Key() Key {
	return Key{TemplateID: o.TemplateID, ExpectedDate: o.ExpectedDate}
}

// Transition moves a pending occurrence to a terminal status.
//
// pending -> matched needs the id of the consumed transaction; pending ->
// missed and pending -> skipped must not carry one. Nothing leaves a
// terminal status.
func (o *Occurrence) Transition(to Status, matchedTransactionID string) error {
	if o.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminalStatus, o.ID, o.Status)
	}
	if o.Status != StatusPending {
		return fmt.Errorf("%w: %s has status %s", ErrInvalidTransition, o.ID, o.Status)
	}

	switch to {
	case StatusMatched:
		if matchedTransactionID == "" {
			return fmt.Errorf("%w: matched requires a transaction id", ErrInvalidTransition)
		}
	case StatusMissed, StatusSkipped:
		if matchedTransactionID != "" {
			return fmt.Errorf("%w: %s cannot carry a transaction id", ErrInvalidTransition, to)
		}
	default:
		return fmt.Errorf("%w: pending -> %s", ErrInvalidTransition, to)
	}

	o.Status = to
	o.MatchedTransactionID = matchedTransactionID
	return nil
}

// Transaction is an imported bank transaction. It is read-only to the
// engine. Amount is signed: expenses are negative.
type Transaction struct {
	ID          string
	OwnerID     string
	PropertyID  string
	Date        civil.Date
	Amount      decimal.Decimal
	Category    string
	Description string
}
