package storage

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrConflict is returned when a compare-and-swap update loses, or a
	// transaction is already claimed by another occurrence.
	ErrConflict = errors.New("storage: conflict")
)

// Sweep run statuses
const (
	SweepRunning   = "running"
	SweepCompleted = "completed"
	SweepFailed    = "failed"
)

// OccurrenceFilters defines filters for listing occurrences.
// Zero values mean "no filter".
type OccurrenceFilters struct {
	OwnerID    string
	TemplateID string
	PropertyID string
	Status     recurrence.Status
	From       civil.Date // inclusive
	To         civil.Date // inclusive
	Limit      int
}

// TransactionFilters defines filters for listing transactions.
// Zero values mean "no filter".
type TransactionFilters struct {
	OwnerID    string
	PropertyID string
	From       civil.Date // inclusive
	To         civil.Date // inclusive
}

// SweepStats are the per-phase counters of one sweep
type SweepStats struct {
	Generated   int `json:"generated"`
	Matched     int `json:"matched"`
	NeedsReview int `json:"needs_review"`
	Missed      int `json:"missed"`
}

// SweepRun represents a sweep run record
type SweepRun struct {
	ID           int64      `json:"id"`
	OwnerID      string     `json:"owner_id"`
	AsOf         civil.Date `json:"as_of"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Stats        SweepStats `json:"stats"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

func inRange(d, from, to civil.Date) bool {
	if !calendar.IsZero(from) && d.Before(from) {
		return false
	}
	if !calendar.IsZero(to) && d.After(to) {
		return false
	}
	return true
}
