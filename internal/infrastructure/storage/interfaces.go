package storage

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
type Repository interface {
	TemplateRepository
	OccurrenceRepository
	TransactionRepository
	SweepRunRepository
	Close() error
}

// TemplateRepository handles recurring template records
type TemplateRepository interface {
	// SaveTemplate inserts or replaces a template by ID
	SaveTemplate(ctx context.Context, t *recurrence.Template) error

	// GetTemplate returns ErrNotFound when no template has the ID
	GetTemplate(ctx context.Context, id string) (*recurrence.Template, error)

	// ListTemplates returns an owner's templates ordered by ID
	ListTemplates(ctx context.Context, ownerID string, activeOnly bool) ([]recurrence.Template, error)

	// ListOwners returns the distinct owners with at least one active template
	ListOwners(ctx context.Context) ([]string, error)
}

// OccurrenceRepository handles expected occurrence records
type OccurrenceRepository interface {
	// InsertOccurrences skips rows whose (template, expected date) already
	// exists and returns the number inserted
	InsertOccurrences(ctx context.Context, occs []recurrence.Occurrence) (int, error)

	// GetOccurrence returns ErrNotFound when no occurrence has the ID
	GetOccurrence(ctx context.Context, id string) (*recurrence.Occurrence, error)

	// ListOccurrences returns occurrences matching the filters, ordered by
	// expected date then ID
	ListOccurrences(ctx context.Context, filters OccurrenceFilters) ([]recurrence.Occurrence, error)

	// ExpectedDates returns every expected date stored for a template
	ExpectedDates(ctx context.Context, templateID string) ([]civil.Date, error)

	// UpdateOccurrenceStatus moves a pending occurrence to status. It returns
	// ErrConflict when the row is no longer pending or the transaction is
	// already claimed, and ErrNotFound when the row does not exist.
	UpdateOccurrenceStatus(ctx context.Context, id string, status recurrence.Status, matchedTransactionID string) error

	// ClaimedTransactionIDs returns the transaction IDs already matched to
	// any of the owner's occurrences
	ClaimedTransactionIDs(ctx context.Context, ownerID string) (map[string]bool, error)
}

// TransactionRepository handles imported bank transactions
type TransactionRepository interface {
	// SaveTransactions ignores IDs already present and returns the number inserted
	SaveTransactions(ctx context.Context, txns []recurrence.Transaction) (int, error)

	// ListTransactions returns transactions matching the filters, ordered by
	// date then ID
	ListTransactions(ctx context.Context, filters TransactionFilters) ([]recurrence.Transaction, error)
}

// SweepRunRepository handles sweep run tracking
type SweepRunRepository interface {
	// StartSweepRun records the start of a sweep and returns the run ID
	StartSweepRun(ctx context.Context, ownerID string, asOf civil.Date) (int64, error)

	// CompleteSweepRun records the outcome of a sweep; a non-nil runErr marks
	// the run failed
	CompleteSweepRun(ctx context.Context, runID int64, stats SweepStats, runErr error) error

	// ListSweepRuns returns the most recent runs first
	ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error)
}
