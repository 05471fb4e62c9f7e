package reconcile

import (
	"errors"

	"cloud.google.com/go/civil"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/matcher"
	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/config"
	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/storage"
)

// ErrTransactionNotFound is returned when a manual match names a transaction
// that does not exist on the occurrence's property
var ErrTransactionNotFound = errors.New("transaction not found on occurrence property")

// ErrTransactionClaimed is returned when a manual match names a transaction
// already matched to another occurrence
var ErrTransactionClaimed = errors.New("transaction already matched")

// Options holds sweep configuration
type Options struct {
	HorizonDays         int
	CreationHorizonDays int
	AutoConfirm         bool
	MaxParallelOwners   int
}

// DefaultOptions mirrors the configuration defaults
func DefaultOptions() Options {
	return Options{
		HorizonDays:         config.DefaultHorizonDays,
		CreationHorizonDays: config.DefaultHorizonDays,
		AutoConfirm:         true,
		MaxParallelOwners:   config.DefaultMaxParallelOwners,
	}
}

// OptionsFromConfig converts the recurrence config section
func OptionsFromConfig(cfg config.RecurrenceConfig) Options {
	return Options{
		HorizonDays:         cfg.HorizonDays,
		CreationHorizonDays: cfg.CreationHorizonDays,
		AutoConfirm:         cfg.AutoConfirm,
		MaxParallelOwners:   cfg.MaxParallelOwners,
	}
}

// Confirmation is an occurrence matched during a sweep
type Confirmation struct {
	OccurrenceID  string
	TransactionID string
	Confidence    matcher.Confidence
}

// ReconcileResult holds the outcome of the matching phase
type ReconcileResult struct {
	Confirmed   []Confirmation
	NeedsReview []*matcher.Result
	Warnings    []string
}

// SweepResult holds the outcome of one owner's sweep
type SweepResult struct {
	OwnerID   string
	AsOf      civil.Date
	RunID     int64
	Generated int
	Reconcile ReconcileResult
	Missed    []string
}

// Stats flattens the result into storage counters
func (r *SweepResult) Stats() storage.SweepStats {
	return storage.SweepStats{
		Generated:   r.Generated,
		Matched:     len(r.Reconcile.Confirmed),
		NeedsReview: len(r.Reconcile.NeedsReview),
		Missed:      len(r.Missed),
	}
}
