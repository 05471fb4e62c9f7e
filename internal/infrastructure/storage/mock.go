package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It mirrors the SQLite semantics: occurrence dedupe on (template, date),
// compare-and-swap status updates, and one occurrence per transaction.
type MockRepository struct {
	mu           sync.Mutex
	templates    map[string]recurrence.Template
	occurrences  map[string]recurrence.Occurrence
	keys         map[recurrence.Key]string
	claimed      map[string]string // transaction ID -> occurrence ID
	transactions map[string]recurrence.Transaction
	sweepRuns    map[int64]*SweepRun
	nextRunID    int64

	// Hooks for test assertions
	StatusUpdates []StatusUpdate

	// Error injection for testing error paths
	SaveTemplateErr      error
	ListTemplatesErr     error
	InsertOccurrencesErr error
	ListOccurrencesErr   error
	UpdateStatusErr      error
	ListTransactionsErr  error
	StartSweepRunErr     error
}

// StatusUpdate records one successful UpdateOccurrenceStatus call
type StatusUpdate struct {
	OccurrenceID         string
	Status               recurrence.Status
	MatchedTransactionID string
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		templates:    make(map[string]recurrence.Template),
		occurrences:  make(map[string]recurrence.Occurrence),
		keys:         make(map[recurrence.Key]string),
		claimed:      make(map[string]string),
		transactions: make(map[string]recurrence.Transaction),
		sweepRuns:    make(map[int64]*SweepRun),
		nextRunID:    1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close is a no-op for the mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveTemplate stores a copy of the template
func (m *MockRepository) SaveTemplate(_ context.Context, t *recurrence.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveTemplateErr != nil {
		return m.SaveTemplateErr
	}
	m.templates[t.ID] = *t
	return nil
}

// GetTemplate returns a template by ID
func (m *MockRepository) GetTemplate(_ context.Context, id string) (*recurrence.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// ListTemplates returns an owner's templates ordered by ID
func (m *MockRepository) ListTemplates(_ context.Context, ownerID string, activeOnly bool) ([]recurrence.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListTemplatesErr != nil {
		return nil, m.ListTemplatesErr
	}

	var result []recurrence.Template
	for _, t := range m.templates {
		if t.OwnerID != ownerID || (activeOnly && !t.Active) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListOwners returns owners with at least one active template
func (m *MockRepository) ListOwners(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var owners []string
	for _, t := range m.templates {
		if t.Active && !seen[t.OwnerID] {
			seen[t.OwnerID] = true
			owners = append(owners, t.OwnerID)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

// InsertOccurrences stores drafts whose key is not yet present
func (m *MockRepository) InsertOccurrences(_ context.Context, occs []recurrence.Occurrence) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertOccurrencesErr != nil {
		return 0, m.InsertOccurrencesErr
	}

	inserted := 0
	for _, o := range occs {
		if _, dup := m.keys[o.Key()]; dup {
			continue
		}
		if _, dup := m.occurrences[o.ID]; dup {
			continue
		}
		m.occurrences[o.ID] = o
		m.keys[o.Key()] = o.ID
		if o.MatchedTransactionID != "" {
			m.claimed[o.MatchedTransactionID] = o.ID
		}
		inserted++
	}
	return inserted, nil
}

// GetOccurrence returns an occurrence by ID
func (m *MockRepository) GetOccurrence(_ context.Context, id string) (*recurrence.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.occurrences[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

// ListOccurrences returns occurrences matching the filters
func (m *MockRepository) ListOccurrences(_ context.Context, filters OccurrenceFilters) ([]recurrence.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListOccurrencesErr != nil {
		return nil, m.ListOccurrencesErr
	}
	return m.filterOccurrences(filters), nil
}

// filterOccurrences must be called with m.mu held
func (m *MockRepository) filterOccurrences(filters OccurrenceFilters) []recurrence.Occurrence {
	var result []recurrence.Occurrence
	for _, o := range m.occurrences {
		if filters.OwnerID != "" && m.templates[o.TemplateID].OwnerID != filters.OwnerID {
			continue
		}
		if filters.TemplateID != "" && o.TemplateID != filters.TemplateID {
			continue
		}
		if filters.PropertyID != "" && o.PropertyID != filters.PropertyID {
			continue
		}
		if filters.Status.Valid() && o.Status != filters.Status {
			continue
		}
		if !inRange(o.ExpectedDate, filters.From, filters.To) {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ExpectedDate != result[j].ExpectedDate {
			return result[i].ExpectedDate.Before(result[j].ExpectedDate)
		}
		return result[i].ID < result[j].ID
	})
	if filters.Limit > 0 && len(result) > filters.Limit {
		result = result[:filters.Limit]
	}
	return result
}

// ExpectedDates returns the stored dates of a template
func (m *MockRepository) ExpectedDates(_ context.Context, templateID string) ([]civil.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dates []civil.Date
	for key := range m.keys {
		if key.TemplateID == templateID {
			dates = append(dates, key.ExpectedDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// UpdateOccurrenceStatus applies a compare-and-swap on pending status
func (m *MockRepository) UpdateOccurrenceStatus(_ context.Context, id string, status recurrence.Status, matchedTransactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateStatusErr != nil {
		return m.UpdateStatusErr
	}

	o, ok := m.occurrences[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != recurrence.StatusPending {
		return fmt.Errorf("occurrence %s is no longer pending: %w", id, ErrConflict)
	}
	if matchedTransactionID != "" {
		if owner, taken := m.claimed[matchedTransactionID]; taken && owner != id {
			return fmt.Errorf("transaction %s already claimed: %w", matchedTransactionID, ErrConflict)
		}
		m.claimed[matchedTransactionID] = id
	}

	o.Status = status
	o.MatchedTransactionID = matchedTransactionID
	m.occurrences[id] = o
	m.StatusUpdates = append(m.StatusUpdates, StatusUpdate{
		OccurrenceID:         id,
		Status:               status,
		MatchedTransactionID: matchedTransactionID,
	})
	return nil
}

// ClaimedTransactionIDs returns transaction IDs matched to the owner's occurrences
func (m *MockRepository) ClaimedTransactionIDs(_ context.Context, ownerID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	claimed := make(map[string]bool)
	for txnID, occID := range m.claimed {
		if m.templates[m.occurrences[occID].TemplateID].OwnerID == ownerID {
			claimed[txnID] = true
		}
	}
	return claimed, nil
}

// SaveTransactions stores transactions whose ID is not yet present
func (m *MockRepository) SaveTransactions(_ context.Context, txns []recurrence.Transaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, t := range txns {
		if _, dup := m.transactions[t.ID]; dup {
			continue
		}
		m.transactions[t.ID] = t
		inserted++
	}
	return inserted, nil
}

// ListTransactions returns transactions matching the filters
func (m *MockRepository) ListTransactions(_ context.Context, filters TransactionFilters) ([]recurrence.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListTransactionsErr != nil {
		return nil, m.ListTransactionsErr
	}

	var result []recurrence.Transaction
	for _, t := range m.transactions {
		if filters.OwnerID != "" && t.OwnerID != filters.OwnerID {
			continue
		}
		if filters.PropertyID != "" && t.PropertyID != filters.PropertyID {
			continue
		}
		if !inRange(t.Date, filters.From, filters.To) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// StartSweepRun records the start of a sweep run
func (m *MockRepository) StartSweepRun(_ context.Context, ownerID string, asOf civil.Date) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StartSweepRunErr != nil {
		return 0, m.StartSweepRunErr
	}

	id := m.nextRunID
	m.nextRunID++
	m.sweepRuns[id] = &SweepRun{
		ID:        id,
		OwnerID:   ownerID,
		AsOf:      asOf,
		StartedAt: time.Now().UTC(),
		Status:    SweepRunning,
	}
	return id, nil
}

// CompleteSweepRun records the completion of a sweep run
func (m *MockRepository) CompleteSweepRun(_ context.Context, runID int64, stats SweepStats, runErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.sweepRuns[runID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Stats = stats
	run.Status = SweepCompleted
	if runErr != nil {
		run.Status = SweepFailed
		run.ErrorMessage = runErr.Error()
	}
	return nil
}

// ListSweepRuns returns the most recent runs first
func (m *MockRepository) ListSweepRuns(_ context.Context, limit int) ([]SweepRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]SweepRun, 0, len(m.sweepRuns))
	for _, run := range m.sweepRuns {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetAllOccurrences returns every stored occurrence ordered by date then ID.
// ListOccurrencesErr does not apply.
func (m *MockRepository) GetAllOccurrences() []recurrence.Occurrence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterOccurrences(OccurrenceFilters{})
}

// Reset clears all data and hooks
func (m *MockRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.templates = make(map[string]recurrence.Template)
	m.occurrences = make(map[string]recurrence.Occurrence)
	m.keys = make(map[recurrence.Key]string)
	m.claimed = make(map[string]string)
	m.transactions = make(map[string]recurrence.Transaction)
	m.sweepRuns = make(map[int64]*SweepRun)
	m.nextRunID = 1
	m.StatusUpdates = nil
}
