// Package reconcile runs the recurring-transaction sweep for each owner:
// materialise expectations, match them against imported transactions, and
// flag the ones that never arrived.
//
// The domain packages it drives are pure. This package owns persistence,
// the per-owner serialisation that keeps a transaction from being claimed
// twice, and logging.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/matcher"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/missed"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/pattern"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/schedule"
	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/storage"
)

// Service coordinates the domain components with storage
type Service struct {
	repo      storage.Repository
	clock     calendar.Clock
	generator *schedule.ExpectationGenerator
	notifier  Notifier
	opts      Options
	logger    *slog.Logger
	locks     ownerLocks
}

// Option customises a Service
type Option func(*Service)

// WithNotifier replaces the default log notifier
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithIDSource sets the occurrence ID source
func WithIDSource(newID func() string) Option {
	return func(s *Service) { s.generator = schedule.NewExpectationGeneratorWithIDs(newID) }
}

// NewService creates a new reconciliation service
func NewService(
	repo storage.Repository,
	clock calendar.Clock,
	opts Options,
	logger *slog.Logger,
	options ...Option,
) *Service {
	if opts.MaxParallelOwners <= 0 {
		opts.MaxParallelOwners = 1
	}

	s := &Service{
		repo:      repo,
		clock:     clock,
		generator: schedule.NewExpectationGenerator(),
		notifier:  NewLogNotifier(logger),
		opts:      opts,
		logger:    logger,
		locks:     ownerLocks{m: make(map[string]*sync.Mutex)},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// CreateTemplate validates and stores a new template, then materialises its
// expectations over the creation horizon. It returns the number generated.
func (s *Service) CreateTemplate(ctx context.Context, t *recurrence.Template) (int, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.ValidateForCreate(); err != nil {
		return 0, err
	}

	unlock := s.locks.lock(t.OwnerID)
	defer unlock()

	if err := s.repo.SaveTemplate(ctx, t); err != nil {
		return 0, fmt.Errorf("failed to save template: %w", err)
	}

	generated, err := s.generateFor(ctx, *t, s.clock.Today(), s.opts.CreationHorizonDays)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Template created",
		"template_id", t.ID,
		"owner_id", t.OwnerID,
		"frequency", t.Frequency.String(),
		"generated", generated,
	)
	return generated, nil
}

// GenerateExpectations materialises every active template of the owner over
// the sweep horizon. Dates already stored are skipped.
func (s *Service) GenerateExpectations(ctx context.Context, ownerID string) (int, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()
	return s.generateExpectations(ctx, ownerID, s.clock.Today())
}

func (s *Service) generateExpectations(ctx context.Context, ownerID string, today civil.Date) (int, error) {
	templates, err := s.repo.ListTemplates(ctx, ownerID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to list templates: %w", err)
	}

	total := 0
	for _, t := range templates {
		n, err := s.generateFor(ctx, t, today, s.opts.HorizonDays)
		if err != nil {
			return total, err
		}
		total += n
	}

	s.logger.Debug("Expectations generated", "owner_id", ownerID, "templates", len(templates), "generated", total)
	return total, nil
}

func (s *Service) generateFor(ctx context.Context, t recurrence.Template, from civil.Date, horizonDays int) (int, error) {
	dates, err := s.repo.ExpectedDates(ctx, t.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load expected dates for %s: %w", t.ID, err)
	}

	from, horizonDays, ok := resumeWindow(dates, from, horizonDays)
	if !ok {
		return 0, nil
	}

	drafts, err := s.generator.Generate(t, schedule.NewDateSet(dates...), from, horizonDays)
	if err != nil {
		return 0, fmt.Errorf("template %s: %w", t.ID, err)
	}

	inserted, err := s.repo.InsertOccurrences(ctx, drafts)
	if err != nil {
		return 0, fmt.Errorf("failed to insert occurrences for %s: %w", t.ID, err)
	}
	return inserted, nil
}

// resumeWindow restarts generation at the latest stored date so alignment
// begins on the series itself and fortnightly, quarterly and annual phases
// survive sweeps on arbitrary days. The window still ends at
// from+horizonDays. Periods between the latest stored date and from are
// filled in, leaving missed detection to flag them.
func resumeWindow(stored []civil.Date, from civil.Date, horizonDays int) (civil.Date, int, bool) {
	if len(stored) == 0 {
		return from, horizonDays, true
	}
	latest := stored[0]
	for _, d := range stored[1:] {
		latest = calendar.Max(latest, d)
	}

	end := from.AddDays(horizonDays)
	if !latest.Before(end) {
		return civil.Date{}, 0, false
	}
	return latest, calendar.DaysBetween(latest, end), true
}

// Reconcile matches the owner's due pending occurrences against unclaimed
// transactions. High confidence matches are confirmed when auto-confirm is
// on; the rest are reported for review.
func (s *Service) Reconcile(ctx context.Context, ownerID string) (*ReconcileResult, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()
	return s.reconcile(ctx, ownerID, s.clock.Today())
}

func (s *Service) reconcile(ctx context.Context, ownerID string, today civil.Date) (*ReconcileResult, error) {
	result := &ReconcileResult{}

	templates, err := s.templatesByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	maxTolerance := recurrence.DefaultDateToleranceDays
	for _, t := range templates {
		if t.DateToleranceDays > maxTolerance {
			maxTolerance = t.DateToleranceDays
		}
	}

	candidates, err := s.repo.ListOccurrences(ctx, storage.OccurrenceFilters{
		OwnerID: ownerID,
		Status:  recurrence.StatusPending,
		To:      today.AddDays(maxTolerance),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending occurrences: %w", err)
	}

	// due: the acceptance window of the occurrence has opened
	var due []recurrence.Occurrence
	for _, occ := range candidates {
		cfg := configFor(templates, occ.TemplateID)
		if !occ.ExpectedDate.After(today.AddDays(cfg.DateToleranceDays)) {
			due = append(due, occ)
		}
	}
	if len(due) == 0 {
		return result, nil
	}

	used, err := s.repo.ClaimedTransactionIDs(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed transactions: %w", err)
	}

	pool, err := s.repo.ListTransactions(ctx, storage.TransactionFilters{
		OwnerID: ownerID,
		From:    due[0].ExpectedDate.AddDays(-maxTolerance),
		To:      due[len(due)-1].ExpectedDate.AddDays(maxTolerance),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	for _, occ := range due {
		match := matcher.NewMatcher(configFor(templates, occ.TemplateID)).FindCandidates(occ, pool, used)

		if match.Warning != "" {
			s.logger.Warn("Occurrence excluded from matching",
				"occurrence_id", occ.ID,
				"template_id", occ.TemplateID,
				"warning", match.Warning,
			)
			result.Warnings = append(result.Warnings, occ.ID+": "+match.Warning)
			continue
		}
		if len(match.Candidates) == 0 {
			continue
		}

		best, ok := match.AutoConfirmable()
		if !s.opts.AutoConfirm || !ok {
			result.NeedsReview = append(result.NeedsReview, match)
			s.notifier.MatchNeedsReview(ctx, ownerID, occ, match)
			continue
		}

		if err := s.transition(ctx, occ, recurrence.StatusMatched, best.Transaction.ID); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				s.logger.Warn("Match lost a concurrent update",
					"occurrence_id", occ.ID,
					"transaction_id", best.Transaction.ID,
					"error", err,
				)
				used[best.Transaction.ID] = true
				continue
			}
			return nil, err
		}

		used[best.Transaction.ID] = true
		result.Confirmed = append(result.Confirmed, Confirmation{
			OccurrenceID:  occ.ID,
			TransactionID: best.Transaction.ID,
			Confidence:    best.Confidence,
		})
		s.logger.Info("Occurrence matched",
			"occurrence_id", occ.ID,
			"transaction_id", best.Transaction.ID,
			"confidence", best.Confidence.String(),
			"amount_deviation_pct", best.AmountDeviationPercent.StringFixed(2),
			"date_deviation_days", best.DateDeviationDays,
		)
	}

	return result, nil
}

// DetectMissed moves pending occurrences past their alert delay to missed
// and returns their IDs
func (s *Service) DetectMissed(ctx context.Context, ownerID string) ([]string, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()
	return s.detectMissed(ctx, ownerID, s.clock.Today())
}

func (s *Service) detectMissed(ctx context.Context, ownerID string, today civil.Date) ([]string, error) {
	templates, err := s.repo.ListTemplates(ctx, ownerID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	pending, err := s.repo.ListOccurrences(ctx, storage.OccurrenceFilters{
		OwnerID: ownerID,
		Status:  recurrence.StatusPending,
		To:      today,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending occurrences: %w", err)
	}

	byID := make(map[string]recurrence.Occurrence, len(pending))
	for _, occ := range pending {
		byID[occ.ID] = occ
	}

	var transitioned []string
	for _, id := range missed.Detect(pending, missed.DelaysFor(templates), today) {
		occ := byID[id]
		if err := s.transition(ctx, occ, recurrence.StatusMissed, ""); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				s.logger.Warn("Missed transition lost a concurrent update", "occurrence_id", id, "error", err)
				continue
			}
			return transitioned, err
		}
		transitioned = append(transitioned, id)
		s.notifier.OccurrenceMissed(ctx, ownerID, occ)
	}

	return transitioned, nil
}

// Sweep runs generation, matching and missed detection for one owner, in
// that order, and records the run
func (s *Service) Sweep(ctx context.Context, ownerID string) (*SweepResult, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	today := s.clock.Today()
	result := &SweepResult{OwnerID: ownerID, AsOf: today}

	runID, err := s.repo.StartSweepRun(ctx, ownerID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to start sweep run: %w", err)
	}
	result.RunID = runID

	s.logger.Info("Sweep started", "owner_id", ownerID, "as_of", today.String(), "run_id", runID)

	runErr := s.sweep(ctx, ownerID, today, result)

	if err := s.repo.CompleteSweepRun(ctx, runID, result.Stats(), runErr); err != nil {
		s.logger.Error("Failed to record sweep run", "run_id", runID, "error", err)
	}

	if runErr != nil {
		s.logger.Error("Sweep failed", "owner_id", ownerID, "run_id", runID, "error", runErr)
		return result, runErr
	}

	stats := result.Stats()
	s.logger.Info("Sweep complete",
		"owner_id", ownerID,
		"run_id", runID,
		"generated", stats.Generated,
		"matched", stats.Matched,
		"needs_review", stats.NeedsReview,
		"missed", stats.Missed,
	)
	return result, nil
}

func (s *Service) sweep(ctx context.Context, ownerID string, today civil.Date, result *SweepResult) error {
	generated, err := s.generateExpectations(ctx, ownerID, today)
	result.Generated = generated
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	rec, err := s.reconcile(ctx, ownerID, today)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	result.Reconcile = *rec

	ids, err := s.detectMissed(ctx, ownerID, today)
	result.Missed = ids
	if err != nil {
		return fmt.Errorf("detect missed: %w", err)
	}
	return nil
}

// SweepAll sweeps owners in parallel, bounded by MaxParallelOwners. With no
// owner IDs it sweeps every owner that has an active template. A failing
// owner does not stop the others; their errors are joined.
func (s *Service) SweepAll(ctx context.Context, ownerIDs []string) ([]*SweepResult, error) {
	if len(ownerIDs) == 0 {
		owners, err := s.repo.ListOwners(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list owners: %w", err)
		}
		ownerIDs = owners
	}

	results := make([]*SweepResult, len(ownerIDs))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(s.opts.MaxParallelOwners)
	for i, ownerID := range ownerIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("owner %s: %w", ownerID, err))
				mu.Unlock()
				return nil
			}
			res, err := s.Sweep(ctx, ownerID)
			results[i] = res
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("owner %s: %w", ownerID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// ConfirmMatch manually matches an occurrence to a transaction on the same
// property
func (s *Service) ConfirmMatch(ctx context.Context, occurrenceID, transactionID string) error {
	occ, ownerID, err := s.loadOccurrence(ctx, occurrenceID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	txns, err := s.repo.ListTransactions(ctx, storage.TransactionFilters{
		OwnerID:    ownerID,
		PropertyID: occ.PropertyID,
	})
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}
	found := false
	for _, tx := range txns {
		if tx.ID == transactionID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}

	claimed, err := s.repo.ClaimedTransactionIDs(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load claimed transactions: %w", err)
	}
	if claimed[transactionID] {
		return fmt.Errorf("%w: %s", ErrTransactionClaimed, transactionID)
	}

	if err := s.transition(ctx, *occ, recurrence.StatusMatched, transactionID); err != nil {
		return err
	}
	s.logger.Info("Occurrence matched manually", "occurrence_id", occurrenceID, "transaction_id", transactionID)
	return nil
}

// Skip marks an occurrence as intentionally not expected
func (s *Service) Skip(ctx context.Context, occurrenceID string) error {
	occ, ownerID, err := s.loadOccurrence(ctx, occurrenceID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	if err := s.transition(ctx, *occ, recurrence.StatusSkipped, ""); err != nil {
		return err
	}
	s.logger.Info("Occurrence skipped", "occurrence_id", occurrenceID)
	return nil
}

// SuggestPatterns proposes templates from the owner's transaction history,
// flagging patterns an active template already covers
func (s *Service) SuggestPatterns(ctx context.Context, ownerID string) ([]pattern.Suggestion, error) {
	txns, err := s.repo.ListTransactions(ctx, storage.TransactionFilters{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	templates, err := s.repo.ListTemplates(ctx, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	suggestions := pattern.MarkTracked(pattern.Detect(txns), templates)
	s.logger.Debug("Patterns detected", "owner_id", ownerID, "transactions", len(txns), "suggestions", len(suggestions))
	return suggestions, nil
}

// transition validates the state change in the domain, then persists it
// with a compare-and-swap on pending
func (s *Service) transition(ctx context.Context, occ recurrence.Occurrence, to recurrence.Status, transactionID string) error {
	if err := occ.Transition(to, transactionID); err != nil {
		return err
	}
	if err := s.repo.UpdateOccurrenceStatus(ctx, occ.ID, to, transactionID); err != nil {
		return fmt.Errorf("failed to update occurrence %s: %w", occ.ID, err)
	}
	return nil
}

func (s *Service) loadOccurrence(ctx context.Context, id string) (*recurrence.Occurrence, string, error) {
	occ, err := s.repo.GetOccurrence(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("occurrence %s: %w", id, err)
	}
	tmpl, err := s.repo.GetTemplate(ctx, occ.TemplateID)
	if err != nil {
		return nil, "", fmt.Errorf("template %s: %w", occ.TemplateID, err)
	}
	return occ, tmpl.OwnerID, nil
}

func (s *Service) templatesByID(ctx context.Context, ownerID string) (map[string]recurrence.Template, error) {
	templates, err := s.repo.ListTemplates(ctx, ownerID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	byID := make(map[string]recurrence.Template, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	return byID, nil
}

func configFor(templates map[string]recurrence.Template, templateID string) matcher.Config {
	if t, ok := templates[templateID]; ok {
		return matcher.ConfigFor(t)
	}
	return matcher.DefaultConfig()
}

// ownerLocks serialises work per owner
type ownerLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *ownerLocks) lock(ownerID string) func() {
	l.mu.Lock()
	m, ok := l.m[ownerID]
	if !ok {
		m = &sync.Mutex{}
		l.m[ownerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
