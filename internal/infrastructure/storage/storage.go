package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// ================================================================
// OCCURRENCES
// ================================================================

const occurrenceColumns = `o.id, o.template_id, o.property_id, o.expected_date,
	o.expected_amount, o.status, o.matched_transaction_id`

// InsertOccurrences inserts drafts, skipping any (template, date) already stored
func (s *Storage) InsertOccurrences(ctx context.Context, occs []recurrence.Occurrence) (int, error) {
	if len(occs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR IGNORE INTO occurrences
	(id, template_id, property_id, expected_date, expected_amount, status, matched_transaction_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, o := range occs {
		res, err := stmt.ExecContext(ctx,
			o.ID,
			o.TemplateID,
			o.PropertyID,
			o.ExpectedDate.String(),
			o.ExpectedAmount.String(),
			o.Status.String(),
			nullableString(o.MatchedTransactionID),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert occurrence %s: %w", o.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetOccurrence retrieves an occurrence by ID
func (s *Storage) GetOccurrence(ctx context.Context, id string) (*recurrence.Occurrence, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+occurrenceColumns+` FROM occurrences o WHERE o.id = ?`, id)
	o, err := scanOccurrence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get occurrence %s: %w", id, err)
	}
	return o, nil
}

// ListOccurrences returns occurrences matching the filters
func (s *Storage) ListOccurrences(ctx context.Context, filters OccurrenceFilters) ([]recurrence.Occurrence, error) {
	var (
		where []string
		args  []any
	)
	if filters.OwnerID != "" {
		where = append(where, "t.owner_id = ?")
		args = append(args, filters.OwnerID)
	}
	if filters.TemplateID != "" {
		where = append(where, "o.template_id = ?")
		args = append(args, filters.TemplateID)
	}
	if filters.PropertyID != "" {
		where = append(where, "o.property_id = ?")
		args = append(args, filters.PropertyID)
	}
	if filters.Status.Valid() {
		where = append(where, "o.status = ?")
		args = append(args, filters.Status.String())
	}
	where, args = appendDateRange(where, args, "o.expected_date", filters.From, filters.To)

	query := `SELECT ` + occurrenceColumns + ` FROM occurrences o JOIN templates t ON t.id = o.template_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY o.expected_date, o.id`
	if filters.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filters.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var occs []recurrence.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		occs = append(occs, *o)
	}
	return occs, rows.Err()
}

// ExpectedDates returns every expected date stored for a template
func (s *Storage) ExpectedDates(ctx context.Context, templateID string) ([]civil.Date, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT expected_date FROM occurrences WHERE template_id = ? ORDER BY expected_date`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expected dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []civil.Date
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := civil.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("template %s expected date: %w", templateID, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// UpdateOccurrenceStatus moves a pending occurrence to status
func (s *Storage) UpdateOccurrenceStatus(ctx context.Context, id string, status recurrence.Status, matchedTransactionID string) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE occurrences
	SET status = ?, matched_transaction_id = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND status = ?
	`, status.String(), nullableString(matchedTransactionID), id, recurrence.StatusPending.String())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s already claimed: %w", matchedTransactionID, ErrConflict)
		}
		return fmt.Errorf("failed to update occurrence %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM occurrences WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return fmt.Errorf("occurrence %s is no longer pending: %w", id, ErrConflict)
}

// ClaimedTransactionIDs returns transaction IDs matched to the owner's occurrences
func (s *Storage) ClaimedTransactionIDs(ctx context.Context, ownerID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT o.matched_transaction_id
	FROM occurrences o JOIN templates t ON t.id = o.template_id
	WHERE t.owner_id = ? AND o.matched_transaction_id IS NOT NULL
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claimed transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	claimed := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		claimed[id] = true
	}
	return claimed, rows.Err()
}

func scanOccurrence(row rowScanner) (*recurrence.Occurrence, error) {
	var (
		o            recurrence.Occurrence
		date, amount string
		status       string
		matchedTxnID sql.NullString
	)
	if err := row.Scan(&o.ID, &o.TemplateID, &o.PropertyID, &date, &amount, &status, &matchedTxnID); err != nil {
		return nil, err
	}

	var err error
	if o.ExpectedDate, err = civil.ParseDate(date); err != nil {
		return nil, fmt.Errorf("occurrence %s date: %w", o.ID, err)
	}
	if o.ExpectedAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("occurrence %s amount: %w", o.ID, err)
	}
	if o.Status, err = recurrence.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("occurrence %s: %w", o.ID, err)
	}
	o.MatchedTransactionID = matchedTxnID.String
	return &o, nil
}

// ================================================================
// SWEEP RUNS
// ================================================================

// StartSweepRun records the start of a sweep and returns the run ID
func (s *Storage) StartSweepRun(ctx context.Context, ownerID string, asOf civil.Date) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
	INSERT INTO sweep_runs (owner_id, as_of, started_at, status)
	VALUES (?, ?, ?, ?)
	`, ownerID, asOf.String(), time.Now().UTC(), SweepRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to start sweep run: %w", err)
	}
	return result.LastInsertId()
}

// CompleteSweepRun records the completion of a sweep run
func (s *Storage) CompleteSweepRun(ctx context.Context, runID int64, stats SweepStats, runErr error) error {
	status, message := SweepCompleted, ""
	if runErr != nil {
		status, message = SweepFailed, runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
	UPDATE sweep_runs
	SET completed_at = ?, generated = ?, matched = ?, needs_review = ?, missed = ?,
	    status = ?, error_message = ?
	WHERE id = ?
	`, time.Now().UTC(), stats.Generated, stats.Matched, stats.NeedsReview, stats.Missed, status, message, runID)
	if err != nil {
		return fmt.Errorf("failed to complete sweep run %d: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSweepRuns returns the most recent runs first
func (s *Storage) ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, owner_id, as_of, started_at, completed_at,
	       generated, matched, needs_review, missed, status, error_message
	FROM sweep_runs
	ORDER BY id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweep runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []SweepRun
	for rows.Next() {
		var (
			run         SweepRun
			asOf        string
			completedAt sql.NullTime
		)
		err := rows.Scan(
			&run.ID,
			&run.OwnerID,
			&asOf,
			&run.StartedAt,
			&completedAt,
			&run.Stats.Generated,
			&run.Stats.Matched,
			&run.Stats.NeedsReview,
			&run.Stats.Missed,
			&run.Status,
			&run.ErrorMessage,
		)
		if err != nil {
			return nil, err
		}
		if run.AsOf, err = civil.ParseDate(asOf); err != nil {
			return nil, fmt.Errorf("sweep run %d as_of: %w", run.ID, err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
