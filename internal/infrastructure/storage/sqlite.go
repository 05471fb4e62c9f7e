package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// Storage provides SQLite database access for templates, occurrences,
// transactions and sweep runs. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	return NewStorageContext(context.Background(), dbPath)
}

// NewStorageContext opens the database and runs all pending migrations
func NewStorageContext(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps SQLite writes serialized
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// ================================================================
// TEMPLATES
// ================================================================

const templateColumns = `id, owner_id, property_id, description, amount, category,
	transaction_type, frequency, day_of_month, day_of_week, start_date, end_date,
	amount_tolerance_percent, date_tolerance_days, alert_delay_days, active`

// SaveTemplate inserts or replaces a template by ID
func (s *Storage) SaveTemplate(ctx context.Context, t *recurrence.Template) error {
	query := `
	INSERT INTO templates (` + templateColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner_id = excluded.owner_id,
		property_id = excluded.property_id,
		description = excluded.description,
		amount = excluded.amount,
		category = excluded.category,
		transaction_type = excluded.transaction_type,
		frequency = excluded.frequency,
		day_of_month = excluded.day_of_month,
		day_of_week = excluded.day_of_week,
		start_date = excluded.start_date,
		end_date = excluded.end_date,
		amount_tolerance_percent = excluded.amount_tolerance_percent,
		date_tolerance_days = excluded.date_tolerance_days,
		alert_delay_days = excluded.alert_delay_days,
		active = excluded.active,
		updated_at = CURRENT_TIMESTAMP
	`

	var endDate any
	if t.EndDate != nil {
		endDate = t.EndDate.String()
	}

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.OwnerID,
		t.PropertyID,
		t.Description,
		t.Amount.String(),
		t.Category,
		t.TransactionType.String(),
		t.Frequency.String(),
		nullableInt(t.DayOfMonth),
		nullableInt(t.DayOfWeek),
		t.StartDate.String(),
		endDate,
		t.AmountTolerancePercent.String(),
		t.DateToleranceDays,
		t.AlertDelayDays,
		t.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", t.ID, err)
	}
	return nil
}

// GetTemplate retrieves a template by ID
func (s *Storage) GetTemplate(ctx context.Context, id string) (*recurrence.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template %s: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns an owner's templates ordered by ID
func (s *Storage) ListTemplates(ctx context.Context, ownerID string, activeOnly bool) ([]recurrence.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE owner_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var templates []recurrence.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// ListOwners returns the distinct owners with at least one active template
func (s *Storage) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM templates WHERE active = 1 ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*recurrence.Template, error) {
	var (
		t                       recurrence.Template
		amount, tolerance       string
		txType, freq, startDate string
		dayOfMonth, dayOfWeek   sql.NullInt64
		endDate                 sql.NullString
	)
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.PropertyID,
		&t.Description,
		&amount,
		&t.Category,
		&txType,
		&freq,
		&dayOfMonth,
		&dayOfWeek,
		&startDate,
		&endDate,
		&tolerance,
		&t.DateToleranceDays,
		&t.AlertDelayDays,
		&t.Active,
	)
	if err != nil {
		return nil, err
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("template %s amount: %w", t.ID, err)
	}
	if t.AmountTolerancePercent, err = decimal.NewFromString(tolerance); err != nil {
		return nil, fmt.Errorf("template %s tolerance: %w", t.ID, err)
	}
	if t.TransactionType, err = recurrence.ParseTransactionType(txType); err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	if t.Frequency, err = recurrence.ParseFrequency(freq); err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	if t.StartDate, err = civil.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("template %s start date: %w", t.ID, err)
	}
	if endDate.Valid {
		end, err := civil.ParseDate(endDate.String)
		if err != nil {
			return nil, fmt.Errorf("template %s end date: %w", t.ID, err)
		}
		t.EndDate = &end
	}
	if dayOfMonth.Valid {
		t.DayOfMonth = recurrence.IntPtr(int(dayOfMonth.Int64))
	}
	if dayOfWeek.Valid {
		t.DayOfWeek = recurrence.IntPtr(int(dayOfWeek.Int64))
	}
	return &t, nil
}

// ================================================================
// TRANSACTIONS
// ================================================================

// SaveTransactions ignores IDs already present and returns the number inserted
func (s *Storage) SaveTransactions(ctx context.Context, txns []recurrence.Transaction) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR IGNORE INTO transactions
	(id, owner_id, property_id, date, amount, category, description)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, t := range txns {
		res, err := stmt.ExecContext(ctx,
			t.ID, t.OwnerID, t.PropertyID, t.Date.String(), t.Amount.String(), t.Category, t.Description)
		if err != nil {
			return 0, fmt.Errorf("failed to save transaction %s: %w", t.ID, err)
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

// ListTransactions returns transactions matching the filters
func (s *Storage) ListTransactions(ctx context.Context, filters TransactionFilters) ([]recurrence.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filters.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filters.OwnerID)
	}
	if filters.PropertyID != "" {
		where = append(where, "property_id = ?")
		args = append(args, filters.PropertyID)
	}
	where, args = appendDateRange(where, args, "date", filters.From, filters.To)

	query := `SELECT id, owner_id, property_id, date, amount, category, description FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []recurrence.Transaction
	for rows.Next() {
		var (
			t            recurrence.Transaction
			date, amount string
		)
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.PropertyID, &date, &amount, &t.Category, &t.Description); err != nil {
			return nil, err
		}
		if t.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", t.ID, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func appendDateRange(where []string, args []any, column string, from, to civil.Date) ([]string, []any) {
	if from.IsValid() {
		where = append(where, column+" >= ?")
		args = append(args, from.String())
	}
	if to.IsValid() {
		where = append(where, column+" <= ?")
		args = append(args, to.String())
	}
	return where, args
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
