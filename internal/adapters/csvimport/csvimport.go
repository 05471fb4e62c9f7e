// Package csvimport reads bank transaction history from CSV and writes
// pattern suggestions back out.
//
// Expected input columns (header names, any order):
//
//	id, date, amount, property_id, category, description, owner_id
//
// Only date, amount and property_id are required. Dates are YYYY-MM-DD and
// amounts are signed (expenses negative); thousands separators and a
// leading currency symbol are tolerated. Rows without an id get a stable
// one derived from their content, so re-importing a file is idempotent.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/pattern"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// importNamespace scopes content-derived transaction IDs
var importNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:property-tracker:transaction-import"))

// TransactionRow is one CSV line of transaction history
type TransactionRow struct {
	ID          string `csv:"id"`
	OwnerID     string `csv:"owner_id"`
	PropertyID  string `csv:"property_id"`
	Date        string `csv:"date"`
	Amount      string `csv:"amount"`
	Category    string `csv:"category"`
	Description string `csv:"description"`
}

// SuggestionRow is one CSV line of pattern output
type SuggestionRow struct {
	Key              string `csv:"key"`
	PropertyID       string `csv:"property_id"`
	Category         string `csv:"category"`
	Description      string `csv:"description"`
	Frequency        string `csv:"frequency"`
	AverageAmount    string `csv:"average_amount"`
	Confidence       string `csv:"confidence"`
	Occurrences      int    `csv:"occurrences"`
	MeanIntervalDays string `csv:"mean_interval_days"`
	LastSeen         string `csv:"last_seen"`
	NextExpected     string `csv:"next_expected"`
	AlreadyTracked   bool   `csv:"already_tracked"`
	TransactionIDs   string `csv:"transaction_ids"`
}

// RowError reports a rejected input line
type RowError struct {
	Line   int
	Field  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s %s", e.Line, e.Field, e.Reason)
}

var amountCleaner = strings.NewReplacer(",", "", "$", "", " ", "")

// ReadTransactions parses transactions from r. ownerID fills rows that have
// no owner_id column value.
func ReadTransactions(r io.Reader, ownerID string) ([]recurrence.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var rows []*TransactionRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("error parsing transactions CSV: %w", err)
	}

	seen := make(map[string]int)
	txns := make([]recurrence.Transaction, 0, len(rows))
	for i, row := range rows {
		// header is line 1
		tx, err := row.toTransaction(i+2, ownerID)
		if err != nil {
			return nil, err
		}
		if tx.ID == "" {
			content := contentKey(tx)
			tx.ID = uuid.NewSHA1(importNamespace, []byte(content+"#"+strconv.Itoa(seen[content]))).String()
			seen[content]++
		}
		txns = append(txns, tx)
	}
	return txns, nil
}

// ReadTransactionsFile parses the transactions CSV at path
func ReadTransactionsFile(path, ownerID string) ([]recurrence.Transaction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadTransactions(file, ownerID)
}

func (row *TransactionRow) toTransaction(line int, defaultOwner string) (recurrence.Transaction, error) {
	owner := strings.TrimSpace(row.OwnerID)
	if owner == "" {
		owner = defaultOwner
	}
	if owner == "" {
		return recurrence.Transaction{}, &RowError{Line: line, Field: "owner_id", Reason: "is required"}
	}

	property := strings.TrimSpace(row.PropertyID)
	if property == "" {
		return recurrence.Transaction{}, &RowError{Line: line, Field: "property_id", Reason: "is required"}
	}

	date, err := civil.ParseDate(strings.TrimSpace(row.Date))
	if err != nil {
		return recurrence.Transaction{}, &RowError{Line: line, Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", row.Date)}
	}

	amount, err := decimal.NewFromString(amountCleaner.Replace(row.Amount))
	if err != nil {
		return recurrence.Transaction{}, &RowError{Line: line, Field: "amount", Reason: fmt.Sprintf("%q is not a number", row.Amount)}
	}

	return recurrence.Transaction{
		ID:          strings.TrimSpace(row.ID),
		OwnerID:     owner,
		PropertyID:  property,
		Date:        date,
		Amount:      amount,
		Category:    strings.TrimSpace(row.Category),
		Description: strings.TrimSpace(row.Description),
	}, nil
}

func contentKey(tx recurrence.Transaction) string {
	return strings.Join([]string{
		tx.OwnerID,
		tx.PropertyID,
		tx.Date.String(),
		tx.Amount.String(),
		tx.Category,
		tx.Description,
	}, "|")
}

// WriteSuggestions writes suggestions as CSV with a header row
func WriteSuggestions(w io.Writer, suggestions []pattern.Suggestion) error {
	rows := make([]*SuggestionRow, 0, len(suggestions))
	for _, s := range suggestions {
		row := &SuggestionRow{
			Key:              s.Key,
			PropertyID:       s.PropertyID,
			Category:         s.Category,
			Description:      s.Description,
			Frequency:        s.Frequency.String(),
			AverageAmount:    s.AverageAmount.StringFixed(2),
			Confidence:       strconv.FormatFloat(s.Confidence, 'f', 2, 64),
			Occurrences:      s.OccurrenceCount,
			MeanIntervalDays: strconv.FormatFloat(s.MeanIntervalDays, 'f', 1, 64),
			LastSeen:         s.LastSeen.String(),
			AlreadyTracked:   s.AlreadyTracked,
			TransactionIDs:   strings.Join(s.TransactionIDs, " "),
		}
		if s.NextExpected.IsValid() {
			row.NextExpected = s.NextExpected.String()
		}
		rows = append(rows, row)
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("error writing suggestions CSV: %w", err)
	}
	return nil
}

// WriteSuggestionsFile writes suggestions to the CSV file at path
func WriteSuggestionsFile(path string, suggestions []pattern.Suggestion) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}

	if err := WriteSuggestions(file, suggestions); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
