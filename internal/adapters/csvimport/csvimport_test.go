package csvimport

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/pattern"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

const history = `id,date,amount,property_id,category,description
t-1,2024-01-01,-2500.00,prop-1,rent,RENT PAYMENT
,2024-02-01,"-2,500.00",prop-1,rent,RENT PAYMENT
,2024-02-01,"-2,500.00",prop-1,rent,RENT PAYMENT
t-4,2024-02-15,$120.50,prop-2,rental_income,Tenant top-up
`

func TestReadTransactions(t *testing.T) {
	// Act
	txns, err := ReadTransactions(strings.NewReader(history), "owner-1")

	// Assert
	require.NoError(t, err)
	require.Len(t, txns, 4)

	assert.Equal(t, "t-1", txns[0].ID)
	assert.Equal(t, "owner-1", txns[0].OwnerID)
	assert.Equal(t, calendar.MustParse("2024-01-01"), txns[0].Date)
	assert.Equal(t, "-2500", txns[0].Amount.String())
	assert.Equal(t, "RENT PAYMENT", txns[0].Description)

	assert.Equal(t, "-2500", txns[1].Amount.String(), "thousands separator stripped")
	assert.NotEmpty(t, txns[1].ID)
	assert.NotEqual(t, txns[1].ID, txns[2].ID, "identical rows keep distinct IDs")

	assert.Equal(t, "120.5", txns[3].Amount.String(), "currency symbol stripped")
	assert.Equal(t, "prop-2", txns[3].PropertyID)
}

func TestReadTransactions_GeneratedIDsAreStable(t *testing.T) {
	first, err := ReadTransactions(strings.NewReader(history), "owner-1")
	require.NoError(t, err)
	second, err := ReadTransactions(strings.NewReader(history), "owner-1")
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestReadTransactions_OwnerColumnWins(t *testing.T) {
	input := "owner_id,date,amount,property_id\nowner-9,2024-01-01,-10,prop-1\n"

	txns, err := ReadTransactions(strings.NewReader(input), "owner-1")

	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "owner-9", txns[0].OwnerID)
}

func TestReadTransactions_RowErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		owner     string
		wantField string
	}{
		{name: "bad date", input: "date,amount,property_id\n01/02/2024,-10,prop-1\n", owner: "o", wantField: "date"},
		{name: "bad amount", input: "date,amount,property_id\n2024-01-02,ten,prop-1\n", owner: "o", wantField: "amount"},
		{name: "no property", input: "date,amount,property_id\n2024-01-02,-10,\n", owner: "o", wantField: "property_id"},
		{name: "no owner", input: "date,amount,property_id\n2024-01-02,-10,prop-1\n", owner: "", wantField: "owner_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTransactions(strings.NewReader(tt.input), tt.owner)

			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, 2, rowErr.Line)
			assert.Equal(t, tt.wantField, rowErr.Field)
		})
	}
}

func TestReadTransactionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(history), 0644))

	txns, err := ReadTransactionsFile(path, "owner-1")

	require.NoError(t, err)
	assert.Len(t, txns, 4)

	_, err = ReadTransactionsFile(filepath.Join(t.TempDir(), "missing.csv"), "owner-1")
	assert.Error(t, err)
}

func TestWriteSuggestions(t *testing.T) {
	// Arrange: detect a real suggestion from imported history
	var input strings.Builder
	input.WriteString("date,amount,property_id,category,description\n")
	for _, d := range []string{"2024-01-01", "2024-01-31", "2024-03-01", "2024-03-31"} {
		input.WriteString(d + ",-2500,prop-1,rent,RENT PAYMENT\n")
	}
	txns, err := ReadTransactions(strings.NewReader(input.String()), "owner-1")
	require.NoError(t, err)
	suggestions := pattern.Detect(txns)
	require.Len(t, suggestions, 1)

	// Act
	var buf bytes.Buffer
	require.NoError(t, WriteSuggestions(&buf, suggestions))

	// Assert
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	header, row := records[0], records[1]
	col := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("column %s missing", name)
		return ""
	}
	assert.Equal(t, "rent|prop-1|2500", col("key"))
	assert.Equal(t, recurrence.Monthly.String(), col("frequency"))
	assert.Equal(t, "2500.00", col("average_amount"))
	assert.Equal(t, "1.00", col("confidence"))
	assert.Equal(t, "4", col("occurrences"))
	assert.Equal(t, "2024-03-31", col("last_seen"))
	assert.Equal(t, "2024-04-30", col("next_expected"))
	assert.Equal(t, "false", col("already_tracked"))
	assert.Len(t, strings.Fields(col("transaction_ids")), 4)
}
