package sheets

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefinitions(t *testing.T) {
	columns := [][]any{
		{"Categories", "Groceries", "Dining", "Transport"},
		{"Cards", "DBS Visa", "Amex", "Cash"},
		{"Persons", "Sam", "Justin"},
		{"Currency", "USD", "myr"},
		{"Rate", "1.35", 4.2},
	}

	defs := parseDefinitions(columns)

	assert.Equal(t, []string{"Dining", "Groceries", "Transport"}, defs.Categories)
	assert.Equal(t, []string{"Amex", "Cash", "DBS Visa"}, defs.Cards)
	assert.Equal(t, []string{"Justin", "Sam"}, defs.Persons)

	require.Len(t, defs.FX, 2)
	assert.Equal(t, "USD", defs.FX[0].Currency)
	assert.Equal(t, "1.35", defs.FX[0].Rate.String())
	assert.Equal(t, "MYR", defs.FX[1].Currency)
	assert.Equal(t, "4.2", defs.FX[1].Rate.String())
}

func TestParseDefinitionsEdgeCases(t *testing.T) {
	t.Run("empty tab", func(t *testing.T) {
		defs := parseDefinitions(nil)
		assert.Empty(t, defs.Categories)
		assert.Empty(t, defs.Cards)
		assert.Empty(t, defs.FX)
	})

	t.Run("header-only columns", func(t *testing.T) {
		defs := parseDefinitions([][]any{{"Categories"}, {"Cards"}})
		assert.Empty(t, defs.Categories)
		assert.Empty(t, defs.Cards)
	})

	t.Run("blank cells skipped", func(t *testing.T) {
		defs := parseDefinitions([][]any{{"Categories", "Dining", "", "  ", "Transport"}})
		assert.Equal(t, []string{"Dining", "Transport"}, defs.Categories)
	})

	t.Run("unparseable rate dropped", func(t *testing.T) {
		defs := parseDefinitions([][]any{{"Categories"}, {"Cards"}, {"Persons"}, {"Currency", "USD"}, {"Rate", "n/a"}})
		assert.Empty(t, defs.FX)
	})
}

func TestExpenseRow(t *testing.T) {
	row := expenseRow("2024-12-06T00:00:00Z", "FairPrice", "Groceries", mustDecimal(t, "30.5"), "Amex", "Justin")

	require.Len(t, row, 7)
	assert.Equal(t, "", row[0])
	assert.Equal(t, "12/6/24", row[1])
	assert.Equal(t, "FairPrice", row[2])
	assert.Equal(t, "Groceries", row[3])
	assert.InDelta(t, 30.5, row[4], 0.0001)
	assert.Equal(t, "Amex", row[5])
	assert.Equal(t, "Justin", row[6])
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
