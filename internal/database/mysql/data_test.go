package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple_table", "`simple_table`"},
		{"table-with-dashes", "`table-with-dashes`"},
		{"table`with`backticks", "`table``with``backticks`"},
		{"123table", "`123table`"},
		{"", "``"},
	}

	for _, test := range tests {
		result := quoteIdentifier(test.input)
		if result != test.expected {
			t.Errorf("quoteIdentifier(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestOrderClause(t *testing.T) {
	d := &DataOps{}

	clause, err := d.orderClause(sampling.Strategy{
		Kind:       sampling.StrategyAutoIncrement,
		Columns:    []string{"id"},
		Descending: true,
	})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY `id` DESC", clause)

	clause, err = d.orderClause(sampling.Strategy{Kind: sampling.StrategyUnordered})
	require.NoError(t, err)
	assert.Empty(t, clause)
}

func TestOrderClauseRejectsSystemRowID(t *testing.T) {
	d := &DataOps{}

	_, err := d.orderClause(sampling.Strategy{Kind: sampling.StrategySystemRowID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available on MySQL")
}

func TestOrderClauseRequiresColumns(t *testing.T) {
	d := &DataOps{}

	_, err := d.orderClause(sampling.Strategy{Kind: sampling.StrategyTimestamp})
	assert.Error(t, err)
}

func TestFetchQueryUsesRandomOrder(t *testing.T) {
	d := &DataOps{}

	table := &unifiedmodel.Table{Name: "users"}
	query := d.fetchQuery(table, 10)
	assert.Equal(t, "SELECT * FROM `users` ORDER BY RAND() LIMIT 10", query)
}
