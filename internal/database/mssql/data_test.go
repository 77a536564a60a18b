package mssql

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
		{"Orders", "[Orders]"},
		{"order details", "[order details]"},
		{"weird]name", "[weird]]name]"},
		{"", "[]"},
	}

	for _, test := range tests {
		result := quoteIdentifier(test.input)
		if result != test.expected {
			t.Errorf("quoteIdentifier(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestTableIdent(t *testing.T) {
	d := &DataOps{}

	got := d.tableIdent(&unifiedmodel.Table{Schema: "dbo", Name: "Orders"})
	assert.Equal(t, "[dbo].[Orders]", got)

	got = d.tableIdent(&unifiedmodel.Table{Name: "Orders"})
	assert.Equal(t, "[Orders]", got)
}

func TestOrderClause(t *testing.T) {
	d := &DataOps{}

	clause, err := d.orderClause(sampling.Strategy{
		Kind:    sampling.StrategyPrimaryKey,
		Columns: []string{"OrderID", "LineID"},
	})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY [OrderID], [LineID]", clause)

	clause, err = d.orderClause(sampling.Strategy{
		Kind:       sampling.StrategyTimestamp,
		Columns:    []string{"created_at"},
		Descending: true,
	})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY [created_at] DESC", clause)
}

func TestOrderClauseRejectsSystemRowID(t *testing.T) {
	d := &DataOps{}

	_, err := d.orderClause(sampling.Strategy{Kind: sampling.StrategySystemRowID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available on SQL Server")
}

func TestSplitQualifiedName(t *testing.T) {
	tests := []struct {
		input          string
		expectedSchema string
		expectedTable  string
	}{
		{"dbo.Orders", "dbo", "Orders"},
		{"Orders", "dbo", "Orders"},
		{"sales.archive.old", "sales", "archive.old"},
	}

	for _, test := range tests {
		schema, table := splitQualifiedName(test.input, "dbo")
		if schema != test.expectedSchema || table != test.expectedTable {
			t.Errorf("splitQualifiedName(%q) = (%q, %q), expected (%q, %q)",
				test.input, schema, table, test.expectedSchema, test.expectedTable)
		}
	}
}

func TestFetchQueryUsesRandomOrder(t *testing.T) {
	d := &DataOps{}

	table := &unifiedmodel.Table{Schema: "dbo", Name: "Orders"}
	query := d.fetchQuery(table, 25)
	assert.Equal(t, "SELECT TOP (25) * FROM [dbo].[Orders] ORDER BY NEWID()", query)
}
