package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

func TestOrderClause(t *testing.T) {
	d := &DataOps{}

	tests := []struct {
		name     string
		strategy sampling.Strategy
		expected string
	}{
		{
			name:     "primary key",
			strategy: sampling.Strategy{Kind: sampling.StrategyPrimaryKey, Columns: []string{"id"}},
			expected: ` ORDER BY "id"`,
		},
		{
			name:     "composite primary key",
			strategy: sampling.Strategy{Kind: sampling.StrategyPrimaryKey, Columns: []string{"a", "b"}},
			expected: ` ORDER BY "a", "b"`,
		},
		{
			name:     "timestamp descending",
			strategy: sampling.Strategy{Kind: sampling.StrategyTimestamp, Columns: []string{"created_at"}, Descending: true},
			expected: ` ORDER BY "created_at" DESC`,
		},
		{
			name:     "system row id",
			strategy: sampling.Strategy{Kind: sampling.StrategySystemRowID},
			expected: " ORDER BY ctid",
		},
		{
			name:     "unordered",
			strategy: sampling.Strategy{Kind: sampling.StrategyUnordered},
			expected: "",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clause, err := d.orderClause(test.strategy)
			require.NoError(t, err)
			assert.Equal(t, test.expected, clause)
		})
	}
}

func TestOrderClauseQuotesHostileColumn(t *testing.T) {
	d := &DataOps{}

	clause, err := d.orderClause(sampling.Strategy{
		Kind:    sampling.StrategyPrimaryKey,
		Columns: []string{`evil"; DROP TABLE x; --`},
	})
	require.NoError(t, err)
	assert.Equal(t, ` ORDER BY "evil""; DROP TABLE x; --"`, clause)
}

func TestOrderClauseRejectsColumnlessStrategy(t *testing.T) {
	d := &DataOps{}

	_, err := d.orderClause(sampling.Strategy{Kind: sampling.StrategyPrimaryKey})
	require.Error(t, err)

	var dbErr *adapter.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

func TestTableIdent(t *testing.T) {
	d := &DataOps{}

	tests := []struct {
		schema   string
		table    string
		expected string
	}{
		{"public", "users", `"public"."users"`},
		{"", "users", `"users"`},
		{"public", `u"sers`, `"public"."u""sers"`},
	}

	for _, test := range tests {
		got := d.tableIdent(&unifiedmodel.Table{Schema: test.schema, Name: test.table})
		if got != test.expected {
			t.Errorf("tableIdent(%q, %q) = %q, expected %q", test.schema, test.table, got, test.expected)
		}
	}
}

func TestSplitQualifiedName(t *testing.T) {
	tests := []struct {
		input          string
		expectedSchema string
		expectedTable  string
	}{
		{"public.users", "public", "users"},
		{"users", "public", "users"},
		{"audit.log.archive", "audit", "log.archive"},
	}

	for _, test := range tests {
		schema, table := splitQualifiedName(test.input, "public")
		if schema != test.expectedSchema || table != test.expectedTable {
			t.Errorf("splitQualifiedName(%q) = (%q, %q), expected (%q, %q)",
				test.input, schema, table, test.expectedSchema, test.expectedTable)
		}
	}
}

func TestFetchQueryUsesRandomOrder(t *testing.T) {
	d := &DataOps{}

	table := &unifiedmodel.Table{Schema: "public", Name: "users"}
	query := d.fetchQuery(table, 50)
	assert.Equal(t, `SELECT * FROM "public"."users" ORDER BY random() LIMIT 50`, query)
}
