package unifiedmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnByName(t *testing.T) {
	table := Table{
		Name: "users",
		Columns: []Column{
			{Name: "ID"},
			{Name: "email"},
		},
	}

	col := table.ColumnByName("id")
	require.NotNil(t, col)
	assert.Equal(t, "ID", col.Name)

	assert.Nil(t, table.ColumnByName("missing"))
}

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		schema   string
		name     string
		expected string
	}{
		{"public", "users", "public.users"},
		{"", "users", "users"},
		{"dbo", "Orders", "dbo.Orders"},
	}

	for _, test := range tests {
		table := Table{Schema: test.schema, Name: test.name}
		if got := table.QualifiedName(); got != test.expected {
			t.Errorf("QualifiedName() = %q, expected %q", got, test.expected)
		}
	}
}
