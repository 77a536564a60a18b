package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

func TestResolveStrategyPrimaryKeyWins(t *testing.T) {
	table := &unifiedmodel.Table{
		Name:       "orders",
		PrimaryKey: []string{"id"},
		Columns: []unifiedmodel.Column{
			{Name: "id", AutoIncrement: true},
			{Name: "created_at", Type: unifiedmodel.DataType{Kind: unifiedmodel.KindDateTime}},
		},
	}

	s := ResolveStrategy(table, nil, true)
	assert.Equal(t, StrategyPrimaryKey, s.Kind)
	assert.Equal(t, []string{"id"}, s.Columns)
	assert.False(t, s.Descending)
}

func TestResolveStrategyTimestampFallback(t *testing.T) {
	table := &unifiedmodel.Table{
		Name: "events",
		Columns: []unifiedmodel.Column{
			{Name: "payload", Type: unifiedmodel.DataType{Kind: unifiedmodel.KindString}},
			{Name: "Created_At", Type: unifiedmodel.DataType{Kind: unifiedmodel.KindDateTime}},
		},
	}

	s := ResolveStrategy(table, nil, false)
	assert.Equal(t, StrategyTimestamp, s.Kind)
	assert.Equal(t, []string{"Created_At"}, s.Columns)
	assert.True(t, s.Descending)
}

func TestResolveStrategyTimestampRequiresTemporalType(t *testing.T) {
	// A varchar column named created_at must not be used for ordering.
	table := &unifiedmodel.Table{
		Name: "logs",
		Columns: []unifiedmodel.Column{
			{Name: "created_at", Type: unifiedmodel.DataType{Kind: unifiedmodel.KindString}},
			{Name: "seq", AutoIncrement: true},
		},
	}

	s := ResolveStrategy(table, nil, false)
	assert.Equal(t, StrategyAutoIncrement, s.Kind)
	assert.Equal(t, []string{"seq"}, s.Columns)
	assert.True(t, s.Descending)
}

func TestResolveStrategyCustomTimestampCandidates(t *testing.T) {
	table := &unifiedmodel.Table{
		Name: "audit",
		Columns: []unifiedmodel.Column{
			{Name: "event_time", Type: unifiedmodel.DataType{Kind: unifiedmodel.KindDateTime}},
			{Name: "created_at", Type: unifiedmodel.DataType{Kind: unifiedmodel.KindDateTime}},
		},
	}

	s := ResolveStrategy(table, []string{"event_time"}, false)
	assert.Equal(t, StrategyTimestamp, s.Kind)
	assert.Equal(t, []string{"event_time"}, s.Columns)
}

func TestResolveStrategySystemRowID(t *testing.T) {
	table := &unifiedmodel.Table{
		Name: "plain",
		Columns: []unifiedmodel.Column{
			{Name: "data", Type: unifiedmodel.DataType{Kind: unifiedmodel.KindString}},
		},
	}

	s := ResolveStrategy(table, nil, true)
	assert.Equal(t, StrategySystemRowID, s.Kind)
	assert.Empty(t, s.Columns)
}

func TestResolveStrategyUnordered(t *testing.T) {
	table := &unifiedmodel.Table{
		Name: "plain",
		Columns: []unifiedmodel.Column{
			{Name: "data", Type: unifiedmodel.DataType{Kind: unifiedmodel.KindString}},
		},
	}

	s := ResolveStrategy(table, nil, false)
	assert.Equal(t, StrategyUnordered, s.Kind)
}

func TestResolveStrategyDoesNotAliasPrimaryKey(t *testing.T) {
	table := &unifiedmodel.Table{
		Name:       "t",
		PrimaryKey: []string{"a", "b"},
	}

	s := ResolveStrategy(table, nil, false)
	s.Columns[0] = "mutated"
	assert.Equal(t, "a", table.PrimaryKey[0])
}
