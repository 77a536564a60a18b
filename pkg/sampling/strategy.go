// Package sampling implements ordering strategy resolution and the
// rate-limited sample collection loop shared by all engine adapters.
package sampling

import (
	"strings"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// StrategyKind identifies how sampled rows are ordered.
type StrategyKind string

const (
	// StrategyPrimaryKey orders by the table's primary key columns.
	StrategyPrimaryKey StrategyKind = "primary_key"

	// StrategyTimestamp orders by a recognized timestamp column, newest first.
	StrategyTimestamp StrategyKind = "timestamp"

	// StrategyAutoIncrement orders by an auto-increment column, descending.
	StrategyAutoIncrement StrategyKind = "auto_increment"

	// StrategySystemRowID orders by an engine system row identifier.
	StrategySystemRowID StrategyKind = "system_rowid"

	// StrategyUnordered means no deterministic ordering could be derived.
	StrategyUnordered StrategyKind = "unordered"
)

// Strategy is the resolved ordering decision for one table. Columns is empty
// for StrategySystemRowID (the engine knows its own row identifier) and for
// StrategyUnordered.
type Strategy struct {
	Kind    StrategyKind `json:"kind"`
	Columns []string     `json:"columns,omitempty"`

	// Descending is set for timestamp and auto-increment strategies so the
	// sample favors the most recently written rows.
	Descending bool `json:"descending,omitempty"`
}

// DefaultTimestampCandidates are the column names recognized as timestamp
// ordering candidates, checked in order.
var DefaultTimestampCandidates = []string{
	"created_at",
	"updated_at",
	"createdat",
	"updatedat",
	"created",
	"updated",
	"create_time",
	"update_time",
	"timestamp",
	"inserted_at",
	"modified_at",
}

// ResolveStrategy picks the ordering strategy for a table. Precedence is
// primary key, then a recognized timestamp column, then an auto-increment
// column, then the engine's system row identifier, then unordered. The
// decision is pure: it depends only on the table metadata and the inputs.
func ResolveStrategy(table *unifiedmodel.Table, timestampCandidates []string, hasSystemRowID bool) Strategy {
	if len(table.PrimaryKey) > 0 {
		return Strategy{Kind: StrategyPrimaryKey, Columns: append([]string(nil), table.PrimaryKey...)}
	}

	if len(timestampCandidates) == 0 {
		timestampCandidates = DefaultTimestampCandidates
	}
	for _, candidate := range timestampCandidates {
		for _, col := range table.Columns {
			if strings.EqualFold(col.Name, candidate) && col.Type.IsTemporal() {
				return Strategy{Kind: StrategyTimestamp, Columns: []string{col.Name}, Descending: true}
			}
		}
	}

	for _, col := range table.Columns {
		if col.AutoIncrement {
			return Strategy{Kind: StrategyAutoIncrement, Columns: []string{col.Name}, Descending: true}
		}
	}

	if hasSystemRowID {
		return Strategy{Kind: StrategySystemRowID}
	}

	return Strategy{Kind: StrategyUnordered}
}
