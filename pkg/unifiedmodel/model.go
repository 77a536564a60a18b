package unifiedmodel

import (
	"strings"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

// DatabaseSchema is the engine-neutral description of one database, produced
// by an adapter's SchemaOperator. Columns keep their source declaration order;
// everything else is emitted in catalog order.
type DatabaseSchema struct {
	Name         string                      `json:"name"`
	DatabaseType dbcapabilities.DatabaseType `json:"database_type"`

	Tables    []Table    `json:"tables"`
	Views     []View     `json:"views,omitempty"`
	Routines  []Routine  `json:"routines,omitempty"`
	Triggers  []Trigger  `json:"triggers,omitempty"`
	Sequences []Sequence `json:"sequences,omitempty"`

	// Warnings records object classes that could not be read (e.g. no
	// privilege on routine bodies). A non-empty list signals a partial
	// collection; the rest of the schema is still valid.
	Warnings []string `json:"warnings,omitempty"`
}

// Table describes one table or collection.
type Table struct {
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`

	// Columns are ordered by ordinal position, i.e. source declaration order.
	Columns []Column `json:"columns"`

	// PrimaryKey lists the key columns in their declared key order.
	// Empty when the table has no primary key.
	PrimaryKey []string `json:"primary_key,omitempty"`

	Indexes     []Index      `json:"indexes,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`

	// EstimatedRows is a best-effort row estimate from catalog statistics.
	// Nil when the engine does not provide one.
	EstimatedRows *int64 `json:"estimated_rows,omitempty"`

	Comment string `json:"comment,omitempty"`
}

// Column describes one column or document field.
type Column struct {
	Name string `json:"name"`

	// OrdinalPosition is 1-based and unique within the table, preserving the
	// source declaration order.
	OrdinalPosition int `json:"ordinal_position"`

	// NativeType is the engine's own type name, verbatim.
	NativeType string `json:"native_type"`

	// Type is the unified representation of NativeType.
	Type DataType `json:"type"`

	Nullable      bool    `json:"nullable"`
	Default       *string `json:"default,omitempty"`
	AutoIncrement bool    `json:"auto_increment,omitempty"`
	IsPrimaryKey  bool    `json:"is_primary_key,omitempty"`
	Comment       string  `json:"comment,omitempty"`
}

// View describes a view and its definition, when readable.
type View struct {
	Schema     string `json:"schema,omitempty"`
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// Index describes a secondary index.
type Index struct {
	Name    string   `json:"name"`
	Table   string   `json:"table"`
	Columns []string `json:"columns,omitempty"`
	Unique  bool     `json:"unique,omitempty"`
	Method  string   `json:"method,omitempty"`
}

// ConstraintType enumerates supported constraint kinds.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "primary_key"
	ConstraintForeignKey ConstraintType = "foreign_key"
	ConstraintUnique     ConstraintType = "unique"
	ConstraintCheck      ConstraintType = "check"
)

// Constraint describes an integrity constraint on a table.
type Constraint struct {
	Name       string         `json:"name"`
	Type       ConstraintType `json:"type"`
	Table      string         `json:"table"`
	Columns    []string       `json:"columns,omitempty"`
	Expression string         `json:"expression,omitempty"`

	// Foreign key target, when Type is foreign_key.
	ReferencedTable   string   `json:"referenced_table,omitempty"`
	ReferencedColumns []string `json:"referenced_columns,omitempty"`
}

// RoutineKind distinguishes functions from procedures.
type RoutineKind string

const (
	RoutineFunction  RoutineKind = "function"
	RoutineProcedure RoutineKind = "procedure"
)

// Routine describes a stored function or procedure. Definition may be empty
// when the connected identity cannot read routine bodies; the extractor
// records a schema warning in that case rather than failing.
type Routine struct {
	Schema     string      `json:"schema,omitempty"`
	Name       string      `json:"name"`
	Kind       RoutineKind `json:"kind"`
	Language   string      `json:"language,omitempty"`
	Arguments  string      `json:"arguments,omitempty"`
	ReturnType string      `json:"return_type,omitempty"`
	Definition string      `json:"definition,omitempty"`
}

// Trigger describes a trigger and the routine it invokes.
type Trigger struct {
	Schema    string `json:"schema,omitempty"`
	Name      string `json:"name"`
	Table     string `json:"table"`
	Timing    string `json:"timing"` // BEFORE, AFTER, INSTEAD OF
	Event     string `json:"event"`  // INSERT, UPDATE, DELETE, ...
	Statement string `json:"statement,omitempty"`
}

// Sequence describes a sequence object.
type Sequence struct {
	Schema    string `json:"schema,omitempty"`
	Name      string `json:"name"`
	DataType  string `json:"data_type,omitempty"`
	Start     int64  `json:"start,omitempty"`
	Increment int64  `json:"increment,omitempty"`
}

// ColumnByName returns the column with the given name, matched
// case-insensitively, or nil.
func (t *Table) ColumnByName(name string) *Column {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// QualifiedName returns schema.name, or just the name for engines without
// schema qualification.
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
