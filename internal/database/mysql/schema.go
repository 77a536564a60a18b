package mysql

import (
	"context"
	"fmt"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// SchemaOps implements adapter.SchemaOperator for MySQL. MySQL equates a
// schema with a database, so discovery scopes to the connected schema.
type SchemaOps struct {
	conn *Connection
}

// DiscoverSchema retrieves the complete schema of the connected database.
func (s *SchemaOps) DiscoverSchema(ctx context.Context) (*unifiedmodel.DatabaseSchema, error) {
	schema := &unifiedmodel.DatabaseSchema{
		Name:         s.conn.config.DatabaseName,
		DatabaseType: dbcapabilities.MySQL,
	}

	tables, err := s.discoverTables(ctx)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "discover_schema", err)
	}
	schema.Tables = tables

	if views, err := s.discoverViews(ctx); err != nil {
		schema.Warnings = append(schema.Warnings, fmt.Sprintf("view discovery failed: %v", err))
	} else {
		schema.Views = views
	}

	if routines, err := s.discoverRoutines(ctx); err != nil {
		schema.Warnings = append(schema.Warnings, fmt.Sprintf("routine discovery failed: %v", err))
	} else {
		schema.Routines = routines
	}

	if triggers, err := s.discoverTriggers(ctx); err != nil {
		schema.Warnings = append(schema.Warnings, fmt.Sprintf("trigger discovery failed: %v", err))
	} else {
		schema.Triggers = triggers
	}

	return schema, nil
}

// ListTables returns the names of all base tables in the connected schema.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "list_tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, adapter.WrapError(dbcapabilities.MySQL, "list_tables", err)
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// GetTableSchema retrieves the schema for one table.
func (s *SchemaOps) GetTableSchema(ctx context.Context, tableName string) (*unifiedmodel.Table, error) {
	tables, err := s.discoverTables(ctx)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "get_table_schema", err)
	}

	for i := range tables {
		if tables[i].Name == tableName {
			return &tables[i], nil
		}
	}

	return nil, adapter.NewNotFoundError(dbcapabilities.MySQL, "table", tableName)
}

func (s *SchemaOps) discoverTables(ctx context.Context) ([]unifiedmodel.Table, error) {
	query := `
		SELECT c.table_name,
		       c.column_name,
		       c.ordinal_position,
		       c.column_type,
		       c.is_nullable = 'YES',
		       c.column_default,
		       c.character_maximum_length,
		       c.numeric_precision,
		       c.numeric_scale,
		       c.extra LIKE '%auto_increment%',
		       c.column_key = 'PRI',
		       c.column_comment
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = DATABASE()
		  AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*unifiedmodel.Table)
	var order []string

	for rows.Next() {
		var (
			tableName, columnName, columnType, comment string
			ordinal                                    int
			nullable, autoIncrement, isPrimary         bool
			columnDefault                              *string
			charMaxLen, numPrecision, numScale         *int
		)
		if err := rows.Scan(&tableName, &columnName, &ordinal, &columnType,
			&nullable, &columnDefault, &charMaxLen, &numPrecision, &numScale,
			&autoIncrement, &isPrimary, &comment); err != nil {
			return nil, err
		}

		table, ok := byName[tableName]
		if !ok {
			table = &unifiedmodel.Table{Name: tableName}
			byName[tableName] = table
			order = append(order, tableName)
		}

		table.Columns = append(table.Columns, unifiedmodel.Column{
			Name:            columnName,
			OrdinalPosition: ordinal,
			NativeType:      columnType,
			Type: unifiedmodel.MapType(dbcapabilities.MySQL, unifiedmodel.NativeType{
				Name:      columnType,
				Length:    charMaxLen,
				Precision: numPrecision,
				Scale:     numScale,
			}),
			Nullable:      nullable,
			Default:       columnDefault,
			AutoIncrement: autoIncrement,
			IsPrimaryKey:  isPrimary,
			Comment:       comment,
		})
		if isPrimary {
			table.PrimaryKey = append(table.PrimaryKey, columnName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachIndexes(ctx, byName); err != nil {
		return nil, err
	}
	if err := s.attachConstraints(ctx, byName); err != nil {
		return nil, err
	}
	if err := s.attachRowEstimates(ctx, byName); err != nil {
		return nil, err
	}

	tables := make([]unifiedmodel.Table, 0, len(order))
	for _, name := range order {
		tables = append(tables, *byName[name])
	}
	return tables, nil
}

func (s *SchemaOps) attachIndexes(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT table_name, index_name, column_name, non_unique = 0, index_type
		FROM information_schema.statistics
		WHERE table_schema = DATABASE()
		  AND index_name <> 'PRIMARY'
		ORDER BY table_name, index_name, seq_in_index
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	type indexKey struct {
		table string
		name  string
	}
	seen := make(map[indexKey]*unifiedmodel.Index)

	for rows.Next() {
		var tableName, indexName, columnName, method string
		var unique bool
		if err := rows.Scan(&tableName, &indexName, &columnName, &unique, &method); err != nil {
			return err
		}

		table, ok := tables[tableName]
		if !ok {
			continue
		}

		key := indexKey{table: tableName, name: indexName}
		idx, ok := seen[key]
		if !ok {
			table.Indexes = append(table.Indexes, unifiedmodel.Index{
				Name:   indexName,
				Table:  tableName,
				Unique: unique,
				Method: method,
			})
			idx = &table.Indexes[len(table.Indexes)-1]
			seen[key] = idx
		}
		idx.Columns = append(idx.Columns, columnName)
	}
	return rows.Err()
}

func (s *SchemaOps) attachConstraints(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT kcu.table_name,
		       kcu.constraint_name,
		       kcu.column_name,
		       kcu.referenced_table_name,
		       kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = DATABASE()
		  AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	type constraintKey struct {
		table string
		name  string
	}
	seen := make(map[constraintKey]*unifiedmodel.Constraint)

	for rows.Next() {
		var tableName, constraintName, columnName, refTable, refColumn string
		if err := rows.Scan(&tableName, &constraintName, &columnName, &refTable, &refColumn); err != nil {
			return err
		}

		table, ok := tables[tableName]
		if !ok {
			continue
		}

		key := constraintKey{table: tableName, name: constraintName}
		c, ok := seen[key]
		if !ok {
			table.Constraints = append(table.Constraints, unifiedmodel.Constraint{
				Name:            constraintName,
				Type:            unifiedmodel.ConstraintForeignKey,
				Table:           tableName,
				ReferencedTable: refTable,
			})
			c = &table.Constraints[len(table.Constraints)-1]
			seen[key] = c
		}
		c.Columns = append(c.Columns, columnName)
		c.ReferencedColumns = append(c.ReferencedColumns, refColumn)
	}
	return rows.Err()
}

func (s *SchemaOps) attachRowEstimates(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT table_name, table_rows
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName string
		var estimate *int64
		if err := rows.Scan(&tableName, &estimate); err != nil {
			return err
		}
		if table, ok := tables[tableName]; ok && estimate != nil {
			table.EstimatedRows = estimate
		}
	}
	return rows.Err()
}

func (s *SchemaOps) discoverViews(ctx context.Context) ([]unifiedmodel.View, error) {
	query := `
		SELECT table_name, COALESCE(view_definition, '')
		FROM information_schema.views
		WHERE table_schema = DATABASE()
		ORDER BY table_name
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []unifiedmodel.View
	for rows.Next() {
		var v unifiedmodel.View
		if err := rows.Scan(&v.Name, &v.Definition); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *SchemaOps) discoverRoutines(ctx context.Context) ([]unifiedmodel.Routine, error) {
	query := `
		SELECT routine_name,
		       LOWER(routine_type),
		       COALESCE(data_type, ''),
		       COALESCE(external_language, 'SQL')
		FROM information_schema.routines
		WHERE routine_schema = DATABASE()
		ORDER BY routine_name
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routines []unifiedmodel.Routine
	for rows.Next() {
		var r unifiedmodel.Routine
		var kind string
		if err := rows.Scan(&r.Name, &kind, &r.ReturnType, &r.Language); err != nil {
			return nil, err
		}
		r.Kind = unifiedmodel.RoutineKind(kind)
		routines = append(routines, r)
	}
	return routines, rows.Err()
}

func (s *SchemaOps) discoverTriggers(ctx context.Context) ([]unifiedmodel.Trigger, error) {
	query := `
		SELECT trigger_name,
		       event_object_table,
		       action_timing,
		       event_manipulation,
		       COALESCE(action_statement, '')
		FROM information_schema.triggers
		WHERE trigger_schema = DATABASE()
		ORDER BY trigger_name
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triggers []unifiedmodel.Trigger
	for rows.Next() {
		var t unifiedmodel.Trigger
		if err := rows.Scan(&t.Name, &t.Table, &t.Timing, &t.Event, &t.Statement); err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}
