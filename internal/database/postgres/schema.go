package postgres

import (
	"context"
	"fmt"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// SchemaOps implements adapter.SchemaOperator for PostgreSQL.
type SchemaOps struct {
	conn *Connection
}

// DiscoverSchema retrieves the complete schema of the connected database.
// Secondary object categories (views, routines, triggers, sequences) degrade
// to warnings when the catalogs cannot be read.
func (s *SchemaOps) DiscoverSchema(ctx context.Context) (*unifiedmodel.DatabaseSchema, error) {
	schema := &unifiedmodel.DatabaseSchema{
		Name:         s.conn.config.DatabaseName,
		DatabaseType: dbcapabilities.PostgreSQL,
	}

	tables, err := s.discoverTables(ctx)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "discover_schema", err)
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

	if sequences, err := s.discoverSequences(ctx); err != nil {
		schema.Warnings = append(schema.Warnings, fmt.Sprintf("sequence discovery failed: %v", err))
	} else {
		schema.Sequences = sequences
	}

	return schema, nil
}

// ListTables returns the names of all base tables in user schemas.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_schema || '.' || table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name
	`

	rows, err := s.conn.pool.Query(ctx, query)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "list_tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "list_tables", err)
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// GetTableSchema retrieves the schema for one table. The name may be
// schema-qualified; the default schema is public.
func (s *SchemaOps) GetTableSchema(ctx context.Context, tableName string) (*unifiedmodel.Table, error) {
	schemaName, name := splitQualifiedName(tableName, "public")

	tables, err := s.discoverTables(ctx)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_table_schema", err)
	}

	for i := range tables {
		if tables[i].Schema == schemaName && tables[i].Name == name {
			return &tables[i], nil
		}
	}

	return nil, adapter.NewNotFoundError(dbcapabilities.PostgreSQL, "table", tableName)
}

func (s *SchemaOps) discoverTables(ctx context.Context) ([]unifiedmodel.Table, error) {
	query := `
		SELECT c.table_schema,
		       c.table_name,
		       c.column_name,
		       c.ordinal_position,
		       c.data_type,
		       c.is_nullable = 'YES' AS nullable,
		       c.column_default,
		       c.character_maximum_length,
		       c.numeric_precision,
		       c.numeric_scale,
		       pg_get_serial_sequence(quote_ident(c.table_schema) || '.' || quote_ident(c.table_name), c.column_name) IS NOT NULL
		           OR c.is_identity = 'YES' AS auto_increment,
		       col_description(cls.oid, c.ordinal_position) AS comment
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		JOIN pg_class cls
		  ON cls.relname = c.table_name
		JOIN pg_namespace ns
		  ON ns.oid = cls.relnamespace AND ns.nspname = c.table_schema
		WHERE t.table_type = 'BASE TABLE'
		  AND c.table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY c.table_schema, c.table_name, c.ordinal_position
	`

	rows, err := s.conn.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*unifiedmodel.Table)
	var order []string

	for rows.Next() {
		var (
			schemaName, tableName, columnName, dataType string
			ordinal                                     int
			nullable, autoIncrement                     bool
			columnDefault, comment                      *string
			charMaxLen, numPrecision, numScale          *int
		)
		if err := rows.Scan(&schemaName, &tableName, &columnName, &ordinal, &dataType,
			&nullable, &columnDefault, &charMaxLen, &numPrecision, &numScale,
			&autoIncrement, &comment); err != nil {
			return nil, err
		}

		key := schemaName + "." + tableName
		table, ok := byName[key]
		if !ok {
			table = &unifiedmodel.Table{Schema: schemaName, Name: tableName}
			byName[key] = table
			order = append(order, key)
		}

		col := unifiedmodel.Column{
			Name:            columnName,
			OrdinalPosition: ordinal,
			NativeType:      dataType,
			Type: unifiedmodel.MapType(dbcapabilities.PostgreSQL, unifiedmodel.NativeType{
				Name:      dataType,
				Length:    charMaxLen,
				Precision: numPrecision,
				Scale:     numScale,
			}),
			Nullable:      nullable,
			Default:       columnDefault,
			AutoIncrement: autoIncrement,
		}
		if comment != nil {
			col.Comment = *comment
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachPrimaryKeys(ctx, byName); err != nil {
		return nil, err
	}
	if err := s.attachConstraints(ctx, byName); err != nil {
		return nil, err
	}
	if err := s.attachIndexes(ctx, byName); err != nil {
		return nil, err
	}
	if err := s.attachRowEstimates(ctx, byName); err != nil {
		return nil, err
	}

	tables := make([]unifiedmodel.Table, 0, len(order))
	for _, key := range order {
		tables = append(tables, *byName[key])
	}
	return tables, nil
}

func (s *SchemaOps) attachPrimaryKeys(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT tc.table_schema,
		       tc.table_name,
		       kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY tc.table_schema, tc.table_name, kcu.ordinal_position
	`

	rows, err := s.conn.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, columnName string
		if err := rows.Scan(&schemaName, &tableName, &columnName); err != nil {
			return err
		}
		if table, ok := tables[schemaName+"."+tableName]; ok {
			table.PrimaryKey = append(table.PrimaryKey, columnName)
			if col := table.ColumnByName(columnName); col != nil {
				col.IsPrimaryKey = true
			}
		}
	}
	return rows.Err()
}

func (s *SchemaOps) attachConstraints(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT tc.table_schema,
		       tc.table_name,
		       tc.constraint_name,
		       tc.constraint_type,
		       kcu.column_name,
		       ccu.table_name AS referenced_table,
		       ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		LEFT JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND tc.constraint_type = 'FOREIGN KEY'
		WHERE tc.constraint_type IN ('FOREIGN KEY', 'UNIQUE', 'CHECK')
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name
	`

	rows, err := s.conn.pool.Query(ctx, query)
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
		var (
			schemaName, tableName, constraintName, constraintType string
			columnName, refTable, refColumn                       *string
		)
		if err := rows.Scan(&schemaName, &tableName, &constraintName, &constraintType,
			&columnName, &refTable, &refColumn); err != nil {
			return err
		}

		table, ok := tables[schemaName+"."+tableName]
		if !ok {
			continue
		}

		key := constraintKey{table: schemaName + "." + tableName, name: constraintName}
		c, ok := seen[key]
		if !ok {
			table.Constraints = append(table.Constraints, unifiedmodel.Constraint{
				Name: constraintName,
				Type: constraintTypeFromSQL(constraintType),
			})
			c = &table.Constraints[len(table.Constraints)-1]
			seen[key] = c
		}

		if columnName != nil {
			c.Columns = appendUnique(c.Columns, *columnName)
		}
		if refTable != nil {
			c.ReferencedTable = *refTable
		}
		if refColumn != nil {
			c.ReferencedColumns = appendUnique(c.ReferencedColumns, *refColumn)
		}
	}
	return rows.Err()
}

func (s *SchemaOps) attachIndexes(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT ns.nspname,
		       tcls.relname AS table_name,
		       icls.relname AS index_name,
		       am.amname AS method,
		       ix.indisunique,
		       a.attname
		FROM pg_index ix
		JOIN pg_class icls ON icls.oid = ix.indexrelid
		JOIN pg_class tcls ON tcls.oid = ix.indrelid
		JOIN pg_namespace ns ON ns.oid = tcls.relnamespace
		JOIN pg_am am ON am.oid = icls.relam
		JOIN pg_attribute a ON a.attrelid = tcls.oid AND a.attnum = ANY(ix.indkey)
		WHERE ns.nspname NOT IN ('pg_catalog', 'information_schema')
		  AND NOT ix.indisprimary
		ORDER BY ns.nspname, tcls.relname, icls.relname
	`

	rows, err := s.conn.pool.Query(ctx, query)
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
		var schemaName, tableName, indexName, method, columnName string
		var unique bool
		if err := rows.Scan(&schemaName, &tableName, &indexName, &method, &unique, &columnName); err != nil {
			return err
		}

		table, ok := tables[schemaName+"."+tableName]
		if !ok {
			continue
		}

		key := indexKey{table: schemaName + "." + tableName, name: indexName}
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
		idx.Columns = appendUnique(idx.Columns, columnName)
	}
	return rows.Err()
}

func (s *SchemaOps) attachRowEstimates(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT ns.nspname, cls.relname, cls.reltuples::bigint
		FROM pg_class cls
		JOIN pg_namespace ns ON ns.oid = cls.relnamespace
		WHERE cls.relkind = 'r'
		  AND ns.nspname NOT IN ('pg_catalog', 'information_schema')
	`

	rows, err := s.conn.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName string
		var estimate int64
		if err := rows.Scan(&schemaName, &tableName, &estimate); err != nil {
			return err
		}
		if table, ok := tables[schemaName+"."+tableName]; ok && estimate >= 0 {
			table.EstimatedRows = &estimate
		}
	}
	return rows.Err()
}

func (s *SchemaOps) discoverViews(ctx context.Context) ([]unifiedmodel.View, error) {
	query := `
		SELECT table_schema, table_name, COALESCE(view_definition, '')
		FROM information_schema.views
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name
	`

	rows, err := s.conn.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []unifiedmodel.View
	for rows.Next() {
		var v unifiedmodel.View
		if err := rows.Scan(&v.Schema, &v.Name, &v.Definition); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *SchemaOps) discoverRoutines(ctx context.Context) ([]unifiedmodel.Routine, error) {
	query := `
		SELECT routine_schema,
		       routine_name,
		       LOWER(routine_type),
		       COALESCE(data_type, ''),
		       COALESCE(external_language, '')
		FROM information_schema.routines
		WHERE routine_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY routine_schema, routine_name
	`

	rows, err := s.conn.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routines []unifiedmodel.Routine
	for rows.Next() {
		var r unifiedmodel.Routine
		var kind string
		if err := rows.Scan(&r.Schema, &r.Name, &kind, &r.ReturnType, &r.Language); err != nil {
			return nil, err
		}
		r.Kind = unifiedmodel.RoutineKind(kind)
		routines = append(routines, r)
	}
	return routines, rows.Err()
}

func (s *SchemaOps) discoverTriggers(ctx context.Context) ([]unifiedmodel.Trigger, error) {
	query := `
		SELECT trigger_schema,
		       trigger_name,
		       event_object_table,
		       action_timing,
		       event_manipulation,
		       COALESCE(action_statement, '')
		FROM information_schema.triggers
		WHERE trigger_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY trigger_schema, trigger_name
	`

	rows, err := s.conn.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triggers []unifiedmodel.Trigger
	for rows.Next() {
		var t unifiedmodel.Trigger
		if err := rows.Scan(&t.Schema, &t.Name, &t.Table, &t.Timing, &t.Event, &t.Statement); err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

func (s *SchemaOps) discoverSequences(ctx context.Context) ([]unifiedmodel.Sequence, error) {
	query := `
		SELECT sequence_schema,
		       sequence_name,
		       start_value::bigint,
		       increment::bigint
		FROM information_schema.sequences
		WHERE sequence_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY sequence_schema, sequence_name
	`

	rows, err := s.conn.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sequences []unifiedmodel.Sequence
	for rows.Next() {
		var seq unifiedmodel.Sequence
		if err := rows.Scan(&seq.Schema, &seq.Name, &seq.Start, &seq.Increment); err != nil {
			return nil, err
		}
		sequences = append(sequences, seq)
	}
	return sequences, rows.Err()
}

func constraintTypeFromSQL(t string) unifiedmodel.ConstraintType {
	switch t {
	case "PRIMARY KEY":
		return unifiedmodel.ConstraintPrimaryKey
	case "FOREIGN KEY":
		return unifiedmodel.ConstraintForeignKey
	case "UNIQUE":
		return unifiedmodel.ConstraintUnique
	default:
		return unifiedmodel.ConstraintCheck
	}
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func splitQualifiedName(name, defaultSchema string) (string, string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return defaultSchema, name
}
