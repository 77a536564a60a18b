package mssql

import (
	"context"
	"fmt"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// SchemaOps implements adapter.SchemaOperator for SQL Server.
type SchemaOps struct {
	conn *Connection
}

// DiscoverSchema retrieves the complete schema of the connected database.
func (s *SchemaOps) DiscoverSchema(ctx context.Context) (*unifiedmodel.DatabaseSchema, error) {
	schema := &unifiedmodel.DatabaseSchema{
		Name:         s.conn.config.DatabaseName,
		DatabaseType: dbcapabilities.SQLServer,
	}

	tables, err := s.discoverTables(ctx)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.SQLServer, "discover_schema", err)
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
		SELECT TABLE_SCHEMA + '.' + TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_SCHEMA, TABLE_NAME
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.SQLServer, "list_tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, adapter.WrapError(dbcapabilities.SQLServer, "list_tables", err)
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// GetTableSchema retrieves the schema for one table. The default schema is dbo.
func (s *SchemaOps) GetTableSchema(ctx context.Context, tableName string) (*unifiedmodel.Table, error) {
	schemaName, name := splitQualifiedName(tableName, "dbo")

	tables, err := s.discoverTables(ctx)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.SQLServer, "get_table_schema", err)
	}

	for i := range tables {
		if tables[i].Schema == schemaName && tables[i].Name == name {
			return &tables[i], nil
		}
	}

	return nil, adapter.NewNotFoundError(dbcapabilities.SQLServer, "table", tableName)
}

func (s *SchemaOps) discoverTables(ctx context.Context) ([]unifiedmodel.Table, error) {
	query := `
		SELECT c.TABLE_SCHEMA,
		       c.TABLE_NAME,
		       c.COLUMN_NAME,
		       c.ORDINAL_POSITION,
		       c.DATA_TYPE,
		       CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END,
		       c.COLUMN_DEFAULT,
		       c.CHARACTER_MAXIMUM_LENGTH,
		       c.NUMERIC_PRECISION,
		       c.NUMERIC_SCALE,
		       COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity')
		FROM INFORMATION_SCHEMA.COLUMNS c
		JOIN INFORMATION_SCHEMA.TABLES t
		  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION
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
			schemaName, tableName, columnName, dataType string
			ordinal, nullableInt                        int
			columnDefault                               *string
			charMaxLen, numPrecision, numScale          *int
			identity                                    *int
		)
		if err := rows.Scan(&schemaName, &tableName, &columnName, &ordinal, &dataType,
			&nullableInt, &columnDefault, &charMaxLen, &numPrecision, &numScale, &identity); err != nil {
			return nil, err
		}

		key := schemaName + "." + tableName
		table, ok := byName[key]
		if !ok {
			table = &unifiedmodel.Table{Schema: schemaName, Name: tableName}
			byName[key] = table
			order = append(order, key)
		}

		table.Columns = append(table.Columns, unifiedmodel.Column{
			Name:            columnName,
			OrdinalPosition: ordinal,
			NativeType:      dataType,
			Type: unifiedmodel.MapType(dbcapabilities.SQLServer, unifiedmodel.NativeType{
				Name:      dataType,
				Length:    charMaxLen,
				Precision: numPrecision,
				Scale:     numScale,
			}),
			Nullable:      nullableInt == 1,
			Default:       columnDefault,
			AutoIncrement: identity != nil && *identity == 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachPrimaryKeys(ctx, byName); err != nil {
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
	for _, key := range order {
		tables = append(tables, *byName[key])
	}
	return tables, nil
}

func (s *SchemaOps) attachPrimaryKeys(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT tc.TABLE_SCHEMA, tc.TABLE_NAME, kcu.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		  ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
		 AND kcu.TABLE_SCHEMA = tc.TABLE_SCHEMA
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		ORDER BY tc.TABLE_SCHEMA, tc.TABLE_NAME, kcu.ORDINAL_POSITION
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
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

func (s *SchemaOps) attachIndexes(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT sch.name, t.name, ix.name, ix.type_desc, ix.is_unique, col.name
		FROM sys.indexes ix
		JOIN sys.tables t ON t.object_id = ix.object_id
		JOIN sys.schemas sch ON sch.schema_id = t.schema_id
		JOIN sys.index_columns ic ON ic.object_id = ix.object_id AND ic.index_id = ix.index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		WHERE ix.is_primary_key = 0 AND ix.name IS NOT NULL
		ORDER BY sch.name, t.name, ix.name, ic.key_ordinal
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
		idx.Columns = append(idx.Columns, columnName)
	}
	return rows.Err()
}

func (s *SchemaOps) attachConstraints(ctx context.Context, tables map[string]*unifiedmodel.Table) error {
	query := `
		SELECT sch.name,
		       tp.name,
		       fk.name,
		       cp.name,
		       tr.name,
		       cr.name
		FROM sys.foreign_keys fk
		JOIN sys.tables tp ON tp.object_id = fk.parent_object_id
		JOIN sys.schemas sch ON sch.schema_id = tp.schema_id
		JOIN sys.tables tr ON tr.object_id = fk.referenced_object_id
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns cp ON cp.object_id = fkc.parent_object_id AND cp.column_id = fkc.parent_column_id
		JOIN sys.columns cr ON cr.object_id = fkc.referenced_object_id AND cr.column_id = fkc.referenced_column_id
		ORDER BY sch.name, tp.name, fk.name, fkc.constraint_column_id
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
		var schemaName, tableName, fkName, columnName, refTable, refColumn string
		if err := rows.Scan(&schemaName, &tableName, &fkName, &columnName, &refTable, &refColumn); err != nil {
			return err
		}

		table, ok := tables[schemaName+"."+tableName]
		if !ok {
			continue
		}

		key := constraintKey{table: schemaName + "." + tableName, name: fkName}
		c, ok := seen[key]
		if !ok {
			table.Constraints = append(table.Constraints, unifiedmodel.Constraint{
				Name:            fkName,
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
		SELECT sch.name, t.name, SUM(p.rows)
		FROM sys.tables t
		JOIN sys.schemas sch ON sch.schema_id = t.schema_id
		JOIN sys.partitions p ON p.object_id = t.object_id AND p.index_id IN (0, 1)
		GROUP BY sch.name, t.name
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
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
		if table, ok := tables[schemaName+"."+tableName]; ok {
			table.EstimatedRows = &estimate
		}
	}
	return rows.Err()
}

func (s *SchemaOps) discoverViews(ctx context.Context) ([]unifiedmodel.View, error) {
	query := `
		SELECT TABLE_SCHEMA, TABLE_NAME, COALESCE(VIEW_DEFINITION, '')
		FROM INFORMATION_SCHEMA.VIEWS
		ORDER BY TABLE_SCHEMA, TABLE_NAME
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
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
		SELECT ROUTINE_SCHEMA,
		       ROUTINE_NAME,
		       LOWER(ROUTINE_TYPE),
		       COALESCE(DATA_TYPE, '')
		FROM INFORMATION_SCHEMA.ROUTINES
		ORDER BY ROUTINE_SCHEMA, ROUTINE_NAME
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
		if err := rows.Scan(&r.Schema, &r.Name, &kind, &r.ReturnType); err != nil {
			return nil, err
		}
		r.Kind = unifiedmodel.RoutineKind(kind)
		r.Language = "T-SQL"
		routines = append(routines, r)
	}
	return routines, rows.Err()
}

func (s *SchemaOps) discoverTriggers(ctx context.Context) ([]unifiedmodel.Trigger, error) {
	query := `
		SELECT sch.name,
		       tr.name,
		       t.name,
		       CASE WHEN tr.is_instead_of_trigger = 1 THEN 'INSTEAD OF' ELSE 'AFTER' END,
		       COALESCE(te.type_desc, '')
		FROM sys.triggers tr
		JOIN sys.tables t ON t.object_id = tr.parent_id
		JOIN sys.schemas sch ON sch.schema_id = t.schema_id
		LEFT JOIN sys.trigger_events te ON te.object_id = tr.object_id
		ORDER BY sch.name, tr.name
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triggers []unifiedmodel.Trigger
	for rows.Next() {
		var t unifiedmodel.Trigger
		if err := rows.Scan(&t.Schema, &t.Name, &t.Table, &t.Timing, &t.Event); err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

func (s *SchemaOps) discoverSequences(ctx context.Context) ([]unifiedmodel.Sequence, error) {
	query := `
		SELECT sch.name,
		       seq.name,
		       TYPE_NAME(seq.system_type_id),
		       CAST(seq.start_value AS bigint),
		       CAST(seq.increment AS bigint)
		FROM sys.sequences seq
		JOIN sys.schemas sch ON sch.schema_id = seq.schema_id
		ORDER BY sch.name, seq.name
	`

	rows, err := s.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sequences []unifiedmodel.Sequence
	for rows.Next() {
		var seq unifiedmodel.Sequence
		if err := rows.Scan(&seq.Schema, &seq.Name, &seq.DataType, &seq.Start, &seq.Increment); err != nil {
			return nil, err
		}
		sequences = append(sequences, seq)
	}
	return sequences, rows.Err()
}

func splitQualifiedName(name, defaultSchema string) (string, string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return defaultSchema, name
}
