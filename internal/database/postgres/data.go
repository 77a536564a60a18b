package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// DataOps implements adapter.DataOperator for PostgreSQL. Only SELECT
// statements are ever issued.
type DataOps struct {
	conn *Connection
}

// SampleTable fetches up to limit rows ordered according to strategy.
func (d *DataOps) SampleTable(ctx context.Context, table *unifiedmodel.Table, strategy sampling.Strategy, limit int) ([]map[string]interface{}, error) {
	orderBy, err := d.orderClause(strategy)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s%s LIMIT %d", d.tableIdent(table), orderBy, limit)
	return d.query(ctx, "sample_table", query)
}

// CountRows returns the exact row count.
func (d *DataOps) CountRows(ctx context.Context, table *unifiedmodel.Table) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", d.tableIdent(table))

	var count int64
	if err := d.conn.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, adapter.WrapError(dbcapabilities.PostgreSQL, "count_rows", err)
	}
	return count, nil
}

// Fetch retrieves up to limit rows drawn at random. Used for tables with no
// usable ordering column.
func (d *DataOps) Fetch(ctx context.Context, table *unifiedmodel.Table, limit int) ([]map[string]interface{}, error) {
	return d.query(ctx, "fetch", d.fetchQuery(table, limit))
}

func (d *DataOps) fetchQuery(table *unifiedmodel.Table, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s ORDER BY random() LIMIT %d", d.tableIdent(table), limit)
}

func (d *DataOps) orderClause(strategy sampling.Strategy) (string, error) {
	switch strategy.Kind {
	case sampling.StrategyPrimaryKey, sampling.StrategyTimestamp, sampling.StrategyAutoIncrement:
		if len(strategy.Columns) == 0 {
			return "", adapter.NewDatabaseError(dbcapabilities.PostgreSQL, "sample_table",
				fmt.Errorf("ordering strategy %s requires columns", strategy.Kind))
		}
		cols := make([]string, len(strategy.Columns))
		for i, c := range strategy.Columns {
			cols[i] = pgx.Identifier{c}.Sanitize()
			if strategy.Descending {
				cols[i] += " DESC"
			}
		}
		return " ORDER BY " + strings.Join(cols, ", "), nil
	case sampling.StrategySystemRowID:
		return " ORDER BY ctid", nil
	case sampling.StrategyUnordered:
		return "", nil
	default:
		return "", adapter.NewDatabaseError(dbcapabilities.PostgreSQL, "sample_table",
			fmt.Errorf("unknown ordering strategy %q", strategy.Kind))
	}
}

func (d *DataOps) tableIdent(table *unifiedmodel.Table) string {
	if table.Schema != "" {
		return pgx.Identifier{table.Schema, table.Name}.Sanitize()
	}
	return pgx.Identifier{table.Name}.Sanitize()
}

func (d *DataOps) query(ctx context.Context, operation, query string) ([]map[string]interface{}, error) {
	rows, err := d.conn.pool.Query(ctx, query)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, operation, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	var result []map[string]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, adapter.WrapError(dbcapabilities.PostgreSQL, operation, err)
		}

		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, operation, err)
	}
	return result, nil
}
