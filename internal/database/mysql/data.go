package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// DataOps implements adapter.DataOperator for MySQL. Only SELECT statements
// are ever issued.
type DataOps struct {
	conn *Connection
}

// SampleTable fetches up to limit rows ordered according to strategy.
func (d *DataOps) SampleTable(ctx context.Context, table *unifiedmodel.Table, strategy sampling.Strategy, limit int) ([]map[string]interface{}, error) {
	orderBy, err := d.orderClause(strategy)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s%s LIMIT %d", quoteIdentifier(table.Name), orderBy, limit)
	return d.query(ctx, "sample_table", query)
}

// CountRows returns the exact row count.
func (d *DataOps) CountRows(ctx context.Context, table *unifiedmodel.Table) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table.Name))

	var count int64
	if err := d.conn.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, adapter.WrapError(dbcapabilities.MySQL, "count_rows", err)
	}
	return count, nil
}

// Fetch retrieves up to limit rows drawn at random. Used for tables with no
// usable ordering column.
func (d *DataOps) Fetch(ctx context.Context, table *unifiedmodel.Table, limit int) ([]map[string]interface{}, error) {
	return d.query(ctx, "fetch", d.fetchQuery(table, limit))
}

func (d *DataOps) fetchQuery(table *unifiedmodel.Table, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s ORDER BY RAND() LIMIT %d", quoteIdentifier(table.Name), limit)
}

func (d *DataOps) orderClause(strategy sampling.Strategy) (string, error) {
	switch strategy.Kind {
	case sampling.StrategyPrimaryKey, sampling.StrategyTimestamp, sampling.StrategyAutoIncrement:
		if len(strategy.Columns) == 0 {
			return "", adapter.NewDatabaseError(dbcapabilities.MySQL, "sample_table",
				fmt.Errorf("ordering strategy %s requires columns", strategy.Kind))
		}
		cols := make([]string, len(strategy.Columns))
		for i, c := range strategy.Columns {
			cols[i] = quoteIdentifier(c)
			if strategy.Descending {
				cols[i] += " DESC"
			}
		}
		return " ORDER BY " + strings.Join(cols, ", "), nil
	case sampling.StrategyUnordered:
		return "", nil
	default:
		return "", adapter.NewDatabaseError(dbcapabilities.MySQL, "sample_table",
			fmt.Errorf("ordering strategy %q is not available on MySQL", strategy.Kind))
	}
}

// quoteIdentifier backtick-quotes an identifier, doubling embedded backticks.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *DataOps) query(ctx context.Context, operation, query string) ([]map[string]interface{}, error) {
	rows, err := d.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, operation, err)
	}
	defer rows.Close()

	return scanRows(rows, dbcapabilities.MySQL, operation)
}

// scanRows converts sql.Rows into column-keyed maps.
func scanRows(rows *sql.Rows, dbType dbcapabilities.DatabaseType, operation string) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, adapter.WrapError(dbType, operation, err)
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, adapter.WrapError(dbType, operation, err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, adapter.WrapError(dbType, operation, err)
	}
	return result, nil
}
