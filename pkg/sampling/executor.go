package sampling

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// Sampler is the subset of a data operator the executor needs. The engine
// adapters' data operators satisfy it.
type Sampler interface {
	SampleTable(ctx context.Context, table *unifiedmodel.Table, strategy Strategy, limit int) ([]map[string]interface{}, error)
	CountRows(ctx context.Context, table *unifiedmodel.Table) (int64, error)
	Fetch(ctx context.Context, table *unifiedmodel.Table, limit int) ([]map[string]interface{}, error)
}

// TableSample is the collected sample for one table.
type TableSample struct {
	Schema           string                   `json:"schema,omitempty"`
	Table            string                   `json:"table"`
	Strategy         Strategy                 `json:"strategy"`
	Rows             []map[string]interface{} `json:"rows"`
	RowCount         *int64                   `json:"row_count,omitempty"`
	SensitiveColumns []string                 `json:"sensitive_columns,omitempty"`
	Truncated        bool                     `json:"truncated"`
	Warnings         []string                 `json:"warnings,omitempty"`
}

// Capabilities is the subset of engine capability flags the executor
// consults. Callers populate it from the engine's capability metadata.
type Capabilities struct {
	SystemRowID  bool
	RandomSample bool
	RowCount     bool
}

// Executor runs the sampling loop over a set of tables against one database.
// It owns throttling, per-query timeouts, value normalization, and sensitive
// column detection. Failures on one table become warnings; they never abort
// the loop.
type Executor struct {
	cfg      Config
	detector *SensitiveDetector
	caps     Capabilities
}

// NewExecutor builds an executor for one engine.
func NewExecutor(cfg Config, caps Capabilities) *Executor {
	cfg = cfg.normalized()
	return &Executor{
		cfg:      cfg,
		detector: NewSensitiveDetector(cfg.SensitiveFieldPatterns),
		caps:     caps,
	}
}

// Config returns the normalized configuration the executor runs with.
func (e *Executor) Config() Config {
	return e.cfg
}

// CollectAll samples every table in order, sleeping ThrottleDelay between
// tables. The context cancels the whole loop; per-query deadlines are applied
// on top of it.
func (e *Executor) CollectAll(ctx context.Context, sampler Sampler, tables []*unifiedmodel.Table) ([]TableSample, error) {
	samples := make([]TableSample, 0, len(tables))

	for i, table := range tables {
		if i > 0 && e.cfg.ThrottleDelay > 0 {
			select {
			case <-time.After(e.cfg.ThrottleDelay):
			case <-ctx.Done():
				return samples, ctx.Err()
			}
		}

		if err := ctx.Err(); err != nil {
			return samples, err
		}

		samples = append(samples, e.CollectTable(ctx, sampler, table))
	}

	return samples, nil
}

// CollectTable samples a single table. The returned sample is always usable;
// query failures are recorded in Warnings with an empty row set.
func (e *Executor) CollectTable(ctx context.Context, sampler Sampler, table *unifiedmodel.Table) TableSample {
	sample := TableSample{
		Schema: table.Schema,
		Table:  table.Name,
		Rows:   []map[string]interface{}{},
	}

	columnNames := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		columnNames[i] = col.Name
	}
	sample.SensitiveColumns = e.detector.DetectColumns(columnNames)

	sample.Strategy = ResolveStrategy(table, e.cfg.TimestampCandidates, e.caps.SystemRowID)
	if sample.Strategy.Kind == StrategyUnordered {
		if e.caps.RandomSample {
			sample.Warnings = append(sample.Warnings,
				fmt.Sprintf("no deterministic ordering available for %s; rows are drawn with the engine's random sampler", table.QualifiedName()))
		} else {
			sample.Warnings = append(sample.Warnings,
				fmt.Sprintf("no deterministic ordering available for %s; sample order is not reproducible", table.QualifiedName()))
		}
	}

	rows, err := e.sampleRows(ctx, sampler, table, sample.Strategy)
	if err != nil {
		sample.Warnings = append(sample.Warnings,
			fmt.Sprintf("sampling %s failed: %v", table.QualifiedName(), err))
	} else {
		for _, row := range rows {
			sample.Rows = append(sample.Rows, NormalizeRow(row))
		}
	}

	if e.cfg.CountRows && e.caps.RowCount {
		count, err := e.countRows(ctx, sampler, table)
		if err != nil {
			sample.Warnings = append(sample.Warnings,
				fmt.Sprintf("row count for %s failed: %v", table.QualifiedName(), err))
			sample.RowCount = table.EstimatedRows
		} else {
			sample.RowCount = &count
		}
	} else {
		sample.RowCount = table.EstimatedRows
	}

	if sample.RowCount != nil && *sample.RowCount > int64(len(sample.Rows)) {
		sample.Truncated = true
	}

	return sample
}

func (e *Executor) sampleRows(ctx context.Context, sampler Sampler, table *unifiedmodel.Table, strategy Strategy) ([]map[string]interface{}, error) {
	qctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	if strategy.Kind == StrategyUnordered {
		return sampler.Fetch(qctx, table, e.cfg.SampleSize)
	}
	return sampler.SampleTable(qctx, table, strategy, e.cfg.SampleSize)
}

func (e *Executor) countRows(ctx context.Context, sampler Sampler, table *unifiedmodel.Table) (int64, error) {
	qctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	return sampler.CountRows(qctx, table)
}

// NormalizeRow converts driver values into JSON-safe ones. Byte slices become
// base64 strings so binary data round-trips losslessly; times are rendered in
// RFC 3339 with nanoseconds. Other values pass through unchanged.
func NormalizeRow(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]interface{}:
		return NormalizeRow(val)
	default:
		return v
	}
}
