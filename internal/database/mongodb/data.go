package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// DataOps implements adapter.DataOperator for MongoDB. Only find and count
// operations are ever issued.
type DataOps struct {
	conn *Connection
}

// SampleTable fetches up to limit documents ordered according to strategy.
func (d *DataOps) SampleTable(ctx context.Context, table *unifiedmodel.Table, strategy sampling.Strategy, limit int) ([]map[string]interface{}, error) {
	sortSpec, err := d.sortSpec(strategy)
	if err != nil {
		return nil, err
	}

	coll := d.conn.db.Collection(table.Name)
	opts := options.Find().SetLimit(int64(limit))
	if len(sortSpec) > 0 {
		opts = opts.SetSort(sortSpec)
	}

	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "sample_table", err)
	}
	defer cursor.Close(ctx)

	return decodeDocuments(ctx, cursor)
}

// CountRows returns the exact document count.
func (d *DataOps) CountRows(ctx context.Context, table *unifiedmodel.Table) (int64, error) {
	count, err := d.conn.db.Collection(table.Name).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "count_rows", err)
	}
	return count, nil
}

// Fetch retrieves up to limit documents drawn at random via $sample. Used for
// collections with no usable ordering field.
func (d *DataOps) Fetch(ctx context.Context, table *unifiedmodel.Table, limit int) ([]map[string]interface{}, error) {
	coll := d.conn.db.Collection(table.Name)

	cursor, err := coll.Aggregate(ctx, samplePipeline(limit))
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "fetch", err)
	}
	defer cursor.Close(ctx)

	return decodeDocuments(ctx, cursor)
}

func samplePipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: limit}}}},
	}
}

func (d *DataOps) sortSpec(strategy sampling.Strategy) (bson.D, error) {
	switch strategy.Kind {
	case sampling.StrategyPrimaryKey, sampling.StrategyTimestamp, sampling.StrategyAutoIncrement:
		if len(strategy.Columns) == 0 {
			return nil, adapter.NewDatabaseError(dbcapabilities.MongoDB, "sample_table",
				fmt.Errorf("ordering strategy %s requires columns", strategy.Kind))
		}
		direction := 1
		if strategy.Descending {
			direction = -1
		}
		spec := make(bson.D, len(strategy.Columns))
		for i, c := range strategy.Columns {
			spec[i] = bson.E{Key: c, Value: direction}
		}
		return spec, nil
	case sampling.StrategyUnordered:
		return nil, nil
	default:
		return nil, adapter.NewDatabaseError(dbcapabilities.MongoDB, "sample_table",
			fmt.Errorf("ordering strategy %q is not available on MongoDB", strategy.Kind))
	}
}

func decodeDocuments(ctx context.Context, cursor *mongo.Cursor) ([]map[string]interface{}, error) {
	var result []map[string]interface{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, adapter.WrapError(dbcapabilities.MongoDB, "decode_document", err)
		}
		result = append(result, normalizeDocument(doc))
	}

	if err := cursor.Err(); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "decode_document", err)
	}
	return result, nil
}

// normalizeDocument converts BSON-specific values into plain Go ones so the
// sampling layer can serialize them.
func normalizeDocument(doc bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = normalizeBSONValue(v)
	}
	return out
}

func normalizeBSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time()
	case bson.Decimal128:
		return val.String()
	case bson.Binary:
		return val.Data
	case bson.M:
		return normalizeDocument(val)
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = normalizeBSONValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeBSONValue(item)
		}
		return out
	default:
		return v
	}
}
