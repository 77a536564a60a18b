package mongodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// schemaInferenceSampleSize is how many documents are examined per collection
// to infer its field structure.
const schemaInferenceSampleSize = 100

// SchemaOps implements adapter.SchemaOperator for MongoDB. MongoDB has no
// catalog of field definitions, so the structure is inferred from a bounded
// sample of documents per collection.
type SchemaOps struct {
	conn *Connection
}

// DiscoverSchema infers the schema of every collection in the database.
func (s *SchemaOps) DiscoverSchema(ctx context.Context) (*unifiedmodel.DatabaseSchema, error) {
	schema := &unifiedmodel.DatabaseSchema{
		Name:         s.conn.config.DatabaseName,
		DatabaseType: dbcapabilities.MongoDB,
	}

	names, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		table, err := s.inferCollection(ctx, name)
		if err != nil {
			schema.Warnings = append(schema.Warnings,
				fmt.Sprintf("inference for collection %s failed: %v", name, err))
			continue
		}
		schema.Tables = append(schema.Tables, *table)
	}

	return schema, nil
}

// ListTables returns the collection names in the database.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	names, err := s.conn.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "list_tables", err)
	}
	sort.Strings(names)
	return names, nil
}

// GetTableSchema infers the structure of one collection.
func (s *SchemaOps) GetTableSchema(ctx context.Context, tableName string) (*unifiedmodel.Table, error) {
	names, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if name == tableName {
			return s.inferCollection(ctx, name)
		}
	}

	return nil, adapter.NewNotFoundError(dbcapabilities.MongoDB, "collection", tableName)
}

func (s *SchemaOps) inferCollection(ctx context.Context, name string) (*unifiedmodel.Table, error) {
	coll := s.conn.db.Collection(name)

	// The _id field is MongoDB's primary key.
	table := &unifiedmodel.Table{
		Name:       name,
		PrimaryKey: []string{"_id"},
	}

	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetLimit(schemaInferenceSampleSize))
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "infer_collection", err)
	}
	defer cursor.Close(ctx)

	type fieldInfo struct {
		bsonType string
		seen     int
		first    int
	}
	fields := make(map[string]*fieldInfo)
	docCount := 0
	fieldOrder := 0

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, adapter.WrapError(dbcapabilities.MongoDB, "infer_collection", err)
		}
		docCount++

		for field, value := range doc {
			info, ok := fields[field]
			if !ok {
				fieldOrder++
				info = &fieldInfo{bsonType: bsonTypeName(value), first: fieldOrder}
				fields[field] = info
			}
			info.seen++
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "infer_collection", err)
	}

	names := make([]string, 0, len(fields))
	for field := range fields {
		names = append(names, field)
	}
	// _id first, then discovery order.
	sort.Slice(names, func(a, b int) bool {
		if names[a] == "_id" {
			return true
		}
		if names[b] == "_id" {
			return false
		}
		return fields[names[a]].first < fields[names[b]].first
	})

	for i, field := range names {
		info := fields[field]
		table.Columns = append(table.Columns, unifiedmodel.Column{
			Name:            field,
			OrdinalPosition: i + 1,
			NativeType:      info.bsonType,
			Type: unifiedmodel.MapType(dbcapabilities.MongoDB, unifiedmodel.NativeType{
				Name: info.bsonType,
			}),
			// A field absent from some sampled documents is effectively
			// nullable.
			Nullable:     info.seen < docCount,
			IsPrimaryKey: field == "_id",
		})
	}

	if err := s.attachIndexes(ctx, table); err != nil {
		return nil, err
	}

	if count, err := coll.EstimatedDocumentCount(ctx); err == nil {
		table.EstimatedRows = &count
	}

	return table, nil
}

func (s *SchemaOps) attachIndexes(ctx context.Context, table *unifiedmodel.Table) error {
	cursor, err := s.conn.db.Collection(table.Name).Indexes().List(ctx)
	if err != nil {
		return adapter.WrapError(dbcapabilities.MongoDB, "list_indexes", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var spec struct {
			Name   string `bson:"name"`
			Key    bson.D `bson:"key"`
			Unique bool   `bson:"unique"`
		}
		if err := cursor.Decode(&spec); err != nil {
			return adapter.WrapError(dbcapabilities.MongoDB, "list_indexes", err)
		}
		if spec.Name == "_id_" {
			continue
		}

		idx := unifiedmodel.Index{
			Name:   spec.Name,
			Table:  table.Name,
			Unique: spec.Unique,
		}
		for _, key := range spec.Key {
			idx.Columns = append(idx.Columns, key.Key)
		}
		table.Indexes = append(table.Indexes, idx)
	}
	return cursor.Err()
}

// bsonTypeName maps a decoded value to its BSON type name as reported by the
// $type operator.
func bsonTypeName(v interface{}) string {
	switch v.(type) {
	case int32:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case bson.Decimal128:
		return "decimal"
	case string:
		return "string"
	case bool:
		return "bool"
	case time.Time, bson.DateTime:
		return "date"
	case bson.Timestamp:
		return "timestamp"
	case bson.Binary, []byte:
		return "bindata"
	case bson.ObjectID:
		return "objectid"
	case bson.A:
		return "array"
	case bson.M, bson.D:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
