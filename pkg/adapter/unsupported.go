package adapter

import (
	"context"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// UnsupportedSchemaOperator is a nil object pattern for databases that don't support schema operations.
type UnsupportedSchemaOperator struct {
	dbType dbcapabilities.DatabaseType
}

func (u *UnsupportedSchemaOperator) DiscoverSchema(ctx context.Context) (*unifiedmodel.DatabaseSchema, error) {
	return nil, NewUnsupportedOperationError(u.dbType, "schema discovery", "")
}

func (u *UnsupportedSchemaOperator) ListTables(ctx context.Context) ([]string, error) {
	return nil, NewUnsupportedOperationError(u.dbType, "list tables", "")
}

func (u *UnsupportedSchemaOperator) GetTableSchema(ctx context.Context, tableName string) (*unifiedmodel.Table, error) {
	return nil, NewUnsupportedOperationError(u.dbType, "get table schema", "")
}

// NewUnsupportedSchemaOperator creates a new unsupported schema operator.
func NewUnsupportedSchemaOperator(dbType dbcapabilities.DatabaseType) SchemaOperator {
	return &UnsupportedSchemaOperator{dbType: dbType}
}

// UnsupportedDataOperator is a nil object pattern for databases that don't support data sampling.
type UnsupportedDataOperator struct {
	dbType dbcapabilities.DatabaseType
}

func (u *UnsupportedDataOperator) SampleTable(ctx context.Context, table *unifiedmodel.Table, strategy sampling.Strategy, limit int) ([]map[string]interface{}, error) {
	return nil, NewUnsupportedOperationError(u.dbType, "sample table", "")
}

func (u *UnsupportedDataOperator) CountRows(ctx context.Context, table *unifiedmodel.Table) (int64, error) {
	return 0, NewUnsupportedOperationError(u.dbType, "count rows", "")
}

func (u *UnsupportedDataOperator) Fetch(ctx context.Context, table *unifiedmodel.Table, limit int) ([]map[string]interface{}, error) {
	return nil, NewUnsupportedOperationError(u.dbType, "fetch", "")
}

// NewUnsupportedDataOperator creates a new unsupported data operator.
func NewUnsupportedDataOperator(dbType dbcapabilities.DatabaseType) DataOperator {
	return &UnsupportedDataOperator{dbType: dbType}
}

// UnsupportedMetadataOperator is a nil object pattern for databases that don't expose metadata.
type UnsupportedMetadataOperator struct {
	dbType dbcapabilities.DatabaseType
}

func (u *UnsupportedMetadataOperator) Version(ctx context.Context) (string, error) {
	return "", NewUnsupportedOperationError(u.dbType, "version", "")
}

func (u *UnsupportedMetadataOperator) UniqueIdentifier(ctx context.Context) (string, error) {
	return "", NewUnsupportedOperationError(u.dbType, "unique identifier", "")
}

func (u *UnsupportedMetadataOperator) DatabaseSize(ctx context.Context) (int64, error) {
	return 0, NewUnsupportedOperationError(u.dbType, "database size", "")
}

func (u *UnsupportedMetadataOperator) TableCount(ctx context.Context) (int, error) {
	return 0, NewUnsupportedOperationError(u.dbType, "table count", "")
}

func (u *UnsupportedMetadataOperator) ConnectedUser(ctx context.Context) (string, bool, error) {
	return "", false, NewUnsupportedOperationError(u.dbType, "connected user", "")
}

// NewUnsupportedMetadataOperator creates a new unsupported metadata operator.
func NewUnsupportedMetadataOperator(dbType dbcapabilities.DatabaseType) MetadataOperator {
	return &UnsupportedMetadataOperator{dbType: dbType}
}
