// Package adapter defines the unified contract that every database engine
// implementation must satisfy. The collector works exclusively against these
// interfaces; engine packages under internal/database implement them.
package adapter

import (
	"context"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// DatabaseAdapter represents a database technology adapter.
// Each engine (PostgreSQL, MySQL, SQL Server, MongoDB) implements this
// interface and registers itself with the global registry.
type DatabaseAdapter interface {
	// Type returns the canonical database type identifier
	Type() dbcapabilities.DatabaseType

	// Capabilities returns the capability metadata for this database type
	Capabilities() dbcapabilities.Capability

	// Connect establishes a connection to a specific database
	Connect(ctx context.Context, config ConnectionConfig) (Connection, error)

	// ConnectInstance establishes a connection to a database instance (server-level)
	ConnectInstance(ctx context.Context, config InstanceConfig) (InstanceConnection, error)
}

// Connection represents an active connection to a specific database.
// All operations exposed through a Connection are strictly read-only.
type Connection interface {
	// Identity and status
	ID() string
	Type() dbcapabilities.DatabaseType
	IsConnected() bool

	// Lifecycle management
	Ping(ctx context.Context) error
	Close() error

	// Operation interfaces.
	// Returns an unsupported stub if the operation category is not
	// available for this engine; callers never receive nil.
	SchemaOperations() SchemaOperator
	DataOperations() DataOperator
	MetadataOperations() MetadataOperator

	// Raw returns the underlying driver connection object.
	// Type assertion is required when using Raw().
	Raw() interface{}

	// Configuration
	Config() ConnectionConfig
	Adapter() DatabaseAdapter
}

// InstanceConnection represents an active connection to a database server.
// It is used to enumerate databases and open per-database connections during
// a multi-database collection run.
type InstanceConnection interface {
	// Identity and status
	ID() string
	Type() dbcapabilities.DatabaseType
	IsConnected() bool

	// Lifecycle management
	Ping(ctx context.Context) error
	Close() error

	// ListDatabases enumerates the databases visible to the connected
	// principal, including system databases. Filtering is the caller's job.
	ListDatabases(ctx context.Context) ([]DatabaseInfo, error)

	// ConnectToDatabase opens a connection to one database on this instance,
	// reusing the instance credentials. The name is validated before any
	// statement is issued; invalid names return ErrInvalidDatabaseName.
	ConnectToDatabase(ctx context.Context, name string) (Connection, error)

	// Metadata operations at the server level
	MetadataOperations() MetadataOperator

	// Raw returns the underlying driver connection object
	Raw() interface{}

	// Configuration
	Config() InstanceConfig
	Adapter() DatabaseAdapter
}

// DatabaseInfo describes one database as reported by the server.
type DatabaseInfo struct {
	Name      string `json:"name"`
	Owner     string `json:"owner,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	SizeBytes *int64 `json:"size_bytes,omitempty"`
	IsSystem  bool   `json:"is_system"`
}

// SchemaOperator handles schema discovery operations.
type SchemaOperator interface {
	// DiscoverSchema retrieves the complete schema of the database
	DiscoverSchema(ctx context.Context) (*unifiedmodel.DatabaseSchema, error)

	// ListTables returns the names of all tables/collections in the database
	ListTables(ctx context.Context) ([]string, error)

	// GetTableSchema retrieves the schema for a specific table/collection
	GetTableSchema(ctx context.Context, tableName string) (*unifiedmodel.Table, error)
}

// DataOperator handles read-only data access. No method on this interface may
// issue a mutating statement.
type DataOperator interface {
	// SampleTable fetches up to limit rows from a table, ordered according
	// to strategy. Each row is a column-name keyed map.
	SampleTable(ctx context.Context, table *unifiedmodel.Table, strategy sampling.Strategy, limit int) ([]map[string]interface{}, error)

	// CountRows returns the exact row count for a table. Engines may decline
	// with an unsupported error; callers fall back to catalog estimates.
	CountRows(ctx context.Context, table *unifiedmodel.Table) (int64, error)

	// Fetch retrieves up to limit rows using the engine's random-sample
	// construct. Used when no ordering strategy applies; row order is not
	// reproducible across runs.
	Fetch(ctx context.Context, table *unifiedmodel.Table, limit int) ([]map[string]interface{}, error)
}

// MetadataOperator handles server and database level metadata.
type MetadataOperator interface {
	// Version returns the server version string
	Version(ctx context.Context) (string, error)

	// UniqueIdentifier returns a stable identifier for the server or database
	UniqueIdentifier(ctx context.Context) (string, error)

	// DatabaseSize returns the size of the connected database in bytes
	DatabaseSize(ctx context.Context) (int64, error)

	// TableCount returns the number of tables/collections in the database
	TableCount(ctx context.Context) (int, error)

	// ConnectedUser returns the authenticated principal and whether it holds
	// superuser (or equivalent administrative) rights on the server
	ConnectedUser(ctx context.Context) (string, bool, error)
}

// AccessLevel describes how much of a database the connected principal could
// actually read during collection.
type AccessLevel string

const (
	// AccessFull means schema and data were both readable.
	AccessFull AccessLevel = "full"

	// AccessLimited means schema was readable but some or all data was not.
	AccessLimited AccessLevel = "limited"

	// AccessNone means neither schema nor data could be read.
	AccessNone AccessLevel = "none"
)
