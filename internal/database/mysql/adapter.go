// Package mysql implements the database adapter for MySQL and MariaDB using
// database/sql with the go-sql-driver driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

// Pool sizing tuned for a short-lived collection run.
const (
	maxOpenConns = 25
	maxIdleConns = 5
)

// Adapter implements the adapter.DatabaseAdapter interface for MySQL.
type Adapter struct{}

// NewAdapter creates a new MySQL adapter.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MySQL
}

// Capabilities returns the capabilities metadata for MySQL.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.MySQL)
}

// Connect establishes a connection to a MySQL database.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	db, err := a.openDB(ctx, config.Host, config.Port, config.Username, config.Password,
		config.DatabaseName, config.SSL, config.SSLMode)
	if err != nil {
		return nil, err
	}

	return &Connection{
		id:        uuid.New().String(),
		db:        db,
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

// ConnectInstance establishes a server-level connection. MySQL accepts a
// connection without a default schema.
func (a *Adapter) ConnectInstance(ctx context.Context, config adapter.InstanceConfig) (adapter.InstanceConnection, error) {
	db, err := a.openDB(ctx, config.Host, config.Port, config.Username, config.Password,
		config.DatabaseName, config.SSL, config.SSLMode)
	if err != nil {
		return nil, err
	}

	return &InstanceConnection{
		id:        uuid.New().String(),
		db:        db,
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

func (a *Adapter) openDB(ctx context.Context, host string, port int, username, password, database string, ssl bool, sslMode string) (*sql.DB, error) {
	var dsn strings.Builder
	fmt.Fprintf(&dsn, "%s:%s@tcp(%s:%d)/%s?parseTime=true", username, password, host, port, database)

	if ssl {
		tlsMode := "true"
		if sslMode == "skip-verify" || sslMode == "preferred" {
			tlsMode = sslMode
		}
		fmt.Fprintf(&dsn, "&tls=%s", tlsMode)
	}

	db, err := sql.Open("mysql", dsn.String())
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.MySQL, host, port,
			fmt.Errorf("%w: error opening connection", adapter.ErrConnectionFailed),
		)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, adapter.NewConnectionError(
			dbcapabilities.MySQL, host, port,
			fmt.Errorf("%w: ping failed", adapter.ErrConnectionFailed),
		)
	}

	return db, nil
}

// Connection implements adapter.Connection for MySQL.
type Connection struct {
	id        string
	db        *sql.DB
	config    adapter.ConnectionConfig
	adapter   *Adapter
	connected int32
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MySQL
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks if the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the connection.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	return c.db.Close()
}

// SchemaOperations returns the schema operator for MySQL.
func (c *Connection) SchemaOperations() adapter.SchemaOperator {
	return &SchemaOps{conn: c}
}

// DataOperations returns the data operator for MySQL.
func (c *Connection) DataOperations() adapter.DataOperator {
	return &DataOps{conn: c}
}

// MetadataOperations returns the metadata operator for MySQL.
func (c *Connection) MetadataOperations() adapter.MetadataOperator {
	return &MetadataOps{db: c.db, database: c.config.DatabaseName}
}

// Raw returns the underlying sql.DB.
func (c *Connection) Raw() interface{} {
	return c.db
}

// Config returns the connection configuration.
func (c *Connection) Config() adapter.ConnectionConfig {
	return c.config
}

// Adapter returns the database adapter.
func (c *Connection) Adapter() adapter.DatabaseAdapter {
	return c.adapter
}

// InstanceConnection implements adapter.InstanceConnection for MySQL.
type InstanceConnection struct {
	id        string
	db        *sql.DB
	config    adapter.InstanceConfig
	adapter   *Adapter
	connected int32
}

// ID returns the instance connection identifier.
func (i *InstanceConnection) ID() string {
	return i.id
}

// Type returns the database type.
func (i *InstanceConnection) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MySQL
}

// IsConnected returns whether the connection is active.
func (i *InstanceConnection) IsConnected() bool {
	return atomic.LoadInt32(&i.connected) == 1
}

// Ping checks if the connection is alive.
func (i *InstanceConnection) Ping(ctx context.Context) error {
	return i.db.PingContext(ctx)
}

// Close closes the connection.
func (i *InstanceConnection) Close() error {
	atomic.StoreInt32(&i.connected, 0)
	return i.db.Close()
}

// ListDatabases lists all schemas visible to the connected principal.
func (i *InstanceConnection) ListDatabases(ctx context.Context) ([]adapter.DatabaseInfo, error) {
	query := `
		SELECT s.schema_name,
		       s.default_character_set_name,
		       COALESCE(SUM(t.data_length + t.index_length), 0)
		FROM information_schema.schemata s
		LEFT JOIN information_schema.tables t
		  ON t.table_schema = s.schema_name
		GROUP BY s.schema_name, s.default_character_set_name
		ORDER BY s.schema_name
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "list_databases", err)
	}
	defer rows.Close()

	caps := i.adapter.Capabilities()

	var databases []adapter.DatabaseInfo
	for rows.Next() {
		var info adapter.DatabaseInfo
		var size int64
		if err := rows.Scan(&info.Name, &info.Encoding, &size); err != nil {
			return nil, adapter.WrapError(dbcapabilities.MySQL, "list_databases", err)
		}
		info.SizeBytes = &size
		info.IsSystem = caps.IsSystemDatabase(info.Name)
		databases = append(databases, info)
	}

	return databases, rows.Err()
}

// ConnectToDatabase opens a connection to one schema on this server.
func (i *InstanceConnection) ConnectToDatabase(ctx context.Context, name string) (adapter.Connection, error) {
	if err := adapter.ValidateDatabaseName(name); err != nil {
		return nil, err
	}
	return i.adapter.Connect(ctx, i.config.DatabaseConfig(name))
}

// MetadataOperations returns the metadata operator for the instance.
func (i *InstanceConnection) MetadataOperations() adapter.MetadataOperator {
	return &MetadataOps{db: i.db}
}

// Raw returns the underlying sql.DB.
func (i *InstanceConnection) Raw() interface{} {
	return i.db
}

// Config returns the instance configuration.
func (i *InstanceConnection) Config() adapter.InstanceConfig {
	return i.config
}

// Adapter returns the database adapter.
func (i *InstanceConnection) Adapter() adapter.DatabaseAdapter {
	return i.adapter
}
