// Package mssql implements the database adapter for Microsoft SQL Server
// using database/sql with the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/google/uuid"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

const (
	maxOpenConns = 25
	maxIdleConns = 5
)

// Adapter implements the adapter.DatabaseAdapter interface for SQL Server.
type Adapter struct{}

// NewAdapter creates a new SQL Server adapter.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.SQLServer
}

// Capabilities returns the capabilities metadata for SQL Server.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.SQLServer)
}

// Connect establishes a connection to a SQL Server database.
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

// ConnectInstance establishes a server-level connection against master.
func (a *Adapter) ConnectInstance(ctx context.Context, config adapter.InstanceConfig) (adapter.InstanceConnection, error) {
	maintenance := config.DatabaseName
	if maintenance == "" {
		maintenance = "master"
	}

	db, err := a.openDB(ctx, config.Host, config.Port, config.Username, config.Password,
		maintenance, config.SSL, config.SSLMode)
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
	query := url.Values{}
	query.Set("database", database)
	if ssl {
		query.Set("encrypt", "true")
		if sslMode == "skip-verify" {
			query.Set("trustservercertificate", "true")
		}
	} else {
		query.Set("encrypt", "disable")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(username, password),
		Host:     fmt.Sprintf("%s:%d", host, port),
		RawQuery: query.Encode(),
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.SQLServer, host, port,
			fmt.Errorf("%w: error opening connection", adapter.ErrConnectionFailed),
		)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, adapter.NewConnectionError(
			dbcapabilities.SQLServer, host, port,
			fmt.Errorf("%w: ping failed", adapter.ErrConnectionFailed),
		)
	}

	return db, nil
}

// Connection implements adapter.Connection for SQL Server.
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
	return dbcapabilities.SQLServer
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

// SchemaOperations returns the schema operator for SQL Server.
func (c *Connection) SchemaOperations() adapter.SchemaOperator {
	return &SchemaOps{conn: c}
}

// DataOperations returns the data operator for SQL Server.
func (c *Connection) DataOperations() adapter.DataOperator {
	return &DataOps{conn: c}
}

// MetadataOperations returns the metadata operator for SQL Server.
func (c *Connection) MetadataOperations() adapter.MetadataOperator {
	return &MetadataOps{db: c.db}
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

// InstanceConnection implements adapter.InstanceConnection for SQL Server.
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
	return dbcapabilities.SQLServer
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

// ListDatabases lists all online databases on the server.
func (i *InstanceConnection) ListDatabases(ctx context.Context) ([]adapter.DatabaseInfo, error) {
	query := `
		SELECT d.name,
		       SUSER_SNAME(d.owner_sid) AS owner,
		       d.collation_name
		FROM sys.databases d
		WHERE d.state = 0
		ORDER BY d.name
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.SQLServer, "list_databases", err)
	}
	defer rows.Close()

	caps := i.adapter.Capabilities()

	var databases []adapter.DatabaseInfo
	for rows.Next() {
		var info adapter.DatabaseInfo
		var owner, collation *string
		if err := rows.Scan(&info.Name, &owner, &collation); err != nil {
			return nil, adapter.WrapError(dbcapabilities.SQLServer, "list_databases", err)
		}
		if owner != nil {
			info.Owner = *owner
		}
		if collation != nil {
			info.Encoding = *collation
		}
		info.IsSystem = caps.IsSystemDatabase(info.Name)
		databases = append(databases, info)
	}

	return databases, rows.Err()
}

// ConnectToDatabase opens a connection to one database on this server.
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
