// Package postgres implements the database adapter for PostgreSQL using
// pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

// Adapter implements the adapter.DatabaseAdapter interface for PostgreSQL.
type Adapter struct{}

// NewAdapter creates a new PostgreSQL adapter.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.PostgreSQL
}

// Capabilities returns the capabilities metadata for PostgreSQL.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.PostgreSQL)
}

// Connect establishes a connection to a PostgreSQL database.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	pool, err := a.openPool(ctx, config.Host, config.Port, config.Username, config.Password,
		config.DatabaseName, config.SSL, config.SSLMode, config.SSLCert, config.SSLKey, config.SSLRootCert)
	if err != nil {
		return nil, err
	}

	return &Connection{
		id:        uuid.New().String(),
		pool:      pool,
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

// ConnectInstance establishes a connection to a PostgreSQL instance.
// The maintenance database defaults to "postgres".
func (a *Adapter) ConnectInstance(ctx context.Context, config adapter.InstanceConfig) (adapter.InstanceConnection, error) {
	maintenance := config.DatabaseName
	if maintenance == "" {
		maintenance = "postgres"
	}

	pool, err := a.openPool(ctx, config.Host, config.Port, config.Username, config.Password,
		maintenance, config.SSL, config.SSLMode, config.SSLCert, config.SSLKey, config.SSLRootCert)
	if err != nil {
		return nil, err
	}

	return &InstanceConnection{
		id:        uuid.New().String(),
		pool:      pool,
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

func (a *Adapter) openPool(ctx context.Context, host string, port int, username, password, database string,
	ssl bool, sslMode string, sslCert, sslKey, sslRootCert *string) (*pgxpool.Pool, error) {

	var connString strings.Builder
	fmt.Fprintf(&connString, "postgres://%s:%s@%s:%d/%s",
		username, password, host, port, database)

	if ssl {
		if sslMode == "" {
			sslMode = "verify-full"
		}
		fmt.Fprintf(&connString, "?sslmode=%s", sslMode)

		if sslCert != nil && *sslCert != "" && sslKey != nil && *sslKey != "" {
			fmt.Fprintf(&connString, "&sslcert=%s&sslkey=%s", *sslCert, *sslKey)
		}
		if sslRootCert != nil && *sslRootCert != "" {
			fmt.Fprintf(&connString, "&sslrootcert=%s", *sslRootCert)
		}
	} else {
		connString.WriteString("?sslmode=disable")
	}

	pool, err := pgxpool.New(ctx, connString.String())
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.PostgreSQL, host, port,
			fmt.Errorf("%w: error opening connection pool", adapter.ErrConnectionFailed),
		)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, adapter.NewConnectionError(
			dbcapabilities.PostgreSQL, host, port,
			fmt.Errorf("%w: ping failed", adapter.ErrConnectionFailed),
		)
	}

	return pool, nil
}

// Connection implements adapter.Connection for PostgreSQL.
type Connection struct {
	id        string
	pool      *pgxpool.Pool
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
	return dbcapabilities.PostgreSQL
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks if the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes the connection.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	c.pool.Close()
	return nil
}

// SchemaOperations returns the schema operator for PostgreSQL.
func (c *Connection) SchemaOperations() adapter.SchemaOperator {
	return &SchemaOps{conn: c}
}

// DataOperations returns the data operator for PostgreSQL.
func (c *Connection) DataOperations() adapter.DataOperator {
	return &DataOps{conn: c}
}

// MetadataOperations returns the metadata operator for PostgreSQL.
func (c *Connection) MetadataOperations() adapter.MetadataOperator {
	return &MetadataOps{pool: c.pool}
}

// Raw returns the underlying pgxpool.Pool.
func (c *Connection) Raw() interface{} {
	return c.pool
}

// Config returns the connection configuration.
func (c *Connection) Config() adapter.ConnectionConfig {
	return c.config
}

// Adapter returns the database adapter.
func (c *Connection) Adapter() adapter.DatabaseAdapter {
	return c.adapter
}

// InstanceConnection implements adapter.InstanceConnection for PostgreSQL.
type InstanceConnection struct {
	id        string
	pool      *pgxpool.Pool
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
	return dbcapabilities.PostgreSQL
}

// IsConnected returns whether the connection is active.
func (i *InstanceConnection) IsConnected() bool {
	return atomic.LoadInt32(&i.connected) == 1
}

// Ping checks if the connection is alive.
func (i *InstanceConnection) Ping(ctx context.Context) error {
	return i.pool.Ping(ctx)
}

// Close closes the connection.
func (i *InstanceConnection) Close() error {
	atomic.StoreInt32(&i.connected, 0)
	i.pool.Close()
	return nil
}

// ListDatabases lists all non-template databases in the instance.
func (i *InstanceConnection) ListDatabases(ctx context.Context) ([]adapter.DatabaseInfo, error) {
	query := `
		SELECT d.datname,
		       pg_get_userbyid(d.datdba) AS owner,
		       pg_encoding_to_char(d.encoding) AS encoding,
		       CASE WHEN has_database_privilege(d.datname, 'CONNECT')
		            THEN pg_database_size(d.datname) END AS size_bytes
		FROM pg_database d
		WHERE d.datistemplate = false
		ORDER BY d.datname
	`

	rows, err := i.pool.Query(ctx, query)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "list_databases", err)
	}
	defer rows.Close()

	caps := i.adapter.Capabilities()

	var databases []adapter.DatabaseInfo
	for rows.Next() {
		var info adapter.DatabaseInfo
		if err := rows.Scan(&info.Name, &info.Owner, &info.Encoding, &info.SizeBytes); err != nil {
			return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "list_databases", err)
		}
		info.IsSystem = caps.IsSystemDatabase(info.Name)
		databases = append(databases, info)
	}

	return databases, rows.Err()
}

// ConnectToDatabase opens a connection to one database on this instance,
// reusing the instance credentials. The name is validated before it reaches
// the connection string.
func (i *InstanceConnection) ConnectToDatabase(ctx context.Context, name string) (adapter.Connection, error) {
	if err := adapter.ValidateDatabaseName(name); err != nil {
		return nil, err
	}
	return i.adapter.Connect(ctx, i.config.DatabaseConfig(name))
}

// MetadataOperations returns the metadata operator for the instance.
func (i *InstanceConnection) MetadataOperations() adapter.MetadataOperator {
	return &MetadataOps{pool: i.pool}
}

// Raw returns the underlying pgxpool.Pool.
func (i *InstanceConnection) Raw() interface{} {
	return i.pool
}

// Config returns the instance configuration.
func (i *InstanceConnection) Config() adapter.InstanceConfig {
	return i.config
}

// Adapter returns the database adapter.
func (i *InstanceConnection) Adapter() adapter.DatabaseAdapter {
	return i.adapter
}
