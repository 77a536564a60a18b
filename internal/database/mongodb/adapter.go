// Package mongodb implements the database adapter for MongoDB using the
// official v2 driver. Collections are surfaced as tables with a field
// structure inferred from sampled documents.
package mongodb

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

// Adapter implements the adapter.DatabaseAdapter interface for MongoDB.
type Adapter struct{}

// NewAdapter creates a new MongoDB adapter.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MongoDB
}

// Capabilities returns the capabilities metadata for MongoDB.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.MongoDB)
}

// Connect establishes a connection to a MongoDB database.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	client, err := a.connectClient(ctx, config.Host, config.Port, config.Username, config.Password,
		config.DatabaseName, config.SSL, config.SSLCert, config.SSLKey, config.SSLRootCert)
	if err != nil {
		return nil, err
	}

	return &Connection{
		id:        uuid.New().String(),
		client:    client,
		db:        client.Database(config.DatabaseName),
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

// ConnectInstance establishes a server-level connection authenticated against
// the admin database.
func (a *Adapter) ConnectInstance(ctx context.Context, config adapter.InstanceConfig) (adapter.InstanceConnection, error) {
	maintenance := config.DatabaseName
	if maintenance == "" {
		maintenance = "admin"
	}

	client, err := a.connectClient(ctx, config.Host, config.Port, config.Username, config.Password,
		maintenance, config.SSL, config.SSLCert, config.SSLKey, config.SSLRootCert)
	if err != nil {
		return nil, err
	}

	return &InstanceConnection{
		id:        uuid.New().String(),
		client:    client,
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

func (a *Adapter) connectClient(ctx context.Context, host string, port int, username, password, database string,
	ssl bool, sslCert, sslKey, sslRootCert *string) (*mongo.Client, error) {

	var connString strings.Builder
	fmt.Fprintf(&connString, "mongodb://%s:%s@%s:%d/%s?authSource=admin",
		username, password, host, port, database)

	if ssl {
		connString.WriteString("&tls=true")
		if sslCert != nil && *sslCert != "" && sslKey != nil && *sslKey != "" {
			fmt.Fprintf(&connString, "&tlsCertificateKeyFile=%s", *sslCert)
		}
		if sslRootCert != nil && *sslRootCert != "" {
			fmt.Fprintf(&connString, "&tlsCAFile=%s", *sslRootCert)
		}
	} else {
		connString.WriteString("&tls=false")
	}

	clientOptions := options.Client().ApplyURI(connString.String())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.MongoDB, host, port,
			fmt.Errorf("%w: error creating client", adapter.ErrConnectionFailed),
		)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, adapter.NewConnectionError(
			dbcapabilities.MongoDB, host, port,
			fmt.Errorf("%w: ping failed", adapter.ErrConnectionFailed),
		)
	}

	return client, nil
}

// Connection implements adapter.Connection for MongoDB.
type Connection struct {
	id        string
	client    *mongo.Client
	db        *mongo.Database
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
	return dbcapabilities.MongoDB
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks if the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close closes the connection.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	return c.client.Disconnect(context.Background())
}

// SchemaOperations returns the schema operator for MongoDB.
func (c *Connection) SchemaOperations() adapter.SchemaOperator {
	return &SchemaOps{conn: c}
}

// DataOperations returns the data operator for MongoDB.
func (c *Connection) DataOperations() adapter.DataOperator {
	return &DataOps{conn: c}
}

// MetadataOperations returns the metadata operator for MongoDB.
func (c *Connection) MetadataOperations() adapter.MetadataOperator {
	return &MetadataOps{client: c.client, database: c.config.DatabaseName}
}

// Raw returns the underlying mongo.Database.
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

// InstanceConnection implements adapter.InstanceConnection for MongoDB.
type InstanceConnection struct {
	id        string
	client    *mongo.Client
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
	return dbcapabilities.MongoDB
}

// IsConnected returns whether the connection is active.
func (i *InstanceConnection) IsConnected() bool {
	return atomic.LoadInt32(&i.connected) == 1
}

// Ping checks if the connection is alive.
func (i *InstanceConnection) Ping(ctx context.Context) error {
	return i.client.Ping(ctx, readpref.Primary())
}

// Close closes the connection.
func (i *InstanceConnection) Close() error {
	atomic.StoreInt32(&i.connected, 0)
	return i.client.Disconnect(context.Background())
}

// ListDatabases lists all databases visible to the connected principal.
func (i *InstanceConnection) ListDatabases(ctx context.Context) ([]adapter.DatabaseInfo, error) {
	result, err := i.client.ListDatabases(ctx, bson.D{})
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "list_databases", err)
	}

	caps := i.adapter.Capabilities()

	databases := make([]adapter.DatabaseInfo, 0, len(result.Databases))
	for _, spec := range result.Databases {
		size := spec.SizeOnDisk
		databases = append(databases, adapter.DatabaseInfo{
			Name:      spec.Name,
			SizeBytes: &size,
			IsSystem:  caps.IsSystemDatabase(spec.Name),
		})
	}

	return databases, nil
}

// ConnectToDatabase returns a database-scoped connection sharing this
// instance's client. Closing it does not tear down the shared client.
func (i *InstanceConnection) ConnectToDatabase(ctx context.Context, name string) (adapter.Connection, error) {
	if err := adapter.ValidateDatabaseName(name); err != nil {
		return nil, err
	}

	return &sharedConnection{
		Connection: Connection{
			id:        uuid.New().String(),
			client:    i.client,
			db:        i.client.Database(name),
			config:    i.config.DatabaseConfig(name),
			adapter:   i.adapter,
			connected: 1,
		},
	}, nil
}

// MetadataOperations returns the metadata operator for the instance.
func (i *InstanceConnection) MetadataOperations() adapter.MetadataOperator {
	return &MetadataOps{client: i.client}
}

// Raw returns the underlying mongo.Client.
func (i *InstanceConnection) Raw() interface{} {
	return i.client
}

// Config returns the instance configuration.
func (i *InstanceConnection) Config() adapter.InstanceConfig {
	return i.config
}

// Adapter returns the database adapter.
func (i *InstanceConnection) Adapter() adapter.DatabaseAdapter {
	return i.adapter
}

// sharedConnection borrows the instance's client, so Close only marks the
// connection inactive.
type sharedConnection struct {
	Connection
}

func (s *sharedConnection) Close() error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}
