// Package mongodb implements the MongoDB database adapter.
package mongodb

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

const adapterVersion = "1.0.0"

// disconnectTimeout bounds Close; the adapter.Connection interface has no
// context parameter there.
const disconnectTimeout = 10 * time.Second

// Adapter implements the adapter.DatabaseAdapter interface for MongoDB.
type Adapter struct{}

// NewAdapter creates a new MongoDB adapter.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.MongoDB
}

// Version returns the adapter implementation version.
func (a *Adapter) Version() string {
	return adapterVersion
}

// Capabilities returns the capabilities metadata for MongoDB.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.MongoDB)
}

// Connect establishes a connection to a MongoDB database.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	password, err := config.ResolvePassword()
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.MongoDB,
			config.Host,
			config.Port,
			fmt.Errorf("error decrypting password: %w", err),
		)
	}

	// Build base connection string. SRV URIs carry no port; the driver
	// resolves the seed list from DNS.
	var connString strings.Builder
	if config.Options["srv"] == "true" {
		fmt.Fprintf(&connString, "mongodb+srv://%s:%s@%s/%s?authSource=admin",
			config.Username,
			password,
			config.Host,
			config.DatabaseName)
	} else {
		fmt.Fprintf(&connString, "mongodb://%s:%s@%s/%s?authSource=admin",
			config.Username,
			password,
			config.Address(),
			config.DatabaseName)
	}

	// Add SSL configuration
	if config.SSL {
		connString.WriteString("&tls=true")

		if adapter.GetString(config.SSLCert) != "" && adapter.GetString(config.SSLKey) != "" {
			fmt.Fprintf(&connString, "&tlsCertificateKeyFile=%s", *config.SSLCert)
		}
		if adapter.GetString(config.SSLRootCert) != "" {
			fmt.Fprintf(&connString, "&tlsCAFile=%s", *config.SSLRootCert)
		}
		if config.SSLRejectUnauthorized != nil && !*config.SSLRejectUnauthorized {
			connString.WriteString("&tlsInsecure=true")
		}
	} else if config.Options["srv"] != "true" {
		connString.WriteString("&tls=false")
	}

	clientOptions := options.Client().ApplyURI(connString.String())
	if config.MaxOpenConns > 0 {
		clientOptions.SetMaxPoolSize(uint64(config.MaxOpenConns))
	}
	if config.MaxIdleConns > 0 {
		clientOptions.SetMinPoolSize(uint64(config.MaxIdleConns))
	}

	// In driver v2, Connect handles both client creation and connection.
	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.MongoDB,
			config.Host,
			config.Port,
			fmt.Errorf("error connecting to database: %w", err),
		)
	}

	// Test the connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		client.Disconnect(disconnectCtx)
		return nil, adapter.NewConnectionError(
			dbcapabilities.MongoDB,
			config.Host,
			config.Port,
			fmt.Errorf("error pinging database: %w", err),
		)
	}

	conn := &Connection{
		id:        config.ConnectionID,
		client:    client,
		db:        client.Database(config.DatabaseName),
		config:    config,
		adapter:   a,
		connected: 1, // Mark as connected
	}

	return conn, nil
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
func (c *Connection) Type() dbcapabilities.DatabaseID {
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
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
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
	return &MetadataOps{conn: c}
}

// TransactionOperations returns the transaction operator for MongoDB.
// Multi-document transactions need a replica set, which the adapter does
// not assume, so every call reports the operation as unsupported.
func (c *Connection) TransactionOperations() adapter.TransactionOperator {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.MongoDB).UnsupportedReason(dbcapabilities.CapTransactions)
	return adapter.NewUnsupportedTransactionOperator(dbcapabilities.MongoDB, reason)
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
