// Package redis implements the Redis database adapter.
//
// Redis has no tables; the adapter maps a table name onto the key prefix
// "<table>:" and represents every key as a row with the fixed columns
// key, type, ttl and value.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

const adapterVersion = "1.0.0"

// Adapter implements the adapter.DatabaseAdapter interface for Redis.
type Adapter struct{}

// NewAdapter creates a new Redis adapter.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Redis
}

// Version returns the adapter implementation version.
func (a *Adapter) Version() string {
	return adapterVersion
}

// Capabilities returns the capabilities metadata for Redis.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Redis)
}

// Connect establishes a connection to a Redis database.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	password, err := config.ResolvePassword()
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.Redis,
			config.Host,
			config.Port,
			fmt.Errorf("error decrypting password: %w", err),
		)
	}

	options := &redis.Options{
		Addr:     config.Address(),
		Username: config.Username,
		Password: password,
		DB:       0, // Default database
	}

	// The database name selects the numeric keyspace.
	if config.DatabaseName != "" {
		dbIndex, err := strconv.Atoi(config.DatabaseName)
		if err != nil || dbIndex < 0 {
			return nil, adapter.NewConfigurationError(
				dbcapabilities.Redis,
				"databaseName",
				"redis database must be a non-negative integer",
			)
		}
		options.DB = dbIndex
	}

	if config.MaxOpenConns > 0 {
		options.PoolSize = config.MaxOpenConns
	}
	if config.MaxIdleConns > 0 {
		options.MinIdleConns = config.MaxIdleConns
	}

	// Configure TLS if SSL is enabled
	if config.SSL {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}

		if adapter.GetString(config.SSLCert) != "" && adapter.GetString(config.SSLKey) != "" {
			cert, err := tls.LoadX509KeyPair(*config.SSLCert, *config.SSLKey)
			if err != nil {
				return nil, adapter.NewConfigurationError(
					dbcapabilities.Redis,
					"sslCert",
					fmt.Sprintf("error loading client certificates: %v", err),
				)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}

		if config.SSLRejectUnauthorized != nil {
			tlsConfig.InsecureSkipVerify = !*config.SSLRejectUnauthorized
		}

		options.TLSConfig = tlsConfig
	}

	client := redis.NewClient(options)

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, adapter.NewConnectionError(
			dbcapabilities.Redis,
			config.Host,
			config.Port,
			fmt.Errorf("error pinging database: %w", err),
		)
	}

	conn := &Connection{
		id:        config.ConnectionID,
		client:    client,
		config:    config,
		adapter:   a,
		connected: 1, // Mark as connected
	}

	return conn, nil
}

// Connection implements adapter.Connection for Redis.
type Connection struct {
	id        string
	client    *redis.Client
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
	return dbcapabilities.Redis
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks if the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	return c.client.Close()
}

// SchemaOperations returns the schema operator for Redis.
func (c *Connection) SchemaOperations() adapter.SchemaOperator {
	return &SchemaOps{conn: c}
}

// DataOperations returns the data operator for Redis.
func (c *Connection) DataOperations() adapter.DataOperator {
	return &DataOps{conn: c}
}

// MetadataOperations returns the metadata operator for Redis.
func (c *Connection) MetadataOperations() adapter.MetadataOperator {
	return &MetadataOps{conn: c}
}

// TransactionOperations returns the transaction operator for Redis.
// MULTI/EXEC cannot run interactive transactional work, so every call
// reports the operation as unsupported.
func (c *Connection) TransactionOperations() adapter.TransactionOperator {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.Redis).UnsupportedReason(dbcapabilities.CapTransactions)
	return adapter.NewUnsupportedTransactionOperator(dbcapabilities.Redis, reason)
}

// Raw returns the underlying redis.Client.
func (c *Connection) Raw() interface{} {
	return c.client
}

// Config returns the connection configuration.
func (c *Connection) Config() adapter.ConnectionConfig {
	return c.config
}

// Adapter returns the database adapter.
func (c *Connection) Adapter() adapter.DatabaseAdapter {
	return c.adapter
}
