// Package postgres implements the PostgreSQL database adapter.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

const adapterVersion = "1.0.0"

// Adapter implements the adapter.DatabaseAdapter interface for PostgreSQL.
type Adapter struct{}

// NewAdapter creates a new PostgreSQL adapter.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.PostgreSQL
}

// Version returns the adapter implementation version.
func (a *Adapter) Version() string {
	return adapterVersion
}

// Capabilities returns the capabilities metadata for PostgreSQL.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.PostgreSQL)
}

// Connect establishes a connection to a PostgreSQL database.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	password, err := config.ResolvePassword()
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.PostgreSQL,
			config.Host,
			config.Port,
			fmt.Errorf("error decrypting password: %w", err),
		)
	}

	// Build base connection string
	var connString strings.Builder
	fmt.Fprintf(&connString, "postgres://%s:%s@%s/%s",
		config.Username,
		password,
		config.Address(),
		config.DatabaseName)

	// Add SSL configuration
	if config.SSL {
		fmt.Fprintf(&connString, "?sslmode=%s", a.getSslMode(config))

		if adapter.GetString(config.SSLCert) != "" && adapter.GetString(config.SSLKey) != "" {
			fmt.Fprintf(&connString, "&sslcert=%s&sslkey=%s", *config.SSLCert, *config.SSLKey)
		}
		if adapter.GetString(config.SSLRootCert) != "" {
			fmt.Fprintf(&connString, "&sslrootcert=%s", *config.SSLRootCert)
		}
	} else {
		connString.WriteString("?sslmode=disable")
	}

	poolConfig, err := pgxpool.ParseConfig(connString.String())
	if err != nil {
		return nil, adapter.NewConfigurationError(
			dbcapabilities.PostgreSQL,
			"connectionString",
			err.Error(),
		)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(config.MaxIdleConns)
	}

	// Create connection pool
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.PostgreSQL,
			config.Host,
			config.Port,
			fmt.Errorf("error connecting to database: %w", err),
		)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, adapter.NewConnectionError(
			dbcapabilities.PostgreSQL,
			config.Host,
			config.Port,
			fmt.Errorf("error pinging database: %w", err),
		)
	}

	conn := &Connection{
		id:        config.ConnectionID,
		pool:      pool,
		config:    config,
		adapter:   a,
		connected: 1, // Mark as connected
	}

	return conn, nil
}

// getSslMode returns the appropriate SSL mode for the connection
func (a *Adapter) getSslMode(config adapter.ConnectionConfig) string {
	if config.SSLMode != "" {
		return config.SSLMode
	}
	if config.SSLRejectUnauthorized != nil && !*config.SSLRejectUnauthorized {
		return "verify-ca"
	}
	return "verify-full"
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
func (c *Connection) Type() dbcapabilities.DatabaseID {
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
	return &MetadataOps{conn: c}
}

// TransactionOperations returns the transaction operator for PostgreSQL.
func (c *Connection) TransactionOperations() adapter.TransactionOperator {
	return &TxOps{conn: c}
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
