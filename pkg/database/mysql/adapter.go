// Package mysql implements the MySQL database adapter.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	// Registers the "mysql" driver with database/sql.
	_ "github.com/go-sql-driver/mysql"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

const adapterVersion = "1.0.0"

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
)

// Adapter implements the adapter.DatabaseAdapter interface for MySQL.
type Adapter struct{}

// NewAdapter creates a new MySQL adapter.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.MySQL
}

// Version returns the adapter implementation version.
func (a *Adapter) Version() string {
	return adapterVersion
}

// Capabilities returns the capabilities metadata for MySQL.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.MySQL)
}

// Connect establishes a connection to a MySQL database.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	password, err := config.ResolvePassword()
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.MySQL,
			config.Host,
			config.Port,
			fmt.Errorf("error decrypting password: %w", err),
		)
	}

	var tlsMode string
	if config.SSL {
		if config.SSLRejectUnauthorized != nil && !*config.SSLRejectUnauthorized {
			tlsMode = "skip-verify"
		} else {
			tlsMode = "true"
		}
	} else {
		tlsMode = "false"
	}

	// parseTime makes the driver return time.Time for DATE/DATETIME columns.
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?tls=%s&parseTime=true",
		config.Username, password, config.Address(), config.DatabaseName, tlsMode)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, adapter.NewConnectionError(
			dbcapabilities.MySQL,
			config.Host,
			config.Port,
			fmt.Errorf("failed to open MySQL connection: %w", err),
		)
	}

	maxOpen := defaultMaxOpenConns
	if config.MaxOpenConns > 0 {
		maxOpen = config.MaxOpenConns
	}
	maxIdle := defaultMaxIdleConns
	if config.MaxIdleConns > 0 {
		maxIdle = config.MaxIdleConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, adapter.NewConnectionError(
			dbcapabilities.MySQL,
			config.Host,
			config.Port,
			fmt.Errorf("failed to ping MySQL database: %w", err),
		)
	}

	conn := &Connection{
		id:        config.ConnectionID,
		db:        db,
		config:    config,
		adapter:   a,
		connected: 1, // Mark as connected
	}

	return conn, nil
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
func (c *Connection) Type() dbcapabilities.DatabaseID {
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
	return &MetadataOps{conn: c}
}

// TransactionOperations returns the transaction operator for MySQL.
func (c *Connection) TransactionOperations() adapter.TransactionOperator {
	return &TxOps{conn: c}
}

// Raw returns the underlying *sql.DB.
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
