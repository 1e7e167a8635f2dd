package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// fakeAdapter is a minimal in-memory adapter for registry tests.
type fakeAdapter struct {
	dbType     dbcapabilities.DatabaseID
	connectErr error
	connected  int
}

func newFakeAdapter(dbType dbcapabilities.DatabaseID) *fakeAdapter {
	return &fakeAdapter{dbType: dbType}
}

func (a *fakeAdapter) Type() dbcapabilities.DatabaseID { return a.dbType }
func (a *fakeAdapter) Version() string                 { return "0.0.0-test" }

func (a *fakeAdapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(a.dbType)
}

func (a *fakeAdapter) Connect(ctx context.Context, config ConnectionConfig) (Connection, error) {
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	a.connected++
	return &fakeConn{id: config.ConnectionID, adapter: a, config: config}, nil
}

// fakeConn backs every operator group with the unsupported null objects.
type fakeConn struct {
	id      string
	adapter *fakeAdapter
	config  ConnectionConfig
	closed  bool
}

func (c *fakeConn) ID() string                      { return c.id }
func (c *fakeConn) Type() dbcapabilities.DatabaseID { return c.adapter.dbType }
func (c *fakeConn) IsConnected() bool               { return !c.closed }
func (c *fakeConn) Ping(ctx context.Context) error  { return nil }
func (c *fakeConn) Close() error                    { c.closed = true; return nil }
func (c *fakeConn) Raw() interface{}                { return nil }
func (c *fakeConn) Config() ConnectionConfig        { return c.config }
func (c *fakeConn) Adapter() DatabaseAdapter        { return c.adapter }

func (c *fakeConn) SchemaOperations() SchemaOperator {
	return NewUnsupportedSchemaOperator(c.adapter.dbType, "not implemented in tests")
}

func (c *fakeConn) DataOperations() DataOperator {
	return NewUnsupportedDataOperator(c.adapter.dbType, "not implemented in tests")
}

func (c *fakeConn) MetadataOperations() MetadataOperator {
	return NewUnsupportedMetadataOperator(c.adapter.dbType, "not implemented in tests")
}

func (c *fakeConn) TransactionOperations() TransactionOperator {
	return NewUnsupportedTransactionOperator(c.adapter.dbType, "not implemented in tests")
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	pg := newFakeAdapter(dbcapabilities.PostgreSQL)
	reg.Register(pg)

	got, err := reg.Get(dbcapabilities.PostgreSQL)
	require.NoError(t, err)
	assert.Same(t, pg, got)

	_, err = reg.Get(dbcapabilities.MySQL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAdapterNotFound))

	assert.True(t, reg.Registered(dbcapabilities.PostgreSQL))
	assert.False(t, reg.Registered(dbcapabilities.MySQL))
}

func TestRegistryListSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newFakeAdapter(dbcapabilities.Redis))
	reg.Register(newFakeAdapter(dbcapabilities.MySQL))
	reg.Register(newFakeAdapter(dbcapabilities.PostgreSQL))

	assert.Equal(t, []dbcapabilities.DatabaseID{
		dbcapabilities.MySQL,
		dbcapabilities.PostgreSQL,
		dbcapabilities.Redis,
	}, reg.List())
}

func TestRegistryGetCapabilities(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newFakeAdapter(dbcapabilities.PostgreSQL))

	caps, err := reg.GetCapabilities(dbcapabilities.PostgreSQL)
	require.NoError(t, err)
	assert.Equal(t, dbcapabilities.PostgreSQL, caps.ID)
	assert.True(t, caps.Supports(dbcapabilities.CapTransactions))

	_, err = reg.GetCapabilities(dbcapabilities.MongoDB)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAdapterNotFound))
}

func TestRegistryHasCapabilityNeverFails(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newFakeAdapter(dbcapabilities.Redis))

	assert.True(t, reg.HasCapability(dbcapabilities.Redis, dbcapabilities.CapPooling))
	assert.False(t, reg.HasCapability(dbcapabilities.Redis, dbcapabilities.CapTransactions))

	// Unregistered backends and unknown capabilities report false, never an error.
	assert.False(t, reg.HasCapability(dbcapabilities.PostgreSQL, dbcapabilities.CapTransactions))
	assert.False(t, reg.HasCapability("oracle", dbcapabilities.CapTransactions))
	assert.False(t, reg.HasCapability(dbcapabilities.Redis, "time-travel"))
}

func TestRegistryConnect(t *testing.T) {
	reg := NewRegistry()
	pg := newFakeAdapter(dbcapabilities.PostgreSQL)
	reg.Register(pg)

	cfg := validConfig()
	cfg.ConnectionID = "conn-1"

	conn, err := reg.Connect(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "conn-1", conn.ID())
	assert.Equal(t, dbcapabilities.PostgreSQL, conn.Type())
	assert.True(t, conn.IsConnected())
	assert.Equal(t, 1, pg.connected)

	require.NoError(t, conn.Close())
	assert.False(t, conn.IsConnected())
}

func TestRegistryConnectValidatesFirst(t *testing.T) {
	reg := NewRegistry()
	pg := newFakeAdapter(dbcapabilities.PostgreSQL)
	reg.Register(pg)

	cfg := validConfig()
	cfg.Host = ""

	_, err := reg.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Zero(t, pg.connected)
}

func TestRegistryConnectUnknownAdapter(t *testing.T) {
	reg := NewRegistry()

	cfg := validConfig()
	cfg.DatabaseType = dbcapabilities.MySQL

	_, err := reg.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAdapterNotFound))
}

func TestUnsupportedOperatorsAlwaysFail(t *testing.T) {
	conn := &fakeConn{adapter: newFakeAdapter(dbcapabilities.Redis)}

	_, err := conn.SchemaOperations().GetConstraints(context.Background(), "users")
	assert.True(t, IsUnsupported(err))

	_, err = conn.DataOperations().ExecuteQuery(context.Background(), "SELECT 1")
	assert.True(t, IsUnsupported(err))

	_, err = conn.MetadataOperations().GetVersion(context.Background())
	assert.True(t, IsUnsupported(err))

	err = conn.TransactionOperations().Execute(context.Background(), func(tx Tx) error { return nil })
	assert.True(t, IsUnsupported(err))

	assert.True(t, IsUnsupportedOperator(conn.TransactionOperations()))
	assert.False(t, IsUnsupportedOperator(struct{}{}))
}
