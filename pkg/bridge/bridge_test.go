package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/config"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// fakeEngine is an in-memory adapter whose operators record calls.
type fakeEngine struct {
	dbType     dbcapabilities.DatabaseID
	connectErr error
	pingErr    error

	schema *fakeSchemaOps
	data   *fakeDataOps
	meta   *fakeMetaOps
	tx     *fakeTxOps
}

func newFakeEngine(dbType dbcapabilities.DatabaseID) *fakeEngine {
	return &fakeEngine{
		dbType: dbType,
		schema: &fakeSchemaOps{tables: []string{"orders", "users"}},
		data:   &fakeDataOps{},
		meta:   &fakeMetaOps{version: "9.9-test"},
		tx:     &fakeTxOps{},
	}
}

func (e *fakeEngine) Type() dbcapabilities.DatabaseID { return e.dbType }
func (e *fakeEngine) Version() string                 { return "0.0.0-test" }

func (e *fakeEngine) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(e.dbType)
}

func (e *fakeEngine) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if e.connectErr != nil {
		return nil, e.connectErr
	}
	return &fakeConn{id: config.ConnectionID, engine: e, config: config}, nil
}

type fakeConn struct {
	id     string
	engine *fakeEngine
	config adapter.ConnectionConfig
	closed bool
}

func (c *fakeConn) ID() string                      { return c.id }
func (c *fakeConn) Type() dbcapabilities.DatabaseID { return c.engine.dbType }
func (c *fakeConn) IsConnected() bool               { return !c.closed }
func (c *fakeConn) Ping(ctx context.Context) error  { return c.engine.pingErr }
func (c *fakeConn) Close() error                    { c.closed = true; return nil }
func (c *fakeConn) Raw() interface{}                { return nil }

func (c *fakeConn) Config() adapter.ConnectionConfig { return c.config }
func (c *fakeConn) Adapter() adapter.DatabaseAdapter { return c.engine }

func (c *fakeConn) SchemaOperations() adapter.SchemaOperator           { return c.engine.schema }
func (c *fakeConn) DataOperations() adapter.DataOperator               { return c.engine.data }
func (c *fakeConn) MetadataOperations() adapter.MetadataOperator       { return c.engine.meta }
func (c *fakeConn) TransactionOperations() adapter.TransactionOperator { return c.engine.tx }

type fakeSchemaOps struct {
	calls  int
	tables []string
}

func (s *fakeSchemaOps) ListDatabases(ctx context.Context) ([]string, error) {
	s.calls++
	return []string{"app"}, nil
}

func (s *fakeSchemaOps) ListSchemas(ctx context.Context) ([]string, error) {
	s.calls++
	return []string{"public"}, nil
}

func (s *fakeSchemaOps) ListTables(ctx context.Context) ([]string, error) {
	s.calls++
	return s.tables, nil
}

func (s *fakeSchemaOps) GetColumns(ctx context.Context, table string) ([]common.ColumnInfo, error) {
	s.calls++
	return []common.ColumnInfo{{Name: "id", DataType: "bigint", IsPrimaryKey: true}}, nil
}

func (s *fakeSchemaOps) GetIndexes(ctx context.Context, table string) ([]common.IndexInfo, error) {
	s.calls++
	return []common.IndexInfo{{Name: table + "_pkey", Columns: []string{"id"}, IsUnique: true}}, nil
}

func (s *fakeSchemaOps) GetConstraints(ctx context.Context, table string) ([]common.Constraint, error) {
	s.calls++
	return nil, nil
}

func (s *fakeSchemaOps) GetTableStructure(ctx context.Context, table string) (*common.TableStructure, error) {
	s.calls++
	return &common.TableStructure{Name: table}, nil
}

type fakeDataOps struct {
	lastSelect adapter.SelectParams
	execCalls  int
	execErr    error
}

func (d *fakeDataOps) SelectRows(ctx context.Context, params adapter.SelectParams) ([]common.Row, error) {
	d.lastSelect = params
	return []common.Row{{Columns: []string{"id"}, Values: []interface{}{int64(1)}}}, nil
}

func (d *fakeDataOps) InsertRow(ctx context.Context, table string, row common.Row) (int64, error) {
	return 1, nil
}

func (d *fakeDataOps) UpdateRows(ctx context.Context, table string, values map[string]interface{}, filters []adapter.Filter) (int64, error) {
	return 2, nil
}

func (d *fakeDataOps) DeleteRows(ctx context.Context, table string, filters []adapter.Filter) (int64, error) {
	return 3, nil
}

func (d *fakeDataOps) ExecuteQuery(ctx context.Context, query string, args ...interface{}) (*adapter.QueryResult, error) {
	d.execCalls++
	if d.execErr != nil {
		return nil, d.execErr
	}
	return &adapter.QueryResult{Columns: []string{"ok"}, RowsAffected: 1}, nil
}

type fakeMetaOps struct {
	version string
}

func (m *fakeMetaOps) GetVersion(ctx context.Context) (string, error) { return m.version, nil }

func (m *fakeMetaOps) GetUniqueIdentifier(ctx context.Context) (string, error) {
	return "fake-server", nil
}

func (m *fakeMetaOps) CollectServerMetadata(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"uptime_seconds": int64(42)}, nil
}

// fakeTxOps pops one scripted error per Execute call; nil runs the work.
type fakeTxOps struct {
	calls int
	errs  []error
}

func (f *fakeTxOps) Execute(ctx context.Context, work func(tx adapter.Tx) error) error {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	return work(&fakeTx{})
}

type fakeTx struct{}

func (t *fakeTx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return 1, nil
}

func (t *fakeTx) Query(ctx context.Context, query string, args ...interface{}) (*adapter.QueryResult, error) {
	return &adapter.QueryResult{}, nil
}

func newTestManager(engines ...*fakeEngine) *Manager {
	reg := adapter.NewRegistry()
	for _, engine := range engines {
		reg.Register(engine)
	}
	return NewManager(reg, Defaults{DefaultRowLimit: 50})
}

func testConfig(dbType dbcapabilities.DatabaseID) adapter.ConnectionConfig {
	return adapter.ConnectionConfig{
		DatabaseType: dbType,
		Host:         "db.internal",
		Port:         5432,
		Username:     "app",
		Password:     "secret",
		DatabaseName: "orders",
	}
}

func mustConnect(t *testing.T, m *Manager, dbType dbcapabilities.DatabaseID) string {
	t.Helper()
	env := m.Connect(context.Background(), testConfig(dbType))
	require.True(t, env.Success, "connect failed: %+v", env.Error)
	return env.Data.ConnectionID
}

func TestManagerConnectAssignsID(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)

	env := m.Connect(context.Background(), testConfig(dbcapabilities.PostgreSQL))
	require.True(t, env.Success)
	assert.Equal(t, dbcapabilities.PostgreSQL, env.Backend)
	assert.Equal(t, "0.0.0-test", env.AdapterVersion)

	_, err := uuid.Parse(env.Data.ConnectionID)
	assert.NoError(t, err)

	conn, err := m.GetConnection(env.Data.ConnectionID)
	require.NoError(t, err)
	assert.True(t, conn.IsConnected())
}

func TestManagerConnectUnknownBackend(t *testing.T) {
	m := newTestManager()

	env := m.Connect(context.Background(), testConfig(dbcapabilities.PostgreSQL))
	require.False(t, env.Success)
	assert.Equal(t, adapter.CodeNotFound, env.Error.Code)
}

func TestManagerConnectRejectsDuplicateID(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)

	cfg := testConfig(dbcapabilities.PostgreSQL)
	cfg.ConnectionID = "conn-1"
	require.True(t, m.Connect(context.Background(), cfg).Success)

	env := m.Connect(context.Background(), cfg)
	require.False(t, env.Success)
	assert.Equal(t, adapter.CodeInvalidConfiguration, env.Error.Code)
}

func TestManagerDisconnect(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.PostgreSQL)

	env := m.Disconnect(context.Background(), id)
	require.True(t, env.Success)
	assert.Equal(t, id, env.Data.ConnectionID)

	again := m.Disconnect(context.Background(), id)
	require.False(t, again.Success)
	assert.Equal(t, adapter.CodeNotFound, again.Error.Code)
}

func TestManagerTestConnectionNeverFailsOuterCall(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	engine.connectErr = fmt.Errorf("%w: refused", adapter.ErrConnectionFailed)
	m := newTestManager(engine)

	env := m.TestConnection(context.Background(), testConfig(dbcapabilities.PostgreSQL))
	require.True(t, env.Success)
	assert.False(t, env.Data.Success)
	assert.Contains(t, env.Data.Message, "refused")

	engine.connectErr = nil
	env = m.TestConnection(context.Background(), testConfig(dbcapabilities.PostgreSQL))
	require.True(t, env.Success)
	assert.True(t, env.Data.Success)
}

func TestManagerGetStatus(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.PostgreSQL)

	env := m.GetStatus(context.Background(), id)
	require.True(t, env.Success)
	assert.True(t, env.Data.Connected)
	assert.Equal(t, "9.9-test", env.Data.Version)
	assert.Equal(t, int64(42), env.Data.Metadata["uptime_seconds"])
}

func TestManagerStatusReportsPingFailure(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.PostgreSQL)

	engine.pingErr = errors.New("server has gone away")
	env := m.GetStatus(context.Background(), id)
	require.True(t, env.Success)
	assert.False(t, env.Data.Connected)
	assert.Contains(t, env.Data.Message, "gone away")
}

func TestManagerSchemaOperations(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.PostgreSQL)

	tables := m.ListTables(context.Background(), id)
	require.True(t, tables.Success)
	assert.Equal(t, []string{"orders", "users"}, tables.Data)

	structure := m.GetTableStructure(context.Background(), id, "users")
	require.True(t, structure.Success)
	assert.Equal(t, "users", structure.Data.Name)
}

func TestManagerCapabilityGate(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.Redis)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.Redis)

	env := m.ListSchemas(context.Background(), id)
	require.False(t, env.Success)
	assert.Equal(t, adapter.CodeUnsupportedOperation, env.Error.Code)
	assert.Contains(t, env.Error.Message, "keyspace is flat")

	indexes := m.GetIndexes(context.Background(), id, "users")
	require.False(t, indexes.Success)
	assert.Equal(t, adapter.CodeUnsupportedOperation, indexes.Error.Code)

	// The gate fires before the engine is touched.
	assert.Zero(t, engine.schema.calls)
}

func TestManagerUnknownConnection(t *testing.T) {
	m := newTestManager(newFakeEngine(dbcapabilities.PostgreSQL))

	env := m.ListTables(context.Background(), "missing")
	require.False(t, env.Success)
	assert.Equal(t, adapter.CodeNotFound, env.Error.Code)
}

func TestManagerSelectRowsAppliesDefaultLimit(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.PostgreSQL)

	env := m.SelectRows(context.Background(), id, adapter.SelectParams{Table: "users"})
	require.True(t, env.Success)
	assert.Equal(t, 50, engine.data.lastSelect.Limit)

	env = m.SelectRows(context.Background(), id, adapter.SelectParams{Table: "users", Limit: 5})
	require.True(t, env.Success)
	assert.Equal(t, 5, engine.data.lastSelect.Limit)
}

func TestManagerExecuteQueryBlocksDestructiveStatements(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.PostgreSQL)

	env := m.ExecuteQuery(context.Background(), id, ExecuteQueryRequest{
		Query: "DROP TABLE users;",
	})
	require.False(t, env.Success)
	assert.Equal(t, CodeDestructiveBlocked, env.Error.Code)
	assert.Contains(t, env.Error.Message, `drop_table "users"`)
	assert.Nil(t, env.Data)
	assert.Zero(t, engine.data.execCalls)

	acked := m.ExecuteQuery(context.Background(), id, ExecuteQueryRequest{
		Query:                  "DROP TABLE users;",
		AcknowledgeDestructive: true,
	})
	require.True(t, acked.Success)
	assert.Equal(t, 1, engine.data.execCalls)
}

func TestManagerExecuteQueryPassesPlainStatements(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.PostgreSQL)

	env := m.ExecuteQuery(context.Background(), id, ExecuteQueryRequest{
		Query: "SELECT * FROM users WHERE id = $1",
		Args:  []interface{}{1},
	})
	require.True(t, env.Success)
	assert.Equal(t, int64(1), env.Data.RowsAffected)
	assert.Equal(t, 1, engine.data.execCalls)
}

func TestManagerExecuteQueryGatedOnRawSQL(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.Redis)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.Redis)

	env := m.ExecuteQuery(context.Background(), id, ExecuteQueryRequest{Query: "SELECT 1"})
	require.False(t, env.Success)
	assert.Equal(t, adapter.CodeUnsupportedOperation, env.Error.Code)
	assert.Zero(t, engine.data.execCalls)
}

func TestManagerAnalyzeQuery(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.PostgreSQL)

	env := m.AnalyzeQuery(id, "TRUNCATE TABLE sessions; SELECT 1;")
	require.True(t, env.Success)
	assert.True(t, env.Data.HasDestructiveOperations)
	require.Len(t, env.Data.Operations, 1)
	assert.Equal(t, "sessions", env.Data.Operations[0].ObjectName)

	clean := m.AnalyzeQuery(id, "SELECT * FROM users")
	require.True(t, clean.Success)
	assert.False(t, clean.Data.HasDestructiveOperations)
}

func TestManagerTransactionRetries(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	engine.tx.errs = []error{fmt.Errorf("%w: broken pipe", adapter.ErrConnectionFailed)}
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.PostgreSQL)

	env := m.Transaction(context.Background(), id, 3, func(tx adapter.Tx) error {
		_, err := tx.Exec(context.Background(), "UPDATE accounts SET balance = balance - 1")
		return err
	})
	require.True(t, env.Success)
	assert.True(t, env.Data.Committed)
	assert.Equal(t, 2, engine.tx.calls)
}

func TestManagerTransactionGated(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.Redis)
	m := newTestManager(engine)
	id := mustConnect(t, m, dbcapabilities.Redis)

	env := m.Transaction(context.Background(), id, 3, func(tx adapter.Tx) error { return nil })
	require.False(t, env.Success)
	assert.Equal(t, adapter.CodeUnsupportedOperation, env.Error.Code)
	assert.Zero(t, engine.tx.calls)
}

func TestDefaultsFromConfig(t *testing.T) {
	assert.Equal(t, Defaults{DefaultRowLimit: 1000}, DefaultsFromConfig(nil))

	cfg := config.New()
	cfg.Set("defaults.row_limit", "250")
	cfg.Set("defaults.max_open_conns", "20")

	defaults := DefaultsFromConfig(cfg)
	assert.Equal(t, 250, defaults.DefaultRowLimit)
	assert.Equal(t, 20, defaults.MaxOpenConns)
	assert.Zero(t, defaults.MaxIdleConns)
}

func TestManagerListConnectionsAndCloseAll(t *testing.T) {
	engine := newFakeEngine(dbcapabilities.PostgreSQL)
	m := newTestManager(engine)

	cfg := testConfig(dbcapabilities.PostgreSQL)
	cfg.ConnectionID = "b-conn"
	require.True(t, m.Connect(context.Background(), cfg).Success)
	cfg.ConnectionID = "a-conn"
	require.True(t, m.Connect(context.Background(), cfg).Success)

	assert.Equal(t, []string{"a-conn", "b-conn"}, m.ListConnections())

	require.NoError(t, m.CloseAll())
	assert.Empty(t, m.ListConnections())
}
