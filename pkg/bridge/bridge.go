// Package bridge exposes the adapter family as one envelope-returning
// service surface: the component an external RPC layer calls. It owns the
// live connections, applies the capability gate before touching an engine,
// and blocks destructive statements until the caller acknowledges them.
package bridge

import (
	"sort"
	"sync"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/config"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
	"github.com/tvgelderen/dbbridge/pkg/logger"
)

// Defaults are the tunables the bridge applies when a request leaves them
// unset.
type Defaults struct {
	// DefaultRowLimit caps SelectRows calls that carry no limit.
	DefaultRowLimit int
	// MaxOpenConns and MaxIdleConns seed connection configs without
	// explicit pool sizing. Zero keeps the engine default.
	MaxOpenConns int
	MaxIdleConns int
}

// DefaultsFromConfig reads the bridge tunables from a config map.
func DefaultsFromConfig(cfg *config.Config) Defaults {
	if cfg == nil {
		return Defaults{DefaultRowLimit: 1000}
	}
	return Defaults{
		DefaultRowLimit: cfg.GetInt("defaults.row_limit", 1000),
		MaxOpenConns:    cfg.GetInt("defaults.max_open_conns", 0),
		MaxIdleConns:    cfg.GetInt("defaults.max_idle_conns", 0),
	}
}

// Manager holds live database connections and serves the operation
// surface against them.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]adapter.Connection
	registry    *adapter.Registry
	defaults    Defaults
	logger      *logger.Logger
}

// NewManager creates a Manager backed by the given registry. A nil
// registry means the global one the engine packages register into.
func NewManager(registry *adapter.Registry, defaults Defaults) *Manager {
	if registry == nil {
		registry = adapter.DefaultRegistry()
	}
	return &Manager{
		connections: make(map[string]adapter.Connection),
		registry:    registry,
		defaults:    defaults,
	}
}

// SetLogger attaches a logger for operation logging.
func (m *Manager) SetLogger(l *logger.Logger) {
	m.logger = l
}

// GetConnection returns a live connection by ID, for in-process callers
// that need direct adapter access.
func (m *Manager) GetConnection(connectionID string) (adapter.Connection, error) {
	return m.connection(connectionID)
}

// ListConnections returns the IDs of all live connections, sorted.
func (m *Manager) ListConnections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll closes every live connection. The first close error is
// returned, but every connection is closed regardless.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	connections := m.connections
	m.connections = make(map[string]adapter.Connection)
	m.mu.Unlock()

	var firstErr error
	for id, conn := range connections {
		if err := conn.Close(); err != nil {
			m.safeLog("error", "error closing connection %s: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Manager) connection(connectionID string) (adapter.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.connections[connectionID]
	if !ok {
		return nil, adapter.NewNotFoundError("", "connection", connectionID)
	}
	return conn, nil
}

// capabilityCheck returns an UnsupportedOperationError when the backend
// lacks the capability, carrying the registered reason.
func (m *Manager) capabilityCheck(conn adapter.Connection, operation string, capID dbcapabilities.CapabilityID) error {
	if m.registry.HasCapability(conn.Type(), capID) {
		return nil
	}
	reason := "not supported by this backend"
	if capability, ok := dbcapabilities.Get(conn.Type()); ok {
		if r, ok := capability.UnsupportedReason(capID); ok {
			reason = r
		}
	}
	return adapter.NewUnsupportedOperationError(conn.Type(), operation, reason)
}

func (m *Manager) safeLog(level string, format string, args ...interface{}) {
	if m.logger == nil {
		return
	}
	switch level {
	case "debug":
		m.logger.Debugf(format, args...)
	case "info":
		m.logger.Infof(format, args...)
	case "warn":
		m.logger.Warnf(format, args...)
	case "error":
		m.logger.Errorf(format, args...)
	}
}

// run resolves a connection and executes work under an envelope.
// Free functions because methods cannot introduce type parameters.
func run[T any](m *Manager, connectionID string, operation string, work func(conn adapter.Connection) (T, error)) adapter.Envelope[T] {
	conn, err := m.connection(connectionID)
	if err != nil {
		return adapter.FailWith[T]("", "", err)
	}
	return execute(m, conn, operation, work)
}

// runGated is run with a capability gate checked before the engine is
// touched.
func runGated[T any](m *Manager, connectionID string, operation string, capID dbcapabilities.CapabilityID, work func(conn adapter.Connection) (T, error)) adapter.Envelope[T] {
	conn, err := m.connection(connectionID)
	if err != nil {
		return adapter.FailWith[T]("", "", err)
	}
	if err := m.capabilityCheck(conn, operation, capID); err != nil {
		return adapter.FailWith[T](conn.Type(), conn.Adapter().Version(), err)
	}
	return execute(m, conn, operation, work)
}

func execute[T any](m *Manager, conn adapter.Connection, operation string, work func(conn adapter.Connection) (T, error)) adapter.Envelope[T] {
	m.safeLog("debug", "%s on connection %s (%s)", operation, conn.ID(), conn.Type())
	return adapter.Execute(conn.Type(), conn.Adapter().Version(), func() (T, error) {
		return work(conn)
	})
}
