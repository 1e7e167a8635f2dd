package bridge

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// ConnectResult identifies a connection the manager now holds.
type ConnectResult struct {
	ConnectionID   string                    `json:"connectionId"`
	Backend        dbcapabilities.DatabaseID `json:"backend"`
	AdapterVersion string                    `json:"adapterVersion"`
}

// DisconnectResult reports a closed connection.
type DisconnectResult struct {
	ConnectionID string `json:"connectionId"`
}

// TestConnectionResult carries the outcome of a connectivity probe. The
// envelope around it succeeds even when the probe fails.
type TestConnectionResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latencyMs,omitempty"`
}

// StatusResult is a health report for one live connection.
type StatusResult struct {
	ConnectionID string                    `json:"connectionId"`
	Backend      dbcapabilities.DatabaseID `json:"backend"`
	Connected    bool                      `json:"connected"`
	Version      string                    `json:"version,omitempty"`
	Message      string                    `json:"message,omitempty"`
	Metadata     map[string]interface{}    `json:"metadata,omitempty"`
}

// Connect opens a connection and registers it under its ID. An empty
// ConnectionID gets a generated UUID.
func (m *Manager) Connect(ctx context.Context, cfg adapter.ConnectionConfig) adapter.Envelope[ConnectResult] {
	backend := cfg.DatabaseType
	a, err := m.registry.Get(backend)
	if err != nil {
		return adapter.FailWith[ConnectResult](backend, "", err)
	}
	version := a.Version()

	return adapter.Execute(backend, version, func() (ConnectResult, error) {
		if cfg.ConnectionID == "" {
			cfg.ConnectionID = uuid.New().String()
		}
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = m.defaults.MaxOpenConns
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = m.defaults.MaxIdleConns
		}

		conn, err := m.registry.Connect(ctx, cfg)
		if err != nil {
			m.safeLog("error", "connection to %s at %s failed: %v", backend, cfg.Address(), err)
			return ConnectResult{}, err
		}

		m.mu.Lock()
		if _, exists := m.connections[cfg.ConnectionID]; exists {
			m.mu.Unlock()
			conn.Close()
			return ConnectResult{}, adapter.NewConfigurationError(backend, "connectionId",
				"connection ID is already in use")
		}
		m.connections[cfg.ConnectionID] = conn
		m.mu.Unlock()

		m.safeLog("info", "connected %s (%s at %s)", cfg.ConnectionID, backend, cfg.Address())
		return ConnectResult{
			ConnectionID:   cfg.ConnectionID,
			Backend:        backend,
			AdapterVersion: version,
		}, nil
	})
}

// Disconnect closes a connection and forgets it.
func (m *Manager) Disconnect(ctx context.Context, connectionID string) adapter.Envelope[DisconnectResult] {
	m.mu.Lock()
	conn, ok := m.connections[connectionID]
	if ok {
		delete(m.connections, connectionID)
	}
	m.mu.Unlock()

	if !ok {
		return adapter.FailWith[DisconnectResult]("", "",
			adapter.NewNotFoundError("", "connection", connectionID))
	}

	return adapter.Execute(conn.Type(), conn.Adapter().Version(), func() (DisconnectResult, error) {
		if err := conn.Close(); err != nil {
			return DisconnectResult{}, err
		}
		m.safeLog("info", "disconnected %s", connectionID)
		return DisconnectResult{ConnectionID: connectionID}, nil
	})
}

// TestConnection probes connectivity without keeping the connection. The
// outer envelope never fails: a failed probe is a successful envelope
// whose payload reports the failure.
func (m *Manager) TestConnection(ctx context.Context, cfg adapter.ConnectionConfig) adapter.Envelope[TestConnectionResult] {
	backend := cfg.DatabaseType
	version := ""
	if a, err := m.registry.Get(backend); err == nil {
		version = a.Version()
	}

	return adapter.Execute(backend, version, func() (TestConnectionResult, error) {
		start := time.Now()
		conn, err := m.registry.Connect(ctx, cfg)
		if err != nil {
			return TestConnectionResult{Success: false, Message: err.Error()}, nil
		}
		defer conn.Close()

		if err := conn.Ping(ctx); err != nil {
			return TestConnectionResult{Success: false, Message: err.Error()}, nil
		}
		return TestConnectionResult{
			Success:   true,
			Message:   "connection successful",
			LatencyMs: time.Since(start).Milliseconds(),
		}, nil
	})
}

// GetStatus reports health and server metadata for a live connection.
// Metadata collection is best-effort; only an unknown connection fails.
func (m *Manager) GetStatus(ctx context.Context, connectionID string) adapter.Envelope[StatusResult] {
	return run(m, connectionID, "get_status", func(conn adapter.Connection) (StatusResult, error) {
		status := StatusResult{
			ConnectionID: connectionID,
			Backend:      conn.Type(),
			Connected:    conn.IsConnected(),
		}

		if err := conn.Ping(ctx); err != nil {
			status.Connected = false
			status.Message = err.Error()
			return status, nil
		}

		meta := conn.MetadataOperations()
		if version, err := meta.GetVersion(ctx); err == nil {
			status.Version = version
		}
		if metadata, err := meta.CollectServerMetadata(ctx); err == nil {
			status.Metadata = metadata
		}
		return status, nil
	})
}
