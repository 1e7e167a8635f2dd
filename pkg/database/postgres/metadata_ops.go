package postgres

import (
	"context"
	"strconv"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// MetadataOps implements adapter.MetadataOperator for PostgreSQL.
type MetadataOps struct {
	conn *Connection
}

// GetVersion returns the PostgreSQL version.
func (m *MetadataOps) GetVersion(ctx context.Context) (string, error) {
	var version string
	err := m.conn.pool.QueryRow(ctx, "SELECT version()").Scan(&version)
	if err != nil {
		return "", adapter.WrapError(dbcapabilities.PostgreSQL, "get_version", err)
	}
	return version, nil
}

// GetUniqueIdentifier returns the unique identifier for the PostgreSQL instance.
func (m *MetadataOps) GetUniqueIdentifier(ctx context.Context) (string, error) {
	var identifier string
	err := m.conn.pool.QueryRow(ctx, "SELECT system_identifier::text FROM pg_control_system()").Scan(&identifier)
	if err != nil {
		return "", adapter.WrapError(dbcapabilities.PostgreSQL, "get_unique_identifier", err)
	}
	return identifier, nil
}

// CollectServerMetadata collects metadata about the server and database.
func (m *MetadataOps) CollectServerMetadata(ctx context.Context) (map[string]interface{}, error) {
	metadata := make(map[string]interface{})

	var version string
	if err := m.conn.pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "collect_server_metadata", err)
	}
	metadata["version"] = version

	var sizeBytes int64
	if err := m.conn.pool.QueryRow(ctx, "SELECT pg_database_size(current_database())").Scan(&sizeBytes); err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "collect_server_metadata", err)
	}
	metadata["size_bytes"] = sizeBytes

	var tablesCount int
	err := m.conn.pool.QueryRow(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public'").Scan(&tablesCount)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "collect_server_metadata", err)
	}
	metadata["tables_count"] = tablesCount

	var uptimeSeconds int64
	err = m.conn.pool.QueryRow(ctx,
		"SELECT EXTRACT(EPOCH FROM (now() - pg_postmaster_start_time()))::bigint").Scan(&uptimeSeconds)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "collect_server_metadata", err)
	}
	metadata["uptime_seconds"] = uptimeSeconds

	var totalConnections int
	err = m.conn.pool.QueryRow(ctx, "SELECT count(*) FROM pg_stat_activity").Scan(&totalConnections)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "collect_server_metadata", err)
	}
	metadata["total_connections"] = totalConnections

	var maxConnectionsStr string
	if err := m.conn.pool.QueryRow(ctx, "SHOW max_connections").Scan(&maxConnectionsStr); err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "collect_server_metadata", err)
	}
	maxConnections, err := strconv.Atoi(maxConnectionsStr)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "collect_server_metadata", err)
	}
	metadata["max_connections"] = maxConnections

	return metadata, nil
}
