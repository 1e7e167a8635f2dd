package mysql

import (
	"context"
	"strconv"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// MetadataOps implements adapter.MetadataOperator for MySQL.
type MetadataOps struct {
	conn *Connection
}

// GetVersion returns the MySQL version.
func (m *MetadataOps) GetVersion(ctx context.Context) (string, error) {
	var version string
	err := m.conn.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	if err != nil {
		return "", adapter.WrapError(dbcapabilities.MySQL, "get_version", err)
	}
	return version, nil
}

// GetUniqueIdentifier returns the server UUID. Servers without one
// (older MariaDB) fall back to the numeric server ID.
func (m *MetadataOps) GetUniqueIdentifier(ctx context.Context) (string, error) {
	var identifier string
	err := m.conn.db.QueryRowContext(ctx, "SELECT @@server_uuid").Scan(&identifier)
	if err == nil {
		return identifier, nil
	}

	var serverID int64
	if err := m.conn.db.QueryRowContext(ctx, "SELECT @@server_id").Scan(&serverID); err != nil {
		return "", adapter.WrapError(dbcapabilities.MySQL, "get_unique_identifier", err)
	}
	return strconv.FormatInt(serverID, 10), nil
}

// CollectServerMetadata collects metadata about the server and database.
func (m *MetadataOps) CollectServerMetadata(ctx context.Context) (map[string]interface{}, error) {
	metadata := make(map[string]interface{})

	var version string
	if err := m.conn.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "collect_server_metadata", err)
	}
	metadata["version"] = version

	// Approximate size; NULL when the database has no tables yet.
	var sizeBytes int64
	sizeQuery := `
		SELECT COALESCE(SUM(data_length + index_length), 0)
		FROM information_schema.tables
		WHERE table_schema = DATABASE()`
	if err := m.conn.db.QueryRowContext(ctx, sizeQuery).Scan(&sizeBytes); err != nil {
		sizeBytes = 0
	}
	metadata["size_bytes"] = sizeBytes

	var tablesCount int
	err := m.conn.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE()").Scan(&tablesCount)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "collect_server_metadata", err)
	}
	metadata["tables_count"] = tablesCount

	var name, uptimeStr string
	if err := m.conn.db.QueryRowContext(ctx, "SHOW GLOBAL STATUS LIKE 'Uptime'").Scan(&name, &uptimeStr); err == nil {
		if uptime, err := strconv.ParseInt(uptimeStr, 10, 64); err == nil {
			metadata["uptime_seconds"] = uptime
		}
	}

	var maxConnections int
	if err := m.conn.db.QueryRowContext(ctx, "SELECT @@max_connections").Scan(&maxConnections); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "collect_server_metadata", err)
	}
	metadata["max_connections"] = maxConnections

	var threadsName, threadsStr string
	if err := m.conn.db.QueryRowContext(ctx, "SHOW GLOBAL STATUS LIKE 'Threads_connected'").Scan(&threadsName, &threadsStr); err == nil {
		if threads, err := strconv.Atoi(threadsStr); err == nil {
			metadata["total_connections"] = threads
		}
	}

	return metadata, nil
}
