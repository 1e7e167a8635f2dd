package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// MetadataOps implements adapter.MetadataOperator for Redis. Everything
// here comes out of the INFO command.
type MetadataOps struct {
	conn *Connection
}

// GetVersion returns the Redis server version.
func (m *MetadataOps) GetVersion(ctx context.Context) (string, error) {
	infoMap, err := m.serverInfo(ctx, "server")
	if err != nil {
		return "", adapter.WrapError(dbcapabilities.Redis, "get_version", err)
	}
	version, ok := infoMap["redis_version"]
	if !ok {
		return "", adapter.WrapError(dbcapabilities.Redis, "get_version",
			fmt.Errorf("INFO returned no redis_version field"))
	}
	return version, nil
}

// GetUniqueIdentifier returns the server run_id.
func (m *MetadataOps) GetUniqueIdentifier(ctx context.Context) (string, error) {
	infoMap, err := m.serverInfo(ctx, "server")
	if err != nil {
		return "", adapter.WrapError(dbcapabilities.Redis, "get_unique_identifier", err)
	}
	runID, ok := infoMap["run_id"]
	if !ok {
		return "", adapter.WrapError(dbcapabilities.Redis, "get_unique_identifier",
			fmt.Errorf("INFO returned no run_id field"))
	}
	return runID, nil
}

// CollectServerMetadata gathers version, memory, keyspace and connection
// details.
func (m *MetadataOps) CollectServerMetadata(ctx context.Context) (map[string]interface{}, error) {
	infoMap, err := m.serverInfo(ctx, "server", "clients", "memory", "stats")
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Redis, "collect_server_metadata", err)
	}

	metadata := make(map[string]interface{})
	if version, ok := infoMap["redis_version"]; ok {
		metadata["version"] = version
	}
	if uptime, ok := infoMap["uptime_in_seconds"]; ok {
		if uptimeSeconds, err := strconv.ParseInt(uptime, 10, 64); err == nil {
			metadata["uptime_seconds"] = uptimeSeconds
		}
	}
	if usedMemory, ok := infoMap["used_memory"]; ok {
		if memoryBytes, err := strconv.ParseInt(usedMemory, 10, 64); err == nil {
			metadata["size_bytes"] = memoryBytes
		}
	}
	if clients, ok := infoMap["connected_clients"]; ok {
		if connectedClients, err := strconv.Atoi(clients); err == nil {
			metadata["total_connections"] = connectedClients
		}
	}
	if maxClients, ok := infoMap["maxclients"]; ok {
		if maxClientsNum, err := strconv.Atoi(maxClients); err == nil {
			metadata["max_connections"] = maxClientsNum
		}
	}

	keyCount, err := m.conn.client.DBSize(ctx).Result()
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Redis, "collect_server_metadata",
			fmt.Errorf("failed to get database size: %w", err))
	}
	metadata["key_count"] = keyCount

	return metadata, nil
}

func (m *MetadataOps) serverInfo(ctx context.Context, sections ...string) (map[string]string, error) {
	info, err := m.conn.client.Info(ctx, sections...).Result()
	if err != nil {
		return nil, fmt.Errorf("INFO command failed: %w", err)
	}
	return parseRedisInfo(info), nil
}

// parseRedisInfo parses INFO command output into a map. Section headers
// and blank lines are skipped.
func parseRedisInfo(info string) map[string]string {
	result := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, value, found := strings.Cut(line, ":"); found {
			result[key] = value
		}
	}
	return result
}
