package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// MetadataOps implements adapter.MetadataOperator for MongoDB.
type MetadataOps struct {
	conn *Connection
}

// GetVersion returns the MongoDB server version.
func (m *MetadataOps) GetVersion(ctx context.Context) (string, error) {
	doc, err := m.runAdminCommand(ctx, "buildInfo")
	if err != nil {
		return "", adapter.WrapError(dbcapabilities.MongoDB, "get_version", err)
	}
	version, ok := doc["version"].(string)
	if !ok {
		return "", adapter.WrapError(dbcapabilities.MongoDB, "get_version",
			fmt.Errorf("buildInfo returned no version field"))
	}
	return version, nil
}

// GetUniqueIdentifier returns the server's host identifier as reported by
// serverStatus.
func (m *MetadataOps) GetUniqueIdentifier(ctx context.Context) (string, error) {
	doc, err := m.runAdminCommand(ctx, "serverStatus")
	if err != nil {
		return "", adapter.WrapError(dbcapabilities.MongoDB, "get_unique_identifier", err)
	}
	host, ok := doc["host"].(string)
	if !ok {
		return "", adapter.WrapError(dbcapabilities.MongoDB, "get_unique_identifier",
			fmt.Errorf("serverStatus returned no host field"))
	}
	return host, nil
}

// CollectServerMetadata gathers version, size and connection details.
func (m *MetadataOps) CollectServerMetadata(ctx context.Context) (map[string]interface{}, error) {
	metadata := make(map[string]interface{})

	version, err := m.GetVersion(ctx)
	if err != nil {
		return nil, err
	}
	metadata["version"] = version

	// Database stats run against the connected database, not admin.
	var statsDoc bson.M
	statsResult := m.conn.db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}})
	if err := statsResult.Decode(&statsDoc); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "collect_server_metadata",
			fmt.Errorf("failed to get database stats: %w", err))
	}
	if dataSize, exists := statsDoc["dataSize"]; exists {
		metadata["size_bytes"] = toInt64(dataSize)
	}

	collections, err := m.conn.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "collect_server_metadata",
			fmt.Errorf("failed to count collections: %w", err))
	}
	metadata["tables_count"] = len(collections)

	statusDoc, err := m.runAdminCommand(ctx, "serverStatus")
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "collect_server_metadata", err)
	}
	if uptime, exists := statusDoc["uptime"]; exists {
		metadata["uptime_seconds"] = toInt64(uptime)
	}
	if connections, ok := statusDoc["connections"].(bson.M); ok {
		current := toInt64(connections["current"])
		metadata["total_connections"] = current
		if available, exists := connections["available"]; exists {
			metadata["max_connections"] = current + toInt64(available)
		}
	}

	return metadata, nil
}

func (m *MetadataOps) runAdminCommand(ctx context.Context, command string) (bson.M, error) {
	result := m.conn.client.Database("admin").RunCommand(ctx, bson.D{{Key: command, Value: 1}})
	var doc bson.M
	if err := result.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s command failed: %w", command, err)
	}
	return doc, nil
}

// toInt64 normalizes the numeric types BSON decoding produces.
func toInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
