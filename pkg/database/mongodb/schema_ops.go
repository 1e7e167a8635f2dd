package mongodb

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// columnSampleSize is how many documents GetColumns inspects when inferring
// a collection's field set.
const columnSampleSize = 100

// SchemaOps implements adapter.SchemaOperator for MongoDB. Collections map
// to tables; the field set of a collection is inferred by sampling since
// MongoDB keeps no column catalog.
type SchemaOps struct {
	conn *Connection
}

// ListDatabases returns the databases visible on the server.
func (s *SchemaOps) ListDatabases(ctx context.Context) ([]string, error) {
	names, err := s.conn.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "list_databases", err)
	}
	sort.Strings(names)
	return names, nil
}

// ListSchemas reports schemas as unsupported; collections live directly
// under the database.
func (s *SchemaOps) ListSchemas(ctx context.Context) ([]string, error) {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.MongoDB).UnsupportedReason(dbcapabilities.CapSchemas)
	return nil, adapter.NewUnsupportedOperationError(dbcapabilities.MongoDB, "list_schemas", reason)
}

// ListTables returns the collection names of the connected database.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	names, err := s.conn.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "list_tables", err)
	}
	sort.Strings(names)
	return names, nil
}

// GetColumns infers the field set of a collection by sampling documents.
// Fields absent from part of the sample are reported as nullable.
func (s *SchemaOps) GetColumns(ctx context.Context, table string) ([]common.ColumnInfo, error) {
	if err := s.checkCollectionExists(ctx, table); err != nil {
		return nil, err
	}

	findOptions := options.Find().SetLimit(int64(columnSampleSize))
	cursor, err := s.conn.db.Collection(table).Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "get_columns", err)
	}
	defer cursor.Close(ctx)

	var documents []bson.D
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "get_columns", err)
	}

	return inferColumns(documents), nil
}

// inferColumns derives column metadata from sampled documents: field order
// follows first appearance, the data type is the most frequent one seen.
func inferColumns(documents []bson.D) []common.ColumnInfo {
	var order []string
	fieldTypes := make(map[string]map[string]int)
	fieldSeen := make(map[string]int)

	for _, doc := range documents {
		for _, elem := range doc {
			if _, exists := fieldTypes[elem.Key]; !exists {
				fieldTypes[elem.Key] = make(map[string]int)
				order = append(order, elem.Key)
			}
			fieldTypes[elem.Key][bsonTypeName(elem.Value)]++
			fieldSeen[elem.Key]++
		}
	}

	columns := make([]common.ColumnInfo, 0, len(order))
	for _, field := range order {
		mostCommonType := ""
		maxCount := 0
		for typeName, count := range fieldTypes[field] {
			if count > maxCount || (count == maxCount && typeName < mostCommonType) {
				maxCount = count
				mostCommonType = typeName
			}
		}

		sawNull := fieldTypes[field]["null"] > 0
		columns = append(columns, common.ColumnInfo{
			Name:         field,
			DataType:     mostCommonType,
			IsNullable:   field != "_id" && (sawNull || fieldSeen[field] < len(documents)),
			IsPrimaryKey: field == "_id",
			IsUnique:     field == "_id",
			IsArray:      mostCommonType == "array",
		})
	}
	return columns
}

func bsonTypeName(value interface{}) string {
	switch value.(type) {
	case string:
		return "string"
	case int, int32, int64:
		return "integer"
	case float32, float64:
		return "number"
	case bool:
		return "boolean"
	case bson.ObjectID:
		return "objectId"
	case bson.DateTime:
		return "date"
	case bson.Binary:
		return "binary"
	case bson.Decimal128:
		return "decimal"
	case bson.D, bson.M:
		return "object"
	case bson.A:
		return "array"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

// GetIndexes lists the indexes of a collection.
func (s *SchemaOps) GetIndexes(ctx context.Context, table string) ([]common.IndexInfo, error) {
	if err := s.checkCollectionExists(ctx, table); err != nil {
		return nil, err
	}

	cursor, err := s.conn.db.Collection(table).Indexes().List(ctx)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "get_indexes", err)
	}
	defer cursor.Close(ctx)

	var specs []bson.D
	if err := cursor.All(ctx, &specs); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "get_indexes", err)
	}

	indexes := make([]common.IndexInfo, 0, len(specs))
	for _, spec := range specs {
		var index common.IndexInfo
		for _, elem := range spec {
			switch elem.Key {
			case "name":
				if name, ok := elem.Value.(string); ok {
					index.Name = name
				}
			case "key":
				if keyDoc, ok := elem.Value.(bson.D); ok {
					for _, key := range keyDoc {
						index.Columns = append(index.Columns, key.Key)
					}
				}
			case "unique":
				if unique, ok := elem.Value.(bool); ok {
					index.IsUnique = unique
				}
			}
		}
		// The mandatory _id index is unique even though listIndexes
		// does not flag it.
		if index.Name == "_id_" {
			index.IsUnique = true
		}
		indexes = append(indexes, index)
	}
	return indexes, nil
}

// GetConstraints reports constraints as unsupported; MongoDB validation
// rules are not relational constraints.
func (s *SchemaOps) GetConstraints(ctx context.Context, table string) ([]common.Constraint, error) {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.MongoDB).UnsupportedReason(dbcapabilities.CapConstraints)
	return nil, adapter.NewUnsupportedOperationError(dbcapabilities.MongoDB, "get_constraints", reason)
}

// GetTableStructure retrieves the inferred structure of a collection.
// Constraints are omitted since MongoDB has none to report.
func (s *SchemaOps) GetTableStructure(ctx context.Context, table string) (*common.TableStructure, error) {
	columns, err := s.GetColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	indexes, err := s.GetIndexes(ctx, table)
	if err != nil {
		return nil, err
	}

	var primaryKey []string
	for _, column := range columns {
		if column.IsPrimaryKey {
			primaryKey = append(primaryKey, column.Name)
		}
	}

	return &common.TableStructure{
		Name:       table,
		TableType:  "collection",
		Columns:    columns,
		PrimaryKey: primaryKey,
		Indexes:    indexes,
	}, nil
}

func (s *SchemaOps) checkCollectionExists(ctx context.Context, table string) error {
	names, err := s.conn.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: table}})
	if err != nil {
		return adapter.WrapError(dbcapabilities.MongoDB, "list_tables", err)
	}
	if len(names) == 0 {
		return adapter.NewNotFoundError(dbcapabilities.MongoDB, "collection", table)
	}
	return nil
}
