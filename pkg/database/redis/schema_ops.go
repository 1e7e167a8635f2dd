package redis

import (
	"context"
	"sort"
	"strings"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// SchemaOps implements adapter.SchemaOperator for Redis. The numeric
// keyspaces act as databases and key prefixes as tables; everything else
// in the relational catalog has no Redis counterpart.
type SchemaOps struct {
	conn *Connection
}

// ListDatabases returns the keyspaces holding at least one key, as
// reported by INFO keyspace.
func (s *SchemaOps) ListDatabases(ctx context.Context) ([]string, error) {
	info, err := s.conn.client.Info(ctx, "keyspace").Result()
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Redis, "list_databases", err)
	}

	var names []string
	for name := range parseRedisInfo(info) {
		if strings.HasPrefix(name, "db") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListSchemas reports schemas as unsupported; the keyspace is flat.
func (s *SchemaOps) ListSchemas(ctx context.Context) ([]string, error) {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.Redis).UnsupportedReason(dbcapabilities.CapSchemas)
	return nil, adapter.NewUnsupportedOperationError(dbcapabilities.Redis, "list_schemas", reason)
}

// ListTables derives table names from the key population: every distinct
// prefix before the first colon counts as one table.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	keys, err := scanKeys(ctx, s.conn.client, "*")
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Redis, "list_tables", err)
	}

	seen := make(map[string]struct{})
	for _, key := range keys {
		if prefix, _, found := strings.Cut(key, ":"); found && prefix != "" {
			seen[prefix] = struct{}{}
		}
	}

	tables := make([]string, 0, len(seen))
	for table := range seen {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables, nil
}

// GetColumns returns the fixed columns of the key model. The column set is
// the same for every table; the table just has to exist.
func (s *SchemaOps) GetColumns(ctx context.Context, table string) ([]common.ColumnInfo, error) {
	if err := s.checkTableExists(ctx, table); err != nil {
		return nil, err
	}

	return []common.ColumnInfo{
		{Name: colKey, DataType: "string", IsPrimaryKey: true, IsUnique: true},
		{Name: colType, DataType: "string"},
		{Name: colTTL, DataType: "integer"},
		{Name: colValue, DataType: "any", IsNullable: true},
	}, nil
}

// GetIndexes reports indexes as unsupported; Redis keeps no secondary
// index catalog.
func (s *SchemaOps) GetIndexes(ctx context.Context, table string) ([]common.IndexInfo, error) {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.Redis).UnsupportedReason(dbcapabilities.CapIndexes)
	return nil, adapter.NewUnsupportedOperationError(dbcapabilities.Redis, "get_indexes", reason)
}

// GetConstraints reports constraints as unsupported.
func (s *SchemaOps) GetConstraints(ctx context.Context, table string) ([]common.Constraint, error) {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.Redis).UnsupportedReason(dbcapabilities.CapConstraints)
	return nil, adapter.NewUnsupportedOperationError(dbcapabilities.Redis, "get_constraints", reason)
}

// GetTableStructure describes a key prefix: the fixed columns with the key
// acting as primary key.
func (s *SchemaOps) GetTableStructure(ctx context.Context, table string) (*common.TableStructure, error) {
	columns, err := s.GetColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	return &common.TableStructure{
		Name:       table,
		TableType:  "key_pattern",
		Columns:    columns,
		PrimaryKey: []string{colKey},
	}, nil
}

func (s *SchemaOps) checkTableExists(ctx context.Context, table string) error {
	if table == "" {
		return adapter.NewNotFoundError(dbcapabilities.Redis, "key pattern", table)
	}
	keys, err := scanKeys(ctx, s.conn.client, keyPattern(table))
	if err != nil {
		return adapter.WrapError(dbcapabilities.Redis, "list_tables", err)
	}
	if len(keys) == 0 {
		return adapter.NewNotFoundError(dbcapabilities.Redis, "key pattern", table)
	}
	return nil
}
