package bridge

import (
	"context"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// ListDatabases returns the databases visible on the server.
func (m *Manager) ListDatabases(ctx context.Context, connectionID string) adapter.Envelope[[]string] {
	return run(m, connectionID, "list_databases", func(conn adapter.Connection) ([]string, error) {
		return conn.SchemaOperations().ListDatabases(ctx)
	})
}

// ListSchemas returns the schemas of the connected database. Gated on the
// schemas capability.
func (m *Manager) ListSchemas(ctx context.Context, connectionID string) adapter.Envelope[[]string] {
	return runGated(m, connectionID, "list_schemas", dbcapabilities.CapSchemas, func(conn adapter.Connection) ([]string, error) {
		return conn.SchemaOperations().ListSchemas(ctx)
	})
}

// ListTables returns the tables or collections of the connected database.
func (m *Manager) ListTables(ctx context.Context, connectionID string) adapter.Envelope[[]string] {
	return run(m, connectionID, "list_tables", func(conn adapter.Connection) ([]string, error) {
		return conn.SchemaOperations().ListTables(ctx)
	})
}

// GetColumns returns the columns of one table.
func (m *Manager) GetColumns(ctx context.Context, connectionID, table string) adapter.Envelope[[]common.ColumnInfo] {
	return run(m, connectionID, "get_columns", func(conn adapter.Connection) ([]common.ColumnInfo, error) {
		return conn.SchemaOperations().GetColumns(ctx, table)
	})
}

// GetIndexes returns the indexes of one table. Gated on the indexes
// capability.
func (m *Manager) GetIndexes(ctx context.Context, connectionID, table string) adapter.Envelope[[]common.IndexInfo] {
	return runGated(m, connectionID, "get_indexes", dbcapabilities.CapIndexes, func(conn adapter.Connection) ([]common.IndexInfo, error) {
		return conn.SchemaOperations().GetIndexes(ctx, table)
	})
}

// GetConstraints returns the constraints of one table. Gated on the
// constraints capability.
func (m *Manager) GetConstraints(ctx context.Context, connectionID, table string) adapter.Envelope[[]common.Constraint] {
	return runGated(m, connectionID, "get_constraints", dbcapabilities.CapConstraints, func(conn adapter.Connection) ([]common.Constraint, error) {
		return conn.SchemaOperations().GetConstraints(ctx, table)
	})
}

// GetTableStructure returns the complete structure of one table.
func (m *Manager) GetTableStructure(ctx context.Context, connectionID, table string) adapter.Envelope[*common.TableStructure] {
	return run(m, connectionID, "get_table_structure", func(conn adapter.Connection) (*common.TableStructure, error) {
		return conn.SchemaOperations().GetTableStructure(ctx, table)
	})
}
