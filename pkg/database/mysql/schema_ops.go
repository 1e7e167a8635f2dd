package mysql

import (
	"context"
	"database/sql"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// SchemaOps implements adapter.SchemaOperator for MySQL.
type SchemaOps struct {
	conn *Connection
}

// ListDatabases lists all databases visible on the server.
func (s *SchemaOps) ListDatabases(ctx context.Context) ([]string, error) {
	query := `
		SELECT schema_name
		FROM information_schema.schemata
		ORDER BY schema_name
	`
	return s.queryStrings(ctx, "list_databases", query)
}

// ListSchemas is not meaningful for MySQL, where schema and database are
// the same namespace.
func (s *SchemaOps) ListSchemas(ctx context.Context) ([]string, error) {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.MySQL).UnsupportedReason(dbcapabilities.CapSchemas)
	return nil, adapter.NewUnsupportedOperationError(dbcapabilities.MySQL, "list_schemas", reason)
}

// ListTables returns the names of all tables in the connected database.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	return s.queryStrings(ctx, "list_tables", query)
}

func (s *SchemaOps) queryStrings(ctx context.Context, operation, query string, args ...interface{}) ([]string, error) {
	rows, err := s.conn.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, operation, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, adapter.WrapError(dbcapabilities.MySQL, operation, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, operation, err)
	}
	return names, nil
}

// GetColumns retrieves the columns of a specific table in ordinal order.
func (s *SchemaOps) GetColumns(ctx context.Context, table string) ([]common.ColumnInfo, error) {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable = 'YES' AS is_nullable,
			column_default,
			character_maximum_length,
			column_key = 'PRI' AS is_primary_key,
			column_key = 'UNI' AS is_unique,
			extra LIKE '%auto_increment%' AS is_auto_increment
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := s.conn.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "get_columns", err)
	}
	defer rows.Close()

	var columns []common.ColumnInfo
	for rows.Next() {
		var col common.ColumnInfo
		var columnDefault sql.NullString
		var varcharLength sql.NullInt64

		if err := rows.Scan(
			&col.Name, &col.DataType, &col.IsNullable, &columnDefault, &varcharLength,
			&col.IsPrimaryKey, &col.IsUnique, &col.IsAutoIncrement,
		); err != nil {
			return nil, adapter.WrapError(dbcapabilities.MySQL, "get_columns", err)
		}

		if columnDefault.Valid {
			col.ColumnDefault = &columnDefault.String
		}
		if varcharLength.Valid {
			length := int(varcharLength.Int64)
			col.VarcharLength = &length
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "get_columns", err)
	}

	if len(columns) == 0 {
		return nil, adapter.NewNotFoundError(dbcapabilities.MySQL, "table", table)
	}
	return columns, nil
}

// GetIndexes retrieves the indexes of a specific table.
func (s *SchemaOps) GetIndexes(ctx context.Context, table string) ([]common.IndexInfo, error) {
	query := `
		SELECT
			index_name,
			column_name,
			non_unique = 0 AS is_unique
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY index_name, seq_in_index
	`

	rows, err := s.conn.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "get_indexes", err)
	}
	defer rows.Close()

	// Group index columns in Go; one row per index column.
	byName := make(map[string]*common.IndexInfo)
	var order []string
	for rows.Next() {
		var indexName, columnName string
		var isUnique bool
		if err := rows.Scan(&indexName, &columnName, &isUnique); err != nil {
			return nil, adapter.WrapError(dbcapabilities.MySQL, "get_indexes", err)
		}

		idx, exists := byName[indexName]
		if !exists {
			idx = &common.IndexInfo{Name: indexName, IsUnique: isUnique}
			byName[indexName] = idx
			order = append(order, indexName)
		}
		idx.Columns = append(idx.Columns, columnName)
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "get_indexes", err)
	}

	indexes := make([]common.IndexInfo, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, *byName[name])
	}
	return indexes, nil
}

// GetConstraints retrieves the constraints of a specific table.
func (s *SchemaOps) GetConstraints(ctx context.Context, table string) ([]common.Constraint, error) {
	query := `
		SELECT
			tc.constraint_type,
			tc.constraint_name,
			tc.table_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		LEFT JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		WHERE tc.table_schema = DATABASE() AND tc.table_name = ?
		ORDER BY tc.constraint_name
	`

	rows, err := s.conn.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "get_constraints", err)
	}
	defer rows.Close()

	var constraints []common.Constraint
	for rows.Next() {
		var c common.Constraint
		var column, foreignTable, foreignColumn, onUpdate, onDelete sql.NullString

		if err := rows.Scan(
			&c.Type, &c.Name, &c.Table, &column,
			&foreignTable, &foreignColumn, &onUpdate, &onDelete,
		); err != nil {
			return nil, adapter.WrapError(dbcapabilities.MySQL, "get_constraints", err)
		}

		c.Column = column.String
		c.ForeignTable = foreignTable.String
		c.ForeignColumn = foreignColumn.String
		c.OnUpdate = onUpdate.String
		c.OnDelete = onDelete.String
		constraints = append(constraints, c)
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MySQL, "get_constraints", err)
	}
	return constraints, nil
}

// GetTableStructure retrieves the complete structure of a table.
func (s *SchemaOps) GetTableStructure(ctx context.Context, table string) (*common.TableStructure, error) {
	columns, err := s.GetColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	indexes, err := s.GetIndexes(ctx, table)
	if err != nil {
		return nil, err
	}

	constraints, err := s.GetConstraints(ctx, table)
	if err != nil {
		return nil, err
	}

	var primaryKey []string
	for _, col := range columns {
		if col.IsPrimaryKey {
			primaryKey = append(primaryKey, col.Name)
		}
	}

	return &common.TableStructure{
		Schema:      s.conn.config.DatabaseName,
		Name:        table,
		TableType:   "table",
		Columns:     columns,
		PrimaryKey:  primaryKey,
		Indexes:     indexes,
		Constraints: constraints,
	}, nil
}
