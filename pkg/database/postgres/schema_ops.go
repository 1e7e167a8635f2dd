package postgres

import (
	"context"
	"database/sql"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// SchemaOps implements adapter.SchemaOperator for PostgreSQL.
type SchemaOps struct {
	conn *Connection
}

// ListDatabases lists all non-template databases on the server.
func (s *SchemaOps) ListDatabases(ctx context.Context) ([]string, error) {
	query := `
		SELECT datname
		FROM pg_database
		WHERE datistemplate = false
		ORDER BY datname
	`
	return s.queryStrings(ctx, "list_databases", query)
}

// ListSchemas lists the schemas of the connected database.
func (s *SchemaOps) ListSchemas(ctx context.Context) ([]string, error) {
	query := `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		AND schema_name NOT LIKE 'pg_toast%'
		AND schema_name NOT LIKE 'pg_temp%'
		ORDER BY schema_name
	`
	return s.queryStrings(ctx, "list_schemas", query)
}

// ListTables returns the names of all tables in the public schema.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	return s.queryStrings(ctx, "list_tables", query)
}

func (s *SchemaOps) queryStrings(ctx context.Context, operation, query string, args ...interface{}) ([]string, error) {
	rows, err := s.conn.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, operation, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, adapter.WrapError(dbcapabilities.PostgreSQL, operation, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, operation, err)
	}
	return names, nil
}

// GetColumns retrieves the columns of a specific table in ordinal order.
func (s *SchemaOps) GetColumns(ctx context.Context, table string) ([]common.ColumnInfo, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.data_type = 'ARRAY' AS is_array,
			pg_get_serial_sequence(quote_ident(c.table_name), c.column_name) IS NOT NULL AS is_auto_increment,
			pk.column_name IS NOT NULL AS is_primary_key,
			u.column_name IS NOT NULL AS is_unique
		FROM information_schema.columns c
		LEFT JOIN
			(SELECT kcu.table_name, kcu.column_name
			 FROM information_schema.key_column_usage kcu
			 JOIN information_schema.table_constraints tc
				ON kcu.constraint_name = tc.constraint_name
			 WHERE tc.constraint_type = 'PRIMARY KEY') pk
		ON c.table_name = pk.table_name AND c.column_name = pk.column_name
		LEFT JOIN
			(SELECT kcu.table_name, kcu.column_name
			 FROM information_schema.key_column_usage kcu
			 JOIN information_schema.table_constraints tc
				ON kcu.constraint_name = tc.constraint_name
			 WHERE tc.constraint_type = 'UNIQUE') u
		ON c.table_name = u.table_name AND c.column_name = u.column_name
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position
	`

	rows, err := s.conn.pool.Query(ctx, query, table)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_columns", err)
	}
	defer rows.Close()

	var columns []common.ColumnInfo
	for rows.Next() {
		var col common.ColumnInfo
		var columnDefault sql.NullString
		var varcharLength sql.NullInt64

		if err := rows.Scan(
			&col.Name, &col.DataType, &col.IsNullable, &columnDefault, &varcharLength,
			&col.IsArray, &col.IsAutoIncrement, &col.IsPrimaryKey, &col.IsUnique,
		); err != nil {
			return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_columns", err)
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
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_columns", err)
	}

	if len(columns) == 0 {
		return nil, adapter.NewNotFoundError(dbcapabilities.PostgreSQL, "table", table)
	}
	return columns, nil
}

// GetIndexes retrieves the indexes of a specific table.
func (s *SchemaOps) GetIndexes(ctx context.Context, table string) ([]common.IndexInfo, error) {
	query := `
		SELECT
			i.relname AS index_name,
			a.attname AS column_name,
			ix.indisunique
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE t.relname = $1 AND t.relkind = 'r'
		ORDER BY i.relname, a.attnum
	`

	rows, err := s.conn.pool.Query(ctx, query, table)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_indexes", err)
	}
	defer rows.Close()

	// Group index columns in Go; one row per index column.
	byName := make(map[string]*common.IndexInfo)
	var order []string
	for rows.Next() {
		var indexName, columnName string
		var isUnique bool
		if err := rows.Scan(&indexName, &columnName, &isUnique); err != nil {
			return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_indexes", err)
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
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_indexes", err)
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
			ccu.table_name AS foreign_table,
			ccu.column_name AS foreign_column,
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		LEFT JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		LEFT JOIN information_schema.constraint_column_usage ccu
			ON rc.unique_constraint_name = ccu.constraint_name
			AND rc.unique_constraint_schema = ccu.table_schema
		WHERE tc.table_schema = 'public' AND tc.table_name = $1
		ORDER BY tc.constraint_name
	`

	rows, err := s.conn.pool.Query(ctx, query, table)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_constraints", err)
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
			return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_constraints", err)
		}

		c.Column = column.String
		c.ForeignTable = foreignTable.String
		c.ForeignColumn = foreignColumn.String
		c.OnUpdate = onUpdate.String
		c.OnDelete = onDelete.String
		constraints = append(constraints, c)
	}
	if err := rows.Err(); err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "get_constraints", err)
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
		Schema:      "public",
		Name:        table,
		TableType:   "table",
		Columns:     columns,
		PrimaryKey:  primaryKey,
		Indexes:     indexes,
		Constraints: constraints,
	}, nil
}
