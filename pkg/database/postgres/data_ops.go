package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// DataOps implements adapter.DataOperator for PostgreSQL.
type DataOps struct {
	conn *Connection
}

// SelectRows retrieves rows matching the parameters, preserving column order.
func (d *DataOps) SelectRows(ctx context.Context, params adapter.SelectParams) ([]common.Row, error) {
	query, args, err := buildSelectQuery(params)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "select_rows", err)
	}

	rows, err := d.conn.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "select_rows", err)
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "select_rows", err)
	}
	return result.Rows, nil
}

// InsertRow inserts a single row and returns the number of inserted rows.
func (d *DataOps) InsertRow(ctx context.Context, table string, row common.Row) (int64, error) {
	query, args, err := buildInsertQuery(table, row)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.PostgreSQL, "insert_row", err)
	}

	tag, err := d.conn.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.PostgreSQL, "insert_row", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateRows updates all rows matching the filters.
func (d *DataOps) UpdateRows(ctx context.Context, table string, values map[string]interface{}, filters []adapter.Filter) (int64, error) {
	query, args, err := buildUpdateQuery(table, values, filters)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.PostgreSQL, "update_rows", err)
	}

	tag, err := d.conn.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.PostgreSQL, "update_rows", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteRows deletes all rows matching the filters. Empty filters delete
// every row in the table.
func (d *DataOps) DeleteRows(ctx context.Context, table string, filters []adapter.Filter) (int64, error) {
	query, args, err := buildDeleteQuery(table, filters)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.PostgreSQL, "delete_rows", err)
	}

	tag, err := d.conn.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.PostgreSQL, "delete_rows", err)
	}
	return tag.RowsAffected(), nil
}

// ExecuteQuery runs a raw query with bound parameters.
func (d *DataOps) ExecuteQuery(ctx context.Context, query string, args ...interface{}) (*adapter.QueryResult, error) {
	rows, err := d.conn.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "execute_query", err)
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.PostgreSQL, "execute_query", err)
	}
	return result, nil
}

// collectRows drains a pgx result set into a QueryResult, keeping the
// server's column order.
func collectRows(rows pgx.Rows) (*adapter.QueryResult, error) {
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name
	}

	var out []common.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("error reading row values: %w", err)
		}
		out = append(out, common.Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// CommandTag is only valid once the result set is fully drained.
	rows.Close()
	return &adapter.QueryResult{
		Columns:      columns,
		Rows:         out,
		RowsAffected: rows.CommandTag().RowsAffected(),
	}, nil
}

func buildSelectQuery(params adapter.SelectParams) (string, []interface{}, error) {
	if params.Table == "" {
		return "", nil, fmt.Errorf("%w: table name cannot be empty", adapter.ErrInvalidQuery)
	}

	columnList := "*"
	if len(params.Columns) > 0 {
		quoted := make([]string, len(params.Columns))
		for i, col := range params.Columns {
			quoted[i] = common.QuoteIdentifier(col)
		}
		columnList = strings.Join(quoted, ", ")
	}

	var query strings.Builder
	fmt.Fprintf(&query, "SELECT %s FROM %s", columnList, common.QuoteIdentifier(params.Table))

	where, args, err := buildWhereClause(params.Filters, 1)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		query.WriteString(" WHERE ")
		query.WriteString(where)
	}

	if len(params.OrderBy) > 0 {
		clauses := make([]string, len(params.OrderBy))
		for i, ob := range params.OrderBy {
			direction, err := orderDirection(ob.Direction)
			if err != nil {
				return "", nil, err
			}
			clauses[i] = fmt.Sprintf("%s %s", common.QuoteIdentifier(ob.Column), direction)
		}
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(clauses, ", "))
	}

	if params.Limit > 0 {
		fmt.Fprintf(&query, " LIMIT %d", params.Limit)
	}
	if params.Offset > 0 {
		fmt.Fprintf(&query, " OFFSET %d", params.Offset)
	}

	return query.String(), args, nil
}

func buildInsertQuery(table string, row common.Row) (string, []interface{}, error) {
	if table == "" {
		return "", nil, fmt.Errorf("%w: table name cannot be empty", adapter.ErrInvalidQuery)
	}
	if row.Len() == 0 {
		return "", nil, fmt.Errorf("%w: row has no columns", adapter.ErrInvalidQuery)
	}

	columns := make([]string, row.Len())
	placeholders := make([]string, row.Len())
	for i, col := range row.Columns {
		columns[i] = common.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		common.QuoteIdentifier(table),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	return query, row.Values, nil
}

func buildUpdateQuery(table string, values map[string]interface{}, filters []adapter.Filter) (string, []interface{}, error) {
	if table == "" {
		return "", nil, fmt.Errorf("%w: table name cannot be empty", adapter.ErrInvalidQuery)
	}
	if len(values) == 0 {
		return "", nil, fmt.Errorf("%w: no values to update", adapter.ErrInvalidQuery)
	}

	// Sort for a deterministic statement shape.
	columns := make([]string, 0, len(values))
	for col := range values {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	assignments := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+len(filters))
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", common.QuoteIdentifier(col), i+1)
		args = append(args, values[col])
	}

	var query strings.Builder
	fmt.Fprintf(&query, "UPDATE %s SET %s",
		common.QuoteIdentifier(table),
		strings.Join(assignments, ", "))

	where, whereArgs, err := buildWhereClause(filters, len(columns)+1)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		query.WriteString(" WHERE ")
		query.WriteString(where)
	}

	return query.String(), append(args, whereArgs...), nil
}

func buildDeleteQuery(table string, filters []adapter.Filter) (string, []interface{}, error) {
	if table == "" {
		return "", nil, fmt.Errorf("%w: table name cannot be empty", adapter.ErrInvalidQuery)
	}

	var query strings.Builder
	fmt.Fprintf(&query, "DELETE FROM %s", common.QuoteIdentifier(table))

	where, args, err := buildWhereClause(filters, 1)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		query.WriteString(" WHERE ")
		query.WriteString(where)
	}

	return query.String(), args, nil
}

// buildWhereClause renders filters into a conjunction with numbered
// placeholders starting at argIndex.
func buildWhereClause(filters []adapter.Filter, argIndex int) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	conditions := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))

	for _, filter := range filters {
		if filter.Column == "" {
			return "", nil, fmt.Errorf("%w: filter column cannot be empty", adapter.ErrInvalidQuery)
		}
		column := common.QuoteIdentifier(filter.Column)

		switch op := adapter.NormalizeFilterOperator(filter.Operator); op {
		case "IS NULL", "IS NOT NULL":
			conditions = append(conditions, fmt.Sprintf("%s %s", column, op))

		case "IN", "NOT IN":
			items, ok := adapter.FilterValueList(filter.Value)
			if !ok || len(items) == 0 {
				return "", nil, fmt.Errorf("%w: %s filter requires a non-empty list value", adapter.ErrInvalidQuery, op)
			}
			placeholders := make([]string, len(items))
			for i, item := range items {
				placeholders[i] = fmt.Sprintf("$%d", argIndex)
				argIndex++
				args = append(args, item)
			}
			conditions = append(conditions, fmt.Sprintf("%s %s (%s)", column, op, strings.Join(placeholders, ", ")))

		case "=", "!=", "<", "<=", ">", ">=", "LIKE":
			conditions = append(conditions, fmt.Sprintf("%s %s $%d", column, op, argIndex))
			argIndex++
			args = append(args, filter.Value)

		default:
			return "", nil, fmt.Errorf("%w: unsupported filter operator %q", adapter.ErrInvalidQuery, filter.Operator)
		}
	}

	return strings.Join(conditions, " AND "), args, nil
}

func orderDirection(direction string) (string, error) {
	switch strings.ToLower(direction) {
	case "", "asc":
		return "ASC", nil
	case "desc":
		return "DESC", nil
	default:
		return "", fmt.Errorf("%w: unsupported sort direction %q", adapter.ErrInvalidQuery, direction)
	}
}
