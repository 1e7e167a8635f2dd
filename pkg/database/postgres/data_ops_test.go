package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
)

func TestBuildSelectQuery(t *testing.T) {
	t.Run("bare table", func(t *testing.T) {
		query, args, err := buildSelectQuery(adapter.SelectParams{Table: "users"})
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "users"`, query)
		assert.Empty(t, args)
	})

	t.Run("columns filters order and paging", func(t *testing.T) {
		query, args, err := buildSelectQuery(adapter.SelectParams{
			Table:   "users",
			Columns: []string{"id", "email"},
			Filters: []adapter.Filter{
				{Column: "status", Operator: "=", Value: "active"},
				{Column: "age", Operator: ">=", Value: 21},
			},
			OrderBy: []adapter.OrderBy{
				{Column: "created_at", Direction: "desc"},
				{Column: "id"},
			},
			Limit:  50,
			Offset: 100,
		})
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT "id", "email" FROM "users" WHERE "status" = $1 AND "age" >= $2 ORDER BY "created_at" DESC, "id" ASC LIMIT 50 OFFSET 100`,
			query)
		assert.Equal(t, []interface{}{"active", 21}, args)
	})

	t.Run("empty table name", func(t *testing.T) {
		_, _, err := buildSelectQuery(adapter.SelectParams{})
		require.Error(t, err)
		assert.ErrorIs(t, err, adapter.ErrInvalidQuery)
	})

	t.Run("bad sort direction", func(t *testing.T) {
		_, _, err := buildSelectQuery(adapter.SelectParams{
			Table:   "users",
			OrderBy: []adapter.OrderBy{{Column: "id", Direction: "sideways"}},
		})
		assert.ErrorIs(t, err, adapter.ErrInvalidQuery)
	})
}

func TestBuildWhereClause(t *testing.T) {
	t.Run("empty filters", func(t *testing.T) {
		clause, args, err := buildWhereClause(nil, 1)
		require.NoError(t, err)
		assert.Empty(t, clause)
		assert.Empty(t, args)
	})

	t.Run("null checks take no argument", func(t *testing.T) {
		clause, args, err := buildWhereClause([]adapter.Filter{
			{Column: "deleted_at", Operator: "IS NULL"},
			{Column: "email", Operator: "is not null"},
		}, 1)
		require.NoError(t, err)
		assert.Equal(t, `"deleted_at" IS NULL AND "email" IS NOT NULL`, clause)
		assert.Empty(t, args)
	})

	t.Run("in expands placeholders", func(t *testing.T) {
		clause, args, err := buildWhereClause([]adapter.Filter{
			{Column: "status", Operator: "IN", Value: []string{"active", "pending"}},
			{Column: "id", Operator: "=", Value: 7},
		}, 1)
		require.NoError(t, err)
		assert.Equal(t, `"status" IN ($1, $2) AND "id" = $3`, clause)
		assert.Equal(t, []interface{}{"active", "pending", 7}, args)
	})

	t.Run("starting index offsets placeholders", func(t *testing.T) {
		clause, args, err := buildWhereClause([]adapter.Filter{
			{Column: "id", Operator: "=", Value: 7},
		}, 3)
		require.NoError(t, err)
		assert.Equal(t, `"id" = $3`, clause)
		assert.Equal(t, []interface{}{7}, args)
	})

	t.Run("in requires a list", func(t *testing.T) {
		_, _, err := buildWhereClause([]adapter.Filter{
			{Column: "status", Operator: "IN", Value: "active"},
		}, 1)
		assert.ErrorIs(t, err, adapter.ErrInvalidQuery)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, _, err := buildWhereClause([]adapter.Filter{
			{Column: "name", Operator: "SOUNDS LIKE", Value: "bob"},
		}, 1)
		assert.ErrorIs(t, err, adapter.ErrInvalidQuery)
	})

	t.Run("empty column", func(t *testing.T) {
		_, _, err := buildWhereClause([]adapter.Filter{
			{Operator: "=", Value: 1},
		}, 1)
		assert.ErrorIs(t, err, adapter.ErrInvalidQuery)
	})

	t.Run("quotes are doubled in identifiers", func(t *testing.T) {
		clause, _, err := buildWhereClause([]adapter.Filter{
			{Column: `weird"name`, Operator: "=", Value: 1},
		}, 1)
		require.NoError(t, err)
		assert.Equal(t, `"weird""name" = $1`, clause)
	})
}

func TestBuildInsertQuery(t *testing.T) {
	t.Run("preserves column order", func(t *testing.T) {
		row := common.Row{Columns: []string{"id", "email", "name"}, Values: []interface{}{1, "a@b.c", "Ada"}}

		query, args, err := buildInsertQuery("users", row)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "users" ("id", "email", "name") VALUES ($1, $2, $3)`, query)
		assert.Equal(t, []interface{}{1, "a@b.c", "Ada"}, args)
	})

	t.Run("empty row", func(t *testing.T) {
		_, _, err := buildInsertQuery("users", common.Row{})
		assert.ErrorIs(t, err, adapter.ErrInvalidQuery)
	})

	t.Run("empty table name", func(t *testing.T) {
		_, _, err := buildInsertQuery("", common.Row{Columns: []string{"id"}, Values: []interface{}{1}})
		assert.ErrorIs(t, err, adapter.ErrInvalidQuery)
	})
}

func TestBuildUpdateQuery(t *testing.T) {
	t.Run("sorted assignments then filter args", func(t *testing.T) {
		query, args, err := buildUpdateQuery("users",
			map[string]interface{}{"name": "Ada", "email": "a@b.c"},
			[]adapter.Filter{{Column: "id", Operator: "=", Value: 7}},
		)
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "users" SET "email" = $1, "name" = $2 WHERE "id" = $3`, query)
		assert.Equal(t, []interface{}{"a@b.c", "Ada", 7}, args)
	})

	t.Run("no filters updates every row", func(t *testing.T) {
		query, _, err := buildUpdateQuery("users", map[string]interface{}{"active": false}, nil)
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "users" SET "active" = $1`, query)
	})

	t.Run("no values", func(t *testing.T) {
		_, _, err := buildUpdateQuery("users", nil, nil)
		assert.ErrorIs(t, err, adapter.ErrInvalidQuery)
	})
}

func TestBuildDeleteQuery(t *testing.T) {
	t.Run("with filters", func(t *testing.T) {
		query, args, err := buildDeleteQuery("users", []adapter.Filter{
			{Column: "id", Operator: "=", Value: 7},
		})
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "users" WHERE "id" = $1`, query)
		assert.Equal(t, []interface{}{7}, args)
	})

	t.Run("without filters deletes all rows", func(t *testing.T) {
		query, args, err := buildDeleteQuery("users", nil)
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "users"`, query)
		assert.Empty(t, args)
	})
}
