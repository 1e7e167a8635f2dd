package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// DataOps implements adapter.DataOperator for MongoDB. Filters translate
// to query documents, rows to documents with the field order preserved.
type DataOps struct {
	conn *Connection
}

// SelectRows retrieves documents from a collection.
func (d *DataOps) SelectRows(ctx context.Context, params adapter.SelectParams) ([]common.Row, error) {
	if params.Table == "" {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "select_rows",
			fmt.Errorf("%w: collection name cannot be empty", adapter.ErrInvalidQuery))
	}

	filter, err := buildFilterDocument(params.Filters)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "select_rows", err)
	}

	findOptions := options.Find()
	if len(params.Columns) > 0 {
		findOptions.SetProjection(buildProjection(params.Columns))
	}
	if len(params.OrderBy) > 0 {
		sortDoc, err := buildSortDocument(params.OrderBy)
		if err != nil {
			return nil, adapter.WrapError(dbcapabilities.MongoDB, "select_rows", err)
		}
		findOptions.SetSort(sortDoc)
	}
	if params.Limit > 0 {
		findOptions.SetLimit(int64(params.Limit))
	}
	if params.Offset > 0 {
		findOptions.SetSkip(int64(params.Offset))
	}

	cursor, err := d.conn.db.Collection(params.Table).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "select_rows", err)
	}
	defer cursor.Close(ctx)

	// Decode into bson.D so the document field order survives into rows.
	var documents []bson.D
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "select_rows", err)
	}

	rows := make([]common.Row, len(documents))
	for i, doc := range documents {
		rows[i] = docToRow(doc)
	}
	return rows, nil
}

// InsertRow inserts a single document into a collection. The driver
// assigns an ObjectID when the row carries no _id field.
func (d *DataOps) InsertRow(ctx context.Context, table string, row common.Row) (int64, error) {
	if table == "" {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "insert_row",
			fmt.Errorf("%w: collection name cannot be empty", adapter.ErrInvalidQuery))
	}
	if row.Len() == 0 {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "insert_row",
			fmt.Errorf("%w: row has no fields", adapter.ErrInvalidQuery))
	}

	doc := make(bson.D, 0, row.Len())
	for i, column := range row.Columns {
		doc = append(doc, bson.E{Key: column, Value: row.Values[i]})
	}

	if _, err := d.conn.db.Collection(table).InsertOne(ctx, doc); err != nil {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "insert_row", err)
	}
	return 1, nil
}

// UpdateRows applies a $set update to every document matching the filters.
func (d *DataOps) UpdateRows(ctx context.Context, table string, values map[string]interface{}, filters []adapter.Filter) (int64, error) {
	if table == "" {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "update_rows",
			fmt.Errorf("%w: collection name cannot be empty", adapter.ErrInvalidQuery))
	}
	if len(values) == 0 {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "update_rows",
			fmt.Errorf("%w: no values to update", adapter.ErrInvalidQuery))
	}

	filter, err := buildFilterDocument(filters)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "update_rows", err)
	}

	// Sort for a deterministic update document shape.
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	set := make(bson.D, 0, len(columns))
	for _, column := range columns {
		set = append(set, bson.E{Key: column, Value: values[column]})
	}

	result, err := d.conn.db.Collection(table).UpdateMany(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "update_rows", err)
	}
	return result.ModifiedCount, nil
}

// DeleteRows deletes every document matching the filters.
func (d *DataOps) DeleteRows(ctx context.Context, table string, filters []adapter.Filter) (int64, error) {
	if table == "" {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "delete_rows",
			fmt.Errorf("%w: collection name cannot be empty", adapter.ErrInvalidQuery))
	}

	filter, err := buildFilterDocument(filters)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "delete_rows", err)
	}

	result, err := d.conn.db.Collection(table).DeleteMany(ctx, filter)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "delete_rows", err)
	}
	return result.DeletedCount, nil
}

// ExecuteQuery reports raw statements as unsupported.
func (d *DataOps) ExecuteQuery(ctx context.Context, query string, args ...interface{}) (*adapter.QueryResult, error) {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.MongoDB).UnsupportedReason(dbcapabilities.CapRawSQL)
	return nil, adapter.NewUnsupportedOperationError(dbcapabilities.MongoDB, "execute_query", reason)
}

// buildFilterDocument translates adapter filters into a query document.
// Multiple conditions combine under $and so several filters may target the
// same field.
func buildFilterDocument(filters []adapter.Filter) (bson.D, error) {
	if len(filters) == 0 {
		return bson.D{}, nil
	}

	conditions := make([]bson.D, 0, len(filters))
	for _, filter := range filters {
		if filter.Column == "" {
			return nil, fmt.Errorf("%w: filter column cannot be empty", adapter.ErrInvalidQuery)
		}

		var condition bson.D
		switch op := adapter.NormalizeFilterOperator(filter.Operator); op {
		case "=":
			condition = bson.D{{Key: filter.Column, Value: filter.Value}}
		case "!=":
			condition = bson.D{{Key: filter.Column, Value: bson.D{{Key: "$ne", Value: filter.Value}}}}
		case "<":
			condition = bson.D{{Key: filter.Column, Value: bson.D{{Key: "$lt", Value: filter.Value}}}}
		case "<=":
			condition = bson.D{{Key: filter.Column, Value: bson.D{{Key: "$lte", Value: filter.Value}}}}
		case ">":
			condition = bson.D{{Key: filter.Column, Value: bson.D{{Key: "$gt", Value: filter.Value}}}}
		case ">=":
			condition = bson.D{{Key: filter.Column, Value: bson.D{{Key: "$gte", Value: filter.Value}}}}

		case "LIKE":
			pattern, ok := filter.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: LIKE filter requires a string value", adapter.ErrInvalidQuery)
			}
			condition = bson.D{{Key: filter.Column, Value: bson.D{{Key: "$regex", Value: likePatternToRegex(pattern)}}}}

		case "IN", "NOT IN":
			items, ok := adapter.FilterValueList(filter.Value)
			if !ok || len(items) == 0 {
				return nil, fmt.Errorf("%w: %s filter requires a non-empty list value", adapter.ErrInvalidQuery, op)
			}
			operator := "$in"
			if op == "NOT IN" {
				operator = "$nin"
			}
			condition = bson.D{{Key: filter.Column, Value: bson.D{{Key: operator, Value: bson.A(items)}}}}

		case "IS NULL":
			condition = bson.D{{Key: filter.Column, Value: nil}}
		case "IS NOT NULL":
			condition = bson.D{{Key: filter.Column, Value: bson.D{{Key: "$ne", Value: nil}}}}

		default:
			return nil, fmt.Errorf("%w: unsupported filter operator %q", adapter.ErrInvalidQuery, filter.Operator)
		}
		conditions = append(conditions, condition)
	}

	if len(conditions) == 1 {
		return conditions[0], nil
	}
	and := make(bson.A, len(conditions))
	for i, condition := range conditions {
		and[i] = condition
	}
	return bson.D{{Key: "$and", Value: and}}, nil
}

// likePatternToRegex converts a SQL LIKE pattern into an anchored regular
// expression: % matches any run, _ a single character.
func likePatternToRegex(pattern string) string {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, "%", ".*")
	escaped = strings.ReplaceAll(escaped, "_", ".")
	return "^" + escaped + "$"
}

func buildProjection(columns []string) bson.D {
	projection := make(bson.D, 0, len(columns)+1)
	includeID := false
	for _, column := range columns {
		projection = append(projection, bson.E{Key: column, Value: 1})
		if column == "_id" {
			includeID = true
		}
	}
	// _id is returned by default even when not projected.
	if !includeID {
		projection = append(projection, bson.E{Key: "_id", Value: 0})
	}
	return projection
}

func buildSortDocument(orderBy []adapter.OrderBy) (bson.D, error) {
	sortDoc := make(bson.D, 0, len(orderBy))
	for _, ob := range orderBy {
		direction := 1
		switch strings.ToLower(ob.Direction) {
		case "", "asc":
		case "desc":
			direction = -1
		default:
			return nil, fmt.Errorf("%w: unsupported sort direction %q", adapter.ErrInvalidQuery, ob.Direction)
		}
		sortDoc = append(sortDoc, bson.E{Key: ob.Column, Value: direction})
	}
	return sortDoc, nil
}

// docToRow flattens a document into a row, keeping the field order and
// converting driver BSON types to plain Go values.
func docToRow(doc bson.D) common.Row {
	row := common.Row{
		Columns: make([]string, len(doc)),
		Values:  make([]interface{}, len(doc)),
	}
	for i, elem := range doc {
		row.Columns[i] = elem.Key
		row.Values[i] = convertBSONValue(elem.Value)
	}
	return row
}

// convertBSONValue converts BSON types to standard Go types for better
// JSON serialization.
func convertBSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return time.Unix(0, int64(val)*int64(time.Millisecond)).UTC().Format(time.RFC3339)
	case bson.Binary:
		return string(val.Data)
	case bson.Decimal128:
		return val.String()
	case bson.D:
		nested := make(map[string]interface{}, len(val))
		for _, elem := range val {
			nested[elem.Key] = convertBSONValue(elem.Value)
		}
		return nested
	case bson.A:
		arr := make([]interface{}, len(val))
		for i, item := range val {
			arr[i] = convertBSONValue(item)
		}
		return arr
	default:
		return v
	}
}
