package redis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// Fixed row columns of the key model.
const (
	colKey   = "key"
	colType  = "type"
	colTTL   = "ttl"
	colValue = "value"
)

// scanBatchSize is the COUNT hint passed to SCAN.
const scanBatchSize = 1000

// DataOps implements adapter.DataOperator for Redis. Rows carry one key
// each; filters and ordering are evaluated client-side on the fixed
// columns since Redis has no query language for them.
type DataOps struct {
	conn *Connection
}

// SelectRows reads the keys under the table's prefix as rows.
func (d *DataOps) SelectRows(ctx context.Context, params adapter.SelectParams) ([]common.Row, error) {
	if params.Table == "" {
		return nil, adapter.WrapError(dbcapabilities.Redis, "select_rows",
			fmt.Errorf("%w: table name cannot be empty", adapter.ErrInvalidQuery))
	}

	rows, err := d.matchingRows(ctx, params.Table, params.Filters)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Redis, "select_rows", err)
	}

	if len(params.OrderBy) > 0 {
		if err := sortRows(rows, params.OrderBy); err != nil {
			return nil, adapter.WrapError(dbcapabilities.Redis, "select_rows", err)
		}
	}

	if params.Offset > 0 {
		if params.Offset >= len(rows) {
			return []common.Row{}, nil
		}
		rows = rows[params.Offset:]
	}
	if params.Limit > 0 && len(rows) > params.Limit {
		rows = rows[:params.Limit]
	}

	if len(params.Columns) > 0 {
		projected := make([]common.Row, len(rows))
		for i, row := range rows {
			p, err := projectRow(row, params.Columns)
			if err != nil {
				return nil, adapter.WrapError(dbcapabilities.Redis, "select_rows", err)
			}
			projected[i] = p
		}
		rows = projected
	}

	return rows, nil
}

// InsertRow writes one key. The row must carry the key and value columns;
// type and ttl are optional.
func (d *DataOps) InsertRow(ctx context.Context, table string, row common.Row) (int64, error) {
	if table == "" {
		return 0, adapter.WrapError(dbcapabilities.Redis, "insert_row",
			fmt.Errorf("%w: table name cannot be empty", adapter.ErrInvalidQuery))
	}

	keyValue, ok := row.Get(colKey)
	if !ok {
		return 0, adapter.WrapError(dbcapabilities.Redis, "insert_row",
			fmt.Errorf("%w: row requires a %q column", adapter.ErrInvalidQuery, colKey))
	}
	key, ok := keyValue.(string)
	if !ok || key == "" {
		return 0, adapter.WrapError(dbcapabilities.Redis, "insert_row",
			fmt.Errorf("%w: key must be a non-empty string", adapter.ErrInvalidQuery))
	}
	key = qualifyKey(table, key)

	value, ok := row.Get(colValue)
	if !ok {
		return 0, adapter.WrapError(dbcapabilities.Redis, "insert_row",
			fmt.Errorf("%w: row requires a %q column", adapter.ErrInvalidQuery, colValue))
	}

	valueType := ""
	if typeValue, ok := row.Get(colType); ok {
		valueType, _ = typeValue.(string)
	}
	if valueType == "" {
		valueType = inferValueType(value)
	}

	var ttlSeconds int64
	if ttlValue, ok := row.Get(colTTL); ok {
		ttlSeconds = toInt64(ttlValue)
	}

	if err := d.writeEntry(ctx, key, valueType, value, ttlSeconds); err != nil {
		return 0, adapter.WrapError(dbcapabilities.Redis, "insert_row", err)
	}
	return 1, nil
}

// UpdateRows rewrites the value or expiry of every key matching the
// filters. The values map accepts the value, type and ttl columns.
func (d *DataOps) UpdateRows(ctx context.Context, table string, values map[string]interface{}, filters []adapter.Filter) (int64, error) {
	if table == "" {
		return 0, adapter.WrapError(dbcapabilities.Redis, "update_rows",
			fmt.Errorf("%w: table name cannot be empty", adapter.ErrInvalidQuery))
	}

	newValue, hasValue := values[colValue]
	ttlValue, hasTTL := values[colTTL]
	newType, _ := values[colType].(string)
	if !hasValue && !hasTTL {
		return 0, adapter.WrapError(dbcapabilities.Redis, "update_rows",
			fmt.Errorf("%w: updates must set %q or %q", adapter.ErrInvalidQuery, colValue, colTTL))
	}
	for column := range values {
		if column != colValue && column != colTTL && column != colType {
			return 0, adapter.WrapError(dbcapabilities.Redis, "update_rows",
				fmt.Errorf("%w: unknown column %q; rows expose key, type, ttl and value", adapter.ErrInvalidQuery, column))
		}
	}

	rows, err := d.matchingRows(ctx, table, filters)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.Redis, "update_rows", err)
	}

	var affected int64
	for _, row := range rows {
		key := rowKey(row)
		if key == "" {
			continue
		}

		if hasValue {
			valueType := newType
			if valueType == "" {
				current, _ := row.Get(colType)
				valueType, _ = current.(string)
			}
			if valueType == "" {
				valueType = inferValueType(newValue)
			}
			if err := d.writeEntry(ctx, key, valueType, newValue, toInt64(ttlValue)); err != nil {
				return affected, adapter.WrapError(dbcapabilities.Redis, "update_rows", err)
			}
		} else {
			// TTL-only update.
			seconds := toInt64(ttlValue)
			if seconds > 0 {
				if err := d.conn.client.Expire(ctx, key, time.Duration(seconds)*time.Second).Err(); err != nil {
					return affected, adapter.WrapError(dbcapabilities.Redis, "update_rows", err)
				}
			} else {
				if err := d.conn.client.Persist(ctx, key).Err(); err != nil {
					return affected, adapter.WrapError(dbcapabilities.Redis, "update_rows", err)
				}
			}
		}
		affected++
	}
	return affected, nil
}

// DeleteRows deletes every key matching the filters.
func (d *DataOps) DeleteRows(ctx context.Context, table string, filters []adapter.Filter) (int64, error) {
	if table == "" {
		return 0, adapter.WrapError(dbcapabilities.Redis, "delete_rows",
			fmt.Errorf("%w: table name cannot be empty", adapter.ErrInvalidQuery))
	}

	rows, err := d.matchingRows(ctx, table, filters)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.Redis, "delete_rows", err)
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		if key := rowKey(row); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := d.conn.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.Redis, "delete_rows", err)
	}
	return deleted, nil
}

// ExecuteQuery reports raw statements as unsupported.
func (d *DataOps) ExecuteQuery(ctx context.Context, query string, args ...interface{}) (*adapter.QueryResult, error) {
	reason, _ := dbcapabilities.MustGet(dbcapabilities.Redis).UnsupportedReason(dbcapabilities.CapRawSQL)
	return nil, adapter.NewUnsupportedOperationError(dbcapabilities.Redis, "execute_query", reason)
}

// matchingRows scans the table's prefix and returns the rows passing the
// filters, in key order.
func (d *DataOps) matchingRows(ctx context.Context, table string, filters []adapter.Filter) ([]common.Row, error) {
	keys, err := scanKeys(ctx, d.conn.client, keyPattern(table))
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	rows := make([]common.Row, 0, len(keys))
	for _, key := range keys {
		row, err := d.readEntry(ctx, key)
		if err != nil {
			// Keys can expire between SCAN and the read.
			continue
		}
		ok, err := matchesFilters(row, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// readEntry materializes one key as a row with the fixed columns.
func (d *DataOps) readEntry(ctx context.Context, key string) (common.Row, error) {
	client := d.conn.client

	keyType, err := client.Type(ctx, key).Result()
	if err != nil {
		return common.Row{}, err
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		return common.Row{}, err
	}
	ttlSeconds := int64(-1)
	if ttl > 0 {
		ttlSeconds = int64(ttl.Seconds())
	}

	var value interface{}
	switch keyType {
	case "string":
		value, err = client.Get(ctx, key).Result()
	case "list":
		value, err = client.LRange(ctx, key, 0, -1).Result()
	case "set":
		value, err = client.SMembers(ctx, key).Result()
	case "zset":
		var members []redis.Z
		members, err = client.ZRangeWithScores(ctx, key, 0, -1).Result()
		if err == nil {
			scores := make(map[string]float64, len(members))
			for _, member := range members {
				scores[fmt.Sprint(member.Member)] = member.Score
			}
			value = scores
		}
	case "hash":
		value, err = client.HGetAll(ctx, key).Result()
	case "stream":
		var messages []redis.XMessage
		messages, err = client.XRange(ctx, key, "-", "+").Result()
		if err == nil {
			entries := make([]map[string]interface{}, len(messages))
			for i, message := range messages {
				entries[i] = map[string]interface{}{"id": message.ID, "values": message.Values}
			}
			value = entries
		}
	default:
		value = nil
	}
	if err != nil {
		return common.Row{}, err
	}

	return common.Row{
		Columns: []string{colKey, colType, colTTL, colValue},
		Values:  []interface{}{key, keyType, ttlSeconds, value},
	}, nil
}

// writeEntry overwrites one key with a typed value. A positive TTL sets an
// expiry; zero leaves the key persistent.
func (d *DataOps) writeEntry(ctx context.Context, key, valueType string, value interface{}, ttlSeconds int64) error {
	client := d.conn.client

	expiry := time.Duration(0)
	if ttlSeconds > 0 {
		expiry = time.Duration(ttlSeconds) * time.Second
	}

	switch strings.ToLower(valueType) {
	case "string":
		return client.Set(ctx, key, fmt.Sprint(value), expiry).Err()

	case "list", "set":
		items, ok := adapter.FilterValueList(value)
		if !ok {
			return fmt.Errorf("%w: %s values require a list", adapter.ErrInvalidQuery, valueType)
		}
		stringValues := make([]interface{}, len(items))
		for i, item := range items {
			stringValues[i] = fmt.Sprint(item)
		}
		// Rewrite in place of merging with any existing members.
		if err := client.Del(ctx, key).Err(); err != nil {
			return err
		}
		if len(stringValues) > 0 {
			var err error
			if valueType == "list" {
				err = client.RPush(ctx, key, stringValues...).Err()
			} else {
				err = client.SAdd(ctx, key, stringValues...).Err()
			}
			if err != nil {
				return err
			}
		}
		return d.applyExpiry(ctx, key, expiry)

	case "hash":
		fields, ok := toStringMap(value)
		if !ok || len(fields) == 0 {
			return fmt.Errorf("%w: hash values require a non-empty map", adapter.ErrInvalidQuery)
		}
		if err := client.Del(ctx, key).Err(); err != nil {
			return err
		}
		if err := client.HSet(ctx, key, fields).Err(); err != nil {
			return err
		}
		return d.applyExpiry(ctx, key, expiry)

	case "zset":
		members, ok := toScoreMap(value)
		if !ok || len(members) == 0 {
			return fmt.Errorf("%w: zset values require a member-to-score map", adapter.ErrInvalidQuery)
		}
		zs := make([]redis.Z, 0, len(members))
		for member, score := range members {
			zs = append(zs, redis.Z{Score: score, Member: member})
		}
		if err := client.Del(ctx, key).Err(); err != nil {
			return err
		}
		if err := client.ZAdd(ctx, key, zs...).Err(); err != nil {
			return err
		}
		return d.applyExpiry(ctx, key, expiry)

	default:
		return fmt.Errorf("%w: unsupported value type %q", adapter.ErrInvalidQuery, valueType)
	}
}

func (d *DataOps) applyExpiry(ctx context.Context, key string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}
	return d.conn.client.Expire(ctx, key, expiry).Err()
}

// scanKeys collects every key matching the pattern with a SCAN loop.
func scanKeys(ctx context.Context, client *redis.Client, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			return keys, nil
		}
	}
}

// keyPattern maps a table name to its SCAN pattern. Glob characters in the
// name are taken literally.
func keyPattern(table string) string {
	return escapeGlob(table) + ":*"
}

func escapeGlob(s string) string {
	replacer := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(s)
}

// qualifyKey prefixes a bare key with the table namespace.
func qualifyKey(table, key string) string {
	if strings.HasPrefix(key, table+":") {
		return key
	}
	return table + ":" + key
}

func rowKey(row common.Row) string {
	value, ok := row.Get(colKey)
	if !ok {
		return ""
	}
	key, _ := value.(string)
	return key
}

// inferValueType picks the storage type for an untyped value.
func inferValueType(value interface{}) string {
	switch value.(type) {
	case map[string]interface{}, map[string]string:
		return "hash"
	case []interface{}, []string:
		return "list"
	default:
		return "string"
	}
}

// matchesFilters evaluates the filters against one row. Unknown columns
// and unknown operators are errors, a failed comparison just excludes the
// row.
func matchesFilters(row common.Row, filters []adapter.Filter) (bool, error) {
	for _, filter := range filters {
		if filter.Column == "" {
			return false, fmt.Errorf("%w: filter column cannot be empty", adapter.ErrInvalidQuery)
		}
		value, ok := row.Get(filter.Column)
		if !ok {
			return false, fmt.Errorf("%w: unknown column %q; rows expose key, type, ttl and value", adapter.ErrInvalidQuery, filter.Column)
		}

		switch op := adapter.NormalizeFilterOperator(filter.Operator); op {
		case "=":
			if !equalValues(value, filter.Value) {
				return false, nil
			}
		case "!=":
			if equalValues(value, filter.Value) {
				return false, nil
			}

		case "<", "<=", ">", ">=":
			cmp := compareValues(value, filter.Value)
			if (op == "<" && cmp >= 0) || (op == "<=" && cmp > 0) ||
				(op == ">" && cmp <= 0) || (op == ">=" && cmp < 0) {
				return false, nil
			}

		case "LIKE":
			pattern, ok := filter.Value.(string)
			if !ok {
				return false, fmt.Errorf("%w: LIKE filter requires a string value", adapter.ErrInvalidQuery)
			}
			matched, err := regexp.MatchString(likePatternToRegex(pattern), fmt.Sprint(value))
			if err != nil || !matched {
				return false, err
			}

		case "IN", "NOT IN":
			items, ok := adapter.FilterValueList(filter.Value)
			if !ok || len(items) == 0 {
				return false, fmt.Errorf("%w: %s filter requires a non-empty list value", adapter.ErrInvalidQuery, op)
			}
			found := false
			for _, item := range items {
				if equalValues(value, item) {
					found = true
					break
				}
			}
			if found == (op == "NOT IN") {
				return false, nil
			}

		case "IS NULL":
			if value != nil {
				return false, nil
			}
		case "IS NOT NULL":
			if value == nil {
				return false, nil
			}

		default:
			return false, fmt.Errorf("%w: unsupported filter operator %q", adapter.ErrInvalidQuery, filter.Operator)
		}
	}
	return true, nil
}

// sortRows orders rows client-side.
func sortRows(rows []common.Row, orderBy []adapter.OrderBy) error {
	directions := make([]int, len(orderBy))
	for i, ob := range orderBy {
		switch strings.ToLower(ob.Direction) {
		case "", "asc":
			directions[i] = 1
		case "desc":
			directions[i] = -1
		default:
			return fmt.Errorf("%w: unsupported sort direction %q", adapter.ErrInvalidQuery, ob.Direction)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for k, ob := range orderBy {
			left, _ := rows[i].Get(ob.Column)
			right, _ := rows[j].Get(ob.Column)
			if cmp := compareValues(left, right); cmp != 0 {
				return cmp*directions[k] < 0
			}
		}
		return false
	})
	return nil
}

// projectRow narrows a row to the requested columns, in request order.
func projectRow(row common.Row, columns []string) (common.Row, error) {
	projected := common.Row{
		Columns: make([]string, len(columns)),
		Values:  make([]interface{}, len(columns)),
	}
	for i, column := range columns {
		value, ok := row.Get(column)
		if !ok {
			return common.Row{}, fmt.Errorf("%w: unknown column %q; rows expose key, type, ttl and value", adapter.ErrInvalidQuery, column)
		}
		projected.Columns[i] = column
		projected.Values[i] = value
	}
	return projected, nil
}

// equalValues compares numerically when both sides are numbers, by string
// form otherwise.
func equalValues(a, b interface{}) bool {
	return compareValues(a, b) == 0
}

// compareValues returns -1, 0 or 1. Numbers compare numerically, anything
// else by string form.
func compareValues(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

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

func toStringMap(value interface{}) (map[string]interface{}, bool) {
	switch v := value.(type) {
	case map[string]interface{}:
		fields := make(map[string]interface{}, len(v))
		for key, item := range v {
			fields[key] = fmt.Sprint(item)
		}
		return fields, true
	case map[string]string:
		fields := make(map[string]interface{}, len(v))
		for key, item := range v {
			fields[key] = item
		}
		return fields, true
	default:
		return nil, false
	}
}

func toScoreMap(value interface{}) (map[string]float64, bool) {
	switch v := value.(type) {
	case map[string]float64:
		return v, true
	case map[string]interface{}:
		members := make(map[string]float64, len(v))
		for member, score := range v {
			f, ok := toFloat(score)
			if !ok {
				return nil, false
			}
			members[member] = f
		}
		return members, true
	default:
		return nil, false
	}
}

// likePatternToRegex converts a SQL LIKE pattern into an anchored regular
// expression: % matches any run, _ a single character.
func likePatternToRegex(pattern string) string {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, "%", ".*")
	escaped = strings.ReplaceAll(escaped, "_", ".")
	return "^" + escaped + "$"
}
