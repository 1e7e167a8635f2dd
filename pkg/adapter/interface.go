// Package adapter provides the unified interface for all database adapters.
// This package defines the contracts that database-specific implementations must follow.
package adapter

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// DatabaseAdapter represents a database technology adapter.
// Each database type (PostgreSQL, MySQL, MongoDB, Redis) must implement this interface.
type DatabaseAdapter interface {
	// Type returns the canonical database type identifier
	Type() dbcapabilities.DatabaseID

	// Version returns the adapter implementation version
	Version() string

	// Capabilities returns the capability metadata for this database type
	Capabilities() dbcapabilities.Capability

	// Connect establishes a connection to a specific database
	Connect(ctx context.Context, config ConnectionConfig) (Connection, error)
}

// Connection represents an active connection to a specific database.
// This is the main interface for interacting with a database.
type Connection interface {
	// Identity and status
	ID() string
	Type() dbcapabilities.DatabaseID
	IsConnected() bool

	// Lifecycle management
	Ping(ctx context.Context) error
	Close() error

	// Operation interfaces. Groups the database cannot serve at all are
	// backed by Unsupported* null objects, never nil.
	SchemaOperations() SchemaOperator
	DataOperations() DataOperator
	MetadataOperations() MetadataOperator
	TransactionOperations() TransactionOperator

	// Raw returns the underlying database-specific connection object.
	// Use this only when you need to perform operations not covered by the standard interfaces.
	// Type assertion is required when using Raw().
	Raw() interface{}

	// Configuration
	Config() ConnectionConfig
	Adapter() DatabaseAdapter
}

// SchemaOperator handles structure discovery operations.
// Engines without a concept report per-method unsupported errors.
type SchemaOperator interface {
	// ListDatabases returns the databases visible on the server
	ListDatabases(ctx context.Context) ([]string, error)

	// ListSchemas returns the schemas/namespaces of the connected database
	ListSchemas(ctx context.Context) ([]string, error)

	// ListTables returns the names of all tables/collections in the database
	ListTables(ctx context.Context) ([]string, error)

	// GetColumns retrieves the columns of a specific table/collection
	GetColumns(ctx context.Context, table string) ([]common.ColumnInfo, error)

	// GetIndexes retrieves the indexes of a specific table/collection
	GetIndexes(ctx context.Context, table string) ([]common.IndexInfo, error)

	// GetConstraints retrieves the constraints of a specific table
	GetConstraints(ctx context.Context, table string) ([]common.Constraint, error)

	// GetTableStructure retrieves the complete structure of a table
	GetTableStructure(ctx context.Context, table string) (*common.TableStructure, error)
}

// DataOperator handles data CRUD operations.
// All databases support at least basic data operations.
type DataOperator interface {
	// SelectRows reads rows matching the parameters, in column order
	SelectRows(ctx context.Context, params SelectParams) ([]common.Row, error)

	// InsertRow inserts a single row and returns the number of inserted rows
	InsertRow(ctx context.Context, table string, row common.Row) (int64, error)

	// UpdateRows updates all rows matching the filters and returns the
	// number of affected rows
	UpdateRows(ctx context.Context, table string, values map[string]interface{}, filters []Filter) (int64, error)

	// DeleteRows deletes all rows matching the filters and returns the
	// number of affected rows
	DeleteRows(ctx context.Context, table string, filters []Filter) (int64, error)

	// ExecuteQuery runs a raw query with bound parameters
	ExecuteQuery(ctx context.Context, query string, args ...interface{}) (*QueryResult, error)
}

// MetadataOperator handles metadata collection and introspection.
type MetadataOperator interface {
	// GetVersion returns the server version string
	GetVersion(ctx context.Context) (string, error)

	// GetUniqueIdentifier returns a stable identifier for the server
	GetUniqueIdentifier(ctx context.Context) (string, error)

	// CollectServerMetadata gathers server status details
	CollectServerMetadata(ctx context.Context) (map[string]interface{}, error)
}

// Tx is the handle passed to transactional work.
type Tx interface {
	// Exec runs a statement and returns the number of affected rows
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)

	// Query runs a query and returns its result
	Query(ctx context.Context, query string, args ...interface{}) (*QueryResult, error)
}

// TransactionOperator runs work inside a single transaction attempt:
// begin, run, commit on success, roll back on failure. Retries live in
// RunWithRetry, nowhere else.
type TransactionOperator interface {
	Execute(ctx context.Context, work func(tx Tx) error) error
}

// Filter restricts an operation to rows matching column OPERATOR value.
type Filter struct {
	Column   string      `json:"column"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

// OrderBy sorts results by a column.
type OrderBy struct {
	Column    string `json:"column"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// SelectParams configures a row selection.
type SelectParams struct {
	Table   string    `json:"table"`
	Columns []string  `json:"columns,omitempty"` // empty = all
	Filters []Filter  `json:"filters,omitempty"`
	OrderBy []OrderBy `json:"orderBy,omitempty"`
	Limit   int       `json:"limit,omitempty"`
	Offset  int       `json:"offset,omitempty"`
}

// QueryResult contains the result of a raw query. Statements without a
// result set carry only RowsAffected.
type QueryResult struct {
	Columns      []string     `json:"columns,omitempty"`
	Rows         []common.Row `json:"rows,omitempty"`
	RowsAffected int64        `json:"rowsAffected"`
}

// filterOperators is the whitelist of filter operators engines accept.
var filterOperators = map[string]bool{
	"=":           true,
	"!=":          true,
	"<":           true,
	"<=":          true,
	">":           true,
	">=":          true,
	"LIKE":        true,
	"IN":          true,
	"NOT IN":      true,
	"IS NULL":     true,
	"IS NOT NULL": true,
}

// NormalizeFilterOperator canonicalizes a filter operator: trimmed,
// uppercased, inner whitespace collapsed.
func NormalizeFilterOperator(operator string) string {
	return strings.Join(strings.Fields(strings.ToUpper(operator)), " ")
}

// ValidFilterOperator reports whether the operator is in the whitelist.
func ValidFilterOperator(operator string) bool {
	return filterOperators[NormalizeFilterOperator(operator)]
}

// ValidateFilters checks every filter against the operator whitelist.
func ValidateFilters(dbType dbcapabilities.DatabaseID, filters []Filter) error {
	for _, filter := range filters {
		if filter.Column == "" {
			return NewConfigurationError(dbType, "filter", "filter column is required")
		}
		if !ValidFilterOperator(filter.Operator) {
			return NewDatabaseError(dbType, "filter",
				fmt.Errorf("%w: unsupported filter operator %q", ErrInvalidQuery, filter.Operator))
		}
	}
	return nil
}

// FilterValueList coerces an IN / NOT IN filter value to a concrete
// list. It reports false for scalars and nil.
func FilterValueList(value interface{}) ([]interface{}, bool) {
	if value == nil {
		return nil, false
	}
	if items, ok := value.([]interface{}); ok {
		return items, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// ValidateOrderBy checks every order-by clause for a column and a known
// direction.
func ValidateOrderBy(dbType dbcapabilities.DatabaseID, orderBy []OrderBy) error {
	for _, clause := range orderBy {
		if clause.Column == "" {
			return NewConfigurationError(dbType, "orderBy", "order-by column is required")
		}
		switch strings.ToLower(clause.Direction) {
		case "", "asc", "desc":
		default:
			return NewDatabaseError(dbType, "orderBy",
				fmt.Errorf("%w: unsupported sort direction %q", ErrInvalidQuery, clause.Direction))
		}
	}
	return nil
}
