package adapter

import (
	"context"

	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// Null-object operators for capability groups a database cannot serve.
// Connections return these instead of nil so callers never have to
// nil-check an operator group; every method fails with a reasoned
// UnsupportedOperationError.

// UnsupportedSchemaOperator satisfies SchemaOperator for databases
// without structure discovery.
type UnsupportedSchemaOperator struct {
	dbType dbcapabilities.DatabaseID
	reason string
}

// NewUnsupportedSchemaOperator creates an always-failing SchemaOperator.
func NewUnsupportedSchemaOperator(dbType dbcapabilities.DatabaseID, reason string) *UnsupportedSchemaOperator {
	return &UnsupportedSchemaOperator{dbType: dbType, reason: reason}
}

func (o *UnsupportedSchemaOperator) UnsupportedReason() string { return o.reason }

func (o *UnsupportedSchemaOperator) ListDatabases(ctx context.Context) ([]string, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "list_databases", o.reason)
}

func (o *UnsupportedSchemaOperator) ListSchemas(ctx context.Context) ([]string, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "list_schemas", o.reason)
}

func (o *UnsupportedSchemaOperator) ListTables(ctx context.Context) ([]string, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "list_tables", o.reason)
}

func (o *UnsupportedSchemaOperator) GetColumns(ctx context.Context, table string) ([]common.ColumnInfo, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "get_columns", o.reason)
}

func (o *UnsupportedSchemaOperator) GetIndexes(ctx context.Context, table string) ([]common.IndexInfo, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "get_indexes", o.reason)
}

func (o *UnsupportedSchemaOperator) GetConstraints(ctx context.Context, table string) ([]common.Constraint, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "get_constraints", o.reason)
}

func (o *UnsupportedSchemaOperator) GetTableStructure(ctx context.Context, table string) (*common.TableStructure, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "get_table_structure", o.reason)
}

// UnsupportedDataOperator satisfies DataOperator for databases without
// row-level data access.
type UnsupportedDataOperator struct {
	dbType dbcapabilities.DatabaseID
	reason string
}

// NewUnsupportedDataOperator creates an always-failing DataOperator.
func NewUnsupportedDataOperator(dbType dbcapabilities.DatabaseID, reason string) *UnsupportedDataOperator {
	return &UnsupportedDataOperator{dbType: dbType, reason: reason}
}

func (o *UnsupportedDataOperator) UnsupportedReason() string { return o.reason }

func (o *UnsupportedDataOperator) SelectRows(ctx context.Context, params SelectParams) ([]common.Row, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "select_rows", o.reason)
}

func (o *UnsupportedDataOperator) InsertRow(ctx context.Context, table string, row common.Row) (int64, error) {
	return 0, NewUnsupportedOperationError(o.dbType, "insert_row", o.reason)
}

func (o *UnsupportedDataOperator) UpdateRows(ctx context.Context, table string, values map[string]interface{}, filters []Filter) (int64, error) {
	return 0, NewUnsupportedOperationError(o.dbType, "update_rows", o.reason)
}

func (o *UnsupportedDataOperator) DeleteRows(ctx context.Context, table string, filters []Filter) (int64, error) {
	return 0, NewUnsupportedOperationError(o.dbType, "delete_rows", o.reason)
}

func (o *UnsupportedDataOperator) ExecuteQuery(ctx context.Context, query string, args ...interface{}) (*QueryResult, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "execute_query", o.reason)
}

// UnsupportedMetadataOperator satisfies MetadataOperator for databases
// without server introspection.
type UnsupportedMetadataOperator struct {
	dbType dbcapabilities.DatabaseID
	reason string
}

// NewUnsupportedMetadataOperator creates an always-failing MetadataOperator.
func NewUnsupportedMetadataOperator(dbType dbcapabilities.DatabaseID, reason string) *UnsupportedMetadataOperator {
	return &UnsupportedMetadataOperator{dbType: dbType, reason: reason}
}

func (o *UnsupportedMetadataOperator) UnsupportedReason() string { return o.reason }

func (o *UnsupportedMetadataOperator) GetVersion(ctx context.Context) (string, error) {
	return "", NewUnsupportedOperationError(o.dbType, "get_version", o.reason)
}

func (o *UnsupportedMetadataOperator) GetUniqueIdentifier(ctx context.Context) (string, error) {
	return "", NewUnsupportedOperationError(o.dbType, "get_unique_identifier", o.reason)
}

func (o *UnsupportedMetadataOperator) CollectServerMetadata(ctx context.Context) (map[string]interface{}, error) {
	return nil, NewUnsupportedOperationError(o.dbType, "collect_server_metadata", o.reason)
}

// UnsupportedTransactionOperator satisfies TransactionOperator for
// databases without interactive transactions.
type UnsupportedTransactionOperator struct {
	dbType dbcapabilities.DatabaseID
	reason string
}

// NewUnsupportedTransactionOperator creates an always-failing TransactionOperator.
func NewUnsupportedTransactionOperator(dbType dbcapabilities.DatabaseID, reason string) *UnsupportedTransactionOperator {
	return &UnsupportedTransactionOperator{dbType: dbType, reason: reason}
}

func (o *UnsupportedTransactionOperator) UnsupportedReason() string { return o.reason }

func (o *UnsupportedTransactionOperator) Execute(ctx context.Context, work func(tx Tx) error) error {
	return NewUnsupportedOperationError(o.dbType, "transaction", o.reason)
}

// IsUnsupportedOperator reports whether an operator group is one of the
// null objects above.
func IsUnsupportedOperator(op interface{}) bool {
	_, ok := op.(interface{ UnsupportedReason() string })
	return ok
}
