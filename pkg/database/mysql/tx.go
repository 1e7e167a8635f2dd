package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// TxOps implements adapter.TransactionOperator for MySQL.
// Execute runs exactly one attempt; retry policy lives with the caller.
type TxOps struct {
	conn *Connection
}

// Execute runs work inside a transaction, committing on success and
// rolling back on failure.
func (t *TxOps) Execute(ctx context.Context, work func(tx adapter.Tx) error) error {
	sqlTx, err := t.conn.db.BeginTx(ctx, nil)
	if err != nil {
		return adapter.WrapError(dbcapabilities.MySQL, "begin_transaction", err)
	}

	if err := work(&Tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return adapter.WrapError(dbcapabilities.MySQL, "rollback_transaction",
				fmt.Errorf("rollback failed: %v (after: %w)", rbErr, err))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return adapter.WrapError(dbcapabilities.MySQL, "commit_transaction", err)
	}
	return nil
}

// Tx adapts a database/sql transaction to adapter.Tx.
type Tx struct {
	tx *sql.Tx
}

// Exec runs a statement and returns the number of affected rows.
func (t *Tx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Query runs a query inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...interface{}) (*adapter.QueryResult, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRows(rows)
}
