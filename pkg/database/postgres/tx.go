package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// TxOps implements adapter.TransactionOperator for PostgreSQL.
// Execute runs exactly one attempt; retry policy lives with the caller.
type TxOps struct {
	conn *Connection
}

// Execute runs work inside a transaction, committing on success and
// rolling back on failure.
func (t *TxOps) Execute(ctx context.Context, work func(tx adapter.Tx) error) error {
	pgxTx, err := t.conn.pool.Begin(ctx)
	if err != nil {
		return adapter.WrapError(dbcapabilities.PostgreSQL, "begin_transaction", err)
	}

	if err := work(&Tx{tx: pgxTx}); err != nil {
		if rbErr := pgxTx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return adapter.WrapError(dbcapabilities.PostgreSQL, "rollback_transaction",
				fmt.Errorf("rollback failed: %v (after: %w)", rbErr, err))
		}
		return err
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return adapter.WrapError(dbcapabilities.PostgreSQL, "commit_transaction", err)
	}
	return nil
}

// Tx adapts a pgx transaction to adapter.Tx.
type Tx struct {
	tx pgx.Tx
}

// Exec runs a statement and returns the number of affected rows.
func (t *Tx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Query runs a query inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...interface{}) (*adapter.QueryResult, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRows(rows)
}
