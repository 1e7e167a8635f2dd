package adapter

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultMaxRetries is the total number of transaction attempts when
// the caller does not set a limit.
const DefaultMaxRetries = 3

// retryBaseDelay is the backoff before the first retry; each further
// retry doubles it.
const retryBaseDelay = 100 * time.Millisecond

// retryablePgCodes are the PostgreSQL SQLSTATE codes worth retrying:
// serialization_failure, deadlock_detected, lock_not_available,
// query_canceled (statement timeout) and too_many_connections.
var retryablePgCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
	"57014": true,
	"53300": true,
}

// retryableMySQLCodes are the MySQL server error numbers worth
// retrying: too many connections, lock wait timeout, deadlock and
// statement-not-allowed-in-this-state during failover.
var retryableMySQLCodes = map[uint16]bool{
	1040: true,
	1205: true,
	1213: true,
	1317: true,
}

// retryableFragments match transient failures reported only as text,
// typically from drivers that do not expose structured codes.
var retryableFragments = []string{
	"serialization failure",
	"deadlock",
	"lock not available",
	"statement timeout",
	"too many connections",
	"try restarting transaction",
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
}

// IsRetryableError reports whether an error is transient enough to
// retry the whole transaction. Context cancellation is never
// retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryablePgCodes[pgErr.Code]
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return retryableMySQLCodes[myErr.Number]
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrConnectionClosed) {
		return true
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// RunWithRetry runs transactional work up to maxRetries total attempts,
// retrying only errors IsRetryableError accepts. Backoff doubles from
// 100ms between attempts. maxRetries below one falls back to
// DefaultMaxRetries. Cancellation aborts immediately and is returned
// as-is.
func RunWithRetry(ctx context.Context, txOps TransactionOperator, work func(tx Tx) error, maxRetries int) error {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = txOps.Execute(ctx, work)
		if lastErr == nil {
			return nil
		}
		if !IsRetryableError(lastErr) {
			return lastErr
		}
		if attempt == maxRetries {
			break
		}

		delay := retryBaseDelay << (attempt - 1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("transaction failed after %d attempts: %w", maxRetries, lastErr)
}
