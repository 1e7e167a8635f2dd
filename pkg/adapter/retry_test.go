package adapter

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// scriptedTxOps returns one scripted error per Execute call, then succeeds.
type scriptedTxOps struct {
	calls int
	errs  []error
}

func (s *scriptedTxOps) Execute(ctx context.Context, work func(tx Tx) error) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"wrapped canceled", fmt.Errorf("tx: %w", context.Canceled), false},
		{"pg serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"pg lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"pg statement timeout", &pgconn.PgError{Code: "57014"}, true},
		{"pg too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"pg syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"mysql too many connections", &mysql.MySQLError{Number: 1040}, true},
		{"mysql lock wait timeout", &mysql.MySQLError{Number: 1205}, true},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql statement not allowed", &mysql.MySQLError{Number: 1317}, true},
		{"mysql duplicate entry", &mysql.MySQLError{Number: 1062}, false},
		{"bad conn", driver.ErrBadConn, true},
		{"connection failed sentinel", fmt.Errorf("connect: %w", ErrConnectionFailed), true},
		{"connection closed sentinel", ErrConnectionClosed, true},
		{"connection error", NewConnectionError(dbcapabilities.MySQL, "db", 3306, errors.New("no route")), true},
		{"reset by peer text", errors.New("write tcp: connection reset by peer"), true},
		{"broken pipe text", errors.New("write: broken pipe"), true},
		{"io timeout text", errors.New("read tcp: i/o timeout"), true},
		{"mongo deadlock text", errors.New("WriteConflict: deadlock detected during operation"), true},
		{"plain failure", errors.New("syntax error at or near SELECT"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryableError(tt.err))
		})
	}
}

func TestRunWithRetrySucceedsFirstAttempt(t *testing.T) {
	ops := &scriptedTxOps{}

	err := RunWithRetry(context.Background(), ops, func(tx Tx) error { return nil }, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, ops.calls)
}

func TestRunWithRetryRecoversFromTransientFailures(t *testing.T) {
	ops := &scriptedTxOps{errs: []error{
		&pgconn.PgError{Code: "40001", Message: "serialization failure"},
		&pgconn.PgError{Code: "40P01", Message: "deadlock detected"},
	}}

	err := RunWithRetry(context.Background(), ops, func(tx Tx) error { return nil }, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, ops.calls)
}

func TestRunWithRetryExhaustsAttempts(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	ops := &scriptedTxOps{errs: []error{deadlock, deadlock, deadlock}}

	err := RunWithRetry(context.Background(), ops, func(tx Tx) error { return nil }, 3)
	require.Error(t, err)
	assert.Equal(t, 3, ops.calls)
	assert.ErrorIs(t, err, deadlock)
}

func TestRunWithRetrySingleAttemptBudget(t *testing.T) {
	ops := &scriptedTxOps{errs: []error{&pgconn.PgError{Code: "40001"}}}

	err := RunWithRetry(context.Background(), ops, func(tx Tx) error { return nil }, 1)
	require.Error(t, err)
	assert.Equal(t, 1, ops.calls)
}

func TestRunWithRetryDoesNotRetryPermanentErrors(t *testing.T) {
	syntax := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	ops := &scriptedTxOps{errs: []error{syntax}}

	err := RunWithRetry(context.Background(), ops, func(tx Tx) error { return nil }, 3)
	require.Error(t, err)
	assert.Equal(t, 1, ops.calls)
	// Permanent errors come back untouched, without retry wrapping.
	assert.Equal(t, error(syntax), err)
}

func TestRunWithRetryDefaultsAttemptBudget(t *testing.T) {
	deadlock := &pgconn.PgError{Code: "40P01"}
	ops := &scriptedTxOps{errs: []error{deadlock, deadlock, deadlock, deadlock}}

	err := RunWithRetry(context.Background(), ops, func(tx Tx) error { return nil }, 0)
	require.Error(t, err)
	assert.Equal(t, DefaultMaxRetries, ops.calls)
}

func TestRunWithRetryHonorsCancellationBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ops := &scriptedTxOps{}
	err := RunWithRetry(ctx, ops, func(tx Tx) error { return nil }, 3)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ops.calls)
}

func TestRunWithRetryHonorsCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	deadlock := &pgconn.PgError{Code: "40P01"}
	ops := &scriptedTxOps{errs: []error{deadlock, deadlock, deadlock, deadlock}}

	start := time.Now()
	err := RunWithRetry(ctx, ops, func(tx Tx) error { return nil }, 4)

	// The first backoff is 100ms, so the 30ms deadline fires inside it.
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, ops.calls)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRunWithRetryBacksOffBetweenAttempts(t *testing.T) {
	deadlock := &pgconn.PgError{Code: "40P01"}
	ops := &scriptedTxOps{errs: []error{deadlock, deadlock}}

	start := time.Now()
	err := RunWithRetry(context.Background(), ops, func(tx Tx) error { return nil }, 3)
	elapsed := time.Since(start)

	require.NoError(t, err)
	// 100ms after the first failure, 200ms after the second.
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
}
