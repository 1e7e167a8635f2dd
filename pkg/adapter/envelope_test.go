package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

func TestExecuteSuccess(t *testing.T) {
	env := Execute(dbcapabilities.PostgreSQL, "1.2.3", func() ([]string, error) {
		return []string{"users", "orders"}, nil
	})

	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, []string{"users", "orders"}, env.Data)
	assert.Equal(t, dbcapabilities.PostgreSQL, env.Backend)
	assert.Equal(t, "1.2.3", env.AdapterVersion)
	assert.GreaterOrEqual(t, env.DurationMs, int64(0))
}

func TestExecuteFailure(t *testing.T) {
	env := Execute(dbcapabilities.MySQL, "1.2.3", func() ([]string, error) {
		return []string{"partial"}, errors.New("boom")
	})

	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeInternalError, env.Error.Code)
	assert.Equal(t, "boom", env.Error.Message)
	// Failure envelopes never leak partial data.
	assert.Nil(t, env.Data)
	assert.Equal(t, dbcapabilities.MySQL, env.Backend)
}

func TestExecuteExactlyOneOfDataAndError(t *testing.T) {
	ok := Execute(dbcapabilities.Redis, "1.0", func() (int, error) { return 42, nil })
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)
	assert.Equal(t, 42, ok.Data)

	bad := Execute(dbcapabilities.Redis, "1.0", func() (int, error) { return 42, errors.New("nope") })
	assert.False(t, bad.Success)
	assert.NotNil(t, bad.Error)
	assert.Zero(t, bad.Data)
}

func TestExecuteMeasuresDuration(t *testing.T) {
	env := Execute(dbcapabilities.PostgreSQL, "1.0", func() (struct{}, error) {
		time.Sleep(25 * time.Millisecond)
		return struct{}{}, nil
	})

	assert.GreaterOrEqual(t, env.DurationMs, int64(20))
}

func TestFailWith(t *testing.T) {
	err := NewUnsupportedOperationError(dbcapabilities.Redis, "transaction", "MULTI/EXEC batches commands")
	env := FailWith[string](dbcapabilities.Redis, "1.0", err)

	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeUnsupportedOperation, env.Error.Code)
	assert.Empty(t, env.Data)
	assert.Zero(t, env.DurationMs)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"nil", nil, ""},
		{"canceled", context.Canceled, CodeCanceled},
		{"deadline", context.DeadlineExceeded, CodeTimeout},
		{"wrapped canceled", fmt.Errorf("tx: %w", context.Canceled), CodeCanceled},
		{"unsupported", NewUnsupportedOperationError(dbcapabilities.Redis, "raw_sql", "no SQL"), CodeUnsupportedOperation},
		{"configuration", NewConfigurationError(dbcapabilities.MySQL, "host", "required"), CodeInvalidConfiguration},
		{"invalid configuration sentinel", ErrInvalidConfiguration, CodeInvalidConfiguration},
		{"invalid query", fmt.Errorf("%w: bad operator", ErrInvalidQuery), CodeInvalidQuery},
		{"authentication", fmt.Errorf("login: %w", ErrAuthenticationFailed), CodeAuthenticationFailed},
		{"permission", ErrPermissionDenied, CodePermissionDenied},
		{"table not found", NewNotFoundError(dbcapabilities.PostgreSQL, "table", "users"), CodeNotFound},
		{"connection not found", ErrConnectionNotFound, CodeNotFound},
		{"adapter not found", fmt.Errorf("%w: oracle", ErrAdapterNotFound), CodeNotFound},
		{"connection error", NewConnectionError(dbcapabilities.MySQL, "db", 3306, errors.New("refused")), CodeConnectionFailed},
		{"connection closed", ErrConnectionClosed, CodeConnectionFailed},
		{"transaction failed", fmt.Errorf("%w: commit", ErrTransactionFailed), CodeTransactionFailed},
		{"database error", NewDatabaseError(dbcapabilities.PostgreSQL, "select_rows", errors.New("syntax error")), CodeQueryFailed},
		{"unknown", errors.New("boom"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ClassifyError(tt.err))
		})
	}
}

func TestClassifyErrorSeesThroughDatabaseError(t *testing.T) {
	// A wrapped unsupported error classifies by its cause, not as a
	// generic query failure.
	err := WrapError(dbcapabilities.Redis, "get_constraints",
		NewUnsupportedOperationError(dbcapabilities.Redis, "get_constraints", "no constraints"))

	assert.Equal(t, CodeUnsupportedOperation, ClassifyError(err))
}
