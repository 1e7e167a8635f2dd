package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
	"github.com/tvgelderen/dbbridge/pkg/sqlguard"
)

// CodeDestructiveBlocked is the envelope error code for statements the
// destructive gate refused.
const CodeDestructiveBlocked = "destructive_operation_blocked"

// ExecuteQueryRequest is a raw statement with its bind parameters.
// AcknowledgeDestructive lets a statement through after the caller has
// confirmed the analyzer findings.
type ExecuteQueryRequest struct {
	Query                  string        `json:"query"`
	Args                   []interface{} `json:"args,omitempty"`
	AcknowledgeDestructive bool          `json:"acknowledgeDestructive,omitempty"`
}

// AnalysisResult is the analyzer output for one statement batch.
type AnalysisResult struct {
	HasDestructiveOperations bool                            `json:"hasDestructiveOperations"`
	Operations               []sqlguard.DestructiveOperation `json:"operations"`
}

// TransactionResult reports a committed transaction.
type TransactionResult struct {
	Committed bool `json:"committed"`
}

// SelectRows reads rows. Requests without a limit get the bridge default.
func (m *Manager) SelectRows(ctx context.Context, connectionID string, params adapter.SelectParams) adapter.Envelope[[]common.Row] {
	return run(m, connectionID, "select_rows", func(conn adapter.Connection) ([]common.Row, error) {
		if params.Limit <= 0 {
			params.Limit = m.defaults.DefaultRowLimit
		}
		return conn.DataOperations().SelectRows(ctx, params)
	})
}

// InsertRow inserts a single row.
func (m *Manager) InsertRow(ctx context.Context, connectionID, table string, row common.Row) adapter.Envelope[int64] {
	return run(m, connectionID, "insert_row", func(conn adapter.Connection) (int64, error) {
		return conn.DataOperations().InsertRow(ctx, table, row)
	})
}

// UpdateRows updates all rows matching the filters.
func (m *Manager) UpdateRows(ctx context.Context, connectionID, table string, values map[string]interface{}, filters []adapter.Filter) adapter.Envelope[int64] {
	return run(m, connectionID, "update_rows", func(conn adapter.Connection) (int64, error) {
		return conn.DataOperations().UpdateRows(ctx, table, values, filters)
	})
}

// DeleteRows deletes all rows matching the filters.
func (m *Manager) DeleteRows(ctx context.Context, connectionID, table string, filters []adapter.Filter) adapter.Envelope[int64] {
	return run(m, connectionID, "delete_rows", func(conn adapter.Connection) (int64, error) {
		return conn.DataOperations().DeleteRows(ctx, table, filters)
	})
}

// ExecuteQuery runs a raw statement. It is gated twice: on the raw SQL
// capability, and on the destructive analyzer unless the request
// acknowledges the findings.
func (m *Manager) ExecuteQuery(ctx context.Context, connectionID string, req ExecuteQueryRequest) adapter.Envelope[*adapter.QueryResult] {
	conn, err := m.connection(connectionID)
	if err != nil {
		return adapter.FailWith[*adapter.QueryResult]("", "", err)
	}
	backend := conn.Type()
	version := conn.Adapter().Version()

	if err := m.capabilityCheck(conn, "execute_query", dbcapabilities.CapRawSQL); err != nil {
		return adapter.FailWith[*adapter.QueryResult](backend, version, err)
	}

	if !req.AcknowledgeDestructive {
		if operations := sqlguard.Analyze(req.Query); len(operations) > 0 {
			m.safeLog("warn", "blocked destructive statement on %s: %s",
				connectionID, summarizeOperations(operations))
			return adapter.Envelope[*adapter.QueryResult]{
				Success: false,
				Error: &adapter.ErrorInfo{
					Code: CodeDestructiveBlocked,
					Message: fmt.Sprintf(
						"statement contains destructive operations (%s); set acknowledgeDestructive to run it",
						summarizeOperations(operations)),
				},
				Backend:        backend,
				AdapterVersion: version,
			}
		}
	}

	return execute(m, conn, "execute_query", func(conn adapter.Connection) (*adapter.QueryResult, error) {
		return conn.DataOperations().ExecuteQuery(ctx, req.Query, req.Args...)
	})
}

// AnalyzeQuery reports the destructive-statement findings for a query so
// a confirmation surface can show them before execution.
func (m *Manager) AnalyzeQuery(connectionID, query string) adapter.Envelope[AnalysisResult] {
	return run(m, connectionID, "analyze_query", func(conn adapter.Connection) (AnalysisResult, error) {
		operations := sqlguard.Analyze(query)
		return AnalysisResult{
			HasDestructiveOperations: len(operations) > 0,
			Operations:               operations,
		}, nil
	})
}

// Transaction runs work transactionally with retry on transient failures.
// Gated on the transactions capability; maxRetries is the total attempt
// budget, defaulted when not positive.
func (m *Manager) Transaction(ctx context.Context, connectionID string, maxRetries int, work func(tx adapter.Tx) error) adapter.Envelope[TransactionResult] {
	return runGated(m, connectionID, "transaction", dbcapabilities.CapTransactions, func(conn adapter.Connection) (TransactionResult, error) {
		if err := adapter.RunWithRetry(ctx, conn.TransactionOperations(), work, maxRetries); err != nil {
			return TransactionResult{}, err
		}
		return TransactionResult{Committed: true}, nil
	})
}

func summarizeOperations(operations []sqlguard.DestructiveOperation) string {
	parts := make([]string, len(operations))
	for i, op := range operations {
		if op.ObjectName != "" {
			parts[i] = fmt.Sprintf("%s %q", op.Type, op.ObjectName)
		} else {
			parts[i] = string(op.Type)
		}
	}
	return strings.Join(parts, ", ")
}
