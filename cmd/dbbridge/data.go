package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/bridge"
	"github.com/tvgelderen/dbbridge/pkg/database/common"
	"github.com/tvgelderen/dbbridge/pkg/sqlguard"
)

var (
	rowsLimit              int
	acknowledgeDestructive bool
)

// rowsCmd represents the rows command
var rowsCmd = &cobra.Command{
	Use:   "rows <connection-string> <table>",
	Short: "Sample rows from a table",
	Long:  `Fetch up to --limit rows from a table and render them as a table.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), args[0], func(m *bridge.Manager, connectionID string) error {
			env := m.SelectRows(cmd.Context(), connectionID, adapter.SelectParams{
				Table: args[1],
				Limit: rowsLimit,
			})
			if !env.Success {
				return envelopeError(env.Error)
			}
			printRows(env.Data)
			return nil
		})
	},
}

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <connection-string> <sql>",
	Short: "Run a raw statement",
	Long: "Execute a raw statement through the destructive-statement gate. Statements that drop, truncate " +
		"or bulk-delete objects are refused unless --yes acknowledges them.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), args[0], func(m *bridge.Manager, connectionID string) error {
			env := m.ExecuteQuery(cmd.Context(), connectionID, bridge.ExecuteQueryRequest{
				Query:                  args[1],
				AcknowledgeDestructive: acknowledgeDestructive,
			})
			if !env.Success {
				if env.Error != nil && env.Error.Code == bridge.CodeDestructiveBlocked {
					if analysis := m.AnalyzeQuery(connectionID, args[1]); analysis.Success {
						printFindings(analysis.Data.Operations)
					}
					return fmt.Errorf("refusing to execute; re-run with --yes to acknowledge")
				}
				return envelopeError(env.Error)
			}

			result := env.Data
			if len(result.Rows) > 0 {
				printRows(result.Rows)
				return nil
			}
			fmt.Printf("OK, %d rows affected\n", result.RowsAffected)
			return nil
		})
	},
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <sql>",
	Short: "Scan a statement for destructive operations",
	Long:  `Report DROP, TRUNCATE, unfiltered DELETE and similar operations found in a statement. Runs offline.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		operations := sqlguard.Analyze(args[0])
		if len(operations) == 0 {
			fmt.Println("No destructive operations found.")
			return nil
		}
		printFindings(operations)
		return nil
	},
}

func init() {
	rowsCmd.Flags().IntVar(&rowsLimit, "limit", 10, "Maximum number of rows to fetch")
	queryCmd.Flags().BoolVar(&acknowledgeDestructive, "yes", false, "Acknowledge and run destructive statements")
}

// printRows renders rows as a table over the union of their columns. Document
// stores return per-row column sets, so the union keeps every field visible.
func printRows(rows []common.Row) {
	if len(rows) == 0 {
		fmt.Println("No rows found.")
		return
	}

	var columns []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, col := range row.Columns {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}

	dashes := make([]string, len(columns))
	for i, col := range columns {
		dashes[i] = strings.Repeat("-", len(col))
	}

	w := newTable()
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	fmt.Fprintln(w, strings.Join(dashes, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if value, ok := row.Get(col); ok && value != nil {
				cells[i] = fmt.Sprintf("%v", value)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
	fmt.Printf("(%d rows)\n", len(rows))
}

func printFindings(operations []sqlguard.DestructiveOperation) {
	w := newTable()
	fmt.Fprintln(w, "Operation\tSeverity\tObject")
	fmt.Fprintln(w, "---------\t--------\t------")
	for _, op := range operations {
		fmt.Fprintf(w, "%s\t%s\t%s\n", op.Type, op.Severity, op.ObjectName)
	}
	_ = w.Flush()
}
