package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tvgelderen/dbbridge/pkg/bridge"
)

// tablesCmd represents the tables command
var tablesCmd = &cobra.Command{
	Use:   "tables <connection-string>",
	Short: "List tables or collections",
	Long:  `Display the tables (collections, key patterns) of the connected database.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), args[0], func(m *bridge.Manager, connectionID string) error {
			env := m.ListTables(cmd.Context(), connectionID)
			if !env.Success {
				return envelopeError(env.Error)
			}

			if len(env.Data) == 0 {
				fmt.Println("No tables found.")
				return nil
			}
			for _, table := range env.Data {
				fmt.Println(table)
			}
			return nil
		})
	},
}

// columnsCmd represents the columns command
var columnsCmd = &cobra.Command{
	Use:   "columns <connection-string> <table>",
	Short: "Show the columns of a table",
	Long:  `Display column names, data types, nullability and defaults for a table.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), args[0], func(m *bridge.Manager, connectionID string) error {
			env := m.GetColumns(cmd.Context(), connectionID, args[1])
			if !env.Success {
				return envelopeError(env.Error)
			}

			w := newTable()
			fmt.Fprintln(w, "Column\tType\tNullable\tKey\tDefault")
			fmt.Fprintln(w, "------\t----\t--------\t---\t-------")
			for _, col := range env.Data {
				key := ""
				if col.IsPrimaryKey {
					key = "PK"
				} else if col.IsUnique {
					key = "unique"
				}
				def := ""
				if col.ColumnDefault != nil {
					def = *col.ColumnDefault
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", col.Name, col.DataType, col.IsNullable, key, def)
			}
			_ = w.Flush()
			return nil
		})
	},
}
