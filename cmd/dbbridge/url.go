package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// urlCmd represents the url command
var urlCmd = &cobra.Command{
	Use:   "url <connection-string>",
	Short: "Parse and normalize a connection string",
	Long: "Parse a connection string, report every validation issue, and print the canonical form. " +
		"Passwords are masked in the output. Runs offline.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		details, err := dbcapabilities.ParseConnectionString(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Backend:  %s\n", details.DatabaseType)
		fmt.Printf("Host:     %s\n", details.Host)
		fmt.Printf("Port:     %d\n", details.Port)
		fmt.Printf("Database: %s\n", details.DatabaseName)
		fmt.Printf("Username: %s\n", details.Username)
		fmt.Printf("SSL:      %t", details.SSL)
		if details.SSLMode != "" {
			fmt.Printf(" (%s)", details.SSLMode)
		}
		fmt.Println()

		if len(details.Parameters) > 0 {
			keys := make([]string, 0, len(details.Parameters))
			for key := range details.Parameters {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Printf("Param:    %s=%s\n", key, details.Parameters[key])
			}
		}

		if issues := dbcapabilities.ValidateConnectionString(args[0]); len(issues) > 0 {
			fmt.Println()
			w := newTable()
			fmt.Fprintln(w, "Field\tIssue")
			fmt.Fprintln(w, "-----\t-----")
			for _, issue := range issues {
				fmt.Fprintf(w, "%s\t%s\n", issue.Field, issue.Message)
			}
			_ = w.Flush()
			return fmt.Errorf("connection string has %d validation issue(s)", len(issues))
		}

		if details.Password != "" {
			details.Password = "****"
		}
		canonical, err := dbcapabilities.BuildConnectionString(details)
		if err != nil {
			return err
		}
		fmt.Printf("\nCanonical: %s\n", canonical)
		return nil
	},
}
