package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	// Register the database adapters with the global registry.
	_ "github.com/tvgelderen/dbbridge/pkg/database/mongodb"
	_ "github.com/tvgelderen/dbbridge/pkg/database/mysql"
	_ "github.com/tvgelderen/dbbridge/pkg/database/postgres"
	_ "github.com/tvgelderen/dbbridge/pkg/database/redis"
)

var (
	version   = "0.1.0"
	GitCommit = "unknown" // Git commit hash, set at build time
	BuildTime = "unknown" // Build timestamp, set at build time

	verbose bool
)

// printVersionInfo displays detailed version information
func printVersionInfo() {
	fmt.Printf("dbbridge v%s (build %s)\n", version, GitCommit)
	fmt.Printf("Built: %s\n", BuildTime)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbbridge",
	Short: "Probe databases through the bridge adapters",
	Long: "A probe tool for the dbbridge access layer. Point any command at a connection string " +
		"(postgres://, mysql://, mongodb://, redis://) to inspect schemas, sample rows, and run " +
		"statements through the destructive-statement gate.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("version").Changed {
			printVersionInfo()
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "Show version information and exit")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every bridge operation")
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(columnsCmd)
	rootCmd.AddCommand(rowsCmd)
	rootCmd.AddCommand(queryCmd)
}

func main() {
	Execute()
}
