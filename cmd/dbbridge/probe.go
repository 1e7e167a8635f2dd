package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tvgelderen/dbbridge/pkg/bridge"
)

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping <connection-string>",
	Short: "Test connectivity to a database",
	Long:  `Open a connection, ping the server, and report the round-trip latency.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(args[0])
		if err != nil {
			return err
		}

		m := newManager()
		env := m.TestConnection(cmd.Context(), cfg)
		if !env.Success {
			return envelopeError(env.Error)
		}
		if !env.Data.Success {
			return fmt.Errorf("connection failed: %s", env.Data.Message)
		}

		fmt.Printf("%s connection OK (%d ms)\n", env.Backend, env.Data.LatencyMs)
		return nil
	},
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <connection-string>",
	Short: "Show server version and metadata",
	Long:  `Connect and report the server version along with collected server metadata.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), args[0], func(m *bridge.Manager, connectionID string) error {
			env := m.GetStatus(cmd.Context(), connectionID)
			if !env.Success {
				return envelopeError(env.Error)
			}

			status := env.Data
			fmt.Printf("Backend:   %s\n", status.Backend)
			fmt.Printf("Connected: %t\n", status.Connected)
			if status.Version != "" {
				fmt.Printf("Version:   %s\n", status.Version)
			}
			if status.Message != "" {
				fmt.Printf("Message:   %s\n", status.Message)
			}

			if len(status.Metadata) > 0 {
				keys := make([]string, 0, len(status.Metadata))
				for key := range status.Metadata {
					keys = append(keys, key)
				}
				sort.Strings(keys)

				fmt.Println()
				w := newTable()
				fmt.Fprintln(w, "Metadata\tValue")
				fmt.Fprintln(w, "--------\t-----")
				for _, key := range keys {
					fmt.Fprintf(w, "%s\t%v\n", key, status.Metadata[key])
				}
				_ = w.Flush()
			}
			return nil
		})
	},
}
