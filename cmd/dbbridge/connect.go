package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/tvgelderen/dbbridge/pkg/adapter"
	"github.com/tvgelderen/dbbridge/pkg/bridge"
	"github.com/tvgelderen/dbbridge/pkg/logger"
)

// resolveConfig parses the connection string into an adapter config. When the
// URL carries no password and stdin is a terminal, the password is read with
// echo disabled so it never appears in argv or shell history.
func resolveConfig(connectionString string) (adapter.ConnectionConfig, error) {
	cfg, err := adapter.ConfigFromConnectionString(connectionString)
	if err != nil {
		return adapter.ConnectionConfig{}, err
	}

	if cfg.Password == "" && term.IsTerminal(int(syscall.Stdin)) {
		fmt.Print("Password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return adapter.ConnectionConfig{}, fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Println() // Add newline after password input
		cfg.Password = string(passwordBytes)
	}

	return cfg, nil
}

// newManager builds a bridge manager against the global adapter registry.
func newManager() *bridge.Manager {
	m := bridge.NewManager(nil, bridge.DefaultsFromConfig(nil))
	if verbose {
		m.SetLogger(logger.New("dbbridge", version))
	}
	return m
}

// withConnection opens a connection for the duration of fn and closes it after.
func withConnection(ctx context.Context, connectionString string, fn func(m *bridge.Manager, connectionID string) error) error {
	cfg, err := resolveConfig(connectionString)
	if err != nil {
		return err
	}

	m := newManager()
	env := m.Connect(ctx, cfg)
	if !env.Success {
		return envelopeError(env.Error)
	}
	defer m.Disconnect(ctx, env.Data.ConnectionID)

	return fn(m, env.Data.ConnectionID)
}

// envelopeError turns a failure envelope into a CLI error.
func envelopeError(info *adapter.ErrorInfo) error {
	if info == nil {
		return fmt.Errorf("operation failed")
	}
	return fmt.Errorf("%s: %s", info.Code, info.Message)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
}
