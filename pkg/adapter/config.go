package adapter

import (
	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
	"github.com/tvgelderen/dbbridge/pkg/encryption"
)

// ConnectionConfig contains the configuration for a database connection.
// This is a unified configuration that works across all database types.
type ConnectionConfig struct {
	// Core identifiers
	ConnectionID string `json:"connectionId,omitempty"`
	Name         string `json:"name,omitempty"`

	// Database type
	DatabaseType dbcapabilities.DatabaseID `json:"databaseType"`

	// Connection details
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	DatabaseName string `json:"databaseName"`

	// EncryptedPassword takes precedence over Password when set. Engines
	// decrypt it just-in-time inside Connect.
	EncryptedPassword *encryption.EncryptedSecret `json:"encryptedPassword,omitempty"`

	// SSL/TLS configuration
	SSL                   bool    `json:"ssl,omitempty"`
	SSLMode               string  `json:"sslMode,omitempty"` // verify-full, require, etc.
	SSLRejectUnauthorized *bool   `json:"sslRejectUnauthorized,omitempty"`
	SSLCert               *string `json:"sslCert,omitempty"`
	SSLKey                *string `json:"sslKey,omitempty"`
	SSLRootCert           *string `json:"sslRootCert,omitempty"`

	// Pool sizing (0 means the engine default)
	MaxOpenConns int `json:"maxOpenConns,omitempty"`
	MaxIdleConns int `json:"maxIdleConns,omitempty"`

	// Opaque driver parameters, carried through from the connection string
	Options map[string]string `json:"options,omitempty"`
}

// ConfigFromConnectionString parses a connection string into a
// ConnectionConfig. The connection ID is left empty for the caller to
// assign.
func ConfigFromConnectionString(connectionString string) (ConnectionConfig, error) {
	details, err := dbcapabilities.ParseConnectionString(connectionString)
	if err != nil {
		return ConnectionConfig{}, NewConfigurationError("", "connectionString", err.Error())
	}

	return ConnectionConfig{
		DatabaseType: details.DatabaseType,
		Host:         details.Host,
		Port:         details.Port,
		Username:     details.Username,
		Password:     details.Password,
		DatabaseName: details.DatabaseName,
		SSL:          details.SSL,
		SSLMode:      details.SSLMode,
		Options:      details.Parameters,
	}, nil
}

// Validate checks the fields every engine requires. Engines run it at the
// top of Connect.
func (c ConnectionConfig) Validate() error {
	if _, ok := dbcapabilities.Get(c.DatabaseType); !ok {
		return NewConfigurationError(c.DatabaseType, "databaseType", "unknown database type")
	}
	if c.Host == "" {
		return NewConfigurationError(c.DatabaseType, "host", "host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return NewConfigurationError(c.DatabaseType, "port", "port must be between 1 and 65535")
	}
	if c.DatabaseName == "" {
		return NewConfigurationError(c.DatabaseType, "databaseName", "database name is required")
	}
	if c.Username == "" {
		return NewConfigurationError(c.DatabaseType, "username", "username is required")
	}
	return nil
}

// Address returns the dialable host:port for this connection.
func (c ConnectionConfig) Address() string {
	return dbcapabilities.HostPort(c.Host, c.Port)
}

// ResolvePassword returns the plaintext password, decrypting the encrypted
// credential with the process-wide vault when one is present.
func (c ConnectionConfig) ResolvePassword() (string, error) {
	if c.EncryptedPassword != nil {
		return encryption.DecryptCredential(*c.EncryptedPassword)
	}
	return c.Password, nil
}

// GetStringPtr returns a pointer to a string value, or nil if the string is empty.
// Helper function for optional string fields.
func GetStringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetString returns the string value from a pointer, or empty string if nil.
// Helper function for optional string fields.
func GetString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetBoolPtr returns a pointer to a bool value.
// Helper function for optional bool fields.
func GetBoolPtr(b bool) *bool {
	return &b
}

// GetBool returns the bool value from a pointer, or false if nil.
// Helper function for optional bool fields.
func GetBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}
