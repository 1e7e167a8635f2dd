package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config manages runtime configuration as a thread-safe key/value store.
// Keys are dotted paths, e.g. "defaults.row_limit".
type Config struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates a new configuration manager
func New() *Config {
	return &Config{
		values: make(map[string]string),
	}
}

// Get retrieves a configuration value
func (c *Config) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// GetInt retrieves a configuration value as an int, or def when unset or invalid
func (c *Config) GetInt(key string, def int) int {
	v := c.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetBool retrieves a configuration value as a bool, or def when unset or invalid
func (c *Config) GetBool(key string, def bool) bool {
	v := c.Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetDuration retrieves a configuration value as a duration, or def when unset or invalid
func (c *Config) GetDuration(key string, def time.Duration) time.Duration {
	v := c.Get(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// GetAll returns a copy of all configuration values
func (c *Config) GetAll() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	copy := make(map[string]string)
	for k, v := range c.values {
		copy[k] = v
	}
	return copy
}

// Set stores a single configuration value
func (c *Config) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Update updates configuration values
func (c *Config) Update(values map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range values {
		c.values[k] = v
	}
}

// fileConfig is the on-disk YAML layout.
type fileConfig struct {
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Encryption struct {
		MasterKey string `yaml:"master_key"`
	} `yaml:"encryption"`
	Defaults struct {
		// QueryTimeout is a duration string, e.g. "30s".
		QueryTimeout string `yaml:"query_timeout"`
		RowLimit     int    `yaml:"row_limit"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"defaults"`
}

// LoadFromFile reads a YAML configuration file, applies defaults, validates it,
// and returns a populated Config.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Set defaults
	if fc.Logging.Level == "" {
		fc.Logging.Level = "info"
	}
	if fc.Defaults.QueryTimeout == "" {
		fc.Defaults.QueryTimeout = "30s"
	}
	if fc.Defaults.RowLimit == 0 {
		fc.Defaults.RowLimit = 1000
	}
	if fc.Defaults.MaxOpenConns == 0 {
		fc.Defaults.MaxOpenConns = 25
	}
	if fc.Defaults.MaxIdleConns == 0 {
		fc.Defaults.MaxIdleConns = 5
	}

	// Validate
	switch fc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid logging.level: %s", fc.Logging.Level)
	}
	queryTimeout, err := time.ParseDuration(fc.Defaults.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid defaults.query_timeout: %s", fc.Defaults.QueryTimeout)
	}
	if fc.Defaults.RowLimit < 0 {
		return nil, fmt.Errorf("defaults.row_limit must not be negative")
	}

	c := New()
	c.Update(map[string]string{
		"logging.level":           fc.Logging.Level,
		"encryption.master_key":   fc.Encryption.MasterKey,
		"defaults.query_timeout":  queryTimeout.String(),
		"defaults.row_limit":      strconv.Itoa(fc.Defaults.RowLimit),
		"defaults.max_open_conns": strconv.Itoa(fc.Defaults.MaxOpenConns),
		"defaults.max_idle_conns": strconv.Itoa(fc.Defaults.MaxIdleConns),
	})
	return c, nil
}
