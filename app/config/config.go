// Package config loads service settings from a YAML or TOML file with
// TODOCHAT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Server ServerConfig `yaml:"server" toml:"server"`
	Store  StoreConfig  `yaml:"store" toml:"store"`
	Auth   AuthConfig   `yaml:"auth" toml:"auth"`
	Log    LogConfig    `yaml:"log" toml:"log"`
	Chat   ChatConfig   `yaml:"chat" toml:"chat"`
}

// ServerConfig configures the HTTP listener. Timeouts are duration strings.
type ServerConfig struct {
	Addr            string `yaml:"addr" toml:"addr"`
	ReadTimeout     string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout" toml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver   string         `yaml:"driver" toml:"driver"` // sqlite, postgres, neo4j
	SQLite   SQLiteConfig   `yaml:"sqlite" toml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres" toml:"postgres"`
	Neo4j    Neo4jConfig    `yaml:"neo4j" toml:"neo4j"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri" toml:"uri"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	Database string `yaml:"database" toml:"database"`
}

// AuthConfig maps static bearer tokens to owner ids.
type AuthConfig struct {
	Tokens map[string]string `yaml:"tokens" toml:"tokens"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console
}

type ChatConfig struct {
	// ListLimit is how many titles a list reply names.
	ListLimit int `yaml:"list_limit" toml:"list_limit"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNeo4j    = "neo4j"
)

// ValidDrivers lists the supported store drivers.
var ValidDrivers = []string{DriverSQLite, DriverPostgres, DriverNeo4j}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "15s",
			WriteTimeout:    "15s",
			ShutdownTimeout: "10s",
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			SQLite: SQLiteConfig{Path: "todochat.db"},
			Neo4j: Neo4jConfig{
				URI:      "neo4j://localhost:7687",
				Username: "neo4j",
			},
		},
		Auth: AuthConfig{Tokens: map[string]string{}},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Chat: ChatConfig{ListLimit: 5},
	}
}

// Load reads the file at path over the defaults and applies environment
// overrides. An empty path or a missing file yields the defaults. Files
// ending in .toml are parsed as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if cfg.Auth.Tokens == nil {
		cfg.Auth.Tokens = map[string]string{}
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	overrides := []struct {
		env string
		dst *string
	}{
		{"TODOCHAT_ADDR", &c.Server.Addr},
		{"TODOCHAT_STORE_DRIVER", &c.Store.Driver},
		{"TODOCHAT_SQLITE_PATH", &c.Store.SQLite.Path},
		{"TODOCHAT_POSTGRES_DSN", &c.Store.Postgres.DSN},
		{"TODOCHAT_NEO4J_URI", &c.Store.Neo4j.URI},
		{"TODOCHAT_NEO4J_USERNAME", &c.Store.Neo4j.Username},
		{"TODOCHAT_NEO4J_PASSWORD", &c.Store.Neo4j.Password},
		{"TODOCHAT_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}

	if v := os.Getenv("TODOCHAT_AUTH_TOKENS"); v != "" {
		tokens, err := ParseTokens(v)
		if err != nil {
			return fmt.Errorf("TODOCHAT_AUTH_TOKENS: %w", err)
		}
		c.Auth.Tokens = tokens
	}
	return nil
}

// ParseTokens parses "token=owner,token2=owner2".
func ParseTokens(s string) (map[string]string, error) {
	tokens := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, owner, ok := strings.Cut(pair, "=")
		token, owner = strings.TrimSpace(token), strings.TrimSpace(owner)
		if !ok || token == "" || owner == "" {
			return nil, fmt.Errorf("malformed token entry %q, want token=owner", pair)
		}
		tokens[token] = owner
	}
	return tokens, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validDriver := false
	for _, d := range ValidDrivers {
		if c.Store.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid store driver: %q (valid: %v)", c.Store.Driver, ValidDrivers)
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required")
		}
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required")
		}
	case DriverNeo4j:
		if c.Store.Neo4j.URI == "" {
			return fmt.Errorf("store.neo4j.uri is required")
		}
	}

	for name, v := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}

	for token, owner := range c.Auth.Tokens {
		if strings.TrimSpace(token) == "" || strings.TrimSpace(owner) == "" {
			return fmt.Errorf("auth.tokens entries need a token and an owner")
		}
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %q (valid: json, console)", c.Log.Format)
	}
	if c.Chat.ListLimit < 0 {
		return fmt.Errorf("chat.list_limit must not be negative")
	}
	return nil
}

// ReadTimeout returns the server read timeout as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return duration(c.Server.ReadTimeout, 15*time.Second)
}

// WriteTimeout returns the server write timeout as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return duration(c.Server.WriteTimeout, 15*time.Second)
}

// ShutdownTimeout returns how long a graceful shutdown may take.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
