package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "todochat.yaml", `
server:
  addr: 127.0.0.1:9000
  write_timeout: 30s
store:
  driver: postgres
  postgres:
    dsn: postgres://todo@localhost/todo
auth:
  tokens:
    secret-a: alice
log:
  level: debug
  format: console
chat:
  list_limit: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout())
	assert.Equal(t, "15s", cfg.Server.ReadTimeout)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://todo@localhost/todo", cfg.Store.Postgres.DSN)
	assert.Equal(t, map[string]string{"secret-a": "alice"}, cfg.Auth.Tokens)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Chat.ListLimit)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "todochat.toml", `
[store]
driver = "neo4j"

[store.neo4j]
uri = "neo4j://graph:7687"
password = "s3cret"

[auth.tokens]
secret-b = "bob"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DriverNeo4j, cfg.Store.Driver)
	assert.Equal(t, "neo4j://graph:7687", cfg.Store.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Store.Neo4j.Username)
	assert.Equal(t, "s3cret", cfg.Store.Neo4j.Password)
	assert.Equal(t, map[string]string{"secret-b": "bob"}, cfg.Auth.Tokens)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "server: [unclosed"))
	assert.Error(t, err)
	_, err = Load(writeFile(t, "bad.toml", "store = "))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TODOCHAT_ADDR", ":7070")
	t.Setenv("TODOCHAT_STORE_DRIVER", "sqlite")
	t.Setenv("TODOCHAT_SQLITE_PATH", "/tmp/env.db")
	t.Setenv("TODOCHAT_LOG_LEVEL", "warn")
	t.Setenv("TODOCHAT_AUTH_TOKENS", "t1=alice, t2=bob")

	path := writeFile(t, "todochat.yaml", "server:\n  addr: \":9000\"\nstore:\n  driver: postgres\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/env.db", cfg.Store.SQLite.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, map[string]string{"t1": "alice", "t2": "bob"}, cfg.Auth.Tokens)
}

func TestParseTokens(t *testing.T) {
	tokens, err := ParseTokens("a=alice,,b=bob")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "alice", "b": "bob"}, tokens)

	for _, bad := range []string{"a", "=alice", "a=", "a=alice,b"} {
		_, err := ParseTokens(bad)
		assert.Error(t, err, bad)
	}

	t.Setenv("TODOCHAT_AUTH_TOKENS", "broken")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"sqlite without path", func(c *Config) { c.Store.SQLite.Path = "" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"neo4j without uri", func(c *Config) { c.Store.Driver = DriverNeo4j; c.Store.Neo4j.URI = "" }},
		{"bad duration", func(c *Config) { c.Server.ReadTimeout = "soon" }},
		{"empty owner", func(c *Config) { c.Auth.Tokens = map[string]string{"t": " "} }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"negative limit", func(c *Config) { c.Chat.ListLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	logger, err = NewLogger(LogConfig{Level: "warn", Format: "console"}, true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger(LogConfig{Level: "loud"}, false)
	assert.Error(t, err)
}

func TestOpenStoreSQLite(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, StoreConfig{
		Driver: DriverSQLite,
		SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "todo.db")},
	}, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.EnsureSchema(ctx))

	_, err = OpenStore(ctx, StoreConfig{Driver: "mongo"}, zap.NewNop())
	assert.Error(t, err)
}
