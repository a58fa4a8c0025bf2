package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 3s
postgres:
  host: db.internal
  database: council
  user: rankings
kafka:
  enabled: true
  topic: wins
cache:
  ttl: 90s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "council", cfg.Postgres.Database)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "wins", cfg.Kafka.Topic)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)

	// Unset values fall back to defaults
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "rankings", cfg.Cache.KeyPrefix)
	assert.Equal(t, 10*time.Minute, cfg.Refresh.Interval)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("COUNCIL_DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
postgres:
  password: ${COUNCIL_DB_PASSWORD}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Postgres.Password)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	cfg := PostgresConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p", Database: "d",
	}
	assert.Equal(t, "postgres://u:p@localhost:5432/d?sslmode=disable", cfg.ConnectionString())

	cfg.SSLMode = "require"
	assert.Equal(t, "postgres://u:p@localhost:5432/d?sslmode=require", cfg.ConnectionString())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "council-wins", cfg.Kafka.Topic)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 500, cfg.Rankings.MaxPageSize)
}
