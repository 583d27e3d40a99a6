package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3004", cfg.HTTPAddress())
	assert.Equal(t, "Open Charging Cloud API", cfg.HTTP.ServerName)
	assert.Equal(t, "roaming:debuglog", cfg.Redis.Channel)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.DebugLog.PingInterval)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roaming.yaml")
	doc := `
http:
  port: "8080"
  urlPrefix: /ext/
database:
  dsn: postgres://localhost/roaming
  pool:
    maxOpenConns: 4
redis:
  addr: localhost:6379
  db: 2
debugLog:
  writeTimeout: 2s
seed:
  file: seed.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ROAMING_API_HTTP_PORT", ":9000")
	t.Setenv("ROAMING_API_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddress())
	assert.Equal(t, "/ext", cfg.URLPrefix())
	assert.Equal(t, "postgres://localhost/roaming", cfg.Database.DSN)
	assert.Equal(t, 4, cfg.Database.Pool.MaxOpenConns)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Second, cfg.DebugLog.WriteTimeout)
	assert.Equal(t, "seed.yaml", cfg.Seed.File)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.HTTP.URLPrefix = "ext"
	assert.Error(t, cfg.Validate())

	cfg.HTTP.URLPrefix = ""
	cfg.DebugLog.Buffer = -1
	assert.Error(t, cfg.Validate())
}
