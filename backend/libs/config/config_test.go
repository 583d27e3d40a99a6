package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	HTTP struct {
		Port  string   `yaml:"port" env:"SAMPLE_HTTP_PORT"`
		Hosts []string `yaml:"hosts"`
	} `yaml:"http"`
	Timeouts struct {
		Write time.Duration `yaml:"write"`
	} `yaml:"timeouts"`
	Debug   bool
	Ignored string `env:"-"`
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: \"8080\"\n  hosts: [a]\ntimeouts:\n  write: 5s\n"), 0o600))

	t.Setenv("SAMPLE_HTTP_PORT", "9090")
	t.Setenv("HTTP_HOSTS", "a.example, b.example")
	t.Setenv("DEBUG", "true")
	t.Setenv("IGNORED", "x")

	var cfg sample
	require.NoError(t, LoadConfigFile(path, &cfg))

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, []string{"a.example", "b.example"}, cfg.HTTP.Hosts)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Write)
	assert.True(t, cfg.Debug)
	assert.Empty(t, cfg.Ignored)
}

func TestLoadConfigDurationFromEnv(t *testing.T) {
	t.Setenv("TIMEOUTS_WRITE", "250ms")

	var cfg sample
	require.NoError(t, LoadConfigFile("", &cfg))
	assert.Equal(t, 250*time.Millisecond, cfg.Timeouts.Write)
}

func TestLoadConfigErrors(t *testing.T) {
	var cfg sample
	assert.Error(t, LoadConfigFile("", nil))
	assert.Error(t, LoadConfigFile("", cfg))
	assert.Error(t, LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))

	t.Setenv("TIMEOUTS_WRITE", "soon")
	assert.Error(t, LoadConfigFile("", &cfg))
}
