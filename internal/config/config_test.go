package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "nonexistent.toml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "chatrelay", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Contains(t, cfg.MySQLDSN(), "@tcp(127.0.0.1:3306)/chatrelay?")

	ramses, ok := cfg.Backends["ramses"]
	require.True(t, ok)
	assert.True(t, ramses.Enabled)
	assert.True(t, ramses.RAGEnabled)

	openai, ok := cfg.Backends["openai"]
	require.True(t, ok)
	assert.False(t, openai.RAGEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "nonexistent.toml")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MYSQL_HOST", "db.internal")
	t.Setenv("RAMSES_API_KEY", "secret-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, "secret-key", cfg.Backends["ramses"].APIKey)
}

func TestLoadIgnoresUnparsableIntEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "nonexistent.toml")
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
}
