package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:5555", cfg.ListenAddress())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcpoker.hcl")
	src := `
server {
  address    = "127.0.0.1"
  port       = 6000
  ws_address = ":8080"
  log_level  = "debug"
}

table {
  capacity       = 3
  ante           = 5
  starting_stack = 500
  auto_solve     = true
  turn_timeout   = "30s"
  seed           = 42
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:6000", cfg.ListenAddress())
	assert.Equal(t, ":8080", cfg.Server.WSAddress)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 3, cfg.Table.Capacity)
	assert.Equal(t, 5, cfg.Table.Ante)
	assert.Equal(t, 500, cfg.Table.StartingStack)
	assert.True(t, cfg.Table.AutoSolve)
	assert.Equal(t, int64(42), cfg.Table.Seed)

	timeout, err := cfg.TurnTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestParsePartialAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`table { auto_solve = true }`), "inline.hcl")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultCapacity, cfg.Table.Capacity)
	assert.Equal(t, DefaultAnte, cfg.Table.Ante)
	assert.True(t, cfg.Table.AutoSolve)
}

func TestParseRejectsBadSyntax(t *testing.T) {
	_, err := Parse([]byte(`table { capacity = }`), "bad.hcl")
	assert.Error(t, err)

	_, err = Parse([]byte(`table { colour = "red" }`), "unknown.hcl")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"capacity", func(c *Config) { c.Table.Capacity = 1 }},
		{"capacity too large", func(c *Config) { c.Table.Capacity = MaxCapacity + 1 }},
		{"ante", func(c *Config) { c.Table.Ante = 0 }},
		{"stack below ante", func(c *Config) { c.Table.StartingStack = 5 }},
		{"bad timeout", func(c *Config) { c.Table.TurnTimeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Table.TurnTimeout = "-1s" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
