package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
glowmarkt:
  username: "user@example.com"
  password: "hunter2"
  token_cache_file: "/tmp/token.json"
  max_span_days: 10

influx:
  enabled: true
  url: "http://localhost:8086"
  token: "influx-token"
  org: "home"
  bucket: "energy"

logging:
  level: "debug"
  format: "json"
`

func TestLoad(t *testing.T) {
	config, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "user@example.com", config.Glowmarkt.Username)
	assert.Equal(t, "/tmp/token.json", config.Glowmarkt.TokenCacheFile)
	assert.Equal(t, "http://localhost:8086", config.Influx.URL)
	assert.Equal(t, "debug", config.Logging.Level)

	// Defaults fill everything the file leaves out.
	assert.Equal(t, "PT30M", config.Glowmarkt.Period)
	assert.Equal(t, "sum", config.Glowmarkt.Function)
	assert.Equal(t, 4, config.Pipeline.Workers)
	assert.Equal(t, 10, config.Glowmarkt.MaxSpanDays)
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("GLOWPULL_GLOWMARKT_USERNAME", "env-user")
	t.Setenv("GLOWPULL_INFLUX_TOKEN", "env-token")

	config, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-user", config.Glowmarkt.Username)
	assert.Equal(t, "env-token", config.Influx.Token)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing credentials", mutate: func(c *Config) { c.Glowmarkt.Username = "" }},
		{name: "non-positive span", mutate: func(c *Config) { c.Glowmarkt.MaxSpanDays = 0 }},
		{name: "non-positive workers", mutate: func(c *Config) { c.Pipeline.Workers = -1 }},
		{name: "no sink enabled", mutate: func(c *Config) { c.Influx.Enabled = false }},
		{name: "influx without url", mutate: func(c *Config) { c.Influx.URL = "" }},
		{name: "timescale without conn", mutate: func(c *Config) {
			c.Timescale.Enabled = true
			c.Timescale.ConnStr = ""
		}},
		{name: "schedule without spec", mutate: func(c *Config) {
			c.Schedule.Enabled = true
			c.Schedule.Spec = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := Load(writeConfig(t, validConfig))
			require.NoError(t, err)

			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}
