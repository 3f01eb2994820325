// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML parsing, env var expansion, duration parsing, defaults, and validation

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
	path := filepath.Join(t.TempDir(), "parleyd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "/tmp/parley.db"
simulator:
  reply_delay: "2s"
  ambient_interval: "30s"
  ambient_probability: 0.5
preview:
  ttl: "10s"
  capacity: 3
widget:
  header_title: "Acme Support"
  header_subtitle: "We reply fast"
  placeholder: "Ask us anything"
  welcome_message: "Hi!"
  operator_name: "Sam"
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/parley.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Second, cfg.Simulator.ReplyDelay)
	assert.Equal(t, 30*time.Second, cfg.Simulator.AmbientInterval)
	assert.Equal(t, 0.5, cfg.Simulator.AmbientProbability)
	assert.Equal(t, 10*time.Second, cfg.Preview.TTL)
	assert.Equal(t, 3, cfg.Preview.Capacity)
	assert.Equal(t, "Acme Support", cfg.Widget.HeaderTitle)
	assert.Equal(t, "Sam", cfg.Widget.OperatorName)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "/tmp/parley.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Simulator.ReplyDelay)
	assert.Equal(t, 15*time.Second, cfg.Simulator.AmbientInterval)
	assert.Equal(t, 0.3, cfg.Simulator.AmbientProbability)
	assert.Equal(t, "Support", cfg.Widget.HeaderTitle)
	assert.Equal(t, "Online", cfg.Widget.HeaderSubtitle)
	assert.Equal(t, "Type your message...", cfg.Widget.Placeholder)
	assert.Equal(t, "Hello! How can I help you today?", cfg.Widget.WelcomeMessage)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("PARLEY_TEST_DB", "/var/lib/parley/snap.db")

	path := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "${PARLEY_TEST_DB}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/parley/snap.db", cfg.Database.Path)
}

func TestLoad_UnsetEnvVarExpandsEmpty(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080${PARLEY_TEST_DEFINITELY_UNSET}"
database:
  path: "/tmp/parley.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "/tmp/parley.db"
simulator:
  reply_delay: "not-a-duration"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reply_delay")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing http addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "" },
			wantErr: "server.http_addr",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "probability below range",
			mutate:  func(c *Config) { c.Simulator.AmbientProbability = -0.1 },
			wantErr: "ambient_probability",
		},
		{
			name:    "probability above range",
			mutate:  func(c *Config) { c.Simulator.AmbientProbability = 1.5 },
			wantErr: "ambient_probability",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{HTTPAddr: ":8080"},
				Database: DatabaseConfig{Path: "/tmp/parley.db"},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
