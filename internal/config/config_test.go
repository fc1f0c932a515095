package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: sqlite
  dsn: /tmp/flows.db
simulation:
  min_delay: 10ms
  max_delay: 20ms
approval:
  mode: random
  rate: 0.5
  seed: 42
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/flows.db", cfg.Store.DSN)
	assert.Equal(t, 10*time.Millisecond, cfg.Simulation.MinDelay)
	assert.Equal(t, 20*time.Millisecond, cfg.Simulation.MaxDelay)
	assert.Equal(t, "random", cfg.Approval.Mode)
	assert.InDelta(t, 0.5, cfg.Approval.Rate, 1e-9)
	assert.Equal(t, int64(42), cfg.Approval.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("FLOWSIM_SERVER_ADDR", ":7000")
	t.Setenv("FLOWSIM_APPROVAL_MODE", "reject")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "reject", cfg.Approval.Mode)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{
			name:   "bad driver",
			mutate: func(c *Config) { c.Store.Driver = "oracle" },
			want:   []string{"store.driver must be one of [memory sqlite mysql postgres] (got: oracle)"},
		},
		{
			name:   "rate out of range",
			mutate: func(c *Config) { c.Approval.Rate = 1.5 },
			want:   []string{"approval.rate must be at most 1"},
		},
		{
			name: "delay order",
			mutate: func(c *Config) {
				c.Simulation.MinDelay = time.Second
				c.Simulation.MaxDelay = time.Millisecond
			},
			want: []string{"simulation.max_delay (1ms) must not be less than simulation.min_delay (1s)"},
		},
		{
			name:   "llm without provider",
			mutate: func(c *Config) { c.Approval.Mode = "llm" },
			want:   []string{"approval.provider is required"},
		},
		{
			name:   "postgres without dsn",
			mutate: func(c *Config) { c.Store.Driver = "postgres" },
			want:   []string{`store.dsn is required for driver "postgres"`},
		},
		{
			name: "several problems at once",
			mutate: func(c *Config) {
				c.Server.Addr = ""
				c.Log.Format = "xml"
			},
			want: []string{"server.addr is required", "log.format must be one of [text json]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}

	require.NoError(t, Validate(Default()))
	require.Error(t, Validate(nil))
}

func TestOverride(t *testing.T) {
	cfg := Default()
	err := cfg.Override(Config{
		Log:      LogConfig{Level: "debug"},
		Approval: ApprovalConfig{Mode: "random", Rate: 0.25},
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "empty override must keep the current value")
	assert.Equal(t, "random", cfg.Approval.Mode)
	assert.Equal(t, 0.25, cfg.Approval.Rate)
	assert.Equal(t, 30*time.Second, cfg.Approval.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	require.NoError(t, cfg.Override(Config{}))
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "simulation.min_delay", fieldPath("Config.Simulation.MinDelay"))
	assert.Equal(t, "store.dsn", fieldPath("Config.Store.DSN"))
	assert.Equal(t, "approval.api_key", fieldPath("Config.Approval.APIKey"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf).Warn("shown", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	LogConfig{Level: "debug", Format: "text"}.NewLogger(&buf).Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}
