package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "data/overtime.db", cfg.Database.Path)
	assert.Equal(t, float64(26), cfg.Pay.WorkingDays)
	assert.Equal(t, float64(8), cfg.Pay.HoursPerDay)
	assert.Equal(t, int32(2), cfg.Pay.RoundPlaces)
	assert.Equal(t, 1.0, cfg.Pay.Multipliers["public_holiday"])
	assert.True(t, cfg.Notification.Enabled)
	assert.True(t, cfg.Worker.PayRetryEnabled)
	assert.Equal(t, time.Minute, cfg.Worker.PayRetryInterval)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  path: /var/lib/ot/ot.db
logger:
  level: debug
  format: console
pay:
  default_formula: "HRP * Hours"
  multipliers:
    sunday: 2
notification:
  enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ot/ot.db", cfg.Database.Path)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "HRP * Hours", cfg.Pay.DefaultFormula)
	assert.Equal(t, 2.0, cfg.Pay.Multipliers["sunday"])
	assert.False(t, cfg.Notification.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OT_SERVER_PORT", "7070")
	t.Setenv("OT_PAY_WORKING_DAYS", "22")
	t.Setenv("DATABASE_PATH", "/tmp/env.db")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, float64(22), cfg.Pay.WorkingDays)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Path: "ot.db"},
			Logger:   LoggerConfig{Format: "json"},
			Pay:      PayConfig{WorkingDays: 26, HoursPerDay: 8, RoundPlaces: 2},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"database path", func(c *Config) { c.Database.Path = "" }},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }},
		{"working days", func(c *Config) { c.Pay.WorkingDays = 0 }},
		{"hours per day", func(c *Config) { c.Pay.HoursPerDay = -1 }},
		{"round places", func(c *Config) { c.Pay.RoundPlaces = -1 }},
		{"multiplier", func(c *Config) { c.Pay.Multipliers = map[string]float64{"sunday": 0} }},
		{"retry interval", func(c *Config) { c.Worker = WorkerConfig{PayRetryEnabled: true} }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pay:\n  multipliers:\n    sunday: 2\n"))
	require.NoError(t, err)

	cc := cfg.ToContainerConfig()

	assert.Equal(t, cfg.Database.Path, cc.Database.Path)
	assert.Equal(t, 2.0, cc.Pay.Multipliers["sunday"])
	assert.Equal(t, float64(26), cc.Pay.WorkingDays)
	assert.Equal(t, "HRP * Hours * 1.5", cc.Pay.DefaultFormula)
	assert.True(t, cc.Notification.Enabled)
	assert.Equal(t, 50, cc.Worker.PayRetryBatchSize)
	require.NoError(t, cc.Validate())
}
