package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ifcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "player", cfg.PlayerID)
	assert.Equal(t, "inventory", cfg.InventoryID)
	assert.Equal(t, 10, cfg.MaxCascadeDepth)
	assert.True(t, cfg.IsContainment("in"))
	assert.True(t, cfg.IsContainment("on"))
	assert.False(t, cfg.IsContainment("at"))
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
player_id: player1
max_cascade_depth: 4
exclusive:
  - [open, closed]
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "player1", cfg.PlayerID)
	assert.Equal(t, "inventory", cfg.InventoryID, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.MaxCascadeDepth)
	assert.Equal(t, [][2]string{{"open", "closed"}}, cfg.Exclusive)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "player: p1\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty player", func(c *Config) { c.PlayerID = "" }},
		{"empty inventory", func(c *Config) { c.InventoryID = "" }},
		{"empty room type", func(c *Config) { c.RoomType = "" }},
		{"empty in predicate", func(c *Config) { c.Predicates.In = "" }},
		{"zero depth", func(c *Config) { c.MaxCascadeDepth = 0 }},
		{"degenerate pair", func(c *Config) { c.Exclusive = [][2]string{{"open", "open"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
