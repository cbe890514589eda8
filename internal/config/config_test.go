package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.Indicators.Fast)
	assert.Equal(t, 50, cfg.Indicators.Slow)
	assert.Equal(t, 7, cfg.Sentiment.Window)
	assert.Equal(t, 10000.0, cfg.Backtest.InitialCash)
	assert.Equal(t, 0.001, cfg.Backtest.Fee)
	assert.Equal(t, 0.001, cfg.Backtest.Slippage)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ALPHAFUSION_DATA_DIR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Optimize, cfg.Optimize)
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("indicators:\n  fast: 10\n  slow: 30\nfusion:\n  impact_weight: 0.5\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	t.Setenv("ALPHAFUSION_DATA_DIR", "/tmp/af")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Indicators.Fast)
	assert.Equal(t, 30, cfg.Indicators.Slow)
	assert.Equal(t, 14, cfg.Indicators.RSI, "unset fields keep defaults")
	assert.Equal(t, 0.5, cfg.Fusion.ImpactWeight)
	assert.Equal(t, "/tmp/af", cfg.Data.Dir)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("indicators: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"fast not shorter than slow", func(c *Config) { c.Indicators.Fast = 50 }},
		{"zero volatility window", func(c *Config) { c.Indicators.Volatility = 0 }},
		{"negative fee", func(c *Config) { c.Backtest.Fee = -0.1 }},
		{"zero cash", func(c *Config) { c.Backtest.InitialCash = 0 }},
		{"zero step", func(c *Config) { c.Optimize.Step = 0 }},
		{"inverted grid", func(c *Config) { c.Optimize.Stop = -1 }},
		{"no workers", func(c *Config) { c.Optimize.Workers = 0 }},
		{"zero sentiment window", func(c *Config) { c.Sentiment.Window = 0 }},
		{"infinite impact weight", func(c *Config) { c.Fusion.ImpactWeight = math.Inf(1) }},
		{"undefined live weight", func(c *Config) { c.Fusion.LiveImpactWeight = math.NaN() }},
		{"infinite grid stop", func(c *Config) { c.Optimize.Stop = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.Dir = "in"
	assert.Equal(t, filepath.Join("in", "prices.csv"), cfg.Path("prices.csv"))
	assert.Equal(t, "/abs/x.csv", cfg.Path("/abs/x.csv"))
}
