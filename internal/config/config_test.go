package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAAdvisor/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ", "IWM", "DIA", "VTI"}, cfg.DataSource.Tickers)
	assert.Equal(t, 1000.0, cfg.Investment.BaseInvestment)
	assert.Equal(t, 200, cfg.Investment.SMAWindow)
	assert.Equal(t, 30, cfg.Investment.STDWindow)
	assert.Equal(t, 0.5, cfg.Investment.MinWeight)
	assert.Equal(t, 2.0, cfg.Investment.MaxWeight)
	assert.False(t, cfg.Rebalance.Enabled)
	assert.Equal(t, "QUARTERLY", cfg.Rebalance.Period)
	assert.Equal(t, 0.05, cfg.Rebalance.Threshold)
	assert.Equal(t, 1000.0, cfg.Rebalance.MinTradeAmount)
	assert.Equal(t, 24*time.Hour, cfg.DataSource.CacheTTL)
	assert.Equal(t, "America/New_York", cfg.Schedule.Timezone)
	assert.Equal(t, "0 0 * * * *", cfg.Schedule.CacheCleanup)

	wd, err := cfg.Investment.InvestmentWeekday()
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, wd)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: file-token
  chat_id: "42"
data_source:
  tickers: [VOO, BND]
  cache_ttl: 6h
investment:
  base_investment: 500
  weekday: friday
rebalance:
  enabled: true
  period: monthly
  threshold: 5
  targets:
    VOO: 0.6
    BND: 0.4
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("BASE_INVESTMENT", "750")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, []string{"VOO", "BND"}, cfg.DataSource.Tickers)
	assert.Equal(t, 6*time.Hour, cfg.DataSource.CacheTTL)
	assert.Equal(t, 750.0, cfg.Investment.BaseInvestment)
	assert.True(t, cfg.Rebalance.Enabled)
	assert.Equal(t, 0.05, cfg.Rebalance.Threshold, "percentage threshold is normalized")
	assert.Equal(t, map[string]float64{"VOO": 0.6, "BND": 0.4}, cfg.Rebalance.Targets)

	wd, err := cfg.Investment.InvestmentWeekday()
	require.NoError(t, err)
	assert.Equal(t, time.Friday, wd)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "telegram: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Telegram.BotToken = "t"
		c.Telegram.ChatID = "c"
		return c.WithDefaults()
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing token", func(c *Config) { c.Telegram.BotToken = "" }},
		{"missing chat", func(c *Config) { c.Telegram.ChatID = "" }},
		{"no tickers", func(c *Config) { c.DataSource.Tickers = nil }},
		{"non-positive base", func(c *Config) { c.Investment.BaseInvestment = -1 }},
		{"min above max", func(c *Config) { c.Investment.MinWeight = 3 }},
		{"bad weekday", func(c *Config) { c.Investment.Weekday = "caturday" }},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"unknown period", func(c *Config) { c.Rebalance.Period = "WEEKLY" }},
		{"negative target", func(c *Config) { c.Rebalance.Targets = map[string]float64{"A": -0.1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			assert.ErrorIs(t, err, model.ErrConfiguration)
		})
	}
}
