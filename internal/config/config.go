package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"DCAAdvisor/internal/calendar"
	"DCAAdvisor/internal/model"
)

// Investment holds the weighted DCA parameters.
type Investment struct {
	BaseInvestment float64 `yaml:"base_investment"`
	SMAWindow      int     `yaml:"sma_window"`
	STDWindow      int     `yaml:"std_window"`
	MinWeight      float64 `yaml:"min_weight"`
	MaxWeight      float64 `yaml:"max_weight"`
	Weekday        string  `yaml:"weekday"`
}

// Rebalance holds the rebalancing parameters.
type Rebalance struct {
	Enabled        bool               `yaml:"enabled"`
	Period         string             `yaml:"period"`
	Threshold      float64            `yaml:"threshold"` // fraction, 0.05 = 5%
	MinTradeAmount float64            `yaml:"min_trade_amount"`
	Targets        map[string]float64 `yaml:"targets"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Tickers     []string      `yaml:"tickers"`
		HistoryDays int           `yaml:"history_days"`
		CacheTTL    time.Duration `yaml:"cache_ttl"`
	} `yaml:"data_source"`
	Investment Investment `yaml:"investment"`
	Rebalance  Rebalance  `yaml:"rebalance"`
	Schedule   struct {
		DailyCron      string `yaml:"daily_cron"`
		RebalanceCron  string `yaml:"rebalance_cron"`
		MarketOpenCron string `yaml:"market_open_cron"` // "off" disables the reminder
		CacheCleanup   string `yaml:"cache_cleanup_cron"`
		Timezone       string `yaml:"timezone"`
	} `yaml:"schedule"`
	Fund struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"fund"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
// Defaults are merged once via WithDefaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// A missing .env is fine; real environment variables still win.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.WithDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("TICKERS"); v != "" {
		var tickers []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, strings.ToUpper(t))
			}
		}
		c.DataSource.Tickers = tickers
	}
	if v := os.Getenv("BASE_INVESTMENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Investment.BaseInvestment = f
		}
	}
	if v := os.Getenv("REBALANCE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Rebalance.Enabled = b
		}
	}
	if v := os.Getenv("REBALANCE_PERIOD"); v != "" {
		c.Rebalance.Period = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("TZ_SCHEDULE"); v != "" {
		c.Schedule.Timezone = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.ListenAddr = v
	}
}

// WithDefaults fills every unset field so downstream components receive a fully specified config.
func (c *Config) WithDefaults() *Config {
	if len(c.DataSource.Tickers) == 0 {
		c.DataSource.Tickers = []string{"SPY", "QQQ", "IWM", "DIA", "VTI"}
	}
	if c.DataSource.HistoryDays == 0 {
		c.DataSource.HistoryDays = 730
	}
	if c.DataSource.CacheTTL == 0 {
		c.DataSource.CacheTTL = 24 * time.Hour
	}

	if c.Investment.BaseInvestment == 0 {
		c.Investment.BaseInvestment = 1000
	}
	if c.Investment.SMAWindow == 0 {
		c.Investment.SMAWindow = 200
	}
	if c.Investment.STDWindow == 0 {
		c.Investment.STDWindow = 30
	}
	if c.Investment.MinWeight == 0 {
		c.Investment.MinWeight = 0.5
	}
	if c.Investment.MaxWeight == 0 {
		c.Investment.MaxWeight = 2
	}
	if c.Investment.Weekday == "" {
		c.Investment.Weekday = "Wednesday"
	}

	if c.Rebalance.Period == "" {
		c.Rebalance.Period = string(model.PeriodQuarterly)
	}
	if c.Rebalance.Threshold == 0 {
		c.Rebalance.Threshold = 0.05
	}
	// Older configs stored the threshold as a percentage.
	if c.Rebalance.Threshold > 1 {
		c.Rebalance.Threshold /= 100
	}
	if c.Rebalance.MinTradeAmount == 0 {
		c.Rebalance.MinTradeAmount = 1000
	}
	if c.Rebalance.Targets == nil {
		c.Rebalance.Targets = map[string]float64{}
	}

	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 0 17 * * 1-5"
	}
	if c.Schedule.RebalanceCron == "" {
		c.Schedule.RebalanceCron = "0 0 18 1 * *"
	}
	if c.Schedule.MarketOpenCron == "" {
		c.Schedule.MarketOpenCron = "0 25 9 * * 1-5"
	}
	if c.Schedule.CacheCleanup == "" {
		c.Schedule.CacheCleanup = "0 0 * * * *"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.Fund.StateFile == "" {
		c.Fund.StateFile = "data/portfolio_state.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/dca_advisor.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return c
}

// Validate checks that the merged config is usable.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("%w: telegram.bot_token is required", model.ErrConfiguration)
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("%w: telegram.chat_id is required", model.ErrConfiguration)
	}
	if len(c.DataSource.Tickers) == 0 {
		return fmt.Errorf("%w: data_source.tickers must not be empty", model.ErrConfiguration)
	}
	if err := c.Investment.Validate(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return c.Rebalance.Validate()
}

// Location resolves the scheduling timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule.timezone %q: %v", model.ErrConfiguration, c.Schedule.Timezone, err)
	}
	return loc, nil
}

// Validate checks the investment parameters.
func (i Investment) Validate() error {
	if i.BaseInvestment <= 0 {
		return fmt.Errorf("%w: investment.base_investment must be positive", model.ErrConfiguration)
	}
	if i.SMAWindow <= 0 || i.STDWindow <= 0 {
		return fmt.Errorf("%w: investment windows must be positive", model.ErrConfiguration)
	}
	if i.MinWeight <= 0 || i.MinWeight >= i.MaxWeight {
		return fmt.Errorf("%w: investment.min_weight must be positive and below max_weight", model.ErrConfiguration)
	}
	if _, err := i.InvestmentWeekday(); err != nil {
		return err
	}
	return nil
}

// InvestmentWeekday parses the configured weekday.
func (i Investment) InvestmentWeekday() (time.Weekday, error) {
	wd, ok := calendar.ParseWeekday(i.Weekday)
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", model.ErrConfiguration, i.Weekday)
	}
	return wd, nil
}

// Validate checks the rebalance parameters.
func (r Rebalance) Validate() error {
	if _, err := model.ParseRebalancePeriod(r.Period); err != nil {
		return err
	}
	if r.Threshold < 0 || r.MinTradeAmount < 0 {
		return fmt.Errorf("%w: rebalance threshold and min_trade_amount must not be negative", model.ErrConfiguration)
	}
	for asset, w := range r.Targets {
		if w < 0 {
			return fmt.Errorf("%w: negative target weight for %s", model.ErrConfiguration, asset)
		}
	}
	return nil
}
