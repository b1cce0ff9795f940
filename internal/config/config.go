package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fvgbot/internal/market"
)

// Config is the full configuration surface. API credentials are resolved
// from the environment, never from the file.
type Config struct {
	Symbols   []string         `yaml:"symbols"`
	Timeframe market.Timeframe `yaml:"timeframe"`

	OHLCVLimit             int     `yaml:"ohlcv_limit"`
	RiskPerTrade           float64 `yaml:"risk_per_trade"`
	DailyLossLimitPct      float64 `yaml:"daily_loss_limit_pct"`
	MACDFast               int     `yaml:"macd_fast"`
	MACDSlow               int     `yaml:"macd_slow"`
	MACDSignal             int     `yaml:"macd_signal"`
	MACDRecentCrossover    bool    `yaml:"macd_recent_crossover"`
	CrossoverLookback      int     `yaml:"crossover_lookback"`
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions"`

	PaperTrading    bool    `yaml:"paper_trading"`
	StartingBalance float64 `yaml:"starting_balance"`
	BacktestDays    int     `yaml:"backtest_days"`

	BaseURL   string `yaml:"base_url"`
	Sandbox   bool   `yaml:"sandbox"`
	StateFile string `yaml:"state_file"`
	LogLevel  string `yaml:"log_level"`

	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		Timeframe:              market.H4,
		OHLCVLimit:             200,
		RiskPerTrade:           0.01,
		DailyLossLimitPct:      0.05,
		MACDFast:               12,
		MACDSlow:               26,
		MACDSignal:             9,
		MACDRecentCrossover:    true,
		CrossoverLookback:      6,
		MaxConcurrentPositions: 5,
		PaperTrading:           true,
		StartingBalance:        10000,
		BacktestDays:           90,
		StateFile:              "state.json",
		LogLevel:               "info",
	}
}

// Load reads the YAML config at path, applying defaults for absent keys.
// When paper trading is off, API_KEY and API_SECRET must be set in the
// environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.APIKey = os.Getenv("API_KEY")
	cfg.APISecret = os.Getenv("API_SECRET")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return errors.New("config: at least one symbol is required")
	}
	if _, err := c.Timeframe.ToDuration(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade > 1 {
		return fmt.Errorf("config: risk_per_trade must be in (0, 1], got %v", c.RiskPerTrade)
	}
	if c.DailyLossLimitPct < 0 || c.DailyLossLimitPct > 1 {
		return fmt.Errorf("config: daily_loss_limit_pct must be in [0, 1], got %v", c.DailyLossLimitPct)
	}
	if c.MACDFast <= 0 || c.MACDSlow <= 0 || c.MACDSignal <= 0 {
		return errors.New("config: MACD periods must be positive")
	}
	if c.CrossoverLookback < 1 {
		return errors.New("config: crossover_lookback must be >= 1")
	}
	if !c.PaperTrading && (c.APIKey == "" || c.APISecret == "") {
		return errors.New("config: API_KEY and API_SECRET are required for live trading")
	}
	return nil
}
