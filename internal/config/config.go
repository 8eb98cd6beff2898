package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Providers ProvidersConfig `mapstructure:"providers"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ProvidersConfig holds the market-data provider configuration
type ProvidersConfig struct {
	CoinGecko      CoinGeckoConfig     `mapstructure:"coingecko"`
	CoinMarketCap  CoinMarketCapConfig `mapstructure:"coinmarketcap"`
	Precedence     []string            `mapstructure:"precedence"`
	Limit          int                 `mapstructure:"limit"`
	Timeout        time.Duration       `mapstructure:"timeout"`
	MaxRetries     int                 `mapstructure:"max_retries"`
	RetryDelayBase time.Duration       `mapstructure:"retry_delay_base"`
	HistoryDays    int                 `mapstructure:"history_days"`
}

// CoinGeckoConfig holds CoinGecko API configuration
type CoinGeckoConfig struct {
	APIURL  string `mapstructure:"api_url"`
	APIKey  string `mapstructure:"api_key"`
	Enabled bool   `mapstructure:"enabled"`
}

// CoinMarketCapConfig holds CoinMarketCap API configuration
type CoinMarketCapConfig struct {
	APIURL  string `mapstructure:"api_url"`
	APIKey  string `mapstructure:"api_key"`
	Enabled bool   `mapstructure:"enabled"`
}

// ScannerConfig holds scan-loop behavior configuration
type ScannerConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RecoveryDelay time.Duration `mapstructure:"recovery_delay"`
	Timeframes    []string      `mapstructure:"timeframes"`
	TopN          int           `mapstructure:"top_n"`
	MinScore      float64       `mapstructure:"min_score"`
	Indicators    bool          `mapstructure:"indicators"`
}

// ScoringConfig holds the scoring-engine thresholds
type ScoringConfig struct {
	MinVolume     float64 `mapstructure:"min_volume"`
	MinMarketCap  float64 `mapstructure:"min_market_cap"`
	MaxMarketCap  float64 `mapstructure:"max_market_cap"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	MaxDrawdown   float64 `mapstructure:"max_drawdown"`
	MaxVolatility float64 `mapstructure:"max_volatility"`
}

// LedgerConfig holds alert-ledger persistence configuration
type LedgerConfig struct {
	Backend string `mapstructure:"backend"` // "csv" or "sqlite"
	Path    string `mapstructure:"path"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("COINSCOUT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("providers.coingecko.api_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("providers.coingecko.enabled", true)
	v.SetDefault("providers.coinmarketcap.api_url", "https://pro-api.coinmarketcap.com/v1")
	v.SetDefault("providers.coinmarketcap.enabled", false)
	v.SetDefault("providers.precedence", []string{"CoinGecko", "CoinMarketCap"})
	v.SetDefault("providers.limit", 100)
	v.SetDefault("providers.timeout", "20s")
	v.SetDefault("providers.max_retries", 3)
	v.SetDefault("providers.retry_delay_base", "5s")
	v.SetDefault("providers.history_days", 30)

	// Scanner defaults
	v.SetDefault("scanner.poll_interval", "5m")
	v.SetDefault("scanner.recovery_delay", "1m")
	v.SetDefault("scanner.timeframes", []string{"1h", "4h", "1d"})
	v.SetDefault("scanner.top_n", 5)
	v.SetDefault("scanner.min_score", 40)
	v.SetDefault("scanner.indicators", true)

	// Scoring defaults
	v.SetDefault("scoring.min_volume", 1000000)
	v.SetDefault("scoring.min_market_cap", 10000000)
	v.SetDefault("scoring.max_market_cap", 10000000000)
	v.SetDefault("scoring.rsi_overbought", 70)
	v.SetDefault("scoring.rsi_oversold", 30)
	v.SetDefault("scoring.max_drawdown", 15)
	v.SetDefault("scoring.max_volatility", 20)

	// Ledger defaults
	v.SetDefault("ledger.backend", "csv")
	v.SetDefault("ledger.path", "./data/signals_log.csv")

	// Telegram defaults
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate provider config
	if !c.Providers.CoinGecko.Enabled && !c.Providers.CoinMarketCap.Enabled {
		return fmt.Errorf("at least one provider must be enabled")
	}
	if c.Providers.CoinGecko.Enabled && c.Providers.CoinGecko.APIURL == "" {
		return fmt.Errorf("providers.coingecko.api_url is required when coingecko is enabled")
	}
	if c.Providers.CoinMarketCap.Enabled {
		if c.Providers.CoinMarketCap.APIURL == "" {
			return fmt.Errorf("providers.coinmarketcap.api_url is required when coinmarketcap is enabled")
		}
		if c.Providers.CoinMarketCap.APIKey == "" {
			return fmt.Errorf("providers.coinmarketcap.api_key is required when coinmarketcap is enabled")
		}
	}
	if len(c.Providers.Precedence) == 0 {
		return fmt.Errorf("providers.precedence must list at least one provider")
	}
	if c.Providers.Limit < 1 || c.Providers.Limit > 250 {
		return fmt.Errorf("providers.limit must be between 1 and 250")
	}
	if c.Providers.MaxRetries < 1 {
		return fmt.Errorf("providers.max_retries must be at least 1")
	}
	if c.Providers.RetryDelayBase <= 0 {
		return fmt.Errorf("providers.retry_delay_base must be positive")
	}
	if c.Providers.HistoryDays < 1 {
		return fmt.Errorf("providers.history_days must be at least 1")
	}

	// Validate scanner config
	if c.Scanner.PollInterval < 1*time.Minute {
		return fmt.Errorf("scanner.poll_interval must be at least 1 minute")
	}
	if c.Scanner.RecoveryDelay <= 0 {
		return fmt.Errorf("scanner.recovery_delay must be positive")
	}
	if len(c.Scanner.Timeframes) == 0 {
		return fmt.Errorf("scanner.timeframes must contain at least one timeframe")
	}
	if c.Scanner.TopN < 1 {
		return fmt.Errorf("scanner.top_n must be at least 1")
	}
	if c.Scanner.MinScore < 0 || c.Scanner.MinScore > 100 {
		return fmt.Errorf("scanner.min_score must be between 0 and 100")
	}

	// Validate scoring config
	if c.Scoring.MinVolume < 0 {
		return fmt.Errorf("scoring.min_volume must not be negative")
	}
	if c.Scoring.MinMarketCap < 0 {
		return fmt.Errorf("scoring.min_market_cap must not be negative")
	}
	if c.Scoring.MaxMarketCap <= c.Scoring.MinMarketCap {
		return fmt.Errorf("scoring.max_market_cap must be greater than scoring.min_market_cap")
	}
	if c.Scoring.RSIOversold < 0 || c.Scoring.RSIOversold > 100 {
		return fmt.Errorf("scoring.rsi_oversold must be between 0 and 100")
	}
	if c.Scoring.RSIOverbought < 0 || c.Scoring.RSIOverbought > 100 {
		return fmt.Errorf("scoring.rsi_overbought must be between 0 and 100")
	}
	if c.Scoring.RSIOverbought <= c.Scoring.RSIOversold {
		return fmt.Errorf("scoring.rsi_overbought must be greater than scoring.rsi_oversold")
	}
	if c.Scoring.MaxDrawdown <= 0 {
		return fmt.Errorf("scoring.max_drawdown must be positive")
	}
	if c.Scoring.MaxVolatility <= 0 {
		return fmt.Errorf("scoring.max_volatility must be positive")
	}

	// Validate ledger config
	if c.Ledger.Backend != "csv" && c.Ledger.Backend != "sqlite" {
		return fmt.Errorf("ledger.backend must be one of: csv, sqlite")
	}
	if c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
