package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	content := `
providers:
  coingecko:
    enabled: true
  precedence:
    - CoinGecko
  limit: 50
  timeout: 10s

scanner:
  poll_interval: 5m
  timeframes:
    - 1h
    - 4h
  top_n: 5
  min_score: 40

scoring:
  min_volume: 1000000
  min_market_cap: 10000000
  max_market_cap: 10000000000

ledger:
  backend: csv
  path: "./data/test_signals.csv"

telegram:
  bot_token: "test_token"
  chat_id: "test_chat_id"
  enabled: true

logging:
  level: "info"
  format: "json"
`
	path := writeTempConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scanner.PollInterval != 5*time.Minute {
		t.Errorf("Unexpected poll interval: %v", cfg.Scanner.PollInterval)
	}
	if cfg.Providers.Limit != 50 {
		t.Errorf("Unexpected provider limit: %d", cfg.Providers.Limit)
	}
	if len(cfg.Scanner.Timeframes) != 2 {
		t.Errorf("Expected 2 timeframes, got %d", len(cfg.Scanner.Timeframes))
	}
	if cfg.Scoring.MinVolume != 1000000 {
		t.Errorf("Unexpected min volume: %f", cfg.Scoring.MinVolume)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, "logging:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Providers.CoinGecko.APIURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("Unexpected default coingecko URL: %s", cfg.Providers.CoinGecko.APIURL)
	}
	if cfg.Providers.RetryDelayBase != 5*time.Second {
		t.Errorf("Unexpected default retry delay base: %v", cfg.Providers.RetryDelayBase)
	}
	if cfg.Scanner.TopN != 5 {
		t.Errorf("Unexpected default top_n: %d", cfg.Scanner.TopN)
	}
	if cfg.Scanner.MinScore != 40 {
		t.Errorf("Unexpected default min_score: %f", cfg.Scanner.MinScore)
	}
	if cfg.Scoring.MaxDrawdown != 15 {
		t.Errorf("Unexpected default max_drawdown: %f", cfg.Scoring.MaxDrawdown)
	}
	if cfg.Ledger.Backend != "csv" {
		t.Errorf("Unexpected default ledger backend: %s", cfg.Ledger.Backend)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("File value should override default, got level %s", cfg.Logging.Level)
	}
}

func validConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			CoinGecko:      CoinGeckoConfig{APIURL: "https://example.com", Enabled: true},
			Precedence:     []string{"CoinGecko"},
			Limit:          100,
			Timeout:        20 * time.Second,
			MaxRetries:     3,
			RetryDelayBase: 5 * time.Second,
			HistoryDays:    30,
		},
		Scanner: ScannerConfig{
			PollInterval:  5 * time.Minute,
			RecoveryDelay: time.Minute,
			Timeframes:    []string{"1h"},
			TopN:          5,
			MinScore:      40,
		},
		Scoring: ScoringConfig{
			MinVolume:     1e6,
			MinMarketCap:  1e7,
			MaxMarketCap:  1e10,
			RSIOverbought: 70,
			RSIOversold:   30,
			MaxDrawdown:   15,
			MaxVolatility: 20,
		},
		Ledger:  LedgerConfig{Backend: "csv", Path: "./data/signals.csv"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no providers enabled", func(c *Config) { c.Providers.CoinGecko.Enabled = false }},
		{"empty precedence", func(c *Config) { c.Providers.Precedence = nil }},
		{"limit too large", func(c *Config) { c.Providers.Limit = 500 }},
		{"zero retries", func(c *Config) { c.Providers.MaxRetries = 0 }},
		{"poll interval too short", func(c *Config) { c.Scanner.PollInterval = time.Second }},
		{"no timeframes", func(c *Config) { c.Scanner.Timeframes = nil }},
		{"min score out of range", func(c *Config) { c.Scanner.MinScore = 150 }},
		{"inverted market cap band", func(c *Config) { c.Scoring.MaxMarketCap = c.Scoring.MinMarketCap }},
		{"inverted rsi thresholds", func(c *Config) { c.Scoring.RSIOverbought = 20 }},
		{"unknown ledger backend", func(c *Config) { c.Ledger.Backend = "postgres" }},
		{"empty ledger path", func(c *Config) { c.Ledger.Path = "" }},
		{"telegram enabled without token", func(c *Config) { c.Telegram = TelegramConfig{Enabled: true, ChatID: "1"} }},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"cmc enabled without key", func(c *Config) {
			c.Providers.CoinMarketCap = CoinMarketCapConfig{APIURL: "https://example.com", Enabled: true}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
