package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mhkarimi/coinscout/internal/config"
	"github.com/mhkarimi/coinscout/internal/ledger"
	"github.com/mhkarimi/coinscout/internal/logger"
	"github.com/mhkarimi/coinscout/internal/provider"
	"github.com/mhkarimi/coinscout/internal/scanner"
	"github.com/mhkarimi/coinscout/internal/scoring"
	"github.com/mhkarimi/coinscout/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	once       = flag.Bool("once", false, "Run a single scan pass and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := newStore(cfg.Ledger)
	if err != nil {
		logger.Fatal("Failed to initialize alert store: %v", err)
	}
	led := ledger.New(store)
	defer func() {
		if err := led.Close(); err != nil {
			logger.Error("Failed to close alert store: %v", err)
		}
	}()

	providers, history := buildProviders(cfg)
	if len(providers) == 0 {
		logger.Fatal("No market-data provider enabled")
	}

	engine := scoring.New(scoring.Config{
		MinVolume:     cfg.Scoring.MinVolume,
		MinMarketCap:  cfg.Scoring.MinMarketCap,
		MaxMarketCap:  cfg.Scoring.MaxMarketCap,
		RSIOverbought: cfg.Scoring.RSIOverbought,
		RSIOversold:   cfg.Scoring.RSIOversold,
		MaxDrawdown:   cfg.Scoring.MaxDrawdown,
		MaxVolatility: cfg.Scoring.MaxVolatility,
	})

	var notifier scanner.Notifier
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	scan := scanner.New(providers, history, engine, led, notifier, scanner.Config{
		Limit:         cfg.Providers.Limit,
		HistoryDays:   cfg.Providers.HistoryDays,
		PollInterval:  cfg.Scanner.PollInterval,
		RecoveryDelay: cfg.Scanner.RecoveryDelay,
		Timeframes:    cfg.Scanner.Timeframes,
		TopN:          cfg.Scanner.TopN,
		MinScore:      cfg.Scanner.MinScore,
		Indicators:    cfg.Scanner.Indicators,
		Precedence:    cfg.Providers.Precedence,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if *once {
		logger.Info("Running single scan pass")
		if err := scan.ScanOnce(ctx); err != nil {
			logger.Fatal("Scan pass failed: %v", err)
		}
		return
	}

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	scan.Run(ctx)
	logger.Info("Service stopped")
}

func newStore(cfg config.LedgerConfig) (ledger.Store, error) {
	if cfg.Backend == "sqlite" {
		return ledger.NewSQLiteStore(cfg.Path)
	}
	return ledger.NewCSVStore(cfg.Path)
}

// buildProviders assembles the enabled market-data providers. CoinGecko
// doubles as the history source; CoinMarketCap has no history endpoint.
func buildProviders(cfg *config.Config) ([]provider.Provider, provider.Provider) {
	opts := provider.Options{
		Timeout:        cfg.Providers.Timeout,
		MaxRetries:     cfg.Providers.MaxRetries,
		RetryDelayBase: cfg.Providers.RetryDelayBase,
	}

	var providers []provider.Provider
	var history provider.Provider

	if cfg.Providers.CoinGecko.Enabled {
		gecko := provider.NewCoinGecko(cfg.Providers.CoinGecko.APIURL, cfg.Providers.CoinGecko.APIKey, opts)
		providers = append(providers, gecko)
		history = gecko
	}
	if cfg.Providers.CoinMarketCap.Enabled {
		providers = append(providers, provider.NewCoinMarketCap(cfg.Providers.CoinMarketCap.APIURL, cfg.Providers.CoinMarketCap.APIKey, opts))
	}

	return providers, history
}
