package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mhkarimi/coinscout/internal/indicator"
	"github.com/mhkarimi/coinscout/internal/ledger"
	"github.com/mhkarimi/coinscout/internal/logger"
	"github.com/mhkarimi/coinscout/internal/merge"
	"github.com/mhkarimi/coinscout/internal/models"
	"github.com/mhkarimi/coinscout/internal/provider"
	"github.com/mhkarimi/coinscout/internal/scoring"
)

// Phase reports what the scanner is currently doing.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseScoring
	PhaseFiltering
	PhaseAlerting
	PhaseSleeping
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseScoring:
		return "scoring"
	case PhaseFiltering:
		return "filtering"
	case PhaseAlerting:
		return "alerting"
	case PhaseSleeping:
		return "sleeping"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Notifier delivers alert batches and operational notices.
type Notifier interface {
	Send(timeframe string, tokens []models.ScoredToken) error
	SendError(err error) error
	SendRecovery(failures int) error
}

type Config struct {
	Limit         int
	HistoryDays   int
	PollInterval  time.Duration
	RecoveryDelay time.Duration
	Timeframes    []string
	TopN          int
	MinScore      float64
	Indicators    bool
	Precedence    []string
}

// Scanner runs the fetch → merge → score → alert pipeline.
type Scanner struct {
	providers []provider.Provider
	history   provider.Provider
	engine    *scoring.Engine
	ledger    *ledger.Ledger
	notifier  Notifier
	config    Config

	phase  atomic.Int32
	series map[string]models.PriceSeries

	consecutiveFailures int
}

// New builds a scanner. history may be nil when no provider supports
// historical series; notifier may be nil when notifications are disabled.
func New(providers []provider.Provider, history provider.Provider, engine *scoring.Engine, led *ledger.Ledger, notifier Notifier, cfg Config) *Scanner {
	return &Scanner{
		providers: providers,
		history:   history,
		engine:    engine,
		ledger:    led,
		notifier:  notifier,
		config:    cfg,
		series:    make(map[string]models.PriceSeries),
	}
}

func (s *Scanner) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Scanner) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

// ScanOnce performs a single pass. A provider that exhausts its retries is
// logged and skipped; the pass keeps going with whatever data remains. A
// pass in which every provider came back empty is a no-op, not an error.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	startTime := time.Now()
	s.setPhase(PhaseFetching)

	var batches [][]models.TokenQuote
	total := 0
	for _, p := range s.providers {
		quotes, err := p.ListMarkets(ctx, s.config.Limit)
		if err != nil {
			var fetchErr *provider.FetchError
			if errors.As(err, &fetchErr) {
				logger.Warn("Provider %s unavailable this pass: %v", p.Name(), fetchErr)
				continue
			}
			s.setPhase(PhaseIdle)
			return fmt.Errorf("failed to list markets from %s: %w", p.Name(), err)
		}
		logger.Debug("Fetched %d quotes from %s", len(quotes), p.Name())
		batches = append(batches, quotes)
		total += len(quotes)
	}

	if total == 0 {
		logger.Info("No market data from any provider, skipping pass")
		s.setPhase(PhaseIdle)
		return nil
	}

	merged := merge.Merge(batches, s.config.Precedence)
	logger.Info("Merged %d quotes into %d tokens", total, len(merged))

	s.setPhase(PhaseScoring)
	var scored []models.ScoredToken
	for _, token := range merged {
		if !s.engine.Eligible(token) {
			continue
		}
		ind := s.indicatorsFor(ctx, token.Symbol)
		scored = append(scored, s.engine.Score(token, ind))
	}
	logger.Debug("Scored %d eligible tokens", len(scored))

	s.setPhase(PhaseFiltering)
	top := scoring.SelectTop(scored, s.config.TopN, s.config.MinScore)
	logger.Info("Selected %d tokens above score floor %.0f", len(top), s.config.MinScore)

	s.setPhase(PhaseAlerting)
	for _, timeframe := range s.config.Timeframes {
		s.alertTimeframe(timeframe, top)
	}

	logger.Info("Scan pass completed in %v", time.Since(startTime))
	s.setPhase(PhaseIdle)
	return nil
}

// alertTimeframe records and sends the tokens that have not already been
// alerted for this timeframe today. Recording happens before notification
// and is kept even when the notifier fails, so a flaky channel cannot
// cause duplicate alerts.
func (s *Scanner) alertTimeframe(timeframe string, top []models.ScoredToken) {
	var fresh []models.ScoredToken
	for _, token := range top {
		if !s.ledger.ShouldAlert(token.Symbol, timeframe, token.Source) {
			logger.Debug("Suppressing duplicate alert for %s (%s, %s)", token.Symbol, timeframe, token.Source)
			continue
		}
		if err := s.ledger.Record(token.Symbol, token.Name, token.Score, token.Factors, timeframe, token.Source); err != nil {
			logger.Warn("Failed to persist alert for %s: %v", token.Symbol, err)
		}
		fresh = append(fresh, token)
	}

	if len(fresh) == 0 {
		logger.Debug("No new alerts for timeframe %s", timeframe)
		return
	}

	if s.notifier == nil {
		logger.Debug("Notifications disabled, %d alerts for %s recorded only", len(fresh), timeframe)
		return
	}
	if err := s.notifier.Send(timeframe, fresh); err != nil {
		logger.Error("Failed to send %s alert batch: %v", timeframe, err)
		return
	}
	logger.Info("Sent %d alerts for timeframe %s", len(fresh), timeframe)
}

// indicatorsFor fetches and caches the price history for symbol, then
// computes indicators from it. The cache lives for the process lifetime:
// daily candles do not move within a run. Failures are not cached so a
// transient gap can heal on a later pass.
func (s *Scanner) indicatorsFor(ctx context.Context, symbol string) *models.IndicatorSet {
	if !s.config.Indicators || s.history == nil {
		return nil
	}

	series, ok := s.series[symbol]
	if !ok {
		var err error
		series, err = s.history.History(ctx, symbol, s.config.HistoryDays)
		if err != nil {
			if !errors.Is(err, provider.ErrHistoryUnsupported) {
				logger.Debug("No price history for %s: %v", symbol, err)
			}
			return nil
		}
		s.series[symbol] = series
	}

	ind := indicator.Compute(series)
	return &ind
}

// Run executes an initial pass and then one pass per poll interval until
// ctx is cancelled. Pass failures and panics never stop the loop.
func (s *Scanner) Run(ctx context.Context) {
	logger.Info("Starting scan loop (interval: %v, timeframes: %v, top_n: %d)",
		s.config.PollInterval, s.config.Timeframes, s.config.TopN)

	s.runPass(ctx)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		s.setPhase(PhaseSleeping)
		select {
		case <-ctx.Done():
			s.setPhase(PhaseStopped)
			logger.Info("Scan loop stopped")
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *Scanner) runPass(ctx context.Context) {
	err := s.safeScan(ctx)
	if err == nil {
		if s.consecutiveFailures > 0 && s.notifier != nil {
			if sendErr := s.notifier.SendRecovery(s.consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notice: %v", sendErr)
			}
		}
		s.consecutiveFailures = 0
		return
	}

	s.consecutiveFailures++
	logger.Error("Scan pass failed: %v", err)
	if s.consecutiveFailures == 1 && s.notifier != nil {
		if sendErr := s.notifier.SendError(err); sendErr != nil {
			logger.Warn("Failed to send error notice: %v", sendErr)
		}
	}

	if s.config.RecoveryDelay > 0 {
		s.setPhase(PhaseSleeping)
		select {
		case <-ctx.Done():
		case <-time.After(s.config.RecoveryDelay):
		}
	}
}

func (s *Scanner) safeScan(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan pass panicked: %v", r)
		}
	}()
	return s.ScanOnce(ctx)
}
