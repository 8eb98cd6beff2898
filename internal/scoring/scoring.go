// Package scoring turns merged token records and optional indicators into a
// bounded opportunity score with explanatory factors and signals.
package scoring

import (
	"fmt"
	"sort"

	"github.com/mhkarimi/coinscout/internal/models"
)

// Sub-score caps. The risk adjustment is applied after capping, before the
// final clamp to [0, 100].
const (
	momentumCap  = 30.0
	liquidityCap = 25.0
	technicalCap = 25.0

	drawdownPenalty = 10.0
)

// Config holds the scoring thresholds. Behavioral variants of the scanner
// are expressed here, not as separate engines.
type Config struct {
	MinVolume     float64
	MinMarketCap  float64
	MaxMarketCap  float64
	RSIOverbought float64
	RSIOversold   float64
	MaxDrawdown   float64
	MaxVolatility float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinVolume:     1_000_000,
		MinMarketCap:  10_000_000,
		MaxMarketCap:  10_000_000_000,
		RSIOverbought: 70,
		RSIOversold:   30,
		MaxDrawdown:   15,
		MaxVolatility: 20,
	}
}

// Engine scores merged tokens against a fixed Config.
type Engine struct {
	cfg Config
}

// New creates a scoring engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Eligible is the hard pre-scoring gate: a token below the volume floor or
// outside the market-cap band is excluded entirely. Exclusion is a filter
// outcome, not an error.
func (e *Engine) Eligible(t models.MergedToken) bool {
	if t.Volume < e.cfg.MinVolume {
		return false
	}
	if t.MarketCap < e.cfg.MinMarketCap || t.MarketCap > e.cfg.MaxMarketCap {
		return false
	}
	return true
}

// Score produces a ScoredToken for an eligible token. Indicators may be nil;
// absent indicators contribute zero, never a penalty. Factors accumulate in
// evaluation order: momentum, liquidity, technical, risk.
func (e *Engine) Score(t models.MergedToken, ind *models.IndicatorSet) models.ScoredToken {
	var factors []string

	momentum := 0.0
	switch {
	case t.Change1h > 5:
		momentum += 12
		factors = append(factors, "strong 1h gain")
	case t.Change1h > 2:
		momentum += 8
		factors = append(factors, "moderate 1h gain")
	case t.Change1h > 0:
		momentum += 3
	}
	switch {
	case t.Change24h > 15:
		momentum += 12
		factors = append(factors, "explosive 24h gain")
	case t.Change24h > 7:
		momentum += 8
		factors = append(factors, "strong 24h gain")
	case t.Change24h > 3:
		momentum += 4
		factors = append(factors, "moderate 24h gain")
	}
	switch {
	case t.Change7d > 30:
		momentum += 6
		factors = append(factors, "strong weekly uptrend")
	case t.Change7d > 15:
		momentum += 4
		factors = append(factors, "weekly uptrend")
	case t.Change7d > 0:
		momentum += 2
	}

	liquidity := 0.0
	volumeToCap := 0.0
	if t.MarketCap > 0 {
		volumeToCap = t.Volume / t.MarketCap
	}
	switch {
	case volumeToCap > 0.5:
		liquidity += 15
		factors = append(factors, "exceptional liquidity")
	case volumeToCap > 0.2:
		liquidity += 10
		factors = append(factors, "high liquidity")
	case volumeToCap > 0.1:
		liquidity += 5
		factors = append(factors, "decent liquidity")
	}
	switch {
	case t.Volume > 1_000_000_000:
		liquidity += 10
		factors = append(factors, "very high trading volume")
	case t.Volume > 100_000_000:
		liquidity += 6
		factors = append(factors, "high trading volume")
	case t.Volume > 10_000_000:
		liquidity += 3
	}

	technical := 0.0
	if ind != nil {
		if ind.RSI != nil {
			switch {
			case *ind.RSI < e.cfg.RSIOversold:
				technical += 8
				factors = append(factors, "RSI in oversold territory")
			case *ind.RSI > e.cfg.RSIOverbought:
				technical -= 5
				factors = append(factors, "RSI overbought")
			}
		}
		if ind.MACD != nil {
			if *ind.MACD > 0 {
				technical += 5
				factors = append(factors, "positive MACD")
			} else {
				technical -= 3
			}
		}
	}

	risk := 0.0
	if t.Change24h < -e.cfg.MaxDrawdown {
		risk -= drawdownPenalty
		factors = append(factors, "severe price drop")
	}

	score := min(momentum, momentumCap) + min(liquidity, liquidityCap) + min(technical, technicalCap) + risk
	score = clamp(score, 0, 100)

	return models.ScoredToken{
		MergedToken: t,
		Indicators:  ind,
		Score:       score,
		Risk:        Tier(score),
		Factors:     factors,
		Signals:     e.signals(t, ind),
	}
}

// Tier maps a score to its risk tier. Boundaries are strict greater-than:
// exactly 80 is Medium, exactly 50 is High.
func Tier(score float64) models.RiskTier {
	switch {
	case score > 80:
		return models.RiskLow
	case score > 50:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// signals collects qualitative flags independent of the score.
func (e *Engine) signals(t models.MergedToken, ind *models.IndicatorSet) []string {
	var signals []string

	if t.Change24h > e.cfg.MaxVolatility || t.Change24h < -e.cfg.MaxVolatility {
		signals = append(signals, fmt.Sprintf("high volatility (%+.2f%% in 24h)", t.Change24h))
	}

	if ind == nil {
		return signals
	}
	if ind.RSI != nil {
		if *ind.RSI > e.cfg.RSIOverbought {
			signals = append(signals, fmt.Sprintf("overbought (RSI %.1f)", *ind.RSI))
		} else if *ind.RSI < e.cfg.RSIOversold {
			signals = append(signals, fmt.Sprintf("oversold (RSI %.1f)", *ind.RSI))
		}
	}
	switch ind.Cross {
	case models.CrossUp:
		signals = append(signals, "bullish MACD crossover")
	case models.CrossDown:
		signals = append(signals, "bearish MACD crossover")
	}
	if ind.BBUpper != nil && t.Price >= *ind.BBUpper {
		signals = append(signals, "near upper Bollinger band")
	} else if ind.BBLower != nil && t.Price <= *ind.BBLower {
		signals = append(signals, "near lower Bollinger band")
	}
	return signals
}

// SelectTop filters scored tokens by the minimum-score floor, sorts by score
// descending, and keeps the top n.
func SelectTop(tokens []models.ScoredToken, n int, minScore float64) []models.ScoredToken {
	kept := make([]models.ScoredToken, 0, len(tokens))
	for _, t := range tokens {
		if t.Score >= minScore {
			kept = append(kept, t)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if len(kept) > n {
		kept = kept[:n]
	}
	return kept
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
