// Package models defines the core domain entities: token quotes, merged
// records, indicator sets, and scored tokens.
package models

import (
	"errors"
	"time"
)

// RankUnknown is the sentinel rank for providers that do not report one.
const RankUnknown = 9999

// TokenQuote is a single provider's snapshot of one token, produced per
// fetch cycle and discarded after merging. Percentage fields default to 0
// when the provider omits them.
type TokenQuote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	MarketCap float64 `json:"market_cap"`
	Rank      int     `json:"rank"`
	Change1h  float64 `json:"change_1h"`
	Change24h float64 `json:"change_24h"`
	Change7d  float64 `json:"change_7d"`
	Change14d float64 `json:"change_14d"`
	Change30d float64 `json:"change_30d"`
	Provider  string  `json:"provider"`
}

// Validate checks quote field constraints at the fetch boundary so later
// stages never see missing-required-field states.
func (q *TokenQuote) Validate() error {
	if q.Symbol == "" {
		return errors.New("symbol must not be empty")
	}
	if q.Name == "" {
		return errors.New("name must not be empty")
	}
	if q.Price <= 0 {
		return errors.New("price must be positive")
	}
	if q.Volume < 0 {
		return errors.New("volume must not be negative")
	}
	if q.MarketCap < 0 {
		return errors.New("market cap must not be negative")
	}
	if q.Rank <= 0 {
		return errors.New("rank must be positive")
	}
	if q.Provider == "" {
		return errors.New("provider must not be empty")
	}
	return nil
}

// MergedToken is the canonical per-symbol record after provider-precedence
// merging. Source names the provider that supplied the base record.
type MergedToken struct {
	Symbol    string
	Name      string
	Price     float64
	Volume    float64
	MarketCap float64
	Rank      int
	Change1h  float64
	Change24h float64
	Change7d  float64
	Change14d float64
	Change30d float64
	Source    string
}

// PricePoint is one sample of a historical price series.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// PriceSeries is a time-ordered price history for one symbol, ascending by
// timestamp with no duplicate timestamps.
type PriceSeries []PricePoint

// Prices returns the closing prices in series order.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// Crossover describes a trend/signal line crossing at the end of a series.
type Crossover int

const (
	CrossNone Crossover = iota
	CrossUp
	CrossDown
)

func (c Crossover) String() string {
	switch c {
	case CrossUp:
		return "up"
	case CrossDown:
		return "down"
	default:
		return "none"
	}
}

// IndicatorSet holds indicators derived from a PriceSeries. Nil fields mean
// the series was too short for that indicator to be defined.
type IndicatorSet struct {
	RSI        *float64
	MACD       *float64
	MACDSignal *float64
	BBUpper    *float64
	BBMiddle   *float64
	BBLower    *float64
	Cross      Crossover
}

// RiskTier classifies a scored token by its final score.
type RiskTier int

const (
	RiskHigh RiskTier = iota
	RiskMedium
	RiskLow
)

func (r RiskTier) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	default:
		return "High"
	}
}

// ScoredToken is a merged token with its opportunity score, risk tier, and
// the human-readable factors and signals behind it. Only the decision to
// alert is ever persisted, never the scored token itself.
type ScoredToken struct {
	MergedToken
	Indicators *IndicatorSet
	Score      float64
	Risk       RiskTier
	Factors    []string
	Signals    []string
}
