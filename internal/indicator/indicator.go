// Package indicator derives technical indicators from a historical price
// series: RSI, MACD with signal line, and Bollinger bands.
package indicator

import (
	talib "github.com/markcheno/go-talib"

	"github.com/mhkarimi/coinscout/internal/models"
)

const (
	rsiPeriod = 14

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	bbPeriod = 20
	bbStdDev = 2.0
)

// Minimum sample counts for each indicator to be defined. The signal line is
// a 9-period EMA of the MACD line and needs a longer warm-up to settle;
// crossover detection additionally needs a settled previous point.
const (
	minRSISamples    = rsiPeriod + 1
	minMACDSamples   = macdSlow
	minSignalSamples = 35
	minCrossSamples  = minSignalSamples + 1
)

// Compute derives an IndicatorSet from the series. Indicators whose warm-up
// exceeds the series length are left nil, never guessed. The series must be
// ascending by timestamp; every derived point at index i uses only samples
// up to i.
func Compute(series models.PriceSeries) models.IndicatorSet {
	var set models.IndicatorSet
	n := len(series)
	if n == 0 {
		return set
	}
	prices := series.Prices()

	if n >= minRSISamples {
		rsi := talib.Rsi(prices, rsiPeriod)
		set.RSI = last(rsi)
	}

	if n >= minMACDSamples {
		// The trend line comes straight from the EMA difference. Macd's own
		// outputs are zero-filled until the signal line's combined lookback
		// (33 samples), which would publish warm-up filler as a real value
		// for series in the 26..32 range.
		fast := talib.Ema(prices, macdFast)
		slow := talib.Ema(prices, macdSlow)
		trend := fast[n-1] - slow[n-1]
		set.MACD = &trend

		if n >= minSignalSamples {
			macd, signal, _ := talib.Macd(prices, macdFast, macdSlow, macdSignal)
			set.MACDSignal = last(signal)
			if n >= minCrossSamples {
				set.Cross = detectCross(macd, signal)
			}
		}
	}

	if n >= bbPeriod {
		upper, middle, lower := talib.BBands(prices, bbPeriod, bbStdDev, bbStdDev, talib.SMA)
		set.BBUpper = last(upper)
		set.BBMiddle = last(middle)
		set.BBLower = last(lower)
	}

	return set
}

// detectCross reports whether the MACD line crossed its signal line between
// the last two points.
func detectCross(macd, signal []float64) models.Crossover {
	n := len(macd)
	if n < 2 || len(signal) != n {
		return models.CrossNone
	}
	prevMACD, prevSignal := macd[n-2], signal[n-2]
	lastMACD, lastSignal := macd[n-1], signal[n-1]

	switch {
	case lastMACD > lastSignal && prevMACD <= prevSignal:
		return models.CrossUp
	case lastMACD < lastSignal && prevMACD >= prevSignal:
		return models.CrossDown
	default:
		return models.CrossNone
	}
}

func last(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	return &v
}
