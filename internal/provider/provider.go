// Package provider implements market-data providers with a shared resilient
// HTTP transport: bounded retries, rate-limit backoff, and per-record
// validation of heterogeneous payloads into canonical token quotes.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/mhkarimi/coinscout/internal/models"
)

// ErrHistoryUnsupported is returned by providers that expose no historical
// series endpoint.
var ErrHistoryUnsupported = errors.New("historical series not supported")

// Provider is a single market-data source. ListMarkets returns one quote per
// token; History returns a time-ordered price series for one symbol.
type Provider interface {
	Name() string
	ListMarkets(ctx context.Context, limit int) ([]models.TokenQuote, error)
	History(ctx context.Context, symbol string, days int) (models.PriceSeries, error)
}

// FetchError is a classified fetch failure: all retry attempts were
// exhausted, or the request was rejected as malformed. It is a normal result
// the caller checks with errors.As, never a panic.
type FetchError struct {
	Provider   string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: fetch failed after %d attempt(s) (status %d): %v",
			e.Provider, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: fetch failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
