package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mhkarimi/coinscout/internal/logger"
	"github.com/mhkarimi/coinscout/internal/models"
)

const coinMarketCapName = "CoinMarketCap"

// CoinMarketCap provides quotes from the CoinMarketCap Pro API. It exposes
// no historical series endpoint on the listings tier.
type CoinMarketCap struct {
	apiURL    string
	apiKey    string
	transport *transport
}

// NewCoinMarketCap creates a CoinMarketCap provider. An API key is required.
func NewCoinMarketCap(apiURL, apiKey string, opts Options) *CoinMarketCap {
	return &CoinMarketCap{
		apiURL:    strings.TrimSuffix(apiURL, "/"),
		apiKey:    apiKey,
		transport: newTransport(coinMarketCapName, opts),
	}
}

func (c *CoinMarketCap) Name() string {
	return coinMarketCapName
}

type cmcListing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Rank   *int   `json:"cmc_rank"`
	Quote  struct {
		USD struct {
			Price     *float64 `json:"price"`
			Volume24h *float64 `json:"volume_24h"`
			MarketCap *float64 `json:"market_cap"`
			Change1h  *float64 `json:"percent_change_1h"`
			Change24h *float64 `json:"percent_change_24h"`
			Change7d  *float64 `json:"percent_change_7d"`
			Change30d *float64 `json:"percent_change_30d"`
		} `json:"USD"`
	} `json:"quote"`
}

type cmcListingsResponse struct {
	Data []cmcListing `json:"data"`
}

// ListMarkets fetches the top listings by market cap. Records that fail
// quote validation are skipped with a warning.
func (c *CoinMarketCap) ListMarkets(ctx context.Context, limit int) ([]models.TokenQuote, error) {
	if limit > 100 {
		limit = 100
	}

	q := url.Values{}
	q.Set("start", "1")
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("convert", "USD")

	header := http.Header{}
	header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	var payload cmcListingsResponse
	endpoint := c.apiURL + "/cryptocurrency/listings/latest?" + q.Encode()
	if err := c.transport.getJSON(ctx, endpoint, header, &payload); err != nil {
		return nil, err
	}

	quotes := make([]models.TokenQuote, 0, len(payload.Data))
	for _, l := range payload.Data {
		usd := l.Quote.USD
		quote := models.TokenQuote{
			Symbol:    strings.ToUpper(l.Symbol),
			Name:      l.Name,
			Price:     deref(usd.Price),
			Volume:    deref(usd.Volume24h),
			MarketCap: deref(usd.MarketCap),
			Rank:      models.RankUnknown,
			Change1h:  deref(usd.Change1h),
			Change24h: deref(usd.Change24h),
			Change7d:  deref(usd.Change7d),
			Change30d: deref(usd.Change30d),
			Provider:  coinMarketCapName,
		}
		if l.Rank != nil && *l.Rank > 0 {
			quote.Rank = *l.Rank
		}
		if err := quote.Validate(); err != nil {
			logger.Warn("%s: skipping malformed record for %q: %v", coinMarketCapName, l.Symbol, err)
			continue
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// History is not available from CoinMarketCap on this tier.
func (c *CoinMarketCap) History(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	return nil, ErrHistoryUnsupported
}
