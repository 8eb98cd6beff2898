package provider

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mhkarimi/coinscout/internal/logger"
	"github.com/mhkarimi/coinscout/internal/models"
)

const coinGeckoName = "CoinGecko"

// CoinGecko provides quotes and historical series from the CoinGecko API.
type CoinGecko struct {
	apiURL    string
	apiKey    string
	transport *transport

	// coinIDs maps uppercased symbols to CoinGecko coin IDs, refreshed on
	// every ListMarkets call. The market_chart endpoint is keyed by ID.
	coinIDs map[string]string
}

// NewCoinGecko creates a CoinGecko provider. apiKey may be empty for the
// public API tier.
func NewCoinGecko(apiURL, apiKey string, opts Options) *CoinGecko {
	return &CoinGecko{
		apiURL:    strings.TrimSuffix(apiURL, "/"),
		apiKey:    apiKey,
		transport: newTransport(coinGeckoName, opts),
		coinIDs:   make(map[string]string),
	}
}

func (c *CoinGecko) Name() string {
	return coinGeckoName
}

type cgMarket struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	CurrentPrice  *float64 `json:"current_price"`
	TotalVolume   *float64 `json:"total_volume"`
	MarketCap     *float64 `json:"market_cap"`
	MarketCapRank *int     `json:"market_cap_rank"`
	Change1h      *float64 `json:"price_change_percentage_1h_in_currency"`
	Change24h     *float64 `json:"price_change_percentage_24h_in_currency"`
	Change7d      *float64 `json:"price_change_percentage_7d_in_currency"`
	Change14d     *float64 `json:"price_change_percentage_14d_in_currency"`
	Change30d     *float64 `json:"price_change_percentage_30d_in_currency"`
}

// ListMarkets fetches the top tokens by market cap. Records that fail quote
// validation are skipped with a warning; the batch survives.
func (c *CoinGecko) ListMarkets(ctx context.Context, limit int) ([]models.TokenQuote, error) {
	if limit > 250 {
		limit = 250
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", fmt.Sprintf("%d", limit))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "1h,24h,7d,14d,30d")
	if c.apiKey != "" {
		q.Set("x_cg_pro_api_key", c.apiKey)
	}

	var payload []cgMarket
	if err := c.transport.getJSON(ctx, c.apiURL+"/coins/markets?"+q.Encode(), nil, &payload); err != nil {
		return nil, err
	}

	quotes := make([]models.TokenQuote, 0, len(payload))
	for _, m := range payload {
		quote := models.TokenQuote{
			Symbol:    strings.ToUpper(m.Symbol),
			Name:      m.Name,
			Price:     deref(m.CurrentPrice),
			Volume:    deref(m.TotalVolume),
			MarketCap: deref(m.MarketCap),
			Rank:      models.RankUnknown,
			Change1h:  deref(m.Change1h),
			Change24h: deref(m.Change24h),
			Change7d:  deref(m.Change7d),
			Change14d: deref(m.Change14d),
			Change30d: deref(m.Change30d),
			Provider:  coinGeckoName,
		}
		if m.MarketCapRank != nil && *m.MarketCapRank > 0 {
			quote.Rank = *m.MarketCapRank
		}
		if err := quote.Validate(); err != nil {
			logger.Warn("%s: skipping malformed record for %q: %v", coinGeckoName, m.ID, err)
			continue
		}
		if m.ID != "" {
			c.coinIDs[quote.Symbol] = m.ID
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

type cgMarketChart struct {
	Prices [][]float64 `json:"prices"`
}

// History fetches a daily price series for symbol over the given lookback.
// The series is returned ascending by timestamp with duplicates dropped.
func (c *CoinGecko) History(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	id, ok := c.coinIDs[strings.ToUpper(symbol)]
	if !ok {
		id = strings.ToLower(symbol)
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", fmt.Sprintf("%d", days))
	q.Set("interval", "daily")
	if c.apiKey != "" {
		q.Set("x_cg_pro_api_key", c.apiKey)
	}

	var payload cgMarketChart
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.apiURL, url.PathEscape(id), q.Encode())
	if err := c.transport.getJSON(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}

	series := make(models.PriceSeries, 0, len(payload.Prices))
	for _, pair := range payload.Prices {
		if len(pair) < 2 || pair[1] <= 0 {
			continue
		}
		series = append(series, models.PricePoint{
			Timestamp: time.UnixMilli(int64(pair[0])),
			Price:     pair[1],
		})
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	deduped := make(models.PriceSeries, 0, len(series))
	for _, p := range series {
		if n := len(deduped); n > 0 && p.Timestamp.Equal(deduped[n-1].Timestamp) {
			continue
		}
		deduped = append(deduped, p)
	}
	return deduped, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
