package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fastOpts() Options {
	return Options{
		Timeout:        2 * time.Second,
		MaxRetries:     3,
		RetryDelayBase: time.Millisecond,
	}
}

func TestTransportRateLimitExhaustion(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "", fastOpts())
	_, err := cg.ListMarkets(context.Background(), 10)
	if err == nil {
		t.Fatal("expected fetch failure after exhausting retries")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", fe.StatusCode)
	}
	if fe.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", fe.Attempts)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
}

func TestTransportRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "", fastOpts())
	quotes, err := cg.ListMarkets(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected recovery on third attempt, got %v", err)
	}
	if len(quotes) != 0 {
		t.Errorf("expected empty batch, got %d quotes", len(quotes))
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
}

func TestTransportClientErrorFailsImmediately(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "", fastOpts())
	_, err := cg.ListMarkets(context.Background(), 10)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Attempts != 1 || calls != 1 {
		t.Errorf("malformed request must not be retried: attempts=%d calls=%d", fe.Attempts, calls)
	}
}

func TestCoinGeckoSkipsMalformedRecords(t *testing.T) {
	body := `[
		{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":64000,"total_volume":25000000000,"market_cap":1200000000000,"market_cap_rank":1,"price_change_percentage_24h_in_currency":2.5},
		{"id":"broken","symbol":"","name":"Broken","current_price":1},
		{"id":"nullprice","symbol":"xyz","name":"NullPrice","current_price":null},
		{"id":"negvol","symbol":"ngv","name":"NegVol","current_price":2,"total_volume":-5,"market_cap_rank":9},
		{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3000,"market_cap_rank":2}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "", fastOpts())
	quotes, err := cg.ListMarkets(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListMarkets: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 valid quotes, got %d", len(quotes))
	}
	if quotes[0].Symbol != "BTC" || quotes[0].Rank != 1 {
		t.Errorf("unexpected first quote: %+v", quotes[0])
	}
	if quotes[1].Symbol != "ETH" {
		t.Errorf("unexpected second quote: %+v", quotes[1])
	}
	if quotes[1].Volume != 0 || quotes[1].Change24h != 0 {
		t.Errorf("omitted fields must default to zero: %+v", quotes[1])
	}
	if quotes[0].Provider != "CoinGecko" {
		t.Errorf("provider = %q, want CoinGecko", quotes[0].Provider)
	}
}

func TestCoinGeckoHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Out of order plus one duplicate timestamp and one bad pair.
		w.Write([]byte(`{"prices":[[1700179200000,101.5],[1700092800000,100.0],[1700179200000,102.0],[1700265600000]]}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "", fastOpts())
	series, err := cg.History(context.Background(), "BTC", 30)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 points after dedup, got %d", len(series))
	}
	if !series[0].Timestamp.Before(series[1].Timestamp) {
		t.Error("series must ascend by timestamp")
	}
	if series[0].Price != 100.0 || series[1].Price != 101.5 {
		t.Errorf("unexpected prices: %v, %v", series[0].Price, series[1].Price)
	}
}

func TestCoinMarketCapListMarkets(t *testing.T) {
	body := `{"data":[
		{"symbol":"BTC","name":"Bitcoin","cmc_rank":1,"quote":{"USD":{"price":64010.5,"volume_24h":24000000000,"market_cap":1190000000000,"percent_change_24h":2.2}}},
		{"symbol":"BAD","name":"Bad","quote":{"USD":{"price":null}}},
		{"symbol":"NGC","name":"NegCap","cmc_rank":7,"quote":{"USD":{"price":3.5,"market_cap":-100}}}
	]}`
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-CMC_PRO_API_KEY")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	cmc := NewCoinMarketCap(srv.URL, "secret", fastOpts())
	quotes, err := cmc.ListMarkets(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListMarkets: %v", err)
	}
	if gotKey != "secret" {
		t.Errorf("API key header = %q, want secret", gotKey)
	}
	if len(quotes) != 1 {
		t.Fatalf("expected 1 valid quote, got %d", len(quotes))
	}
	if quotes[0].Symbol != "BTC" || quotes[0].Provider != "CoinMarketCap" {
		t.Errorf("unexpected quote: %+v", quotes[0])
	}
}

func TestCoinMarketCapHistoryUnsupported(t *testing.T) {
	cmc := NewCoinMarketCap("https://example.com", "k", fastOpts())
	if _, err := cmc.History(context.Background(), "BTC", 30); !errors.Is(err, ErrHistoryUnsupported) {
		t.Errorf("expected ErrHistoryUnsupported, got %v", err)
	}
}

func TestTransportDecodeFailureNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "", fastOpts())
	_, err := cg.ListMarkets(context.Background(), 10)
	if err == nil {
		t.Fatal("expected decode failure")
	}
	if calls != 1 {
		t.Errorf("decode failures must not be retried, saw %d calls", calls)
	}
}
