package merge

import (
	"testing"

	"github.com/mhkarimi/coinscout/internal/models"
)

func quote(provider, symbol string, price, volume float64) models.TokenQuote {
	return models.TokenQuote{
		Symbol:    symbol,
		Name:      symbol + " Coin",
		Price:     price,
		Volume:    volume,
		MarketCap: 1e9,
		Rank:      10,
		Provider:  provider,
	}
}

func TestMergePrecedence(t *testing.T) {
	gecko := []models.TokenQuote{quote("CoinGecko", "BTC", 64000, 25e9)}
	cmc := []models.TokenQuote{quote("CoinMarketCap", "BTC", 64100, 24e9)}

	merged := Merge([][]models.TokenQuote{{gecko[0]}, {cmc[0]}}, []string{"CoinGecko", "CoinMarketCap"})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged token, got %d", len(merged))
	}
	if merged[0].Price != 64000 {
		t.Errorf("merged price = %v, want higher-precedence 64000", merged[0].Price)
	}
	if merged[0].Source != "CoinGecko" {
		t.Errorf("source = %q, want CoinGecko", merged[0].Source)
	}

	// Reversed precedence flips the winner.
	merged = Merge([][]models.TokenQuote{{gecko[0]}, {cmc[0]}}, []string{"CoinMarketCap", "CoinGecko"})
	if merged[0].Price != 64100 {
		t.Errorf("merged price = %v, want 64100 under reversed precedence", merged[0].Price)
	}
	if merged[0].Source != "CoinMarketCap" {
		t.Errorf("source = %q, want CoinMarketCap", merged[0].Source)
	}
}

func TestMergeFieldFallback(t *testing.T) {
	primary := quote("CoinGecko", "ETH", 3000, 12e9)
	primary.MarketCap = 0
	primary.Rank = models.RankUnknown
	primary.Change30d = 0

	secondary := quote("CoinMarketCap", "ETH", 3010, 11e9)
	secondary.MarketCap = 360e9
	secondary.Rank = 2
	secondary.Change30d = 14.5

	merged := Merge([][]models.TokenQuote{{primary}, {secondary}}, []string{"CoinGecko", "CoinMarketCap"})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged token, got %d", len(merged))
	}
	m := merged[0]
	if m.Price != 3000 {
		t.Errorf("price = %v, want primary's 3000", m.Price)
	}
	if m.MarketCap != 360e9 {
		t.Errorf("market cap = %v, want fallback 360e9", m.MarketCap)
	}
	if m.Rank != 2 {
		t.Errorf("rank = %d, want fallback 2", m.Rank)
	}
	if m.Change30d != 14.5 {
		t.Errorf("change_30d = %v, want fallback 14.5", m.Change30d)
	}
}

func TestMergeSymbolCanonicalization(t *testing.T) {
	a := quote("CoinGecko", "sol", 150, 3e9)
	b := quote("CoinMarketCap", "SOL", 151, 2.9e9)

	merged := Merge([][]models.TokenQuote{{a}, {b}}, []string{"CoinGecko"})
	if len(merged) != 1 {
		t.Fatalf("case-insensitive symbols must merge, got %d records", len(merged))
	}
	if merged[0].Symbol != "SOL" {
		t.Errorf("symbol = %q, want canonical SOL", merged[0].Symbol)
	}
}

func TestMergeUnknownSymbolFallsThrough(t *testing.T) {
	// Only the lower-precedence provider carries the symbol.
	cmcOnly := quote("CoinMarketCap", "XRP", 0.5, 1e9)
	merged := Merge([][]models.TokenQuote{nil, {cmcOnly}}, []string{"CoinGecko", "CoinMarketCap"})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged token, got %d", len(merged))
	}
	if merged[0].Source != "CoinMarketCap" {
		t.Errorf("source = %q, want CoinMarketCap", merged[0].Source)
	}
}

func TestMergeOutputOrderByVolume(t *testing.T) {
	batch := []models.TokenQuote{
		quote("CoinGecko", "AAA", 1, 100),
		quote("CoinGecko", "BBB", 1, 300),
		quote("CoinGecko", "CCC", 1, 200),
		quote("CoinGecko", "DDD", 1, 300), // tie with BBB, encountered later
	}
	merged := Merge([][]models.TokenQuote{batch}, []string{"CoinGecko"})

	want := []string{"BBB", "DDD", "CCC", "AAA"}
	if len(merged) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(merged))
	}
	for i, sym := range want {
		if merged[i].Symbol != sym {
			t.Errorf("position %d = %s, want %s", i, merged[i].Symbol, sym)
		}
	}
}

func TestMergeOneRecordPerSymbol(t *testing.T) {
	batches := [][]models.TokenQuote{
		{quote("CoinGecko", "BTC", 64000, 25e9), quote("CoinGecko", "ETH", 3000, 12e9)},
		{quote("CoinMarketCap", "BTC", 64100, 24e9), quote("CoinMarketCap", "DOGE", 0.1, 1e9)},
	}
	merged := Merge(batches, []string{"CoinGecko", "CoinMarketCap"})
	if len(merged) != 3 {
		t.Fatalf("expected 3 distinct symbols, got %d", len(merged))
	}
	seen := make(map[string]bool)
	for _, m := range merged {
		if seen[m.Symbol] {
			t.Errorf("duplicate symbol %s in merge output", m.Symbol)
		}
		seen[m.Symbol] = true
	}
}
