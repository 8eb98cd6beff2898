// Package merge combines per-provider token quotes into one canonical record
// per symbol using provider precedence and field-level fallback.
package merge

import (
	"sort"
	"strings"

	"github.com/mhkarimi/coinscout/internal/models"
)

// Merge collapses the per-provider batches into one MergedToken per symbol.
//
// The base record for a symbol comes from the highest-precedence provider
// that carries it; providers absent from the precedence list fall behind it
// in input encounter order. Fields the base record did not supply (zero
// values; rank at the unknown sentinel) are filled from the next provider in
// that ordering that did supply them. Quote construction already defaults
// omitted provider fields to zero, so zero is treated as "not supplied".
//
// The result is sorted by descending volume, ties broken by input encounter
// order. Downstream top-N slicing relies on this ordering.
func Merge(batches [][]models.TokenQuote, precedence []string) []models.MergedToken {
	rank := make(map[string]int, len(precedence))
	for i, p := range precedence {
		rank[p] = i
	}

	type group struct {
		symbol string
		quotes []models.TokenQuote // sorted by precedence, then encounter order
	}

	groups := make(map[string]*group)
	var order []*group

	for _, batch := range batches {
		for _, q := range batch {
			sym := strings.ToUpper(q.Symbol)
			g, ok := groups[sym]
			if !ok {
				g = &group{symbol: sym}
				groups[sym] = g
				order = append(order, g)
			}
			q.Symbol = sym
			g.quotes = append(g.quotes, q)
		}
	}

	providerRank := func(name string) int {
		if r, ok := rank[name]; ok {
			return r
		}
		return len(precedence) // unlisted providers keep encounter order after listed ones
	}

	merged := make([]models.MergedToken, 0, len(order))
	for _, g := range order {
		sort.SliceStable(g.quotes, func(i, j int) bool {
			return providerRank(g.quotes[i].Provider) < providerRank(g.quotes[j].Provider)
		})
		merged = append(merged, mergeGroup(g.symbol, g.quotes))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Volume > merged[j].Volume
	})
	return merged
}

func mergeGroup(symbol string, quotes []models.TokenQuote) models.MergedToken {
	base := quotes[0]
	m := models.MergedToken{
		Symbol:    symbol,
		Name:      base.Name,
		Price:     base.Price,
		Volume:    base.Volume,
		MarketCap: base.MarketCap,
		Rank:      base.Rank,
		Change1h:  base.Change1h,
		Change24h: base.Change24h,
		Change7d:  base.Change7d,
		Change14d: base.Change14d,
		Change30d: base.Change30d,
		Source:    base.Provider,
	}

	for _, q := range quotes[1:] {
		if m.Name == "" && q.Name != "" {
			m.Name = q.Name
		}
		if m.Price == 0 && q.Price != 0 {
			m.Price = q.Price
		}
		if m.Volume == 0 && q.Volume != 0 {
			m.Volume = q.Volume
		}
		if m.MarketCap == 0 && q.MarketCap != 0 {
			m.MarketCap = q.MarketCap
		}
		if (m.Rank == 0 || m.Rank == models.RankUnknown) && q.Rank != 0 && q.Rank != models.RankUnknown {
			m.Rank = q.Rank
		}
		if m.Change1h == 0 && q.Change1h != 0 {
			m.Change1h = q.Change1h
		}
		if m.Change24h == 0 && q.Change24h != 0 {
			m.Change24h = q.Change24h
		}
		if m.Change7d == 0 && q.Change7d != 0 {
			m.Change7d = q.Change7d
		}
		if m.Change14d == 0 && q.Change14d != 0 {
			m.Change14d = q.Change14d
		}
		if m.Change30d == 0 && q.Change30d != 0 {
			m.Change30d = q.Change30d
		}
	}
	return m
}
