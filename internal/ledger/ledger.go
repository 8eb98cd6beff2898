// Package ledger tracks which (symbol, timeframe, source, day) tuples have
// already triggered an alert, backed by an injected durable store.
package ledger

import (
	"fmt"
	"time"

	"github.com/mhkarimi/coinscout/internal/logger"
)

// Entry is one durable row of the alert log.
type Entry struct {
	Time      time.Time
	Symbol    string
	Name      string
	Score     float64
	Reasons   []string
	Timeframe string
	Source    string
}

// Key identifies one alert decision. Membership is exact-tuple equality:
// the same symbol on a different timeframe or source is independent.
type Key struct {
	Symbol    string
	Timeframe string
	Source    string
	Day       string // UTC calendar day, 2006-01-02
}

// Store is the durable backend for the ledger. Load reconstructs all
// previously recorded entries; Append adds one row.
type Store interface {
	Load() ([]Entry, error)
	Append(Entry) error
	Close() error
}

// Ledger answers "should alert" queries against an in-memory set projected
// from the store. Days are UTC calendar days.
type Ledger struct {
	store Store
	seen  map[Key]struct{}
	now   func() time.Time
}

// New creates a ledger over store, loading all prior entries. An unreadable
// store bootstraps an empty set rather than failing.
func New(store Store) *Ledger {
	l := &Ledger{
		store: store,
		seen:  make(map[Key]struct{}),
		now:   time.Now,
	}

	entries, err := store.Load()
	if err != nil {
		logger.Warn("Failed to load alert ledger, starting empty: %v", err)
		return l
	}
	for _, e := range entries {
		l.seen[keyFor(e.Symbol, e.Timeframe, e.Source, e.Time)] = struct{}{}
	}
	logger.Info("Loaded %d alert ledger entries", len(entries))
	return l
}

// ShouldAlert reports whether no alert has been recorded for the tuple
// (symbol, timeframe, source) today.
func (l *Ledger) ShouldAlert(symbol, timeframe, source string) bool {
	_, seen := l.seen[keyFor(symbol, timeframe, source, l.now())]
	return !seen
}

// Record appends one alert row and marks the tuple as seen for today. The
// caller must check ShouldAlert first; Record does not re-check. A store
// failure is reported but the in-memory set is still updated, so duplicates
// stay suppressed within this process even when durability failed.
func (l *Ledger) Record(symbol, name string, score float64, reasons []string, timeframe, source string) error {
	now := l.now()
	entry := Entry{
		Time:      now,
		Symbol:    symbol,
		Name:      name,
		Score:     score,
		Reasons:   reasons,
		Timeframe: timeframe,
		Source:    source,
	}

	err := l.store.Append(entry)
	l.seen[keyFor(symbol, timeframe, source, now)] = struct{}{}
	if err != nil {
		return fmt.Errorf("failed to append alert record: %w", err)
	}
	return nil
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

func keyFor(symbol, timeframe, source string, t time.Time) Key {
	return Key{
		Symbol:    symbol,
		Timeframe: timeframe,
		Source:    source,
		Day:       t.UTC().Format("2006-01-02"),
	}
}
