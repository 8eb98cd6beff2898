package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mhkarimi/coinscout/internal/logger"
)

const timeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"time", "symbol", "name", "score", "reasons", "timeframe", "source"}

// CSVStore is a flat append-only CSV log. A header row is written once when
// the file is first created.
type CSVStore struct {
	path string
}

// NewCSVStore creates a CSV-backed store at path, creating parent
// directories as needed.
func NewCSVStore(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &CSVStore{path: path}, nil
}

// Load reads all rows from the log. A missing file is an empty ledger, not
// an error; unparsable rows are skipped with a warning.
func (s *CSVStore) Load() ([]Entry, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var entries []Entry
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == csvHeader[0] {
			continue
		}
		if len(row) < 7 {
			logger.Warn("Skipping malformed ledger row %d (%d fields)", i+1, len(row))
			continue
		}
		ts, err := time.ParseInLocation(timeLayout, row[0], time.UTC)
		if err != nil {
			logger.Warn("Skipping ledger row %d with bad timestamp %q: %v", i+1, row[0], err)
			continue
		}
		score, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			logger.Warn("Skipping ledger row %d with bad score %q: %v", i+1, row[3], err)
			continue
		}
		var reasons []string
		if row[4] != "" {
			reasons = strings.Split(row[4], ", ")
		}
		entries = append(entries, Entry{
			Time:      ts,
			Symbol:    row[1],
			Name:      row[2],
			Score:     score,
			Reasons:   reasons,
			Timeframe: row[5],
			Source:    row[6],
		})
	}
	return entries, nil
}

// Append writes one row, creating the file with a header first if needed.
func (s *CSVStore) Append(e Entry) error {
	_, statErr := os.Stat(s.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write ledger header: %w", err)
		}
	}
	row := []string{
		e.Time.UTC().Format(timeLayout),
		e.Symbol,
		e.Name,
		strconv.FormatFloat(e.Score, 'f', 1, 64),
		strings.Join(e.Reasons, ", "),
		e.Timeframe,
		e.Source,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush ledger row: %w", err)
	}
	return nil
}

// Close is a no-op; the file is opened per append.
func (s *CSVStore) Close() error {
	return nil
}
