package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed alert log. It holds the same append-only
// rows as the CSV store, with per-row IDs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS alerts (
		id         TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		symbol     TEXT NOT NULL,
		name       TEXT NOT NULL,
		score      REAL NOT NULL,
		reasons    TEXT NOT NULL DEFAULT '',
		timeframe  TEXT NOT NULL,
		source     TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("failed to create alerts table: %w", err)
	}
	return s, nil
}

// Load reads all alert rows.
func (s *SQLiteStore) Load() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT created_at, symbol, name, score, reasons, timeframe, source
		FROM alerts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAtNano int64
		var reasons string
		if err := rows.Scan(&createdAtNano, &e.Symbol, &e.Name, &e.Score, &reasons, &e.Timeframe, &e.Source); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		e.Time = time.Unix(0, createdAtNano)
		if reasons != "" {
			e.Reasons = strings.Split(reasons, ", ")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Append inserts one alert row.
func (s *SQLiteStore) Append(e Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO alerts (id, created_at, symbol, name, score, reasons, timeframe, source)
		VALUES (?,?,?,?,?,?,?,?)`,
		uuid.New().String(), e.Time.UnixNano(), e.Symbol, e.Name, e.Score,
		strings.Join(e.Reasons, ", "), e.Timeframe, e.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
