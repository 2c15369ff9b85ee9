package marketstore

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"titan_backend/services/marketdata"
)

// Store caches fetched candles in a local SQLite database so backtests
// and restarts do not refetch history from the exchange.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates (or opens) the local market database at path
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open market db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping market db: %w", err)
	}

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("Market store initialized at %s", path)
	return store, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) createTables() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	candlesTable := `
		CREATE TABLE IF NOT EXISTS candles (
			symbol VARCHAR NOT NULL,
			timeframe VARCHAR NOT NULL,
			start_ms INTEGER NOT NULL,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			turnover REAL,
			PRIMARY KEY (symbol, timeframe, start_ms)
		)
	`
	if _, err := s.db.Exec(candlesTable); err != nil {
		return err
	}

	indexSQL := `CREATE INDEX IF NOT EXISTS idx_candles_lookup ON candles(symbol, timeframe, start_ms)`
	if _, err := s.db.Exec(indexSQL); err != nil {
		return err
	}
	return nil
}

// SaveCandles upserts a batch of candles for a symbol and timeframe
func (s *Store) SaveCandles(symbol, timeframe string, candles []marketdata.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles
			(symbol, timeframe, start_ms, open, high, low, close, volume, turnover)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.Exec(symbol, timeframe, c.Start.UnixMilli(),
			c.Open, c.High, c.Low, c.Close, c.Volume, c.Turnover)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadCandles returns stored candles in the time range, oldest first
func (s *Store) LoadCandles(symbol, timeframe string, from, to time.Time) ([]marketdata.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT start_ms, open, high, low, close, volume, turnover
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND start_ms >= ? AND start_ms <= ?
		ORDER BY start_ms ASC
	`, symbol, timeframe, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []marketdata.Candle
	for rows.Next() {
		var ms int64
		var c marketdata.Candle
		if err := rows.Scan(&ms, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Turnover); err != nil {
			return nil, err
		}
		c.Start = time.UnixMilli(ms).UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// LatestCandleTime returns the newest stored candle start for the pair,
// or the zero time when nothing is stored
func (s *Store) LatestCandleTime(symbol, timeframe string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ms sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(start_ms) FROM candles WHERE symbol = ? AND timeframe = ?
	`, symbol, timeframe).Scan(&ms)
	if err != nil {
		return time.Time{}, err
	}
	if !ms.Valid {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms.Int64).UTC(), nil
}

// CandleCount returns the number of stored candles for the pair
func (s *Store) CandleCount(symbol, timeframe string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM candles WHERE symbol = ? AND timeframe = ?
	`, symbol, timeframe).Scan(&count)
	return count, err
}

// Prune deletes candles older than the cutoff
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM candles WHERE start_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
