package marketdata

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

// Symbols excluded from scanning regardless of volume: meme coins with
// erratic microstructure and stablecoin pairs with no directional edge.
var symbolBlacklist = map[string]bool{
	"1000PEPEUSDT":  true,
	"1000SHIBUSDT":  true,
	"1000BONKUSDT":  true,
	"1000FLOKIUSDT": true,
	"DOGEUSDT":      true,
	"MEMEUSDT":      true,
	"WIFUSDT":       true,
	"USDCUSDT":      true,
	"USDEUSDT":      true,
	"DAIUSDT":       true,
}

// SymbolSelector picks the most liquid USDT perpetuals to scan
type SymbolSelector struct {
	client        *Client
	maxSymbols    int
	defaultSymbol string

	mu        sync.RWMutex
	selected  []string
	refreshed time.Time
}

// NewSymbolSelector creates a selector returning at most maxSymbols symbols
func NewSymbolSelector(client *Client, maxSymbols int, defaultSymbol string) *SymbolSelector {
	return &SymbolSelector{
		client:        client,
		maxSymbols:    maxSymbols,
		defaultSymbol: defaultSymbol,
	}
}

// Refresh re-ranks all linear USDT perps by 24h turnover and stores the
// top N, skipping blacklisted symbols. On failure the previous selection
// (or the default symbol) is kept.
func (s *SymbolSelector) Refresh() ([]string, error) {
	tickers, err := s.client.GetTickers("")
	if err != nil {
		log.Printf("[selector] ticker refresh failed: %v", err)
		return s.Selected(), err
	}

	candidates := make([]Ticker, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		if symbolBlacklist[t.Symbol] {
			continue
		}
		candidates = append(candidates, t)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Turnover24h > candidates[j].Turnover24h
	})

	limit := s.maxSymbols
	if limit > len(candidates) {
		limit = len(candidates)
	}
	symbols := make([]string, 0, limit)
	for _, t := range candidates[:limit] {
		symbols = append(symbols, t.Symbol)
	}

	s.mu.Lock()
	s.selected = symbols
	s.refreshed = time.Now().UTC()
	s.mu.Unlock()

	log.Printf("[selector] selected %d symbols by 24h turnover", len(symbols))
	return symbols, nil
}

// Selected returns the current symbol list, falling back to the default
// symbol before the first successful refresh.
func (s *SymbolSelector) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.selected) == 0 {
		return []string{s.defaultSymbol}
	}
	out := make([]string, len(s.selected))
	copy(out, s.selected)
	return out
}

// RefreshedAt returns when the selection was last updated
func (s *SymbolSelector) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshed
}
