package risk

import (
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	lossStreakCooldown    = 2 * time.Hour
	symbolBanDuration     = 6 * time.Hour
	symbolBanLossCount    = 2
	symbolBanLossWindow   = 24 * time.Hour
	symbolReentryCooldown = 30 * time.Minute
)

// BreakerConfig tunes the circuit breaker limits
type BreakerConfig struct {
	MaxDailyLossPct float64 // percent of day-start balance
	MaxDailyTrades  int
	LossStreakLimit int // consecutive losses before the global cooldown
}

// BreakerStatus is a snapshot of the breaker state for the status API
type BreakerStatus struct {
	Halted          bool      `json:"halted"`
	DayPnL          float64   `json:"day_pnl"`
	DayStartBalance float64   `json:"day_start_balance"`
	DailyTrades     int       `json:"daily_trades"`
	LossStreak      int       `json:"loss_streak"`
	CooldownUntil   time.Time `json:"cooldown_until"`
	BannedSymbols   []string  `json:"banned_symbols"`
}

// CircuitBreaker halts entries after losses pile up. All counters reset
// at the UTC date change.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg BreakerConfig

	day             time.Time
	dayStartBalance float64
	dayPnL          float64
	dailyTrades     int
	lossStreak      int
	cooldownUntil   time.Time
	halted          bool

	symbolLosses   map[string][]time.Time
	symbolBans     map[string]time.Time
	symbolLastSeen map[string]time.Time
}

// NewCircuitBreaker creates a breaker with the given limits
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:            cfg,
		symbolLosses:   make(map[string][]time.Time),
		symbolBans:     make(map[string]time.Time),
		symbolLastSeen: make(map[string]time.Time),
	}
}

// SetLossStreakLimit adjusts the streak limit (trade modes differ)
func (cb *CircuitBreaker) SetLossStreakLimit(limit int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.cfg.LossStreakLimit = limit
}

// ResetDaily starts a new trading day with the given balance
func (cb *CircuitBreaker) ResetDaily(balance float64, now time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.day = now.UTC().Truncate(24 * time.Hour)
	cb.dayStartBalance = balance
	cb.dayPnL = 0
	cb.dailyTrades = 0
	cb.lossStreak = 0
	cb.cooldownUntil = time.Time{}
	log.Printf("[breaker] daily reset, start balance %.2f", balance)
}

// Halt blocks all entries until Resume is called
func (cb *CircuitBreaker) Halt() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.halted = true
	log.Println("[breaker] manual halt engaged")
}

// Resume lifts a manual halt
func (cb *CircuitBreaker) Resume() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.halted = false
	log.Println("[breaker] manual halt lifted")
}

// Allow reports whether a new entry on the symbol is permitted. The
// returned reason is empty when allowed.
func (cb *CircuitBreaker) Allow(symbol string, now time.Time) (bool, string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.rolloverLocked(now)

	if cb.halted {
		return false, "manually halted"
	}
	if cb.dayStartBalance > 0 && cb.dayPnL < -cb.dayStartBalance*cb.cfg.MaxDailyLossPct/100 {
		return false, "daily loss limit reached"
	}
	if cb.cfg.MaxDailyTrades > 0 && cb.dailyTrades >= cb.cfg.MaxDailyTrades {
		return false, "daily trade cap reached"
	}
	if now.Before(cb.cooldownUntil) {
		return false, fmt.Sprintf("loss streak cooldown until %s", cb.cooldownUntil.UTC().Format(time.RFC3339))
	}
	if until, ok := cb.symbolBans[symbol]; ok {
		if now.Before(until) {
			return false, "symbol blacklisted after repeated losses"
		}
		delete(cb.symbolBans, symbol)
	}
	if last, ok := cb.symbolLastSeen[symbol]; ok && now.Sub(last) < symbolReentryCooldown {
		return false, "symbol re-entry cooldown"
	}
	return true, ""
}

// RecordTrade feeds the breaker a closed trade outcome
func (cb *CircuitBreaker) RecordTrade(symbol string, pnl float64, now time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.rolloverLocked(now)

	cb.dailyTrades++
	cb.dayPnL += pnl
	cb.symbolLastSeen[symbol] = now

	if pnl >= 0 {
		cb.lossStreak = 0
		return
	}

	cb.lossStreak++
	if cb.cfg.LossStreakLimit > 0 && cb.lossStreak >= cb.cfg.LossStreakLimit {
		cb.cooldownUntil = now.Add(lossStreakCooldown)
		log.Printf("[breaker] %d consecutive losses, cooling down until %s",
			cb.lossStreak, cb.cooldownUntil.UTC().Format(time.RFC3339))
	}

	// Track per-symbol losses for the 24h blacklist
	losses := cb.symbolLosses[symbol]
	kept := losses[:0]
	for _, t := range losses {
		if now.Sub(t) <= symbolBanLossWindow {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	cb.symbolLosses[symbol] = kept

	if len(kept) >= symbolBanLossCount {
		cb.symbolBans[symbol] = now.Add(symbolBanDuration)
		log.Printf("[breaker] %s blacklisted for %s after %d losses in 24h",
			symbol, symbolBanDuration, len(kept))
	}
}

// MarkEntry records an entry so the re-entry cooldown applies even before
// the trade closes
func (cb *CircuitBreaker) MarkEntry(symbol string, now time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.symbolLastSeen[symbol] = now
}

// Status returns a snapshot for the status API
func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	var banned []string
	now := time.Now()
	for symbol, until := range cb.symbolBans {
		if now.Before(until) {
			banned = append(banned, symbol)
		}
	}
	return BreakerStatus{
		Halted:          cb.halted,
		DayPnL:          cb.dayPnL,
		DayStartBalance: cb.dayStartBalance,
		DailyTrades:     cb.dailyTrades,
		LossStreak:      cb.lossStreak,
		CooldownUntil:   cb.cooldownUntil,
		BannedSymbols:   banned,
	}
}

// rolloverLocked resets the daily counters when the UTC date changes.
// Caller holds the mutex.
func (cb *CircuitBreaker) rolloverLocked(now time.Time) {
	today := now.UTC().Truncate(24 * time.Hour)
	if cb.day.IsZero() {
		cb.day = today
		return
	}
	if today.After(cb.day) {
		cb.day = today
		cb.dayStartBalance += cb.dayPnL
		cb.dayPnL = 0
		cb.dailyTrades = 0
		cb.lossStreak = 0
		cb.cooldownUntil = time.Time{}
	}
}
