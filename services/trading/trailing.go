package trading

import (
	"math"
	"sync"
)

const (
	breakevenTriggerR = 1.0
	breakevenATRMult  = 0.1
	trailingTriggerR  = 1.5
	trailingATRMult   = 1.5
)

// trailingState tracks one open position's stop management
type trailingState struct {
	side        string
	entry       float64
	initialRisk float64
	atr         float64
	currentStop float64
	peak        float64
	breakeven   bool
	trailing    bool
}

// TrailingManager moves protective stops as positions gain: to
// breakeven at +1R and then trailing the peak at +1.5R. Stops only ever
// move in the favorable direction.
type TrailingManager struct {
	mu        sync.Mutex
	positions map[string]*trailingState
}

// NewTrailingManager creates a trailing stop manager
func NewTrailingManager() *TrailingManager {
	return &TrailingManager{positions: make(map[string]*trailingState)}
}

// Register starts managing a freshly opened position
func (tm *TrailingManager) Register(symbol, side string, entry, stopLoss, atr float64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.positions[symbol] = &trailingState{
		side:        side,
		entry:       entry,
		initialRisk: math.Abs(entry - stopLoss),
		atr:         atr,
		currentStop: stopLoss,
		peak:        entry,
	}
}

// Release stops managing a position
func (tm *TrailingManager) Release(symbol string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.positions, symbol)
}

// Tracked reports whether a symbol is under management
func (tm *TrailingManager) Tracked(symbol string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, ok := tm.positions[symbol]
	return ok
}

// Update feeds the latest price and returns the new stop when it moved
func (tm *TrailingManager) Update(symbol string, price float64) (float64, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	st, ok := tm.positions[symbol]
	if !ok || st.initialRisk <= 0 {
		return 0, false
	}

	var gain float64
	if st.side == "LONG" {
		if price > st.peak {
			st.peak = price
		}
		gain = price - st.entry
	} else {
		if price < st.peak {
			st.peak = price
		}
		gain = st.entry - price
	}
	rMultiple := gain / st.initialRisk

	proposed := st.currentStop

	// Breakeven first: lock the entry in with a small ATR buffer
	if !st.breakeven && rMultiple >= breakevenTriggerR {
		if st.side == "LONG" {
			proposed = st.entry + st.atr*breakevenATRMult
		} else {
			proposed = st.entry - st.atr*breakevenATRMult
		}
		st.breakeven = true
	}

	// Then trail the peak once the move extends
	if rMultiple >= trailingTriggerR {
		st.trailing = true
	}
	if st.trailing {
		var trail float64
		if st.side == "LONG" {
			trail = st.peak - st.atr*trailingATRMult
		} else {
			trail = st.peak + st.atr*trailingATRMult
		}
		if better(st.side, trail, proposed) {
			proposed = trail
		}
	}

	if better(st.side, proposed, st.currentStop) {
		st.currentStop = proposed
		return proposed, true
	}
	return 0, false
}

// better reports whether candidate is a tighter stop than current for the side
func better(side string, candidate, current float64) bool {
	if side == "LONG" {
		return candidate > current
	}
	return candidate < current
}
