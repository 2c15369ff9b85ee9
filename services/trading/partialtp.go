package trading

import (
	"math"
	"sync"
)

// TPRung is one partial take-profit level
type TPRung struct {
	RMultiple float64 `json:"r_multiple"`
	Fraction  float64 `json:"fraction"` // fraction of the original quantity
}

// DefaultLadder scales out 30% at +1R, 40% at +2R and 30% at +3R
var DefaultLadder = []TPRung{
	{RMultiple: 1, Fraction: 0.30},
	{RMultiple: 2, Fraction: 0.40},
	{RMultiple: 3, Fraction: 0.30},
}

// PartialFill describes a rung that should be executed now
type PartialFill struct {
	Symbol    string
	Side      string
	Qty       float64
	RMultiple float64
	LastRung  bool
}

type partialState struct {
	side        string
	entry       float64
	initialRisk float64
	totalQty    float64
	remaining   float64
	qtyStep     float64
	ladder      []TPRung
	filled      []bool
}

// PartialTPManager scales positions out at fixed R-multiples. Each rung
// fires at most once and the closed quantity never exceeds the
// registered quantity.
type PartialTPManager struct {
	mu        sync.Mutex
	positions map[string]*partialState
}

// NewPartialTPManager creates a partial take-profit manager
func NewPartialTPManager() *PartialTPManager {
	return &PartialTPManager{positions: make(map[string]*partialState)}
}

// Register starts managing a freshly opened position with the given ladder
func (pm *PartialTPManager) Register(symbol, side string, entry, stopLoss, qty, qtyStep float64, ladder []TPRung) {
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.positions[symbol] = &partialState{
		side:        side,
		entry:       entry,
		initialRisk: math.Abs(entry - stopLoss),
		totalQty:    qty,
		remaining:   qty,
		qtyStep:     qtyStep,
		ladder:      ladder,
		filled:      make([]bool, len(ladder)),
	}
}

// Release stops managing a position
func (pm *PartialTPManager) Release(symbol string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.positions, symbol)
}

// Remaining returns the unclosed quantity for a symbol
func (pm *PartialTPManager) Remaining(symbol string) float64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if st, ok := pm.positions[symbol]; ok {
		return st.remaining
	}
	return 0
}

// Check returns the rungs newly reached at the given price. The caller
// executes the reduce-only orders and records the realized PnL.
func (pm *PartialTPManager) Check(symbol string, price float64) []PartialFill {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	st, ok := pm.positions[symbol]
	if !ok || st.initialRisk <= 0 || st.remaining <= 0 {
		return nil
	}

	var gain float64
	if st.side == "LONG" {
		gain = price - st.entry
	} else {
		gain = st.entry - price
	}
	rMultiple := gain / st.initialRisk

	var fills []PartialFill
	for i, rung := range st.ladder {
		if st.filled[i] || rMultiple < rung.RMultiple {
			continue
		}
		qty := st.totalQty * rung.Fraction
		if st.qtyStep > 0 {
			qty = math.Floor(qty/st.qtyStep) * st.qtyStep
		}
		if qty > st.remaining {
			qty = st.remaining
		}
		if qty <= 0 {
			st.filled[i] = true
			continue
		}
		st.filled[i] = true
		st.remaining -= qty
		fills = append(fills, PartialFill{
			Symbol:    symbol,
			Side:      st.side,
			Qty:       qty,
			RMultiple: rung.RMultiple,
			LastRung:  i == len(st.ladder)-1,
		})
	}
	return fills
}
