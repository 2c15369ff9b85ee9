package risk

import (
	"math"

	"titan_backend/services/marketdata"
)

const (
	minOrderValue  = 5.0  // exchange minimum notional in USDT
	minBalance     = 10.0 // below this the account cannot trade safely
	maxLeverage    = 10
	atrStopMult    = 1.5
	kellyMinTrades = 20
)

// SizingRequest carries everything needed to size a position
type SizingRequest struct {
	Balance        float64
	RiskPct        float64 // percent of balance risked per trade
	Entry          float64
	StopLoss       float64
	ScoreModifier  float64 // composite size modifier, 1.0 = neutral
	RegimeModifier float64 // regime size multiplier, 1.0 = neutral
	QtyStep        float64
}

// SizingResult is the outcome of position sizing. When OK is false the
// trade must not be placed and Reason explains why.
type SizingResult struct {
	OK            bool    `json:"ok"`
	Reason        string  `json:"reason"`
	Qty           float64 `json:"qty"`
	PositionValue float64 `json:"position_value"`
	RiskAmount    float64 `json:"risk_amount"`
	Leverage      int     `json:"leverage"`
}

// JournalStats is the rolling trade-journal summary used for Kelly sizing
type JournalStats struct {
	ClosedTrades int
	WinRate      float64 // 0-1
	AvgWin       float64 // average winning PnL, positive
	AvgLoss      float64 // average losing PnL, positive magnitude
}

// Manager sizes positions and derives protective levels
type Manager struct {
	kellyEnabled bool
}

// NewManager creates a risk manager. With kellyEnabled the per-trade risk
// fraction follows half-Kelly once enough journal history exists.
func NewManager(kellyEnabled bool) *Manager {
	return &Manager{kellyEnabled: kellyEnabled}
}

// SizePosition converts account risk into an order quantity. The quantity
// is floored to the lot step and the result is rejected when it cannot
// satisfy the exchange minimums.
func (m *Manager) SizePosition(req SizingRequest) SizingResult {
	if req.Balance < minBalance {
		return SizingResult{Reason: "balance below minimum"}
	}
	stopDistance := math.Abs(req.Entry - req.StopLoss)
	if stopDistance <= 0 {
		return SizingResult{Reason: "zero stop distance"}
	}
	if req.RiskPct <= 0 {
		return SizingResult{Reason: "non-positive risk percent"}
	}

	modifier := req.ScoreModifier
	if modifier <= 0 {
		modifier = 1
	}
	regime := req.RegimeModifier
	if regime <= 0 {
		regime = 1
	}

	riskAmount := req.Balance * req.RiskPct / 100 * modifier * regime
	qty := riskAmount / stopDistance
	qty = marketdata.RoundToStep(qty, req.QtyStep)
	if qty <= 0 {
		return SizingResult{Reason: "quantity rounds to zero"}
	}

	value := qty * req.Entry
	if value < minOrderValue {
		return SizingResult{Reason: "position value below exchange minimum"}
	}

	leverage := int(value/req.Balance) + 1
	if leverage < 1 {
		leverage = 1
	}
	if leverage > maxLeverage {
		leverage = maxLeverage
	}

	return SizingResult{
		OK:            true,
		Qty:           qty,
		PositionValue: value,
		RiskAmount:    riskAmount,
		Leverage:      leverage,
	}
}

// EffectiveRiskPct returns the per-trade risk fraction: the configured
// percent, or half-Kelly capped at the configured percent when enabled
// and enough history exists.
func (m *Manager) EffectiveRiskPct(configuredPct float64, stats JournalStats) float64 {
	if !m.kellyEnabled {
		return configuredPct
	}
	kelly := KellyFraction(stats)
	if kelly <= 0 {
		return configuredPct
	}
	pct := kelly * 100
	if pct > configuredPct {
		return configuredPct
	}
	return pct
}

// KellyFraction computes the half-Kelly bet fraction f* = W - (1-W)/R.
// Returns 0 when history is too short or the edge is non-positive.
func KellyFraction(stats JournalStats) float64 {
	if stats.ClosedTrades < kellyMinTrades || stats.AvgLoss <= 0 || stats.AvgWin <= 0 {
		return 0
	}
	payoff := stats.AvgWin / stats.AvgLoss
	f := stats.WinRate - (1-stats.WinRate)/payoff
	if f <= 0 {
		return 0
	}
	return f / 2
}

// DynamicStop places a protective stop one-and-a-half ATRs behind entry
func DynamicStop(entry, atr float64, side string) float64 {
	if side == "LONG" {
		return entry - atr*atrStopMult
	}
	return entry + atr*atrStopMult
}

// TakeProfitFor derives the target from the stop distance and the
// reward/risk ratio
func TakeProfitFor(entry, stopLoss, rr float64, side string) float64 {
	riskDist := math.Abs(entry - stopLoss)
	if side == "LONG" {
		return entry + riskDist*rr
	}
	return entry - riskDist*rr
}

// ValidateStops rejects protective levels that contradict the trade side
func ValidateStops(entry, stopLoss, takeProfit float64, side string) bool {
	if side == "LONG" {
		return stopLoss < entry && takeProfit > entry
	}
	return stopLoss > entry && takeProfit < entry
}
