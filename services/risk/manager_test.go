package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizePosition(t *testing.T) {
	m := NewManager(false)

	result := m.SizePosition(SizingRequest{
		Balance:  1000,
		RiskPct:  1,
		Entry:    100,
		StopLoss: 98,
		QtyStep:  0.001,
	})
	assert.True(t, result.OK)
	// 1% of 1000 = $10 risk over a $2 stop distance
	assert.InDelta(t, 5.0, result.Qty, 0.001)
	assert.InDelta(t, 500.0, result.PositionValue, 0.2)
	assert.Equal(t, 1, result.Leverage)
}

func TestSizePositionModifiers(t *testing.T) {
	m := NewManager(false)

	base := m.SizePosition(SizingRequest{
		Balance: 1000, RiskPct: 2, Entry: 100, StopLoss: 98, QtyStep: 0.001,
	})
	halved := m.SizePosition(SizingRequest{
		Balance: 1000, RiskPct: 2, Entry: 100, StopLoss: 98, QtyStep: 0.001,
		ScoreModifier: 0.5, RegimeModifier: 0.5,
	})
	assert.True(t, base.OK)
	assert.True(t, halved.OK)
	assert.InDelta(t, base.RiskAmount*0.25, halved.RiskAmount, 0.001)
}

func TestSizePositionRejections(t *testing.T) {
	m := NewManager(false)

	low := m.SizePosition(SizingRequest{Balance: 5, RiskPct: 1, Entry: 100, StopLoss: 98})
	assert.False(t, low.OK)
	assert.Equal(t, "balance below minimum", low.Reason)

	noStop := m.SizePosition(SizingRequest{Balance: 1000, RiskPct: 1, Entry: 100, StopLoss: 100})
	assert.False(t, noStop.OK)
	assert.Equal(t, "zero stop distance", noStop.Reason)

	noRisk := m.SizePosition(SizingRequest{Balance: 1000, RiskPct: 0, Entry: 100, StopLoss: 98})
	assert.False(t, noRisk.OK)

	// Tiny qty rounds to zero on a coarse lot step
	rounds := m.SizePosition(SizingRequest{Balance: 100, RiskPct: 0.1, Entry: 50000, StopLoss: 49000, QtyStep: 0.001})
	assert.False(t, rounds.OK)
	assert.Equal(t, "quantity rounds to zero", rounds.Reason)
}

func TestSizePositionLeverageCap(t *testing.T) {
	m := NewManager(false)

	// A very tight stop wants a huge position; leverage must stay capped
	result := m.SizePosition(SizingRequest{
		Balance: 100, RiskPct: 5, Entry: 100, StopLoss: 99.98, QtyStep: 0.001,
	})
	assert.True(t, result.OK)
	assert.LessOrEqual(t, result.Leverage, maxLeverage)
}

func TestEffectiveRiskPctWithoutKelly(t *testing.T) {
	m := NewManager(false)
	pct := m.EffectiveRiskPct(1.5, JournalStats{ClosedTrades: 100, WinRate: 0.9, AvgWin: 10, AvgLoss: 1})
	assert.Equal(t, 1.5, pct)
}

func TestEffectiveRiskPctKelly(t *testing.T) {
	m := NewManager(true)

	// Too little history falls back to the configured percent
	pct := m.EffectiveRiskPct(2, JournalStats{ClosedTrades: 5, WinRate: 0.8, AvgWin: 10, AvgLoss: 5})
	assert.Equal(t, 2.0, pct)

	// A strong edge is still capped at the configured percent
	pct = m.EffectiveRiskPct(2, JournalStats{ClosedTrades: 50, WinRate: 0.7, AvgWin: 20, AvgLoss: 5})
	assert.Equal(t, 2.0, pct)

	// A thin edge reduces the risk below the configured percent
	thin := JournalStats{ClosedTrades: 50, WinRate: 0.45, AvgWin: 10, AvgLoss: 8}
	pct = m.EffectiveRiskPct(5, thin)
	assert.Less(t, pct, 5.0)
	assert.Greater(t, pct, 0.0)
	assert.InDelta(t, KellyFraction(thin)*100, pct, 1e-9)
}

func TestKellyFraction(t *testing.T) {
	// f* = W - (1-W)/R, halved. W=0.6, R=2 -> 0.4 -> 0.2
	f := KellyFraction(JournalStats{ClosedTrades: 30, WinRate: 0.6, AvgWin: 10, AvgLoss: 5})
	assert.InDelta(t, 0.2, f, 1e-9)

	// Negative edge yields zero
	assert.Zero(t, KellyFraction(JournalStats{ClosedTrades: 30, WinRate: 0.3, AvgWin: 5, AvgLoss: 5}))
	// Not enough trades yields zero
	assert.Zero(t, KellyFraction(JournalStats{ClosedTrades: 10, WinRate: 0.6, AvgWin: 10, AvgLoss: 5}))
}

func TestDynamicStopAndTarget(t *testing.T) {
	long := DynamicStop(100, 2, "LONG")
	assert.InDelta(t, 97.0, long, 1e-9)

	short := DynamicStop(100, 2, "SHORT")
	assert.InDelta(t, 103.0, short, 1e-9)

	tp := TakeProfitFor(100, 97, 2, "LONG")
	assert.InDelta(t, 106.0, tp, 1e-9)

	tp = TakeProfitFor(100, 103, 2, "SHORT")
	assert.InDelta(t, 94.0, tp, 1e-9)
}

func TestValidateStops(t *testing.T) {
	assert.True(t, ValidateStops(100, 98, 104, "LONG"))
	assert.False(t, ValidateStops(100, 102, 104, "LONG"))
	assert.True(t, ValidateStops(100, 102, 96, "SHORT"))
	assert.False(t, ValidateStops(100, 98, 96, "SHORT"))
}
