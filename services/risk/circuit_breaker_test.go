package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker() (*CircuitBreaker, time.Time) {
	cb := NewCircuitBreaker(BreakerConfig{
		MaxDailyLossPct: 5,
		MaxDailyTrades:  10,
		LossStreakLimit: 2,
	})
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	cb.ResetDaily(1000, now)
	return cb, now
}

func TestBreakerAllowsByDefault(t *testing.T) {
	cb, now := newTestBreaker()
	ok, reason := cb.Allow("BTCUSDT", now)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestBreakerManualHalt(t *testing.T) {
	cb, now := newTestBreaker()

	cb.Halt()
	ok, reason := cb.Allow("BTCUSDT", now)
	assert.False(t, ok)
	assert.Equal(t, "manually halted", reason)

	cb.Resume()
	ok, _ = cb.Allow("BTCUSDT", now)
	assert.True(t, ok)
}

func TestBreakerLossStreakCooldown(t *testing.T) {
	cb, now := newTestBreaker()

	cb.RecordTrade("BTCUSDT", -10, now)
	cb.RecordTrade("ETHUSDT", -10, now.Add(time.Minute))

	ok, reason := cb.Allow("SOLUSDT", now.Add(2*time.Minute))
	assert.False(t, ok)
	assert.Contains(t, reason, "loss streak cooldown")

	// Cooldown lifts after two hours
	ok, _ = cb.Allow("SOLUSDT", now.Add(2*time.Hour+3*time.Minute))
	assert.True(t, ok)
}

func TestBreakerWinResetsStreak(t *testing.T) {
	cb, now := newTestBreaker()

	cb.RecordTrade("BTCUSDT", -10, now)
	cb.RecordTrade("ETHUSDT", 20, now.Add(time.Minute))
	cb.RecordTrade("SOLUSDT", -10, now.Add(2*time.Minute))

	// One loss after a win is not a streak
	ok, _ := cb.Allow("XRPUSDT", now.Add(3*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 1, cb.Status().LossStreak)
}

func TestBreakerSymbolBan(t *testing.T) {
	cb, now := newTestBreaker()
	cb.SetLossStreakLimit(10) // keep the global cooldown out of the way

	cb.RecordTrade("BTCUSDT", -10, now)
	cb.RecordTrade("BTCUSDT", -10, now.Add(time.Hour))

	ok, reason := cb.Allow("BTCUSDT", now.Add(2*time.Hour))
	assert.False(t, ok)
	assert.Equal(t, "symbol blacklisted after repeated losses", reason)

	// Other symbols stay tradable once their re-entry cooldown passed
	ok, _ = cb.Allow("ETHUSDT", now.Add(2*time.Hour))
	assert.True(t, ok)

	// Ban expires after six hours
	ok, _ = cb.Allow("BTCUSDT", now.Add(time.Hour+symbolBanDuration+time.Minute))
	assert.True(t, ok)
}

func TestBreakerReentryCooldown(t *testing.T) {
	cb, now := newTestBreaker()

	cb.MarkEntry("BTCUSDT", now)
	ok, reason := cb.Allow("BTCUSDT", now.Add(10*time.Minute))
	assert.False(t, ok)
	assert.Equal(t, "symbol re-entry cooldown", reason)

	ok, _ = cb.Allow("BTCUSDT", now.Add(31*time.Minute))
	assert.True(t, ok)
}

func TestBreakerDailyTradeCap(t *testing.T) {
	cb, now := newTestBreaker()
	cb.SetLossStreakLimit(100)

	for i := 0; i < 10; i++ {
		cb.RecordTrade("BTCUSDT", 1, now.Add(time.Duration(i)*time.Minute))
	}
	ok, reason := cb.Allow("ETHUSDT", now.Add(time.Hour))
	assert.False(t, ok)
	assert.Equal(t, "daily trade cap reached", reason)
}

func TestBreakerDailyLossLimit(t *testing.T) {
	cb, now := newTestBreaker()
	cb.SetLossStreakLimit(100)

	// 5% of 1000 is the cap; lose 60
	cb.RecordTrade("BTCUSDT", -60, now)
	ok, reason := cb.Allow("ETHUSDT", now.Add(time.Hour))
	assert.False(t, ok)
	assert.Equal(t, "daily loss limit reached", reason)
}

func TestBreakerUTCRollover(t *testing.T) {
	cb, now := newTestBreaker()
	cb.SetLossStreakLimit(100)

	cb.RecordTrade("BTCUSDT", -60, now)
	ok, _ := cb.Allow("ETHUSDT", now.Add(time.Hour))
	assert.False(t, ok)

	// Next UTC day the counters reset and the loss folds into the
	// day-start balance
	nextDay := now.Add(15 * time.Hour)
	ok, _ = cb.Allow("ETHUSDT", nextDay)
	assert.True(t, ok)

	status := cb.Status()
	assert.InDelta(t, 940.0, status.DayStartBalance, 1e-9)
	assert.Zero(t, status.DailyTrades)
	assert.Zero(t, status.DayPnL)
}
