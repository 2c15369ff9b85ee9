package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/risk"
	"titan_backend/services/scoring"
)

func TestStopDoesNotBlockWhileScanBusy(t *testing.T) {
	mode, err := GetMode("MODERATE")
	assert.NoError(t, err)

	// A running bot whose loop is busy inside a scan cycle, so nothing
	// is receiving on the stop channel.
	bot := &Bot{mode: mode, stopChan: make(chan bool), isRunning: true}

	stopped := make(chan struct{})
	go func() {
		bot.signalStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop signal blocked with no receiver on the channel")
	}

	// The mode lookup a scan in flight performs must still go through.
	modeCh := make(chan TradeMode, 1)
	go func() { modeCh <- bot.Mode() }()
	select {
	case got := <-modeCh:
		assert.Equal(t, "MODERATE", got.Name)
	case <-time.After(time.Second):
		t.Fatal("Mode() blocked after Stop")
	}

	assert.False(t, bot.IsRunning())

	// The run loop's stop case fires immediately once signalled.
	select {
	case <-bot.stopChan:
	default:
		t.Fatal("stop channel still open after signalStop")
	}

	// A second stop is a no-op rather than a double close.
	assert.False(t, bot.signalStop())
}

func TestEntryDecisionBreakerGatesFirst(t *testing.T) {
	mode, err := GetMode("MODERATE")
	assert.NoError(t, err)
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

	breaker := risk.NewCircuitBreaker(risk.BreakerConfig{
		MaxDailyLossPct: 5,
		MaxDailyTrades:  10,
		LossStreakLimit: 2,
	})
	breaker.ResetDaily(1000, now)
	bot := &Bot{deps: Deps{Breaker: breaker}, mode: mode}

	// A halted breaker rejects before any other gate is consulted, even
	// when the composite has no direction at all.
	breaker.Halt()
	decision := bot.entryDecision("BTCUSDT",
		&scoring.Result{Direction: scoring.DirectionNeutral},
		nil, nil, nil, nil, nil, now, mode, 0, nil)
	assert.Equal(t, "SKIPPED: manually halted", decision)

	// With the breaker clear the direction gate takes over.
	breaker.Resume()
	decision = bot.entryDecision("BTCUSDT",
		&scoring.Result{Direction: scoring.DirectionNeutral},
		nil, nil, nil, nil, nil, now, mode, 0, nil)
	assert.Equal(t, "SKIPPED: no direction", decision)
}
