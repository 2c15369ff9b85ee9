package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrailingBreakevenAtOneR(t *testing.T) {
	tm := NewTrailingManager()
	// entry 100, stop 98, risk 2, ATR 2
	tm.Register("BTCUSDT", "LONG", 100, 98, 2)

	// Below +1R nothing moves
	_, moved := tm.Update("BTCUSDT", 101)
	assert.False(t, moved)

	// At +1R the stop jumps to entry plus a small ATR buffer
	stop, moved := tm.Update("BTCUSDT", 102)
	assert.True(t, moved)
	assert.InDelta(t, 100.2, stop, 1e-9)
}

func TestTrailingFollowsPeak(t *testing.T) {
	tm := NewTrailingManager()
	tm.Register("BTCUSDT", "LONG", 100, 98, 2)

	// +2.5R: trailing active, stop = peak - 1.5*ATR
	stop, moved := tm.Update("BTCUSDT", 105)
	assert.True(t, moved)
	assert.InDelta(t, 102.0, stop, 1e-9)

	// Price pulls back: the stop must not retreat
	_, moved = tm.Update("BTCUSDT", 103)
	assert.False(t, moved)

	// New peak advances the stop again
	stop, moved = tm.Update("BTCUSDT", 107)
	assert.True(t, moved)
	assert.InDelta(t, 104.0, stop, 1e-9)
}

func TestTrailingShortSide(t *testing.T) {
	tm := NewTrailingManager()
	// entry 100, stop 102, risk 2, ATR 2
	tm.Register("ETHUSDT", "SHORT", 100, 102, 2)

	// +1R for a short is price at 98
	stop, moved := tm.Update("ETHUSDT", 98)
	assert.True(t, moved)
	assert.InDelta(t, 99.8, stop, 1e-9)

	// +2.5R: trail the low at peak + 1.5*ATR
	stop, moved = tm.Update("ETHUSDT", 95)
	assert.True(t, moved)
	assert.InDelta(t, 98.0, stop, 1e-9)

	// Bounce does not loosen the stop
	_, moved = tm.Update("ETHUSDT", 97)
	assert.False(t, moved)
}

func TestTrailingUnknownSymbol(t *testing.T) {
	tm := NewTrailingManager()
	_, moved := tm.Update("NOPE", 100)
	assert.False(t, moved)
}

func TestTrailingRelease(t *testing.T) {
	tm := NewTrailingManager()
	tm.Register("BTCUSDT", "LONG", 100, 98, 2)
	assert.True(t, tm.Tracked("BTCUSDT"))

	tm.Release("BTCUSDT")
	assert.False(t, tm.Tracked("BTCUSDT"))
	_, moved := tm.Update("BTCUSDT", 110)
	assert.False(t, moved)
}
