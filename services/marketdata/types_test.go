package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundToStep(t *testing.T) {
	assert.InDelta(t, 0.123, RoundToStep(0.1234, 0.001), 1e-12)
	assert.InDelta(t, 5.0, RoundToStep(5.4, 1), 1e-12)
	// An exact multiple must not floor down a step from float division.
	assert.InDelta(t, 5.0, RoundToStep(5.0, 0.001), 1e-12)
	assert.InDelta(t, 0.3, RoundToStep(0.3, 0.1), 1e-12)
	// A zero step leaves the value untouched.
	assert.Equal(t, 7.77, RoundToStep(7.77, 0))
}

func TestCandleBody(t *testing.T) {
	up := Candle{Open: 100, Close: 103}
	down := Candle{Open: 103, Close: 100}
	doji := Candle{Open: 100, Close: 100}

	assert.Equal(t, 3.0, up.Body())
	assert.Equal(t, 3.0, down.Body())
	assert.Equal(t, 0.0, doji.Body())

	assert.True(t, up.Bullish())
	assert.False(t, down.Bullish())
	assert.False(t, doji.Bullish())
}

func TestCloses(t *testing.T) {
	candles := []Candle{{Close: 1}, {Close: 2}, {Close: 3}}
	assert.Equal(t, []float64{1, 2, 3}, Closes(candles))
	assert.Empty(t, Closes(nil))
}
