package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialLadderFiresOnce(t *testing.T) {
	pm := NewPartialTPManager()
	pm.Register("BTCUSDT", "LONG", 100, 98, 10, 0.1, nil)

	// Below the first rung nothing fires.
	assert.Empty(t, pm.Check("BTCUSDT", 101))

	// +1R closes 30% of the original quantity.
	fills := pm.Check("BTCUSDT", 102)
	assert.Len(t, fills, 1)
	assert.Equal(t, "LONG", fills[0].Side)
	assert.InDelta(t, 3.0, fills[0].Qty, 1e-9)
	assert.Equal(t, 1.0, fills[0].RMultiple)
	assert.False(t, fills[0].LastRung)
	assert.InDelta(t, 7.0, pm.Remaining("BTCUSDT"), 1e-9)

	// The same rung never fires twice.
	assert.Empty(t, pm.Check("BTCUSDT", 102))

	// A jump past several rungs fires all of them in one call.
	fills = pm.Check("BTCUSDT", 106)
	assert.Len(t, fills, 2)
	assert.Equal(t, 2.0, fills[0].RMultiple)
	assert.InDelta(t, 4.0, fills[0].Qty, 1e-9)
	assert.Equal(t, 3.0, fills[1].RMultiple)
	assert.True(t, fills[1].LastRung)
	assert.InDelta(t, 0.0, pm.Remaining("BTCUSDT"), 1e-9)

	// Nothing left to close.
	assert.Empty(t, pm.Check("BTCUSDT", 120))
}

func TestPartialQtyFlooredToStep(t *testing.T) {
	pm := NewPartialTPManager()
	pm.Register("ETHUSDT", "LONG", 100, 98, 7, 1, nil)

	fills := pm.Check("ETHUSDT", 102)
	assert.Len(t, fills, 1)
	// 30% of 7 is 2.1, floored to the 1-unit step.
	assert.InDelta(t, 2.0, fills[0].Qty, 1e-9)
	assert.InDelta(t, 5.0, pm.Remaining("ETHUSDT"), 1e-9)
}

func TestPartialShortSide(t *testing.T) {
	pm := NewPartialTPManager()
	pm.Register("SOLUSDT", "SHORT", 100, 102, 10, 0.1, nil)

	assert.Empty(t, pm.Check("SOLUSDT", 99))

	fills := pm.Check("SOLUSDT", 94)
	assert.Len(t, fills, 3)
	for _, f := range fills {
		assert.Equal(t, "SHORT", f.Side)
	}
	assert.InDelta(t, 0.0, pm.Remaining("SOLUSDT"), 1e-9)
}

func TestPartialCustomLadder(t *testing.T) {
	pm := NewPartialTPManager()
	ladder := []TPRung{{RMultiple: 0.5, Fraction: 0.5}, {RMultiple: 1, Fraction: 0.5}}
	pm.Register("BTCUSDT", "LONG", 100, 99, 4, 0.1, ladder)

	fills := pm.Check("BTCUSDT", 100.5)
	assert.Len(t, fills, 1)
	assert.InDelta(t, 2.0, fills[0].Qty, 1e-9)

	fills = pm.Check("BTCUSDT", 101)
	assert.Len(t, fills, 1)
	assert.True(t, fills[0].LastRung)
}

func TestPartialUnknownSymbol(t *testing.T) {
	pm := NewPartialTPManager()
	assert.Empty(t, pm.Check("XRPUSDT", 100))
	assert.Equal(t, 0.0, pm.Remaining("XRPUSDT"))
}

func TestPartialRelease(t *testing.T) {
	pm := NewPartialTPManager()
	pm.Register("BTCUSDT", "LONG", 100, 98, 10, 0.1, nil)
	pm.Release("BTCUSDT")
	assert.Empty(t, pm.Check("BTCUSDT", 110))
}
