package backtesting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/marketdata"
)

func btCandles(closes []float64) []marketdata.Candle {
	out := make([]marketdata.Candle, len(closes))
	for i, c := range closes {
		out[i] = marketdata.Candle{Open: c, High: c + 0.5, Low: c - 0.5, Close: c}
	}
	return out
}

func flatCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestGenerateSignalDispatch(t *testing.T) {
	candles := btCandles(flatCloses(60, 100))
	signal, direction := generateSignal("unknown_strategy", candles)
	assert.Empty(t, signal)
	assert.Empty(t, direction)
}

func TestEMACrossoverSignal(t *testing.T) {
	// Flat history, then a sharp jump: the fast EMA crosses above the slow.
	up := append(flatCloses(60, 100), 120)
	signal, direction := emaCrossoverSignal(btCandles(up))
	assert.Equal(t, "EMA_CROSS_UP", signal)
	assert.Equal(t, "LONG", direction)

	down := append(flatCloses(60, 100), 80)
	signal, direction = emaCrossoverSignal(btCandles(down))
	assert.Equal(t, "EMA_CROSS_DOWN", signal)
	assert.Equal(t, "SHORT", direction)

	// No cross on a flat tape.
	signal, direction = emaCrossoverSignal(btCandles(flatCloses(60, 100)))
	assert.Empty(t, signal)
	assert.Empty(t, direction)

	// Not enough history.
	signal, _ = emaCrossoverSignal(btCandles(flatCloses(40, 100)))
	assert.Empty(t, signal)
}

func TestRSIReversalSignal(t *testing.T) {
	falling := make([]float64, 30)
	for i := range falling {
		falling[i] = 200 - float64(i)
	}
	signal, direction := rsiReversalSignal(btCandles(falling))
	assert.Equal(t, "RSI_OVERSOLD", signal)
	assert.Equal(t, "LONG", direction)

	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	signal, direction = rsiReversalSignal(btCandles(rising))
	assert.Equal(t, "RSI_OVERBOUGHT", signal)
	assert.Equal(t, "SHORT", direction)

	// Balanced chop sits between the extremes.
	chop := make([]float64, 40)
	for i := range chop {
		chop[i] = 100 + float64(i%2)
	}
	signal, _ = rsiReversalSignal(btCandles(chop))
	assert.Empty(t, signal)
}

func TestCompositeSignalNeedsTrend(t *testing.T) {
	// A flat market has no ADX, so no composite entries either way.
	signal, direction := compositeSignal(btCandles(flatCloses(80, 100)))
	assert.Empty(t, signal)
	assert.Empty(t, direction)
}

func TestSharpeRatio(t *testing.T) {
	now := time.Now()
	curve := func(equities ...float64) []curvePoint {
		out := make([]curvePoint, len(equities))
		for i, eq := range equities {
			out[i] = curvePoint{Time: now.Add(time.Duration(i) * time.Hour), Equity: eq}
		}
		return out
	}

	// Too short or flat curves carry no information.
	assert.Equal(t, 0.0, sharpeRatio(curve(1000, 1010), "60"))
	assert.Equal(t, 0.0, sharpeRatio(curve(1000, 1000, 1000, 1000), "60"))

	// A steadily rising curve with some noise is positive, a falling one
	// negative.
	assert.Greater(t, sharpeRatio(curve(1000, 1010, 1015, 1030, 1035), "60"), 0.0)
	assert.Less(t, sharpeRatio(curve(1000, 990, 985, 970, 965), "60"), 0.0)

	// Unknown timeframes fall back to hourly annualization.
	hourly := sharpeRatio(curve(1000, 1010, 1015, 1030, 1035), "60")
	fallback := sharpeRatio(curve(1000, 1010, 1015, 1030, 1035), "7")
	assert.InDelta(t, hourly, fallback, 1e-9)
}
