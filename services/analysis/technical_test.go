package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/marketdata"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 4.0, SMA(values, 3))
	assert.Equal(t, 3.0, SMA(values, 5))
	assert.Equal(t, 0.0, SMA(values, 6))
	assert.Equal(t, 0.0, SMA(values, 0))
}

func TestEMASeries(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	series := EMASeries(values, 3)
	assert.Len(t, series, 5)
	assert.Equal(t, 0.0, series[0])
	assert.Equal(t, 0.0, series[1])
	// Seeded with SMA(1,2,3) = 2, then (4-2)*0.5+2 = 3, (5-3)*0.5+3 = 4.
	assert.Equal(t, 2.0, series[2])
	assert.Equal(t, 3.0, series[3])
	assert.Equal(t, 4.0, series[4])
	assert.Equal(t, 4.0, EMA(values, 3))
	assert.Nil(t, EMASeries([]float64{1, 2}, 3))
}

func TestEMAConstantSeries(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 42
	}
	assert.InDelta(t, 42, EMA(values, 20), 1e-9)
}

func TestRSI(t *testing.T) {
	// Too short, neutral.
	assert.Equal(t, 50.0, RSI([]float64{1, 2, 3}, 14))

	// Strictly rising series: no losses at all.
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	assert.Equal(t, 100.0, RSI(rising, 14))

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = 200 - float64(i)
	}
	assert.Less(t, RSI(falling, 14), 1.0)

	// Alternating equal gains and losses settle near the midpoint.
	mixed := make([]float64, 40)
	for i := range mixed {
		mixed[i] = 100 + float64(i%2)
	}
	assert.InDelta(t, 50, RSI(mixed, 14), 10)
}

func TestATR(t *testing.T) {
	candles := []marketdata.Candle{
		{High: 12, Low: 8, Close: 10},
		{High: 13, Low: 9, Close: 11},
		{High: 14, Low: 10, Close: 12},
		{High: 15, Low: 11, Close: 13},
	}
	// Every true range here is the 4-point high-low span.
	assert.InDelta(t, 4.0, ATR(candles, 3), 1e-9)
	assert.Equal(t, 0.0, ATR(candles[:1], 3))

	series := ATRSeries(candles, 2)
	assert.Len(t, series, 4)
	assert.Equal(t, 0.0, series[1])
	assert.InDelta(t, 4.0, series[2], 1e-9)
	assert.InDelta(t, 4.0, series[3], 1e-9)
}

func TestATRUsesGaps(t *testing.T) {
	// The second candle gaps far above the prior close, so the true
	// range must use the close-to-high distance, not just high-low.
	candles := []marketdata.Candle{
		{High: 10, Low: 9, Close: 10},
		{High: 20, Low: 19, Close: 20},
	}
	assert.InDelta(t, 10.0, ATR(candles, 1), 1e-9)
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev([]float64{5, 5, 5, 5}, 4))
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8), 1e-9)
	assert.Equal(t, 0.0, StdDev([]float64{1, 2}, 3))
}

func TestADXTrendStrength(t *testing.T) {
	// A long directional run should read as a strong trend.
	trending := make([]marketdata.Candle, 80)
	for i := range trending {
		base := 100 + float64(i)*2
		trending[i] = marketdata.Candle{High: base + 1, Low: base - 1, Close: base}
	}
	assert.Greater(t, ADX(trending, 14), 25.0)

	// Not enough candles.
	assert.Equal(t, 0.0, ADX(trending[:10], 14))
}

func TestPercentileRank(t *testing.T) {
	assert.Equal(t, 100.0, PercentileRank([]float64{1, 2, 3, 4, 10}))
	assert.Equal(t, 0.0, PercentileRank([]float64{5, 6, 7, 1}))
	assert.Equal(t, 50.0, PercentileRank([]float64{1, 2, 4, 5, 3}))
	assert.Equal(t, 50.0, PercentileRank([]float64{1}))
}

func TestPearsonCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	assert.InDelta(t, 1.0, PearsonCorrelation(a, b), 1e-9)

	inv := []float64{10, 8, 6, 4, 2}
	assert.InDelta(t, -1.0, PearsonCorrelation(a, inv), 1e-9)

	flat := []float64{3, 3, 3, 3, 3}
	assert.Equal(t, 0.0, PearsonCorrelation(a, flat))
	assert.Equal(t, 0.0, PearsonCorrelation(a, []float64{1, 2}))
}

func TestReturns(t *testing.T) {
	out := Returns([]float64{100, 110, 99})
	assert.Len(t, out, 2)
	assert.InDelta(t, 0.10, out[0], 1e-9)
	assert.InDelta(t, -0.10, out[1], 1e-9)
	assert.Nil(t, Returns([]float64{100}))
}

func TestBollingerWidth(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	assert.Equal(t, 0.0, BollingerWidth(flat, 20, 2))

	varied := make([]float64, 20)
	for i := range varied {
		varied[i] = 100 + 5*math.Sin(float64(i))
	}
	assert.Greater(t, BollingerWidth(varied, 20, 2), 0.0)
}
