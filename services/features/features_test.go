package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/marketdata"
)

func steadyCandles(n int, price, step float64) []marketdata.Candle {
	out := make([]marketdata.Candle, n)
	for i := range out {
		p := price + step*float64(i)
		out[i] = marketdata.Candle{
			Open:   p,
			High:   p + 1,
			Low:    p - 1,
			Close:  p + 0.5,
			Volume: 100,
		}
	}
	return out
}

func TestExtractRequiresWarmup(t *testing.T) {
	assert.Nil(t, Extract(steadyCandles(59, 100, 0), time.Now()))
	assert.NotNil(t, Extract(steadyCandles(60, 100, 0), time.Now()))
}

func TestExtractFlatSeries(t *testing.T) {
	at := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday midnight
	v := Extract(steadyCandles(80, 100, 0), at)

	assert.NotNil(t, v)
	assert.Equal(t, 0.0, v.Return1)
	assert.Equal(t, 0.0, v.Return20)
	assert.Equal(t, 0.0, v.Volatility)
	assert.InDelta(t, 0, v.PriceVsEMA20, 1e-9)
	assert.Equal(t, 1.0, v.VolumeRatio)
	assert.Equal(t, 0.0, v.VolumeChange)
	// No losing bars at all pegs the RSI high.
	assert.InDelta(t, 1.0, v.RSI, 1e-9)
	assert.Equal(t, 0.0, v.HourSin)
	assert.Equal(t, 1.0, v.HourCos)
	assert.Equal(t, float64(time.Monday), v.DayOfWeek)
	assert.Equal(t, 0.0, v.IsWeekend)
}

func TestExtractTrendingSeries(t *testing.T) {
	at := time.Date(2025, 6, 7, 6, 0, 0, 0, time.UTC) // Saturday 06:00
	v := Extract(steadyCandles(80, 100, 1), at)

	assert.NotNil(t, v)
	assert.Greater(t, v.Return1, 0.0)
	assert.Greater(t, v.Return20, v.Return1)
	assert.Equal(t, 1.0, v.EMATrend)
	assert.Greater(t, v.PriceVsEMA50, v.PriceVsEMA20)
	// Uptrend with no pullbacks pegs the RSI.
	assert.InDelta(t, 1.0, v.RSI, 1e-9)
	assert.Equal(t, 1.0, v.IsWeekend)
	assert.Equal(t, float64(time.Saturday), v.DayOfWeek)
	assert.InDelta(t, math.Sin(2*math.Pi*6/24), v.HourSin, 1e-9)
}

func TestExtractWickFractions(t *testing.T) {
	candles := steadyCandles(80, 100, 0)
	last := &candles[len(candles)-1]
	last.Open = 100
	last.Close = 101
	last.High = 103
	last.Low = 99

	v := Extract(candles, time.Now())
	assert.NotNil(t, v)
	// Range 4: two points of upper wick, one of lower.
	assert.InDelta(t, 0.5, v.UpperWick, 1e-9)
	assert.InDelta(t, 0.25, v.LowerWick, 1e-9)
}

func TestAsSliceOrder(t *testing.T) {
	v := Extract(steadyCandles(80, 100, 1), time.Now())
	cols := v.AsSlice()
	assert.Len(t, cols, 19)
	assert.Equal(t, v.Return1, cols[0])
	assert.Equal(t, v.RSI, cols[14])
	assert.Equal(t, v.IsWeekend, cols[18])
}
