package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/marketdata"
)

func candlesFromCloses(closes []float64) []marketdata.Candle {
	out := make([]marketdata.Candle, len(closes))
	for i, c := range closes {
		out[i] = marketdata.Candle{Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func sineCloses(n int, base, amp, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + amp*math.Sin(float64(i)/3+phase)
	}
	return out
}

func TestCorrelationInsufficientData(t *testing.T) {
	short := candlesFromCloses(sineCloses(10, 100, 2, 0))
	result := AnalyzeCorrelation(short, short, short)
	assert.Equal(t, CorrIndependent, result.Regime)
	assert.True(t, result.SafeToTrade)
	assert.Equal(t, 0.0, result.BTCCorrelation)
}

func TestCorrelationTracksMajors(t *testing.T) {
	closes := sineCloses(80, 100, 5, 0)
	sym := candlesFromCloses(closes)

	btcCloses := make([]float64, len(closes))
	for i, c := range closes {
		btcCloses[i] = c * 300 // same shape, different scale
	}
	btc := candlesFromCloses(btcCloses)
	eth := candlesFromCloses(sineCloses(80, 2000, 1, 2))

	result := AnalyzeCorrelation(sym, btc, eth)
	assert.Equal(t, CorrStrongPositive, result.Regime)
	assert.Greater(t, result.BTCCorrelation, 0.95)
}

func TestCorrelationNegativeRegime(t *testing.T) {
	closes := sineCloses(80, 100, 5, 0)
	sym := candlesFromCloses(closes)

	inverse := make([]float64, len(closes))
	for i, c := range closes {
		inverse[i] = 200 - c
	}
	btc := candlesFromCloses(inverse)

	result := AnalyzeCorrelation(sym, btc, nil)
	assert.Equal(t, CorrNegative, result.Regime)
	assert.Less(t, result.BTCCorrelation, -0.9)
}

func TestCorrelationUnsafeDuringSharpMajorMove(t *testing.T) {
	// Symbol and BTC move in lockstep and BTC is in a sharp slide over
	// the last bars.
	closes := make([]float64, 80)
	price := 100.0
	for i := range closes {
		if i < 70 {
			price *= 1.001
		} else {
			price *= 0.995
		}
		closes[i] = price
	}
	sym := candlesFromCloses(closes)
	result := AnalyzeCorrelation(sym, sym, nil)

	assert.Equal(t, CorrStrongPositive, result.Regime)
	assert.False(t, result.SafeToTrade)
}
