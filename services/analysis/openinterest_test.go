package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/marketdata"
)

func oiSeries(values ...float64) []marketdata.OpenInterestPoint {
	out := make([]marketdata.OpenInterestPoint, len(values))
	for i, v := range values {
		out[i] = marketdata.OpenInterestPoint{OpenInterest: v}
	}
	return out
}

func twoCandles(prevClose, lastClose float64) []marketdata.Candle {
	return []marketdata.Candle{{Close: prevClose}, {Close: lastClose}}
}

func TestOpenInterestRegimeMatrix(t *testing.T) {
	cases := []struct {
		name   string
		oi     []marketdata.OpenInterestPoint
		prev   float64
		last   float64
		regime string
	}{
		{"rising OI rising price", oiSeries(1000, 1050), 100, 101, OINewLongs},
		{"rising OI falling price", oiSeries(1000, 1050), 100, 99, OINewShorts},
		{"falling OI falling price", oiSeries(1050, 1000), 100, 99, OILongsClosing},
		{"falling OI rising price", oiSeries(1050, 1000), 100, 101, OIShortsClosing},
		{"flat OI", oiSeries(1000, 1001), 100, 101, OINeutral},
	}
	for _, tc := range cases {
		result := AnalyzeOpenInterest(tc.oi, twoCandles(tc.prev, tc.last), nil)
		assert.Equal(t, tc.regime, result.Regime, tc.name)
	}
}

func TestOpenInterestMissingData(t *testing.T) {
	result := AnalyzeOpenInterest(nil, nil, nil)
	assert.Equal(t, OINeutral, result.Regime)
	assert.Equal(t, 1.0, result.LongShortRatio)
	assert.Equal(t, 0.0, result.RatioAdjustment)
}

func TestRatioAdjustmentFadesCrowding(t *testing.T) {
	oi := oiSeries(1000, 1001)
	candles := twoCandles(100, 100)

	crowdedLong := &marketdata.LongShortRatio{BuyRatio: 0.65, SellRatio: 0.35}
	result := AnalyzeOpenInterest(oi, candles, crowdedLong)
	assert.Equal(t, -0.2, result.RatioAdjustment)

	crowdedShort := &marketdata.LongShortRatio{BuyRatio: 0.35, SellRatio: 0.65}
	result = AnalyzeOpenInterest(oi, candles, crowdedShort)
	assert.Equal(t, 0.2, result.RatioAdjustment)

	balanced := &marketdata.LongShortRatio{BuyRatio: 0.5, SellRatio: 0.5}
	result = AnalyzeOpenInterest(oi, candles, balanced)
	assert.Equal(t, 0.0, result.RatioAdjustment)
}

func TestSqueezeScore(t *testing.T) {
	// Shorts piling in, OI building over the day, crowded short book.
	oi := oiSeries(1000, 1020, 1080)
	candles := twoCandles(100, 99)
	crowdedShort := &marketdata.LongShortRatio{BuyRatio: 0.35, SellRatio: 0.65}

	result := AnalyzeOpenInterest(oi, candles, crowdedShort)
	assert.Equal(t, OINewShorts, result.Regime)
	// 25 for new shorts + 25 for 24h OI build + 30 for crowded shorts.
	assert.Equal(t, 80.0, result.SqueezeScore)

	calm := AnalyzeOpenInterest(oiSeries(1000, 1001), twoCandles(100, 100), nil)
	assert.Equal(t, 0.0, calm.SqueezeScore)
}
