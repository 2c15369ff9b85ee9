package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/marketdata"
)

func trendingCandles(n int, start, step float64) []marketdata.Candle {
	out := make([]marketdata.Candle, n)
	price := start
	for i := range out {
		out[i] = marketdata.Candle{
			Open:  price,
			High:  price + step*0.6,
			Low:   price - step*0.2,
			Close: price + step*0.5,
		}
		price += step
	}
	return out
}

func TestTimeframeTrend(t *testing.T) {
	assert.Equal(t, TrendNeutral, TimeframeTrend(nil))
	assert.Equal(t, TrendNeutral, TimeframeTrend(trendingCandles(10, 100, 1)))

	up := trendingCandles(60, 100, 1)
	assert.Equal(t, TrendStrongUp, TimeframeTrend(up))

	down := trendingCandles(60, 200, -1)
	assert.Equal(t, TrendStrongDown, TimeframeTrend(down))

	flat := trendingCandles(60, 100, 0)
	assert.Equal(t, TrendNeutral, TimeframeTrend(flat))
}

func TestAnalyzeMTFBullishAlignment(t *testing.T) {
	up := trendingCandles(60, 100, 1)
	result := AnalyzeMTF(up, up, up)

	assert.Equal(t, AlignBullish, result.Alignment)
	assert.Equal(t, PermitLong, result.Permission)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestAnalyzeMTFBearishAlignment(t *testing.T) {
	down := trendingCandles(60, 300, -1)
	flat := trendingCandles(60, 100, 0)
	result := AnalyzeMTF(down, down, flat)

	assert.Equal(t, AlignBearish, result.Alignment)
	assert.Equal(t, PermitShort, result.Permission)
	// Lower timeframe not yet confirming, reduced confidence.
	assert.Equal(t, 0.8, result.Confidence)
}

func TestAnalyzeMTFOpposedTimeframes(t *testing.T) {
	up := trendingCandles(60, 100, 1)
	down := trendingCandles(60, 300, -1)
	result := AnalyzeMTF(up, down, up)

	assert.Equal(t, AlignMixed, result.Alignment)
	assert.Equal(t, PermitNone, result.Permission)
	assert.Equal(t, 0.3, result.Confidence)
}

func TestAnalyzeMTFInsufficientData(t *testing.T) {
	result := AnalyzeMTF(nil, nil, nil)

	assert.Equal(t, TrendNeutral, result.TrendH4)
	assert.Equal(t, AlignMixed, result.Alignment)
	assert.Equal(t, PermitBoth, result.Permission)
	assert.Equal(t, 0.6, result.Confidence)
}

func TestKeyLevelsFromSwings(t *testing.T) {
	candles := trendingCandles(60, 100, 0)
	// Carve a clear swing high and swing low into the flat series.
	candles[50].High = 140
	candles[52].Low = 60

	result := AnalyzeMTF(candles, candles, candles)
	var foundRes, foundSup bool
	for _, lvl := range result.KeyLevels {
		if lvl.Kind == "RESISTANCE" && lvl.Price == 140 {
			foundRes = true
		}
		if lvl.Kind == "SUPPORT" && lvl.Price == 60 {
			foundSup = true
		}
	}
	assert.True(t, foundRes)
	assert.True(t, foundSup)
}
