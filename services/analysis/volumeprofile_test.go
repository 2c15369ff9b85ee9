package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/marketdata"
)

// rangeCandles builds a balanced range between 90 and 110 with volume
// concentrated around the given price.
func rangeCandles(n int, heavyPrice float64) []marketdata.Candle {
	out := make([]marketdata.Candle, n)
	for i := range out {
		price := 90 + float64(i%21) // walk the 90-110 range
		vol := 10.0
		if price == heavyPrice {
			vol = 500
		}
		out[i] = marketdata.Candle{
			Open:   price,
			High:   price + 0.5,
			Low:    price - 0.5,
			Close:  price,
			Volume: vol,
		}
	}
	return out
}

func TestVolumeProfileInsufficientData(t *testing.T) {
	result := BuildVolumeProfile(rangeCandles(10, 100))
	assert.Equal(t, 0.0, result.POC)
	assert.Empty(t, result.Recommendation)
}

func TestVolumeProfilePOCAtHeaviestPrice(t *testing.T) {
	result := BuildVolumeProfile(rangeCandles(63, 100))

	// The point of control sits in the bin holding the 500-volume prints.
	assert.InDelta(t, 100, result.POC, 1.0)
	assert.Less(t, result.VAL, result.POC)
	assert.Greater(t, result.VAH, result.POC)
}

func TestVolumeProfileBreakoutRecommendations(t *testing.T) {
	candles := rangeCandles(63, 100)

	// Close the window well above the whole range.
	candles[len(candles)-1].Close = 115
	result := BuildVolumeProfile(candles)
	assert.False(t, result.InValueArea)
	assert.Equal(t, "ABOVE", result.PositionVsPOC)
	assert.Equal(t, "BREAKOUT_LONG", result.Recommendation)

	candles[len(candles)-1].Close = 85
	result = BuildVolumeProfile(candles)
	assert.Equal(t, "BELOW", result.PositionVsPOC)
	assert.Equal(t, "BREAKOUT_SHORT", result.Recommendation)
}

func TestVolumeProfileRotationInsideValueArea(t *testing.T) {
	candles := rangeCandles(63, 100)
	candles[len(candles)-1].Close = 100
	result := BuildVolumeProfile(candles)

	assert.True(t, result.InValueArea)
	assert.Equal(t, "AT", result.PositionVsPOC)
	assert.Equal(t, "ROTATE", result.Recommendation)
}

func TestVolumeProfileZeroVolume(t *testing.T) {
	candles := rangeCandles(63, 100)
	for i := range candles {
		candles[i].Volume = 0
	}
	result := BuildVolumeProfile(candles)
	assert.Equal(t, 0.0, result.POC)
}
