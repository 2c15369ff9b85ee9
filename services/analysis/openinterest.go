package analysis

import (
	"titan_backend/services/marketdata"
)

// Open interest regime labels from the OI/price change matrix
const (
	OINewLongs      = "NEW_LONGS"
	OINewShorts     = "NEW_SHORTS"
	OILongsClosing  = "LONGS_CLOSING"
	OIShortsClosing = "SHORTS_CLOSING"
	OINeutral       = "NEUTRAL"
)

const (
	oiChangeThresholdPct    = 1.0
	priceChangeThresholdPct = 0.1
	lsRatioLongCrowded      = 1.5
	lsRatioShortCrowded     = 0.67
)

// OpenInterestResult interprets positioning from OI and price changes
type OpenInterestResult struct {
	Regime          string  `json:"regime"`
	OIChange1hPct   float64 `json:"oi_change_1h_pct"`
	OIChange24hPct  float64 `json:"oi_change_24h_pct"`
	PriceChangePct  float64 `json:"price_change_pct"`
	LongShortRatio  float64 `json:"long_short_ratio"`
	RatioAdjustment float64 `json:"ratio_adjustment"` // contrarian nudge from crowding
	SqueezeScore    float64 `json:"squeeze_score"`    // 0-100 short squeeze potential
}

// AnalyzeOpenInterest combines the OI history (hourly points, oldest
// first), recent candles and the account long/short ratio. Returns a
// NEUTRAL result when data is missing.
func AnalyzeOpenInterest(oi []marketdata.OpenInterestPoint, candles []marketdata.Candle, ratio *marketdata.LongShortRatio) *OpenInterestResult {
	result := &OpenInterestResult{Regime: OINeutral, LongShortRatio: 1}
	if len(oi) < 2 || len(candles) < 2 {
		return result
	}

	latest := oi[len(oi)-1].OpenInterest
	prev := oi[len(oi)-2].OpenInterest
	if prev > 0 {
		result.OIChange1hPct = (latest - prev) / prev * 100
	}
	if oi[0].OpenInterest > 0 {
		result.OIChange24hPct = (latest - oi[0].OpenInterest) / oi[0].OpenInterest * 100
	}

	priceNow := candles[len(candles)-1].Close
	pricePrev := candles[len(candles)-2].Close
	if pricePrev > 0 {
		result.PriceChangePct = (priceNow - pricePrev) / pricePrev * 100
	}

	oiUp := result.OIChange1hPct > oiChangeThresholdPct
	oiDown := result.OIChange1hPct < -oiChangeThresholdPct
	priceUp := result.PriceChangePct > priceChangeThresholdPct
	priceDown := result.PriceChangePct < -priceChangeThresholdPct

	switch {
	case oiUp && priceUp:
		result.Regime = OINewLongs
	case oiUp && priceDown:
		result.Regime = OINewShorts
	case oiDown && priceDown:
		result.Regime = OILongsClosing
	case oiDown && priceUp:
		result.Regime = OIShortsClosing
	}

	if ratio != nil && ratio.SellRatio > 0 {
		result.LongShortRatio = ratio.BuyRatio / ratio.SellRatio
		// Crowded sides are faded
		if result.LongShortRatio > lsRatioLongCrowded {
			result.RatioAdjustment = -0.2
		} else if result.LongShortRatio < lsRatioShortCrowded {
			result.RatioAdjustment = 0.2
		}
	}

	result.SqueezeScore = squeezeScore(result)
	return result
}

// squeezeScore grades short squeeze potential: shorts piling in while
// price holds, crowded short positioning, and shorts starting to cover.
func squeezeScore(r *OpenInterestResult) float64 {
	score := 0.0
	if r.Regime == OINewShorts {
		score += 25
	}
	if r.OIChange24hPct > 5 {
		score += 25
	}
	if r.LongShortRatio < lsRatioShortCrowded {
		score += 30
	}
	if r.Regime == OIShortsClosing {
		score += 20
	}
	if score > 100 {
		score = 100
	}
	return score
}
