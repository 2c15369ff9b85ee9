package analysis

import (
	"titan_backend/services/marketdata"
)

// Market regime labels
const (
	RegimeTrendingUp   = "TRENDING_UP"
	RegimeTrendingDown = "TRENDING_DOWN"
	RegimeRanging      = "RANGING"
	RegimeVolatile     = "VOLATILE"
	RegimeQuiet        = "QUIET"
)

// RegimeResult classifies current market conditions
type RegimeResult struct {
	Regime         string  `json:"regime"`
	ADX            float64 `json:"adx"`
	ATRPercentile  float64 `json:"atr_percentile"`
	BollingerWidth float64 `json:"bollinger_width"`
	SizeMultiplier float64 `json:"size_multiplier"`
	Strategy       string  `json:"strategy"` // recommended approach for this regime
}

// regimeSizeMultipliers scales position size by regime
var regimeSizeMultipliers = map[string]float64{
	RegimeTrendingUp:   1.0,
	RegimeTrendingDown: 1.0,
	RegimeRanging:      0.7,
	RegimeVolatile:     0.3,
	RegimeQuiet:        0.5,
}

var regimeStrategies = map[string]string{
	RegimeTrendingUp:   "trend_following",
	RegimeTrendingDown: "trend_following",
	RegimeRanging:      "mean_reversion",
	RegimeVolatile:     "stand_aside",
	RegimeQuiet:        "breakout_watch",
}

// ClassifyRegime determines the market regime from ADX, the ATR
// percentile over the series, Bollinger band width and EMA direction.
// Returns a neutral RANGING result on insufficient data.
func ClassifyRegime(candles []marketdata.Candle) *RegimeResult {
	result := &RegimeResult{Regime: RegimeRanging}
	if len(candles) < 60 {
		result.SizeMultiplier = regimeSizeMultipliers[result.Regime]
		result.Strategy = regimeStrategies[result.Regime]
		return result
	}

	closes := marketdata.Closes(candles)
	result.ADX = ADX(candles, 14)
	result.BollingerWidth = BollingerWidth(closes, 20, 2)

	atrs := ATRSeries(candles, 14)
	// Drop the warmup zeros before ranking
	valid := atrs[14:]
	result.ATRPercentile = PercentileRank(valid)

	ema20 := EMA(closes, 20)
	ema50 := EMA(closes, 50)

	switch {
	case result.ATRPercentile > 80 && result.ADX < 20:
		result.Regime = RegimeVolatile
	case result.ATRPercentile < 20 && result.BollingerWidth < 2:
		result.Regime = RegimeQuiet
	case result.ADX > 20 && ema20 > ema50:
		result.Regime = RegimeTrendingUp
	case result.ADX > 20 && ema20 < ema50:
		result.Regime = RegimeTrendingDown
	default:
		result.Regime = RegimeRanging
	}

	result.SizeMultiplier = regimeSizeMultipliers[result.Regime]
	result.Strategy = regimeStrategies[result.Regime]
	return result
}
