package analysis

import (
	"titan_backend/services/marketdata"
)

// Trend labels for a single timeframe
const (
	TrendStrongUp   = "STRONG_UP"
	TrendUp         = "UP"
	TrendNeutral    = "NEUTRAL"
	TrendDown       = "DOWN"
	TrendStrongDown = "STRONG_DOWN"
)

// Alignment labels across timeframes
const (
	AlignBullish = "BULLISH"
	AlignBearish = "BEARISH"
	AlignMixed   = "MIXED"
)

// Trade permissions derived from alignment
const (
	PermitLong  = "LONG"
	PermitShort = "SHORT"
	PermitBoth  = "BOTH"
	PermitNone  = "NONE"
)

// KeyLevel is a support/resistance level from the higher timeframe
type KeyLevel struct {
	Price float64 `json:"price"`
	Kind  string  `json:"kind"` // SUPPORT, RESISTANCE
}

// MTFResult is the outcome of multi-timeframe analysis
type MTFResult struct {
	TrendH4    string     `json:"trend_h4"`
	TrendH1    string     `json:"trend_h1"`
	TrendM15   string     `json:"trend_m15"`
	Alignment  string     `json:"alignment"`
	Permission string     `json:"permission"`
	Confidence float64    `json:"confidence"`
	KeyLevels  []KeyLevel `json:"key_levels"`
}

// AnalyzeMTF classifies the trend on each timeframe and derives the
// trade permission. Candle slices are chronological; an empty slice for
// any timeframe yields a NEUTRAL trend for it.
func AnalyzeMTF(h4, h1, m15 []marketdata.Candle) *MTFResult {
	result := &MTFResult{
		TrendH4:  TimeframeTrend(h4),
		TrendH1:  TimeframeTrend(h1),
		TrendM15: TimeframeTrend(m15),
	}

	htfUp := isUp(result.TrendH4)
	htfDown := isDown(result.TrendH4)
	mtfUp := isUp(result.TrendH1)
	mtfDown := isDown(result.TrendH1)

	switch {
	case htfUp && mtfUp:
		result.Alignment = AlignBullish
	case htfDown && mtfDown:
		result.Alignment = AlignBearish
	default:
		result.Alignment = AlignMixed
	}

	ltfUp := isUp(result.TrendM15)
	ltfDown := isDown(result.TrendM15)

	switch result.Alignment {
	case AlignBullish:
		result.Permission = PermitLong
		if ltfUp {
			result.Confidence = 0.9
		} else {
			result.Confidence = 0.8
		}
	case AlignBearish:
		result.Permission = PermitShort
		if ltfDown {
			result.Confidence = 0.9
		} else {
			result.Confidence = 0.8
		}
	default:
		// Mixed timeframes: allow both directions at reduced confidence
		// unless the two higher timeframes actively oppose each other
		if (htfUp && mtfDown) || (htfDown && mtfUp) {
			result.Permission = PermitNone
			result.Confidence = 0.3
		} else {
			result.Permission = PermitBoth
			result.Confidence = 0.6
		}
	}

	result.KeyLevels = keyLevels(h4, 15)
	return result
}

// TimeframeTrend classifies a single timeframe from the EMA8/EMA21 spread
// and market structure (higher highs vs lower lows)
func TimeframeTrend(candles []marketdata.Candle) string {
	if len(candles) < 30 {
		return TrendNeutral
	}

	closes := marketdata.Closes(candles)
	ema8 := EMA(closes, 8)
	ema21 := EMA(closes, 21)
	if ema21 == 0 {
		return TrendNeutral
	}
	spread := (ema8 - ema21) / ema21 * 100

	hh, ll := structureCounts(candles, 10)
	total := hh + ll
	hhRatio := 0.5
	if total > 0 {
		hhRatio = float64(hh) / float64(total)
	}

	switch {
	case spread > 0.5 && hhRatio > 0.6:
		return TrendStrongUp
	case spread > 0.1:
		return TrendUp
	case spread < -0.5 && hhRatio < 0.4:
		return TrendStrongDown
	case spread < -0.1:
		return TrendDown
	default:
		return TrendNeutral
	}
}

// structureCounts counts higher highs and lower lows over the last window bars
func structureCounts(candles []marketdata.Candle, window int) (int, int) {
	if len(candles) < window+1 {
		return 0, 0
	}
	hh, ll := 0, 0
	start := len(candles) - window
	for i := start; i < len(candles); i++ {
		if candles[i].High > candles[i-1].High {
			hh++
		}
		if candles[i].Low < candles[i-1].Low {
			ll++
		}
	}
	return hh, ll
}

// keyLevels extracts local extrema from the higher timeframe as
// support/resistance levels
func keyLevels(candles []marketdata.Candle, lookback int) []KeyLevel {
	if len(candles) < lookback {
		return nil
	}
	window := candles[len(candles)-lookback:]
	var levels []KeyLevel

	for i := 1; i < len(window)-1; i++ {
		if window[i].High > window[i-1].High && window[i].High > window[i+1].High {
			levels = append(levels, KeyLevel{Price: window[i].High, Kind: "RESISTANCE"})
		}
		if window[i].Low < window[i-1].Low && window[i].Low < window[i+1].Low {
			levels = append(levels, KeyLevel{Price: window[i].Low, Kind: "SUPPORT"})
		}
	}
	return levels
}

func isUp(trend string) bool {
	return trend == TrendUp || trend == TrendStrongUp
}

func isDown(trend string) bool {
	return trend == TrendDown || trend == TrendStrongDown
}
