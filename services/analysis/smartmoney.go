package analysis

import (
	"math"

	"titan_backend/services/marketdata"
)

// Smart money signal types
const (
	SignalSFP        = "SFP"
	SignalFVG        = "FVG"
	SignalOrderBlock = "ORDER_BLOCK"
)

const (
	swingLookback    = 15
	sfpSwingWindow   = 5
	sfpStopATRMult   = 0.3
	fvgMinGapPct     = 0.05
	fvgStopATRMult   = 0.2
	obImpulseATRMult = 1.5

	sfpConfidence = 0.85
	fvgConfidence = 0.70
	obConfidence  = 0.65
)

// SMCSignal is one smart-money setup with a concrete trade plan
type SMCSignal struct {
	Type       string  `json:"type"`
	Direction  string  `json:"direction"` // LONG, SHORT
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Confidence float64 `json:"confidence"`
}

// SMCResult aggregates detected setups; Best is the highest-confidence one
type SMCResult struct {
	Signals []SMCSignal `json:"signals"`
	Best    *SMCSignal  `json:"best"`
}

// AnalyzeSMC scans the candle series for swing failure patterns, fair
// value gap retests and order block retests. minRR sets the take-profit
// distance as a multiple of the stop distance. Returns an empty result
// on insufficient data.
func AnalyzeSMC(candles []marketdata.Candle, minRR float64) *SMCResult {
	result := &SMCResult{}
	if len(candles) < swingLookback+2 {
		return result
	}
	atr := ATR(candles, 14)
	if atr == 0 {
		return result
	}

	if sig := detectSFP(candles, atr, minRR); sig != nil {
		result.Signals = append(result.Signals, *sig)
	}
	if sig := detectFVGRetest(candles, atr, minRR); sig != nil {
		result.Signals = append(result.Signals, *sig)
	}
	if sig := detectOrderBlockRetest(candles, atr, minRR); sig != nil {
		result.Signals = append(result.Signals, *sig)
	}

	for i := range result.Signals {
		if result.Best == nil || result.Signals[i].Confidence > result.Best.Confidence {
			result.Best = &result.Signals[i]
		}
	}
	return result
}

// detectSFP looks for a swing failure on the last closed candle: price
// pierces a prior swing extreme, closes back inside, and the candle
// direction confirms the reversal.
func detectSFP(candles []marketdata.Candle, atr, minRR float64) *SMCSignal {
	last := candles[len(candles)-1]
	prior := candles[:len(candles)-1]
	if len(prior) < sfpSwingWindow {
		return nil
	}

	window := prior[len(prior)-sfpSwingWindow:]
	swingHigh := window[0].High
	swingLow := window[0].Low
	for _, c := range window {
		swingHigh = math.Max(swingHigh, c.High)
		swingLow = math.Min(swingLow, c.Low)
	}

	// Short SFP: wick above the swing high, close back below, bearish candle
	if last.High > swingHigh && last.Close < swingHigh && !last.Bullish() {
		stop := last.High + atr*sfpStopATRMult
		risk := stop - last.Close
		if risk > 0 {
			return &SMCSignal{
				Type:       SignalSFP,
				Direction:  "SHORT",
				Entry:      last.Close,
				StopLoss:   stop,
				TakeProfit: last.Close - risk*minRR,
				Confidence: sfpConfidence,
			}
		}
	}

	// Long SFP: wick below the swing low, close back above, bullish candle
	if last.Low < swingLow && last.Close > swingLow && last.Bullish() {
		stop := last.Low - atr*sfpStopATRMult
		risk := last.Close - stop
		if risk > 0 {
			return &SMCSignal{
				Type:       SignalSFP,
				Direction:  "LONG",
				Entry:      last.Close,
				StopLoss:   stop,
				TakeProfit: last.Close + risk*minRR,
				Confidence: sfpConfidence,
			}
		}
	}
	return nil
}

// detectFVGRetest finds an unfilled fair value gap in the recent window
// whose zone the last candle has retested and rejected
func detectFVGRetest(candles []marketdata.Candle, atr, minRR float64) *SMCSignal {
	last := candles[len(candles)-1]
	n := len(candles)

	for i := n - 3; i >= n-swingLookback && i >= 2; i-- {
		// Bullish gap: candle i's low sits above candle i-2's high
		gapLow := candles[i-2].High
		gapHigh := candles[i].Low
		if gapHigh > gapLow && gapLow > 0 && (gapHigh-gapLow)/gapLow*100 > fvgMinGapPct {
			mid := (gapHigh + gapLow) / 2
			// Retest: price dipped into the gap and closed back above the midpoint
			if last.Low <= gapHigh && last.Close > mid {
				stop := gapLow - atr*fvgStopATRMult
				risk := last.Close - stop
				if risk > 0 {
					return &SMCSignal{
						Type:       SignalFVG,
						Direction:  "LONG",
						Entry:      last.Close,
						StopLoss:   stop,
						TakeProfit: last.Close + risk*minRR,
						Confidence: fvgConfidence,
					}
				}
			}
		}

		// Bearish gap: candle i's high sits below candle i-2's low
		gapHigh = candles[i-2].Low
		gapLow = candles[i].High
		if gapHigh > gapLow && gapLow > 0 && (gapHigh-gapLow)/gapLow*100 > fvgMinGapPct {
			mid := (gapHigh + gapLow) / 2
			if last.High >= gapLow && last.Close < mid {
				stop := gapHigh + atr*fvgStopATRMult
				risk := stop - last.Close
				if risk > 0 {
					return &SMCSignal{
						Type:       SignalFVG,
						Direction:  "SHORT",
						Entry:      last.Close,
						StopLoss:   stop,
						TakeProfit: last.Close - risk*minRR,
						Confidence: fvgConfidence,
					}
				}
			}
		}
	}
	return nil
}

// detectOrderBlockRetest finds the origin candle of a recent impulse move
// (body > 1.5x ATR preceded by an opposite candle) and signals when the
// last candle retests that zone
func detectOrderBlockRetest(candles []marketdata.Candle, atr, minRR float64) *SMCSignal {
	last := candles[len(candles)-1]
	n := len(candles)

	for i := n - 2; i >= n-swingLookback && i >= 1; i-- {
		impulse := candles[i]
		block := candles[i-1]
		if impulse.Body() < atr*obImpulseATRMult {
			continue
		}

		// Bullish impulse from a bearish order block
		if impulse.Bullish() && !block.Bullish() {
			zoneHigh := math.Max(block.Open, block.Close)
			zoneLow := block.Low
			if last.Low <= zoneHigh && last.Close > zoneHigh {
				stop := zoneLow - atr*fvgStopATRMult
				risk := last.Close - stop
				if risk > 0 {
					return &SMCSignal{
						Type:       SignalOrderBlock,
						Direction:  "LONG",
						Entry:      last.Close,
						StopLoss:   stop,
						TakeProfit: last.Close + risk*minRR,
						Confidence: obConfidence,
					}
				}
			}
		}

		// Bearish impulse from a bullish order block
		if !impulse.Bullish() && block.Bullish() {
			zoneLow := math.Min(block.Open, block.Close)
			zoneHigh := block.High
			if last.High >= zoneLow && last.Close < zoneLow {
				stop := zoneHigh + atr*fvgStopATRMult
				risk := stop - last.Close
				if risk > 0 {
					return &SMCSignal{
						Type:       SignalOrderBlock,
						Direction:  "SHORT",
						Entry:      last.Close,
						StopLoss:   stop,
						TakeProfit: last.Close - risk*minRR,
						Confidence: obConfidence,
					}
				}
			}
		}
	}
	return nil
}
