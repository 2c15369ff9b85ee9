package analysis

import (
	"titan_backend/services/marketdata"
)

const (
	profileBins      = 24
	valueAreaPercent = 0.70
)

// VolumeProfileResult describes where volume concentrated over the window
type VolumeProfileResult struct {
	POC            float64 `json:"poc"` // point of control
	VAH            float64 `json:"vah"` // value area high
	VAL            float64 `json:"val"` // value area low
	InValueArea    bool    `json:"in_value_area"`
	PositionVsPOC  string  `json:"position_vs_poc"` // ABOVE, BELOW, AT
	Recommendation string  `json:"recommendation"`  // FADE_TO_POC, BREAKOUT_LONG, BREAKOUT_SHORT, ROTATE
}

// BuildVolumeProfile bins traded volume by price and derives the point of
// control and the 70% value area. Returns a zero-value result on
// insufficient data.
func BuildVolumeProfile(candles []marketdata.Candle) *VolumeProfileResult {
	result := &VolumeProfileResult{}
	if len(candles) < 20 {
		return result
	}

	low := candles[0].Low
	high := candles[0].High
	for _, c := range candles {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
	}
	if high <= low {
		return result
	}

	binSize := (high - low) / profileBins
	volumes := make([]float64, profileBins)
	var totalVolume float64

	// Attribute each candle's volume to the bin of its typical price
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		bin := int((typical - low) / binSize)
		if bin >= profileBins {
			bin = profileBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		volumes[bin] += c.Volume
		totalVolume += c.Volume
	}
	if totalVolume == 0 {
		return result
	}

	pocBin := 0
	for i, v := range volumes {
		if v > volumes[pocBin] {
			pocBin = i
		}
	}
	result.POC = low + (float64(pocBin)+0.5)*binSize

	// Expand the value area from the POC until it holds 70% of volume
	covered := volumes[pocBin]
	lowBin, highBin := pocBin, pocBin
	for covered < totalVolume*valueAreaPercent {
		var lowNext, highNext float64
		if lowBin > 0 {
			lowNext = volumes[lowBin-1]
		}
		if highBin < profileBins-1 {
			highNext = volumes[highBin+1]
		}
		if lowNext == 0 && highNext == 0 {
			break
		}
		if highNext >= lowNext {
			highBin++
			covered += highNext
		} else {
			lowBin--
			covered += lowNext
		}
	}
	result.VAL = low + float64(lowBin)*binSize
	result.VAH = low + float64(highBin+1)*binSize

	price := candles[len(candles)-1].Close
	result.InValueArea = price >= result.VAL && price <= result.VAH

	switch {
	case price > result.POC+binSize/2:
		result.PositionVsPOC = "ABOVE"
	case price < result.POC-binSize/2:
		result.PositionVsPOC = "BELOW"
	default:
		result.PositionVsPOC = "AT"
	}

	// Outside the value area price tends to either revert to the POC or
	// accept the new range and continue
	switch {
	case !result.InValueArea && price > result.VAH:
		result.Recommendation = "BREAKOUT_LONG"
	case !result.InValueArea && price < result.VAL:
		result.Recommendation = "BREAKOUT_SHORT"
	case result.PositionVsPOC == "AT":
		result.Recommendation = "ROTATE"
	default:
		result.Recommendation = "FADE_TO_POC"
	}
	return result
}
