package analysis

import (
	"math"

	"titan_backend/services/marketdata"
)

// Indicator helpers operate on chronological series (oldest first) and
// return a neutral value or an empty slice on insufficient data.

// SMA calculates the simple moving average of the last period values
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA calculates the exponential moving average over the full series
func EMA(values []float64, period int) float64 {
	series := EMASeries(values, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// EMASeries calculates the EMA at every point of the series, seeded with
// the SMA of the first period values. Entries before the seed are zero.
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, len(values))
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)
	multiplier := 2.0 / (float64(period) + 1)

	for i := range values {
		if i < period-1 {
			continue
		}
		if i == period-1 {
			out[i] = seed
			continue
		}
		out[i] = (values[i]-out[i-1])*multiplier + out[i-1]
	}
	return out
}

// RSI calculates the Relative Strength Index using Wilder smoothing
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 50
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR calculates the Average True Range over the last period candles
func ATR(candles []marketdata.Candle, period int) float64 {
	series := trueRanges(candles)
	if period <= 0 || len(series) < period {
		return 0
	}
	sum := 0.0
	for _, tr := range series[len(series)-period:] {
		sum += tr
	}
	return sum / float64(period)
}

// ATRSeries calculates a rolling ATR at each candle; entries before the
// warmup window are zero
func ATRSeries(candles []marketdata.Candle, period int) []float64 {
	trs := trueRanges(candles)
	out := make([]float64, len(candles))
	for i := range candles {
		if i < period {
			continue
		}
		// trs[j] belongs to candles[j+1]
		sum := 0.0
		for j := i - period; j < i; j++ {
			sum += trs[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

func trueRanges(candles []marketdata.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowClose := math.Abs(candles[i].Low - candles[i-1].Close)
		out[i-1] = math.Max(highLow, math.Max(highClose, lowClose))
	}
	return out
}

// StdDev calculates the population standard deviation of the last period values
func StdDev(values []float64, period int) float64 {
	if period <= 1 || len(values) < period {
		return 0
	}
	window := values[len(values)-period:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(period)

	variance := 0.0
	for _, v := range window {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(period))
}

// ADX calculates the Average Directional Index (trend strength, 0-100)
func ADX(candles []marketdata.Candle, period int) float64 {
	if period <= 0 || len(candles) < period*2+1 {
		return 0
	}

	trs := trueRanges(candles)
	plusDM := make([]float64, len(candles)-1)
	minusDM := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i-1] = downMove
		}
	}

	// Wilder smoothing of TR and the directional movements
	smTR := sum(trs[:period])
	smPlus := sum(plusDM[:period])
	smMinus := sum(minusDM[:period])

	var dxs []float64
	for i := period; i < len(trs); i++ {
		smTR = smTR - smTR/float64(period) + trs[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		if smTR == 0 {
			dxs = append(dxs, 0)
			continue
		}
		plusDI := 100 * smPlus / smTR
		minusDI := 100 * smMinus / smTR
		if plusDI+minusDI == 0 {
			dxs = append(dxs, 0)
			continue
		}
		dxs = append(dxs, 100*math.Abs(plusDI-minusDI)/(plusDI+minusDI))
	}

	if len(dxs) < period {
		return 0
	}
	return SMA(dxs, period)
}

// BollingerWidth returns the band width as a percent of the middle band
func BollingerWidth(values []float64, period int, mult float64) float64 {
	if len(values) < period {
		return 0
	}
	middle := SMA(values, period)
	if middle == 0 {
		return 0
	}
	sd := StdDev(values, period)
	return (2 * mult * sd) / middle * 100
}

// PercentileRank returns the percentile (0-100) of the last value within
// the rest of the series
func PercentileRank(values []float64) float64 {
	if len(values) < 2 {
		return 50
	}
	last := values[len(values)-1]
	below := 0
	for _, v := range values[:len(values)-1] {
		if v < last {
			below++
		}
	}
	return float64(below) / float64(len(values)-1) * 100
}

// PearsonCorrelation calculates the correlation coefficient of two
// equal-length series
func PearsonCorrelation(a, b []float64) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0
	}
	meanA, meanB := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// Returns converts a close series to period-over-period simple returns
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out[i-1] = values[i]/values[i-1] - 1
	}
	return out
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
