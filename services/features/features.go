package features

import (
	"math"
	"time"

	"titan_backend/services/analysis"
	"titan_backend/services/marketdata"
)

// Vector is the ML feature snapshot taken at a scan or entry. Field
// order matches the offline training pipeline's column order.
type Vector struct {
	Return1      float64 `json:"return_1"`
	Return3      float64 `json:"return_3"`
	Return5      float64 `json:"return_5"`
	Return10     float64 `json:"return_10"`
	Return20     float64 `json:"return_20"`
	Volatility   float64 `json:"volatility"`
	PriceVsEMA20 float64 `json:"price_vs_ema20"`
	PriceVsEMA50 float64 `json:"price_vs_ema50"`
	EMATrend     float64 `json:"ema_trend"` // 1 when EMA20 > EMA50
	VolumeRatio  float64 `json:"volume_ratio"`
	VolumeChange float64 `json:"volume_change"`
	BodyATR      float64 `json:"body_atr"`
	UpperWick    float64 `json:"upper_wick"`
	LowerWick    float64 `json:"lower_wick"`
	RSI          float64 `json:"rsi"` // normalized to [-1, 1]
	HourSin      float64 `json:"hour_sin"`
	HourCos      float64 `json:"hour_cos"`
	DayOfWeek    float64 `json:"day_of_week"`
	IsWeekend    float64 `json:"is_weekend"`
}

// Extract computes the feature vector from a chronological candle
// series. Returns nil when the series is too short.
func Extract(candles []marketdata.Candle, at time.Time) *Vector {
	if len(candles) < 60 {
		return nil
	}

	closes := marketdata.Closes(candles)
	last := candles[len(candles)-1]
	price := last.Close
	if price == 0 {
		return nil
	}

	v := &Vector{
		Return1:  pctReturn(closes, 1),
		Return3:  pctReturn(closes, 3),
		Return5:  pctReturn(closes, 5),
		Return10: pctReturn(closes, 10),
		Return20: pctReturn(closes, 20),
	}

	returns := analysis.Returns(closes)
	v.Volatility = analysis.StdDev(returns, 20)

	ema20 := analysis.EMA(closes, 20)
	ema50 := analysis.EMA(closes, 50)
	if ema20 > 0 {
		v.PriceVsEMA20 = price/ema20 - 1
	}
	if ema50 > 0 {
		v.PriceVsEMA50 = price/ema50 - 1
	}
	if ema20 > ema50 {
		v.EMATrend = 1
	}

	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	volSMA := analysis.SMA(volumes, 20)
	if volSMA > 0 {
		v.VolumeRatio = last.Volume / volSMA
	}
	if len(volumes) >= 2 && volumes[len(volumes)-2] > 0 {
		v.VolumeChange = last.Volume/volumes[len(volumes)-2] - 1
	}

	atr := analysis.ATR(candles, 14)
	if atr > 0 {
		v.BodyATR = last.Body() / atr
	}
	candleRange := last.High - last.Low
	if candleRange > 0 {
		v.UpperWick = (last.High - math.Max(last.Open, last.Close)) / candleRange
		v.LowerWick = (math.Min(last.Open, last.Close) - last.Low) / candleRange
	}

	v.RSI = (analysis.RSI(closes, 14) - 50) / 50

	hour := float64(at.UTC().Hour())
	v.HourSin = math.Sin(2 * math.Pi * hour / 24)
	v.HourCos = math.Cos(2 * math.Pi * hour / 24)
	weekday := at.UTC().Weekday()
	v.DayOfWeek = float64(weekday)
	if weekday == time.Saturday || weekday == time.Sunday {
		v.IsWeekend = 1
	}
	return v
}

// AsSlice returns the vector in training column order
func (v *Vector) AsSlice() []float64 {
	return []float64{
		v.Return1, v.Return3, v.Return5, v.Return10, v.Return20,
		v.Volatility, v.PriceVsEMA20, v.PriceVsEMA50, v.EMATrend,
		v.VolumeRatio, v.VolumeChange, v.BodyATR, v.UpperWick, v.LowerWick,
		v.RSI, v.HourSin, v.HourCos, v.DayOfWeek, v.IsWeekend,
	}
}

func pctReturn(closes []float64, periods int) float64 {
	n := len(closes)
	if n <= periods || closes[n-1-periods] == 0 {
		return 0
	}
	return closes[n-1]/closes[n-1-periods] - 1
}
