package analysis

import (
	"math"
	"sync"

	"titan_backend/services/marketdata"
)

// Orderflow pressure labels
const (
	FlowStrongBuy  = "STRONG_BUY"
	FlowWeakBuy    = "WEAK_BUY"
	FlowNeutral    = "NEUTRAL"
	FlowWeakSell   = "WEAK_SELL"
	FlowStrongSell = "STRONG_SELL"
)

const (
	imbalanceStrongBuy  = 0.70
	imbalanceWeakBuy    = 0.60
	imbalanceWeakSell   = 0.40
	imbalanceStrongSell = 0.30

	absorptionMinDelta   = 100.0
	absorptionMaxMovePct = 0.1
	spoofLookback        = 5
	snapshotHistory      = 10
	largeTradeSigma      = 2.0
	largeTradeBiasRatio  = 1.5
	fundingCrowdedLong   = 0.0002  // 0.02%
	fundingCrowdedShort  = -0.0001 // -0.01%
)

// OrderflowResult summarizes book and tape pressure for one symbol
type OrderflowResult struct {
	Pressure       string  `json:"pressure"`
	Imbalance      float64 `json:"imbalance"`
	Delta          float64 `json:"delta"`
	Absorption     string  `json:"absorption"` // BID_ABSORPTION, ASK_ABSORPTION or empty
	Spoofing       bool    `json:"spoofing"`
	LargeTradeBias string  `json:"large_trade_bias"` // BUY, SELL or empty
	FundingBias    string  `json:"funding_bias"`     // CROWDED_LONG, CROWDED_SHORT or empty
	Confidence     float64 `json:"confidence"`
}

// OrderflowAnalyzer keeps a rolling history of book snapshots per symbol
// so it can detect walls that appear and vanish
type OrderflowAnalyzer struct {
	mu        sync.Mutex
	snapshots map[string][]*marketdata.OrderbookSnapshot
}

// NewOrderflowAnalyzer creates an orderflow analyzer
func NewOrderflowAnalyzer() *OrderflowAnalyzer {
	return &OrderflowAnalyzer{
		snapshots: make(map[string][]*marketdata.OrderbookSnapshot),
	}
}

// Analyze evaluates pressure from the latest book snapshot, the signed
// delta volume, recent candles and the funding rate. Missing inputs
// degrade to a neutral result.
func (a *OrderflowAnalyzer) Analyze(symbol string, book *marketdata.OrderbookSnapshot, delta float64, trades []marketdata.PublicTrade, candles []marketdata.Candle, fundingRate float64) *OrderflowResult {
	result := &OrderflowResult{
		Pressure:   FlowNeutral,
		Imbalance:  0.5,
		Delta:      delta,
		Confidence: 0.5,
	}
	if book == nil {
		return result
	}

	a.record(symbol, book)

	result.Imbalance = book.Imbalance
	switch {
	case book.Imbalance > imbalanceStrongBuy:
		result.Pressure = FlowStrongBuy
	case book.Imbalance > imbalanceWeakBuy:
		result.Pressure = FlowWeakBuy
	case book.Imbalance < imbalanceStrongSell:
		result.Pressure = FlowStrongSell
	case book.Imbalance < imbalanceWeakSell:
		result.Pressure = FlowWeakSell
	}

	result.Absorption = detectAbsorption(delta, candles)
	result.Spoofing = a.detectSpoofing(symbol)
	result.LargeTradeBias = largeTradeBias(trades)
	result.FundingBias = fundingBias(fundingRate)

	// Confidence builds from corroborating evidence
	if result.Pressure == FlowStrongBuy || result.Pressure == FlowStrongSell {
		result.Confidence += 0.15
	}
	if result.Absorption != "" {
		result.Confidence += 0.2
	}
	if result.Spoofing {
		result.Confidence -= 0.1
	}
	if result.FundingBias != "" {
		result.Confidence += 0.1
	}
	result.Confidence = math.Max(0, math.Min(1, result.Confidence))
	return result
}

func (a *OrderflowAnalyzer) record(symbol string, book *marketdata.OrderbookSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	history := append(a.snapshots[symbol], book)
	if len(history) > snapshotHistory {
		history = history[len(history)-snapshotHistory:]
	}
	a.snapshots[symbol] = history
}

// detectAbsorption flags strong one-sided aggression that failed to move
// price: aggressive buying into a flat market means asks are absorbing
// (bearish), and vice versa.
func detectAbsorption(delta float64, candles []marketdata.Candle) string {
	if math.Abs(delta) < absorptionMinDelta || len(candles) < 6 {
		return ""
	}
	first := candles[len(candles)-6].Close
	last := candles[len(candles)-1].Close
	if first == 0 {
		return ""
	}
	movePct := math.Abs(last-first) / first * 100
	if movePct > absorptionMaxMovePct {
		return ""
	}
	if delta > 0 {
		return "ASK_ABSORPTION"
	}
	return "BID_ABSORPTION"
}

// detectSpoofing reports walls that were present a few snapshots ago and
// have since vanished without the price trading through them
func (a *OrderflowAnalyzer) detectSpoofing(symbol string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	history := a.snapshots[symbol]
	if len(history) <= spoofLookback {
		return false
	}

	past := history[len(history)-1-spoofLookback]
	current := history[len(history)-1]

	return wallVanished(past.BidWalls, current.Bids) || wallVanished(past.AskWalls, current.Asks)
}

func wallVanished(walls []marketdata.BookLevel, levels []marketdata.BookLevel) bool {
	for _, wall := range walls {
		found := false
		for _, level := range levels {
			if level.Price == wall.Price && level.Size >= wall.Size*0.5 {
				found = true
				break
			}
		}
		if !found {
			return true
		}
	}
	return false
}

// largeTradeBias finds trades beyond mean+2 sigma and reports which side
// dominates them
func largeTradeBias(trades []marketdata.PublicTrade) string {
	if len(trades) < 20 {
		return ""
	}
	mean := 0.0
	for _, t := range trades {
		mean += t.Size
	}
	mean /= float64(len(trades))

	variance := 0.0
	for _, t := range trades {
		variance += (t.Size - mean) * (t.Size - mean)
	}
	sigma := math.Sqrt(variance / float64(len(trades)))
	threshold := mean + largeTradeSigma*sigma

	var buyVol, sellVol float64
	for _, t := range trades {
		if t.Size < threshold {
			continue
		}
		if t.Side == "Buy" {
			buyVol += t.Size
		} else {
			sellVol += t.Size
		}
	}
	if buyVol == 0 && sellVol == 0 {
		return ""
	}
	if sellVol > 0 && buyVol/sellVol > largeTradeBiasRatio {
		return "BUY"
	}
	if buyVol > 0 && sellVol/buyVol > largeTradeBiasRatio {
		return "SELL"
	}
	if sellVol == 0 && buyVol > 0 {
		return "BUY"
	}
	if buyVol == 0 && sellVol > 0 {
		return "SELL"
	}
	return ""
}

// fundingBias flags crowded positioning from the funding rate
func fundingBias(rate float64) string {
	if rate > fundingCrowdedLong {
		return "CROWDED_LONG"
	}
	if rate < fundingCrowdedShort {
		return "CROWDED_SHORT"
	}
	return ""
}
