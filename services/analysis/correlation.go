package analysis

import (
	"math"

	"titan_backend/services/marketdata"
)

const correlationWindow = 50

// Correlation regime labels
const (
	CorrStrongPositive = "STRONG_POSITIVE"
	CorrPositive       = "POSITIVE"
	CorrIndependent    = "INDEPENDENT"
	CorrNegative       = "NEGATIVE"
)

// CorrelationResult relates a symbol's returns to the majors
type CorrelationResult struct {
	BTCCorrelation float64 `json:"btc_correlation"`
	ETHCorrelation float64 `json:"eth_correlation"`
	Regime         string  `json:"regime"`
	Divergence     bool    `json:"divergence"` // symbol moving against a correlated major
	SafeToTrade    bool    `json:"safe_to_trade"`
}

// AnalyzeCorrelation computes return correlations of the symbol against
// BTC and ETH over the last 50 bars. A highly correlated symbol moving
// with a falling major is unsafe to long, and a sudden divergence from a
// normally tight correlation is flagged. Insufficient data yields an
// INDEPENDENT, safe result.
func AnalyzeCorrelation(symbol []marketdata.Candle, btc, eth []marketdata.Candle) *CorrelationResult {
	result := &CorrelationResult{Regime: CorrIndependent, SafeToTrade: true}

	symReturns := tailReturns(symbol, correlationWindow)
	btcReturns := tailReturns(btc, correlationWindow)
	ethReturns := tailReturns(eth, correlationWindow)
	if len(symReturns) < correlationWindow/2 {
		return result
	}

	if len(btcReturns) == len(symReturns) {
		result.BTCCorrelation = PearsonCorrelation(symReturns, btcReturns)
	}
	if len(ethReturns) == len(symReturns) {
		result.ETHCorrelation = PearsonCorrelation(symReturns, ethReturns)
	}

	strongest := result.BTCCorrelation
	if math.Abs(result.ETHCorrelation) > math.Abs(strongest) {
		strongest = result.ETHCorrelation
	}

	switch {
	case strongest > 0.8:
		result.Regime = CorrStrongPositive
	case strongest > 0.4:
		result.Regime = CorrPositive
	case strongest < -0.4:
		result.Regime = CorrNegative
	default:
		result.Regime = CorrIndependent
	}

	// Divergence: tightly correlated symbol printing the opposite sign of
	// BTC over the last few bars
	if result.BTCCorrelation > 0.7 && len(symReturns) >= 5 && len(btcReturns) >= 5 {
		symRecent := sum(symReturns[len(symReturns)-5:])
		btcRecent := sum(btcReturns[len(btcReturns)-5:])
		if symRecent*btcRecent < 0 && math.Abs(btcRecent) > 0.002 {
			result.Divergence = true
		}
	}

	// A strongly correlated symbol while BTC is in a sharp move offers no
	// independent edge
	if result.Regime == CorrStrongPositive && len(btcReturns) >= 5 {
		btcRecent := sum(btcReturns[len(btcReturns)-5:])
		if math.Abs(btcRecent) > 0.01 {
			result.SafeToTrade = false
		}
	}
	return result
}

func tailReturns(candles []marketdata.Candle, window int) []float64 {
	closes := marketdata.Closes(candles)
	returns := Returns(closes)
	if len(returns) > window {
		returns = returns[len(returns)-window:]
	}
	return returns
}
