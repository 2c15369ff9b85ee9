package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"titan_backend/services/marketdata"
)

func bookWithImbalance(imbalance float64) *marketdata.OrderbookSnapshot {
	return &marketdata.OrderbookSnapshot{
		Symbol:    "BTCUSDT",
		Bids:      []marketdata.BookLevel{{Price: 100, Size: 10}},
		Asks:      []marketdata.BookLevel{{Price: 101, Size: 10}},
		Imbalance: imbalance,
	}
}

func flatCandles(n int, price float64) []marketdata.Candle {
	out := make([]marketdata.Candle, n)
	for i := range out {
		out[i] = marketdata.Candle{Open: price, High: price, Low: price, Close: price}
	}
	return out
}

func TestAnalyzeNilBookIsNeutral(t *testing.T) {
	a := NewOrderflowAnalyzer()
	result := a.Analyze("BTCUSDT", nil, 500, nil, nil, 0)

	assert.Equal(t, FlowNeutral, result.Pressure)
	assert.Equal(t, 0.5, result.Imbalance)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Empty(t, result.Absorption)
}

func TestImbalancePressureBands(t *testing.T) {
	cases := []struct {
		imbalance float64
		pressure  string
	}{
		{0.80, FlowStrongBuy},
		{0.65, FlowWeakBuy},
		{0.50, FlowNeutral},
		{0.35, FlowWeakSell},
		{0.20, FlowStrongSell},
	}
	for _, tc := range cases {
		a := NewOrderflowAnalyzer()
		result := a.Analyze("BTCUSDT", bookWithImbalance(tc.imbalance), 0, nil, nil, 0)
		assert.Equal(t, tc.pressure, result.Pressure, "imbalance %.2f", tc.imbalance)
	}
}

func TestAbsorptionDetection(t *testing.T) {
	a := NewOrderflowAnalyzer()

	// Heavy buying into a flat tape means asks are soaking it up.
	result := a.Analyze("BTCUSDT", bookWithImbalance(0.5), 500, nil, flatCandles(10, 100), 0)
	assert.Equal(t, "ASK_ABSORPTION", result.Absorption)

	result = a.Analyze("BTCUSDT", bookWithImbalance(0.5), -500, nil, flatCandles(10, 100), 0)
	assert.Equal(t, "BID_ABSORPTION", result.Absorption)

	// Small delta is not absorption.
	result = a.Analyze("BTCUSDT", bookWithImbalance(0.5), 50, nil, flatCandles(10, 100), 0)
	assert.Empty(t, result.Absorption)

	// Price actually moved, the aggression was effective.
	moved := flatCandles(10, 100)
	moved[len(moved)-1].Close = 102
	result = a.Analyze("BTCUSDT", bookWithImbalance(0.5), 500, nil, moved, 0)
	assert.Empty(t, result.Absorption)
}

func TestFundingBias(t *testing.T) {
	a := NewOrderflowAnalyzer()

	result := a.Analyze("BTCUSDT", bookWithImbalance(0.5), 0, nil, nil, 0.0005)
	assert.Equal(t, "CROWDED_LONG", result.FundingBias)

	result = a.Analyze("BTCUSDT", bookWithImbalance(0.5), 0, nil, nil, -0.0003)
	assert.Equal(t, "CROWDED_SHORT", result.FundingBias)

	result = a.Analyze("BTCUSDT", bookWithImbalance(0.5), 0, nil, nil, 0.0001)
	assert.Empty(t, result.FundingBias)
}

func TestLargeTradeBias(t *testing.T) {
	a := NewOrderflowAnalyzer()

	// Many small sells plus one outsized buy print.
	trades := make([]marketdata.PublicTrade, 0, 25)
	for i := 0; i < 24; i++ {
		trades = append(trades, marketdata.PublicTrade{Side: "Sell", Size: 1})
	}
	trades = append(trades, marketdata.PublicTrade{Side: "Buy", Size: 100})

	result := a.Analyze("BTCUSDT", bookWithImbalance(0.5), 0, trades, nil, 0)
	assert.Equal(t, "BUY", result.LargeTradeBias)

	// Too few trades for a meaningful distribution.
	result = a.Analyze("BTCUSDT", bookWithImbalance(0.5), 0, trades[:10], nil, 0)
	assert.Empty(t, result.LargeTradeBias)
}

func TestSpoofingDetection(t *testing.T) {
	a := NewOrderflowAnalyzer()

	wall := marketdata.BookLevel{Price: 99, Size: 500}
	withWall := bookWithImbalance(0.5)
	withWall.Bids = append(withWall.Bids, wall)
	withWall.BidWalls = []marketdata.BookLevel{wall}

	// Seed history with the wall present, then feed snapshots where it
	// has vanished.
	a.Analyze("BTCUSDT", withWall, 0, nil, nil, 0)
	var result *OrderflowResult
	for i := 0; i < spoofLookback; i++ {
		result = a.Analyze("BTCUSDT", bookWithImbalance(0.5), 0, nil, nil, 0)
	}
	assert.True(t, result.Spoofing)
}

func TestConfidenceStacksEvidence(t *testing.T) {
	a := NewOrderflowAnalyzer()
	// Strong imbalance + absorption + crowded funding.
	result := a.Analyze("BTCUSDT", bookWithImbalance(0.85), 500, nil, flatCandles(10, 100), 0.0005)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
}
