package marketdata

import "time"

// Candle is a single OHLCV bar. Slices of candles are always chronological
// (oldest first); the exchange returns them newest first and the client
// reverses them on receipt.
type Candle struct {
	Start    time.Time `json:"start"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Turnover float64   `json:"turnover"`
}

// Body returns the absolute candle body size
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Bullish reports whether the candle closed above its open
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Closes extracts the close series from a candle slice
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// BookLevel is one price level of the orderbook
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderbookSnapshot is a depth snapshot with derived liquidity metrics
type OrderbookSnapshot struct {
	Symbol    string      `json:"symbol"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	BidVolume float64     `json:"bid_volume"`
	AskVolume float64     `json:"ask_volume"`
	Imbalance float64     `json:"imbalance"` // bid volume / total volume, 0.5 = balanced
	BidWalls  []BookLevel `json:"bid_walls"`
	AskWalls  []BookLevel `json:"ask_walls"`
	Spread    float64     `json:"spread"`
	MidPrice  float64     `json:"mid_price"`
	Taken     time.Time   `json:"taken"`
}

// Ticker is the 24h market summary for one instrument
type Ticker struct {
	Symbol       string  `json:"symbol"`
	LastPrice    float64 `json:"last_price"`
	Turnover24h  float64 `json:"turnover_24h"`
	Volume24h    float64 `json:"volume_24h"`
	Change24hPct float64 `json:"change_24h_pct"`
	FundingRate  float64 `json:"funding_rate"`
	OpenInterest float64 `json:"open_interest"`
}

// InstrumentRules holds the exchange trading constraints for a symbol
type InstrumentRules struct {
	Symbol      string  `json:"symbol"`
	QtyStep     float64 `json:"qty_step"`
	MinQty      float64 `json:"min_qty"`
	TickSize    float64 `json:"tick_size"`
	MaxLeverage float64 `json:"max_leverage"`
}

// OpenInterestPoint is one OI reading
type OpenInterestPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	OpenInterest float64   `json:"open_interest"`
}

// LongShortRatio is the account long/short ratio reading
type LongShortRatio struct {
	Timestamp time.Time `json:"timestamp"`
	BuyRatio  float64   `json:"buy_ratio"`
	SellRatio float64   `json:"sell_ratio"`
}

// WalletBalance is the unified account balance
type WalletBalance struct {
	TotalEquity      float64 `json:"total_equity"`
	AvailableBalance float64 `json:"available_balance"`
	UnrealisedPnL    float64 `json:"unrealised_pnl"`
}

// PositionInfo is an open position as reported by the exchange
type PositionInfo struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"` // Buy, Sell
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	MarkPrice     float64 `json:"mark_price"`
	Leverage      float64 `json:"leverage"`
	UnrealisedPnL float64 `json:"unrealised_pnl"`
	StopLoss      float64 `json:"stop_loss"`
	TakeProfit    float64 `json:"take_profit"`
}

// ClosedPnL is one realized-PnL record from the exchange
type ClosedPnL struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Qty        float64   `json:"qty"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	ClosedAt   time.Time `json:"closed_at"`
}

// PublicTrade is one trade from the realtime trade stream
type PublicTrade struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Side      string    `json:"side"` // Buy, Sell
	Timestamp time.Time `json:"timestamp"`
}

// OrderRequest describes an order to place
type OrderRequest struct {
	Symbol     string
	Side       string // Buy, Sell
	OrderType  string // Market, Limit
	Qty        float64
	Price      float64 // limit orders only
	StopLoss   float64
	TakeProfit float64
	ReduceOnly bool
}

// OrderResult is the exchange acknowledgement of an order
type OrderResult struct {
	OrderID     string `json:"order_id"`
	OrderLinkID string `json:"order_link_id"`
}
