package marketdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const recvWindow = "5000"

// Client wraps the Bybit v5 HTTP API for linear perpetuals.
// Public endpoints need no credentials; private endpoints are signed
// with HMAC-SHA256 when an API key is configured.
type Client struct {
	http      *resty.Client
	apiKey    string
	apiSecret string

	rulesMu sync.RWMutex
	rules   map[string]InstrumentRules
}

// NewClient creates an exchange client against the given base URL
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(8 * time.Second)

	return &Client{
		http:      http,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		rules:     make(map[string]InstrumentRules),
	}
}

// HasCredentials reports whether private endpoints can be used
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

type apiResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

// APIError is a non-zero retCode rejection from the exchange
type APIError struct {
	Path string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request %s: exchange error %d: %s", e.Path, e.Code, e.Msg)
}

func (c *Client) getPublic(path string, params map[string]string, result interface{}) error {
	var envelope apiResponse
	resp, err := c.http.R().
		SetQueryParams(params).
		SetResult(&envelope).
		Get(path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("request %s: status %d", path, resp.StatusCode())
	}
	if envelope.RetCode != 0 {
		return &APIError{Path: path, Code: envelope.RetCode, Msg: envelope.RetMsg}
	}
	return json.Unmarshal(envelope.Result, result)
}

// sign builds the v5 signature: HMAC-SHA256(timestamp + apiKey + recvWindow + payload)
func (c *Client) sign(timestamp, payload string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp + c.apiKey + recvWindow + payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) getPrivate(path string, params map[string]string, result interface{}) error {
	if !c.HasCredentials() {
		return fmt.Errorf("request %s: API credentials not configured", path)
	}

	// Query string must be signed in the exact order it is sent
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	query := ""
	for i, k := range keys {
		if i > 0 {
			query += "&"
		}
		query += k + "=" + params[k]
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	var envelope apiResponse
	resp, err := c.http.R().
		SetQueryString(query).
		SetHeader("X-BAPI-API-KEY", c.apiKey).
		SetHeader("X-BAPI-TIMESTAMP", timestamp).
		SetHeader("X-BAPI-RECV-WINDOW", recvWindow).
		SetHeader("X-BAPI-SIGN", c.sign(timestamp, query)).
		SetResult(&envelope).
		Get(path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("request %s: status %d", path, resp.StatusCode())
	}
	if envelope.RetCode != 0 {
		return &APIError{Path: path, Code: envelope.RetCode, Msg: envelope.RetMsg}
	}
	return json.Unmarshal(envelope.Result, result)
}

func (c *Client) postPrivate(path string, body map[string]interface{}, result interface{}) error {
	if !c.HasCredentials() {
		return fmt.Errorf("request %s: API credentials not configured", path)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	var envelope apiResponse
	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("X-BAPI-API-KEY", c.apiKey).
		SetHeader("X-BAPI-TIMESTAMP", timestamp).
		SetHeader("X-BAPI-RECV-WINDOW", recvWindow).
		SetHeader("X-BAPI-SIGN", c.sign(timestamp, string(payload))).
		SetBody(payload).
		SetResult(&envelope).
		Post(path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("request %s: status %d", path, resp.StatusCode())
	}
	if envelope.RetCode != 0 {
		return &APIError{Path: path, Code: envelope.RetCode, Msg: envelope.RetMsg}
	}
	if result != nil {
		return json.Unmarshal(envelope.Result, result)
	}
	return nil
}

// GetKlines fetches candles for a symbol and interval ("15", "60", "240", "D").
// The returned slice is chronological, oldest first.
func (c *Client) GetKlines(symbol, interval string, limit int) ([]Candle, error) {
	var result struct {
		List [][]string `json:"list"`
	}
	err := c.getPublic("/v5/market/kline", map[string]string{
		"category": "linear",
		"symbol":   symbol,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}, &result)
	if err != nil {
		return nil, err
	}

	candles := make([]Candle, 0, len(result.List))
	// Exchange returns newest first; iterate backwards to get chronological order
	for i := len(result.List) - 1; i >= 0; i-- {
		row := result.List[i]
		if len(row) < 7 {
			continue
		}
		ms, _ := strconv.ParseInt(row[0], 10, 64)
		candles = append(candles, Candle{
			Start:    time.UnixMilli(ms).UTC(),
			Open:     parseFloat(row[1]),
			High:     parseFloat(row[2]),
			Low:      parseFloat(row[3]),
			Close:    parseFloat(row[4]),
			Volume:   parseFloat(row[5]),
			Turnover: parseFloat(row[6]),
		})
	}
	return candles, nil
}

// GetOrderbook fetches a depth snapshot and derives liquidity metrics.
// Walls are levels larger than 3x the mean level size.
func (c *Client) GetOrderbook(symbol string, depth int) (*OrderbookSnapshot, error) {
	var result struct {
		Bids [][]string `json:"b"`
		Asks [][]string `json:"a"`
	}
	err := c.getPublic("/v5/market/orderbook", map[string]string{
		"category": "linear",
		"symbol":   symbol,
		"limit":    strconv.Itoa(depth),
	}, &result)
	if err != nil {
		return nil, err
	}

	snap := &OrderbookSnapshot{Symbol: symbol, Taken: time.Now().UTC()}
	var totalSize float64
	var levels int
	for _, row := range result.Bids {
		if len(row) < 2 {
			continue
		}
		level := BookLevel{Price: parseFloat(row[0]), Size: parseFloat(row[1])}
		snap.Bids = append(snap.Bids, level)
		snap.BidVolume += level.Size
		totalSize += level.Size
		levels++
	}
	for _, row := range result.Asks {
		if len(row) < 2 {
			continue
		}
		level := BookLevel{Price: parseFloat(row[0]), Size: parseFloat(row[1])}
		snap.Asks = append(snap.Asks, level)
		snap.AskVolume += level.Size
		totalSize += level.Size
		levels++
	}

	total := snap.BidVolume + snap.AskVolume
	if total > 0 {
		snap.Imbalance = snap.BidVolume / total
	} else {
		snap.Imbalance = 0.5
	}

	if levels > 0 {
		wallThreshold := totalSize / float64(levels) * 3
		for _, b := range snap.Bids {
			if b.Size > wallThreshold {
				snap.BidWalls = append(snap.BidWalls, b)
			}
		}
		for _, a := range snap.Asks {
			if a.Size > wallThreshold {
				snap.AskWalls = append(snap.AskWalls, a)
			}
		}
	}

	if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		bestBid := snap.Bids[0].Price
		bestAsk := snap.Asks[0].Price
		snap.Spread = bestAsk - bestBid
		snap.MidPrice = (bestAsk + bestBid) / 2
	}
	return snap, nil
}

// GetTickers fetches 24h summaries. With an empty symbol it returns all
// linear instruments.
func (c *Client) GetTickers(symbol string) ([]Ticker, error) {
	params := map[string]string{"category": "linear"}
	if symbol != "" {
		params["symbol"] = symbol
	}
	var result struct {
		List []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			Turnover24h  string `json:"turnover24h"`
			Volume24h    string `json:"volume24h"`
			Price24hPcnt string `json:"price24hPcnt"`
			FundingRate  string `json:"fundingRate"`
			OpenInterest string `json:"openInterest"`
		} `json:"list"`
	}
	if err := c.getPublic("/v5/market/tickers", params, &result); err != nil {
		return nil, err
	}

	tickers := make([]Ticker, 0, len(result.List))
	for _, t := range result.List {
		tickers = append(tickers, Ticker{
			Symbol:       t.Symbol,
			LastPrice:    parseFloat(t.LastPrice),
			Turnover24h:  parseFloat(t.Turnover24h),
			Volume24h:    parseFloat(t.Volume24h),
			Change24hPct: parseFloat(t.Price24hPcnt) * 100,
			FundingRate:  parseFloat(t.FundingRate),
			OpenInterest: parseFloat(t.OpenInterest),
		})
	}
	return tickers, nil
}

// GetTicker fetches the summary for a single symbol
func (c *Client) GetTicker(symbol string) (*Ticker, error) {
	tickers, err := c.GetTickers(symbol)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("ticker %s: not found", symbol)
	}
	return &tickers[0], nil
}

// GetOpenInterest fetches the OI history (oldest first)
func (c *Client) GetOpenInterest(symbol, intervalTime string, limit int) ([]OpenInterestPoint, error) {
	var result struct {
		List []struct {
			OpenInterest string `json:"openInterest"`
			Timestamp    string `json:"timestamp"`
		} `json:"list"`
	}
	err := c.getPublic("/v5/market/open-interest", map[string]string{
		"category":     "linear",
		"symbol":       symbol,
		"intervalTime": intervalTime,
		"limit":        strconv.Itoa(limit),
	}, &result)
	if err != nil {
		return nil, err
	}

	points := make([]OpenInterestPoint, 0, len(result.List))
	for i := len(result.List) - 1; i >= 0; i-- {
		row := result.List[i]
		ms, _ := strconv.ParseInt(row.Timestamp, 10, 64)
		points = append(points, OpenInterestPoint{
			Timestamp:    time.UnixMilli(ms).UTC(),
			OpenInterest: parseFloat(row.OpenInterest),
		})
	}
	return points, nil
}

// GetLongShortRatio fetches the latest account long/short ratio
func (c *Client) GetLongShortRatio(symbol string) (*LongShortRatio, error) {
	var result struct {
		List []struct {
			BuyRatio  string `json:"buyRatio"`
			SellRatio string `json:"sellRatio"`
			Timestamp string `json:"timestamp"`
		} `json:"list"`
	}
	err := c.getPublic("/v5/market/account-ratio", map[string]string{
		"category": "linear",
		"symbol":   symbol,
		"period":   "1h",
		"limit":    "1",
	}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("long/short ratio %s: no data", symbol)
	}
	ms, _ := strconv.ParseInt(result.List[0].Timestamp, 10, 64)
	return &LongShortRatio{
		Timestamp: time.UnixMilli(ms).UTC(),
		BuyRatio:  parseFloat(result.List[0].BuyRatio),
		SellRatio: parseFloat(result.List[0].SellRatio),
	}, nil
}

// GetInstrumentRules returns cached trading constraints for a symbol,
// fetching them on first use.
func (c *Client) GetInstrumentRules(symbol string) (InstrumentRules, error) {
	c.rulesMu.RLock()
	if rules, ok := c.rules[symbol]; ok {
		c.rulesMu.RUnlock()
		return rules, nil
	}
	c.rulesMu.RUnlock()

	var result struct {
		List []struct {
			Symbol        string `json:"symbol"`
			LotSizeFilter struct {
				QtyStep     string `json:"qtyStep"`
				MinOrderQty string `json:"minOrderQty"`
			} `json:"lotSizeFilter"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
			LeverageFilter struct {
				MaxLeverage string `json:"maxLeverage"`
			} `json:"leverageFilter"`
		} `json:"list"`
	}
	err := c.getPublic("/v5/market/instruments-info", map[string]string{
		"category": "linear",
		"symbol":   symbol,
	}, &result)
	if err != nil {
		return InstrumentRules{}, err
	}
	if len(result.List) == 0 {
		return InstrumentRules{}, fmt.Errorf("instrument %s: not found", symbol)
	}

	row := result.List[0]
	rules := InstrumentRules{
		Symbol:      row.Symbol,
		QtyStep:     parseFloat(row.LotSizeFilter.QtyStep),
		MinQty:      parseFloat(row.LotSizeFilter.MinOrderQty),
		TickSize:    parseFloat(row.PriceFilter.TickSize),
		MaxLeverage: parseFloat(row.LeverageFilter.MaxLeverage),
	}

	c.rulesMu.Lock()
	c.rules[symbol] = rules
	c.rulesMu.Unlock()
	return rules, nil
}

// RoundQty floors a quantity to the symbol's lot step
func (c *Client) RoundQty(symbol string, qty float64) (float64, error) {
	rules, err := c.GetInstrumentRules(symbol)
	if err != nil {
		return 0, err
	}
	return RoundToStep(qty, rules.QtyStep), nil
}

// RoundToStep floors a value onto a step grid. The epsilon keeps exact
// multiples from flooring one step down due to float division.
func RoundToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Floor(value/step+1e-9) * step
}

// GetWalletBalance fetches the unified account balance
func (c *Client) GetWalletBalance() (*WalletBalance, error) {
	var result struct {
		List []struct {
			TotalEquity           string `json:"totalEquity"`
			TotalAvailableBalance string `json:"totalAvailableBalance"`
			TotalPerpUPL          string `json:"totalPerpUPL"`
		} `json:"list"`
	}
	err := c.getPrivate("/v5/account/wallet-balance", map[string]string{
		"accountType": "UNIFIED",
	}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("wallet balance: no data")
	}
	row := result.List[0]
	return &WalletBalance{
		TotalEquity:      parseFloat(row.TotalEquity),
		AvailableBalance: parseFloat(row.TotalAvailableBalance),
		UnrealisedPnL:    parseFloat(row.TotalPerpUPL),
	}, nil
}

// GetPositions fetches all open linear positions
func (c *Client) GetPositions() ([]PositionInfo, error) {
	var result struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			AvgPrice      string `json:"avgPrice"`
			MarkPrice     string `json:"markPrice"`
			Leverage      string `json:"leverage"`
			UnrealisedPnl string `json:"unrealisedPnl"`
			StopLoss      string `json:"stopLoss"`
			TakeProfit    string `json:"takeProfit"`
		} `json:"list"`
	}
	err := c.getPrivate("/v5/position/list", map[string]string{
		"category":   "linear",
		"settleCoin": "USDT",
	}, &result)
	if err != nil {
		return nil, err
	}

	positions := make([]PositionInfo, 0, len(result.List))
	for _, p := range result.List {
		size := parseFloat(p.Size)
		if size == 0 {
			continue
		}
		positions = append(positions, PositionInfo{
			Symbol:        p.Symbol,
			Side:          p.Side,
			Size:          size,
			EntryPrice:    parseFloat(p.AvgPrice),
			MarkPrice:     parseFloat(p.MarkPrice),
			Leverage:      parseFloat(p.Leverage),
			UnrealisedPnL: parseFloat(p.UnrealisedPnl),
			StopLoss:      parseFloat(p.StopLoss),
			TakeProfit:    parseFloat(p.TakeProfit),
		})
	}
	return positions, nil
}

// GetClosedPnL fetches realized PnL records since the given time
func (c *Client) GetClosedPnL(since time.Time, limit int) ([]ClosedPnL, error) {
	var result struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Qty           string `json:"qty"`
			AvgEntryPrice string `json:"avgEntryPrice"`
			AvgExitPrice  string `json:"avgExitPrice"`
			ClosedPnl     string `json:"closedPnl"`
			UpdatedTime   string `json:"updatedTime"`
		} `json:"list"`
	}
	err := c.getPrivate("/v5/position/closed-pnl", map[string]string{
		"category":  "linear",
		"startTime": strconv.FormatInt(since.UnixMilli(), 10),
		"limit":     strconv.Itoa(limit),
	}, &result)
	if err != nil {
		return nil, err
	}

	records := make([]ClosedPnL, 0, len(result.List))
	for _, r := range result.List {
		ms, _ := strconv.ParseInt(r.UpdatedTime, 10, 64)
		records = append(records, ClosedPnL{
			Symbol:     r.Symbol,
			Side:       r.Side,
			Qty:        parseFloat(r.Qty),
			EntryPrice: parseFloat(r.AvgEntryPrice),
			ExitPrice:  parseFloat(r.AvgExitPrice),
			PnL:        parseFloat(r.ClosedPnl),
			ClosedAt:   time.UnixMilli(ms).UTC(),
		})
	}
	return records, nil
}

// retCodeLeverageNotModified is the exchange rejecting a no-op change
// to the leverage already in effect
const retCodeLeverageNotModified = 110043

// SetLeverage sets both buy and sell leverage for a symbol. Setting
// the leverage the position already has is not an error; everything
// else propagates so the caller never places a mis-margined order.
func (c *Client) SetLeverage(symbol string, leverage int) error {
	value := strconv.Itoa(leverage)
	err := c.postPrivate("/v5/position/set-leverage", map[string]interface{}{
		"category":     "linear",
		"symbol":       symbol,
		"buyLeverage":  value,
		"sellLeverage": value,
	}, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == retCodeLeverageNotModified {
		log.Printf("[exchange] leverage for %s already x%d", symbol, leverage)
		return nil
	}
	return err
}

// PlaceOrder submits an order
func (c *Client) PlaceOrder(req OrderRequest) (*OrderResult, error) {
	body := map[string]interface{}{
		"category":  "linear",
		"symbol":    req.Symbol,
		"side":      req.Side,
		"orderType": req.OrderType,
		"qty":       formatFloat(req.Qty),
	}
	if req.OrderType == "Limit" && req.Price > 0 {
		body["price"] = formatFloat(req.Price)
	}
	if req.StopLoss > 0 {
		body["stopLoss"] = formatFloat(req.StopLoss)
	}
	if req.TakeProfit > 0 {
		body["takeProfit"] = formatFloat(req.TakeProfit)
	}
	if req.ReduceOnly {
		body["reduceOnly"] = true
	}

	var result struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := c.postPrivate("/v5/order/create", body, &result); err != nil {
		return nil, err
	}
	return &OrderResult{OrderID: result.OrderID, OrderLinkID: result.OrderLinkID}, nil
}

// SetTradingStop updates the stop loss and/or take profit of a position
func (c *Client) SetTradingStop(symbol string, stopLoss, takeProfit float64) error {
	body := map[string]interface{}{
		"category":    "linear",
		"symbol":      symbol,
		"positionIdx": 0,
	}
	if stopLoss > 0 {
		body["stopLoss"] = formatFloat(stopLoss)
	}
	if takeProfit > 0 {
		body["takeProfit"] = formatFloat(takeProfit)
	}
	return c.postPrivate("/v5/position/trading-stop", body, nil)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
