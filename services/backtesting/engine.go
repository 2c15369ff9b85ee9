package backtesting

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"titan_backend/models"
	"titan_backend/services/analysis"
	"titan_backend/services/marketdata"
	"titan_backend/services/marketstore"
)

const warmupCandles = 60

// Engine replays historical candles against a strategy
type Engine struct {
	db     *gorm.DB
	store  *marketstore.Store
	client *marketdata.Client
}

// NewEngine creates a backtest engine. The store is the candle cache;
// missing ranges are fetched from the exchange and cached.
func NewEngine(db *gorm.DB, store *marketstore.Store, client *marketdata.Client) *Engine {
	return &Engine{db: db, store: store, client: client}
}

// Config holds backtest parameters
type Config struct {
	Name           string
	Symbol         string
	Timeframe      string // 15, 60, 240
	Strategy       string // ema_crossover, rsi_reversal, composite
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	Commission     float64 // taker rate per side, e.g. 0.00055
	RiskPct        float64 // percent of equity risked per trade
	MinRR          float64
}

// position is an open simulated position
type position struct {
	side       string
	qty        float64
	entryPrice float64
	stopLoss   float64
	takeProfit float64
	entryTime  time.Time
	signal     string
}

// state accumulates the simulation
type state struct {
	equity      float64
	maxEquity   float64
	maxDrawdown float64
	pos         *position
	closed      []models.BacktestTrade
	curve       []curvePoint
}

type curvePoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// candlesPerYear approximates annualization factors per timeframe
var candlesPerYear = map[string]float64{
	"15":  35040,
	"60":  8760,
	"240": 2190,
}

// Run executes a backtest and persists the result with its trades
func (e *Engine) Run(config *Config) (*models.Backtest, error) {
	if config.MinRR <= 0 {
		config.MinRR = 2.0
	}
	if config.RiskPct <= 0 {
		config.RiskPct = 1.0
	}

	candles, err := e.loadCandles(config)
	if err != nil {
		return nil, err
	}
	if len(candles) < warmupCandles+10 {
		return nil, fmt.Errorf("not enough candles for %s %s: have %d", config.Symbol, config.Timeframe, len(candles))
	}

	backtest := &models.Backtest{
		Name:           config.Name,
		Symbol:         config.Symbol,
		Timeframe:      config.Timeframe,
		Strategy:       config.Strategy,
		StartDate:      config.StartDate,
		EndDate:        config.EndDate,
		InitialCapital: decimal.NewFromFloat(config.InitialCapital),
	}
	if err := e.db.Create(backtest).Error; err != nil {
		return nil, fmt.Errorf("failed to create backtest: %w", err)
	}

	st := &state{
		equity:    config.InitialCapital,
		maxEquity: config.InitialCapital,
	}

	for i := warmupCandles; i < len(candles); i++ {
		candle := candles[i]

		if st.pos != nil {
			e.manageOpen(backtest.ID, st, candle, config)
		}

		if st.pos == nil {
			signal, direction := generateSignal(config.Strategy, candles[:i+1])
			if direction != "" {
				e.openPosition(st, candles[:i+1], candle, direction, signal, config)
			}
		}

		st.curve = append(st.curve, curvePoint{Time: candle.Start, Equity: st.equity})
		if st.equity > st.maxEquity {
			st.maxEquity = st.equity
		}
		if st.maxEquity > 0 {
			drawdown := (st.maxEquity - st.equity) / st.maxEquity
			if drawdown > st.maxDrawdown {
				st.maxDrawdown = drawdown
			}
		}
	}

	// Force-close anything still open at the last candle
	if st.pos != nil {
		last := candles[len(candles)-1]
		e.closePosition(backtest.ID, st, last.Close, last.Start, "END", config)
	}

	e.calculateMetrics(backtest, st, config)

	curveJSON, _ := json.Marshal(st.curve)
	backtest.Results = string(curveJSON)
	completedAt := time.Now().UTC()
	backtest.CompletedAt = &completedAt

	if err := e.db.Save(backtest).Error; err != nil {
		return nil, fmt.Errorf("failed to save backtest results: %w", err)
	}
	return backtest, nil
}

// loadCandles reads the cached range and falls back to the exchange when
// the cache is cold
func (e *Engine) loadCandles(config *Config) ([]marketdata.Candle, error) {
	if e.store != nil {
		candles, err := e.store.LoadCandles(config.Symbol, config.Timeframe, config.StartDate, config.EndDate)
		if err == nil && len(candles) >= warmupCandles+10 {
			return candles, nil
		}
	}

	candles, err := e.client.GetKlines(config.Symbol, config.Timeframe, 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to load candles: %w", err)
	}
	if e.store != nil {
		e.store.SaveCandles(config.Symbol, config.Timeframe, candles)
	}

	var inRange []marketdata.Candle
	for _, c := range candles {
		if !c.Start.Before(config.StartDate) && !c.Start.After(config.EndDate) {
			inRange = append(inRange, c)
		}
	}
	if len(inRange) >= warmupCandles+10 {
		return inRange, nil
	}
	return candles, nil
}

// generateSignal evaluates the strategy on the candles seen so far.
// Returns the signal label and the direction, or "" to stay flat.
func generateSignal(strategy string, candles []marketdata.Candle) (string, string) {
	switch strategy {
	case "ema_crossover":
		return emaCrossoverSignal(candles)
	case "rsi_reversal":
		return rsiReversalSignal(candles)
	case "composite":
		return compositeSignal(candles)
	default:
		return "", ""
	}
}

// emaCrossoverSignal goes long when EMA20 crosses above EMA50 and short
// on the opposite cross
func emaCrossoverSignal(candles []marketdata.Candle) (string, string) {
	closes := marketdata.Closes(candles)
	if len(closes) < 51 {
		return "", ""
	}

	fast := analysis.EMA(closes, 20)
	slow := analysis.EMA(closes, 50)
	prevFast := analysis.EMA(closes[:len(closes)-1], 20)
	prevSlow := analysis.EMA(closes[:len(closes)-1], 50)

	if prevFast <= prevSlow && fast > slow {
		return "EMA_CROSS_UP", "LONG"
	}
	if prevFast >= prevSlow && fast < slow {
		return "EMA_CROSS_DOWN", "SHORT"
	}
	return "", ""
}

// rsiReversalSignal fades RSI extremes
func rsiReversalSignal(candles []marketdata.Candle) (string, string) {
	closes := marketdata.Closes(candles)
	rsi := analysis.RSI(closes, 14)

	if rsi < 30 {
		return "RSI_OVERSOLD", "LONG"
	}
	if rsi > 70 {
		return "RSI_OVERBOUGHT", "SHORT"
	}
	return "", ""
}

// compositeSignal is a lightweight confluence check: trend, momentum and
// structure must agree
func compositeSignal(candles []marketdata.Candle) (string, string) {
	closes := marketdata.Closes(candles)
	if len(closes) < 51 {
		return "", ""
	}

	fast := analysis.EMA(closes, 20)
	slow := analysis.EMA(closes, 50)
	rsi := analysis.RSI(closes, 14)
	price := closes[len(closes)-1]
	adx := analysis.ADX(candles, 14)

	if adx < 20 {
		return "", ""
	}
	if fast > slow && price > fast && rsi > 50 && rsi < 70 {
		return "COMPOSITE_LONG", "LONG"
	}
	if fast < slow && price < fast && rsi < 50 && rsi > 30 {
		return "COMPOSITE_SHORT", "SHORT"
	}
	return "", ""
}

// openPosition sizes by risk and opens at the candle close
func (e *Engine) openPosition(st *state, history []marketdata.Candle, candle marketdata.Candle, direction, signal string, config *Config) {
	atr := analysis.ATR(history, 14)
	if atr <= 0 {
		return
	}

	entry := candle.Close
	stopDistance := atr * 1.5
	var stopLoss, takeProfit float64
	if direction == "LONG" {
		stopLoss = entry - stopDistance
		takeProfit = entry + stopDistance*config.MinRR
	} else {
		stopLoss = entry + stopDistance
		takeProfit = entry - stopDistance*config.MinRR
	}

	riskAmount := st.equity * config.RiskPct / 100
	qty := riskAmount / stopDistance
	if qty <= 0 {
		return
	}

	// Entry commission comes straight out of equity
	st.equity -= entry * qty * config.Commission
	st.pos = &position{
		side:       direction,
		qty:        qty,
		entryPrice: entry,
		stopLoss:   stopLoss,
		takeProfit: takeProfit,
		entryTime:  candle.Start,
		signal:     signal,
	}
}

// manageOpen checks the candle range against the stop and target. When
// both are inside the range the stop fills first.
func (e *Engine) manageOpen(backtestID uint, st *state, candle marketdata.Candle, config *Config) {
	pos := st.pos
	if pos.side == "LONG" {
		if candle.Low <= pos.stopLoss {
			e.closePosition(backtestID, st, pos.stopLoss, candle.Start, "SL", config)
			return
		}
		if candle.High >= pos.takeProfit {
			e.closePosition(backtestID, st, pos.takeProfit, candle.Start, "TP", config)
			return
		}
	} else {
		if candle.High >= pos.stopLoss {
			e.closePosition(backtestID, st, pos.stopLoss, candle.Start, "SL", config)
			return
		}
		if candle.Low <= pos.takeProfit {
			e.closePosition(backtestID, st, pos.takeProfit, candle.Start, "TP", config)
			return
		}
	}
}

// closePosition books the exit and records the trade
func (e *Engine) closePosition(backtestID uint, st *state, exitPrice float64, exitTime time.Time, reason string, config *Config) {
	pos := st.pos
	var pnl float64
	if pos.side == "LONG" {
		pnl = (exitPrice - pos.entryPrice) * pos.qty
	} else {
		pnl = (pos.entryPrice - exitPrice) * pos.qty
	}
	commission := exitPrice * pos.qty * config.Commission
	pnl -= commission
	st.equity += pnl
	st.pos = nil

	trade := models.BacktestTrade{
		BacktestID: backtestID,
		Symbol:     config.Symbol,
		Side:       pos.side,
		EntryTime:  pos.entryTime,
		ExitTime:   exitTime,
		Qty:        decimal.NewFromFloat(pos.qty),
		EntryPrice: decimal.NewFromFloat(pos.entryPrice),
		ExitPrice:  decimal.NewFromFloat(exitPrice),
		Commission: decimal.NewFromFloat(commission),
		PnL:        decimal.NewFromFloat(pnl),
		Signal:     pos.signal,
		ExitReason: reason,
	}
	e.db.Create(&trade)
	st.closed = append(st.closed, trade)
}

// calculateMetrics fills the summary statistics on the backtest row
func (e *Engine) calculateMetrics(backtest *models.Backtest, st *state, config *Config) {
	backtest.FinalCapital = decimal.NewFromFloat(st.equity)

	totalReturn := 0.0
	if config.InitialCapital > 0 {
		totalReturn = (st.equity - config.InitialCapital) / config.InitialCapital
	}
	backtest.TotalReturn = decimal.NewFromFloat(totalReturn)
	backtest.MaxDrawdown = decimal.NewFromFloat(st.maxDrawdown)

	backtest.TotalTrades = len(st.closed)
	winning := 0
	losing := 0
	totalWin := 0.0
	totalLoss := 0.0
	for _, trade := range st.closed {
		pnl, _ := trade.PnL.Float64()
		if pnl > 0 {
			winning++
			totalWin += pnl
		} else {
			losing++
			totalLoss += math.Abs(pnl)
		}
	}
	backtest.WinningTrades = winning
	backtest.LosingTrades = losing

	if backtest.TotalTrades > 0 {
		backtest.WinRate = decimal.NewFromFloat(float64(winning) / float64(backtest.TotalTrades))
	}
	if winning > 0 {
		backtest.AvgWin = decimal.NewFromFloat(totalWin / float64(winning))
	}
	if losing > 0 {
		backtest.AvgLoss = decimal.NewFromFloat(totalLoss / float64(losing))
	}
	if totalLoss > 0 {
		backtest.ProfitFactor = decimal.NewFromFloat(totalWin / totalLoss)
	}

	backtest.SharpeRatio = decimal.NewFromFloat(sharpeRatio(st.curve, config.Timeframe))
}

// sharpeRatio annualizes the per-candle equity returns. Zero when the
// curve is too short or flat.
func sharpeRatio(curve []curvePoint, timeframe string) float64 {
	if len(curve) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Equity > 0 {
			returns = append(returns, curve[i].Equity/curve[i-1].Equity-1)
		}
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}

	periods, ok := candlesPerYear[timeframe]
	if !ok {
		periods = 8760
	}
	return mean / math.Sqrt(variance) * math.Sqrt(periods)
}
