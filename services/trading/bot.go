package trading

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"titan_backend/models"
	"titan_backend/services/analysis"
	"titan_backend/services/analytics"
	"titan_backend/services/features"
	"titan_backend/services/marketdata"
	"titan_backend/services/metrics"
	"titan_backend/services/risk"
	"titan_backend/services/scoring"
	"titan_backend/services/stream"
)

const (
	monitorInterval   = 30 * time.Second
	longScoreHandicap = 5.0 // longs need a slightly stronger score than shorts
	klineLimit        = 200
)

// Deps bundles everything the bot orchestrates
type Deps struct {
	DB        *gorm.DB
	Client    *marketdata.Client
	Selector  *marketdata.SymbolSelector
	Stream    *marketdata.TradeStream
	Executor  *Executor
	Risk      *risk.Manager
	Breaker   *risk.CircuitBreaker
	Trailing  *TrailingManager
	Partials  *PartialTPManager
	Flow      *analysis.OrderflowAnalyzer
	Sentiment *analysis.SentimentService
	News      *analysis.NewsFilter
	Analytics *analytics.Service
	Archive   *features.Archive
	Model     *features.Model
	Hub       *stream.Hub
	Whale     scoring.WhaleTracker

	Timeframe    string
	ScanInterval time.Duration
	PaperBalance float64
}

// Bot runs the scan/entry/manage cycle over the selected symbols
type Bot struct {
	deps Deps
	mode TradeMode

	isRunning bool
	stopChan  chan bool
	mutex     sync.RWMutex

	lastScanAt time.Time
	lastScan   []models.ScanResult
	scanMu     sync.RWMutex
}

// NewBot creates the trading bot
func NewBot(deps Deps, mode TradeMode) *Bot {
	if deps.Whale == nil {
		deps.Whale = scoring.NoopWhaleTracker{}
	}
	deps.Breaker.SetLossStreakLimit(mode.LossStreakLimit)
	return &Bot{
		deps:     deps,
		mode:     mode,
		stopChan: make(chan bool),
	}
}

// Start starts the scan loop
func (bot *Bot) Start() error {
	bot.mutex.Lock()
	defer bot.mutex.Unlock()

	if bot.isRunning {
		return fmt.Errorf("trading bot is already running")
	}

	symbols := bot.deps.Selector.Selected()
	bot.deps.Stream.Start(symbols)

	bot.stopChan = make(chan bool)
	bot.isRunning = true
	go bot.run(bot.stopChan)

	bot.logEvent("INFO", "START", "", fmt.Sprintf("bot started in %s mode over %d symbols", bot.mode.Name, len(symbols)))
	log.Printf("Trading bot started in %s mode", bot.mode.Name)
	return nil
}

// Stop stops the scan loop
func (bot *Bot) Stop() {
	if !bot.signalStop() {
		return
	}
	bot.deps.Stream.Stop()
	bot.logEvent("INFO", "STOP", "", "bot stopped")
	log.Println("Trading bot stopped")
}

// signalStop flips the running flag and releases the run loop. Closing
// the channel never blocks, so a scan cycle in flight can still take
// the lock and drain normally before the loop exits.
func (bot *Bot) signalStop() bool {
	bot.mutex.Lock()
	defer bot.mutex.Unlock()

	if !bot.isRunning {
		return false
	}
	bot.isRunning = false
	close(bot.stopChan)
	return true
}

// IsRunning returns whether the bot is running
func (bot *Bot) IsRunning() bool {
	bot.mutex.RLock()
	defer bot.mutex.RUnlock()
	return bot.isRunning
}

// Mode returns the active trade mode
func (bot *Bot) Mode() TradeMode {
	bot.mutex.RLock()
	defer bot.mutex.RUnlock()
	return bot.mode
}

// SetMode switches the trade mode at runtime
func (bot *Bot) SetMode(name string) error {
	mode, err := GetMode(name)
	if err != nil {
		return err
	}
	bot.mutex.Lock()
	bot.mode = mode
	bot.mutex.Unlock()
	bot.deps.Breaker.SetLossStreakLimit(mode.LossStreakLimit)
	bot.logEvent("INFO", "MODE", "", "trade mode set to "+mode.Name)
	return nil
}

// run is the main loop: scans on the configured interval and manages
// open positions more frequently
func (bot *Bot) run(stop <-chan bool) {
	scanTicker := time.NewTicker(bot.deps.ScanInterval)
	monitorTicker := time.NewTicker(monitorInterval)
	defer scanTicker.Stop()
	defer monitorTicker.Stop()

	// First scan right away rather than waiting a full interval
	bot.ScanCycle()

	for {
		select {
		case <-stop:
			return
		case <-scanTicker.C:
			bot.ScanCycle()
		case <-monitorTicker.C:
			bot.monitorCycle()
		}
	}
}

// ScanCycle evaluates every selected symbol once. Also invoked directly
// by the scan API endpoint.
func (bot *Bot) ScanCycle() []models.ScanResult {
	symbols := bot.deps.Selector.Selected()
	mode := bot.Mode()
	log.Printf("Scanning %d symbols...", len(symbols))

	// Majors are fetched once per cycle for correlation checks
	btc, err := bot.deps.Client.GetKlines("BTCUSDT", bot.deps.Timeframe, klineLimit)
	if err != nil {
		metrics.ExchangeErrors.Inc()
		log.Printf("BTC candles unavailable: %v", err)
	}
	eth, err := bot.deps.Client.GetKlines("ETHUSDT", bot.deps.Timeframe, klineLimit)
	if err != nil {
		metrics.ExchangeErrors.Inc()
	}

	var results []models.ScanResult
	for _, symbol := range symbols {
		result, err := bot.evaluateSymbol(symbol, btc, eth, mode)
		if err != nil {
			// One bad symbol must not stop the cycle
			log.Printf("Scan failed for %s: %v", symbol, err)
			metrics.ExchangeErrors.Inc()
			continue
		}
		results = append(results, *result)
		metrics.SymbolScansTotal.Inc()
	}

	bot.scanMu.Lock()
	bot.lastScan = results
	bot.lastScanAt = time.Now().UTC()
	bot.scanMu.Unlock()

	metrics.ScansTotal.Inc()
	bot.deps.Hub.Broadcast(stream.EventScan, results)
	return results
}

// LastScan returns the cached results from the most recent cycle
func (bot *Bot) LastScan() ([]models.ScanResult, time.Time) {
	bot.scanMu.RLock()
	defer bot.scanMu.RUnlock()
	out := make([]models.ScanResult, len(bot.lastScan))
	copy(out, bot.lastScan)
	return out, bot.lastScanAt
}

// evaluateSymbol runs the full analysis stack on one symbol, records the
// scan result, and enters a position when every gate passes
func (bot *Bot) evaluateSymbol(symbol string, btc, eth []marketdata.Candle, mode TradeMode) (*models.ScanResult, error) {
	now := time.Now().UTC()

	m15, err := bot.deps.Client.GetKlines(symbol, "15", klineLimit)
	if err != nil {
		return nil, fmt.Errorf("m15 candles: %w", err)
	}
	h1, err := bot.deps.Client.GetKlines(symbol, "60", klineLimit)
	if err != nil {
		return nil, fmt.Errorf("h1 candles: %w", err)
	}
	h4, err := bot.deps.Client.GetKlines(symbol, "240", klineLimit)
	if err != nil {
		return nil, fmt.Errorf("h4 candles: %w", err)
	}
	if len(m15) == 0 {
		return nil, fmt.Errorf("no candle data")
	}
	price := m15[len(m15)-1].Close

	book, err := bot.deps.Client.GetOrderbook(symbol, 50)
	if err != nil {
		log.Printf("Orderbook unavailable for %s: %v", symbol, err)
	}
	ticker, err := bot.deps.Client.GetTicker(symbol)
	if err != nil {
		log.Printf("Ticker unavailable for %s: %v", symbol, err)
	}
	oi, _ := bot.deps.Client.GetOpenInterest(symbol, "1h", 24)
	lsRatio, _ := bot.deps.Client.GetLongShortRatio(symbol)

	fundingRate := 0.0
	if ticker != nil {
		fundingRate = ticker.FundingRate
	}

	mtf := analysis.AnalyzeMTF(h4, h1, m15)
	smc := analysis.AnalyzeSMC(m15, mode.MinRR)
	flow := bot.deps.Flow.Analyze(symbol, book,
		bot.deps.Stream.DeltaVolume(symbol),
		bot.deps.Stream.RecentTrades(symbol, 200),
		m15, fundingRate)
	profile := analysis.BuildVolumeProfile(m15)
	oiResult := analysis.AnalyzeOpenInterest(oi, h1, lsRatio)
	regime := analysis.ClassifyRegime(h1)
	correlation := analysis.AnalyzeCorrelation(m15, btc, eth)

	var sentiment *analysis.SentimentResult
	if s, err := bot.deps.Sentiment.Current(); err == nil {
		sentiment = s
	}
	whaleScore, whaleOK := bot.deps.Whale.Score(symbol)

	composite := scoring.Compute(scoring.Inputs{
		MTF:         mtf,
		SMC:         smc,
		Flow:        flow,
		Profile:     profile,
		OI:          oiResult,
		Regime:      regime,
		Sentiment:   sentiment,
		Correlation: correlation,
		WhaleScore:  whaleScore,
		WhaleOK:     whaleOK,
	})
	metrics.CompositeScore.WithLabelValues(symbol).Set(composite.Score)

	vector := features.Extract(m15, now)
	decision := bot.entryDecision(symbol, composite, mtf, correlation, smc, m15, vector, now, mode, price, regime)

	componentsJSON, _ := json.Marshal(composite.Components)
	scan := &models.ScanResult{
		Symbol:     symbol,
		Score:      decimal.NewFromFloat(composite.Score),
		Direction:  composite.Direction,
		Strength:   composite.Strength,
		Confidence: decimal.NewFromFloat(composite.Confidence),
		Components: string(componentsJSON),
		Decision:   decision,
		Price:      decimal.NewFromFloat(price),
		CreatedAt:  now,
	}
	if err := bot.deps.DB.Create(scan).Error; err != nil {
		log.Printf("Error saving scan result: %v", err)
	}

	bot.deps.Archive.SaveScan(features.ScanDocument{
		Symbol:    symbol,
		Score:     composite.Score,
		Direction: composite.Direction,
		Components: map[string]float64{
			"mtf":            composite.Components.MTF,
			"smc":            composite.Components.SMC,
			"orderflow":      composite.Components.Orderflow,
			"volume_profile": composite.Components.VolumeProfile,
			"open_interest":  composite.Components.OpenInterest,
			"regime":         composite.Components.Regime,
			"whale":          composite.Components.Whale,
			"fear_greed":     composite.Components.FearGreed,
			"correlation":    composite.Components.Correlation,
		},
		Features: vector,
	})
	return scan, nil
}

// entryDecision applies every gate in order and opens the position when
// all of them pass. Returns the decision string recorded with the scan.
func (bot *Bot) entryDecision(symbol string, composite *scoring.Result, mtf *analysis.MTFResult, correlation *analysis.CorrelationResult, smc *analysis.SMCResult, candles []marketdata.Candle, vector *features.Vector, now time.Time, mode TradeMode, price float64, regime *analysis.RegimeResult) string {
	// Breaker state is checked before anything else so a halted bot
	// rejects entries without walking the rest of the gates
	if allowed, reason := bot.deps.Breaker.Allow(symbol, now); !allowed {
		metrics.EntryRejectsTotal.WithLabelValues("breaker").Inc()
		return "SKIPPED: " + reason
	}

	if composite.Direction == scoring.DirectionNeutral {
		return "SKIPPED: no direction"
	}

	required := mode.MinScore
	if composite.Direction == scoring.DirectionLong {
		required += longScoreHandicap
	}
	if math.Abs(composite.Score) < required {
		metrics.EntryRejectsTotal.WithLabelValues("score").Inc()
		return fmt.Sprintf("SKIPPED: score below %s threshold", mode.Name)
	}

	if mode.MTFStrict {
		if composite.Direction == scoring.DirectionLong && mtf.Permission != analysis.PermitLong && mtf.Permission != analysis.PermitBoth {
			metrics.EntryRejectsTotal.WithLabelValues("mtf").Inc()
			return "SKIPPED: timeframes not aligned for long"
		}
		if composite.Direction == scoring.DirectionShort && mtf.Permission != analysis.PermitShort && mtf.Permission != analysis.PermitBoth {
			metrics.EntryRejectsTotal.WithLabelValues("mtf").Inc()
			return "SKIPPED: timeframes not aligned for short"
		}
	}

	if mode.CorrelationFilter && correlation != nil && !correlation.SafeToTrade {
		metrics.EntryRejectsTotal.WithLabelValues("correlation").Inc()
		return "SKIPPED: correlated with a major in motion"
	}

	if mode.SessionFilter && !analysis.SessionAllowed(now, mode.MinSessionQuality) {
		metrics.EntryRejectsTotal.WithLabelValues("session").Inc()
		return "SKIPPED: session quality too low"
	}

	if mode.NewsFilter {
		if event := bot.deps.News.Blocking(now); event != nil {
			metrics.EntryRejectsTotal.WithLabelValues("news").Inc()
			return "SKIPPED: news window (" + event.Name + ")"
		}
	}

	var openCount int64
	bot.deps.DB.Model(&models.Trade{}).Where("status = ?", "OPEN").Count(&openCount)
	if int(openCount) >= mode.MaxPositions {
		metrics.EntryRejectsTotal.WithLabelValues("max_positions").Inc()
		return "SKIPPED: max positions reached"
	}
	var symbolOpen int64
	bot.deps.DB.Model(&models.Trade{}).Where("status = ? AND symbol = ?", "OPEN", symbol).Count(&symbolOpen)
	if symbolOpen > 0 {
		return "SKIPPED: position already open"
	}

	if err := bot.enterTrade(symbol, composite, smc, candles, vector, now, mode, price, regime); err != nil {
		log.Printf("Entry failed for %s: %v", symbol, err)
		metrics.EntryRejectsTotal.WithLabelValues("execution").Inc()
		return "SKIPPED: " + err.Error()
	}
	return "ENTERED " + composite.Direction
}

// enterTrade sizes and places the order, persists the journal entry and
// registers the position with the exit managers
func (bot *Bot) enterTrade(symbol string, composite *scoring.Result, smc *analysis.SMCResult, candles []marketdata.Candle, vector *features.Vector, now time.Time, mode TradeMode, price float64, regime *analysis.RegimeResult) error {
	side := composite.Direction
	atr := analysis.ATR(candles, 14)
	if atr == 0 {
		return fmt.Errorf("no ATR")
	}

	// Prefer the structure-derived plan when it matches the direction
	signalType := "COMPOSITE"
	stopLoss := risk.DynamicStop(price, atr, side)
	takeProfit := risk.TakeProfitFor(price, stopLoss, mode.MinRR, side)
	if smc != nil && smc.Best != nil && smc.Best.Direction == side &&
		risk.ValidateStops(price, smc.Best.StopLoss, smc.Best.TakeProfit, side) {
		signalType = smc.Best.Type
		stopLoss = smc.Best.StopLoss
		takeProfit = smc.Best.TakeProfit
	}

	balance, err := bot.Balance()
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}

	rules, err := bot.deps.Client.GetInstrumentRules(symbol)
	if err != nil {
		return fmt.Errorf("instrument rules: %w", err)
	}

	riskPct := bot.deps.Risk.EffectiveRiskPct(mode.RiskPct, bot.deps.Analytics.JournalStats())
	regimeMod := 1.0
	if regime != nil {
		regimeMod = regime.SizeMultiplier
	}
	sizing := bot.deps.Risk.SizePosition(risk.SizingRequest{
		Balance:        balance,
		RiskPct:        riskPct,
		Entry:          price,
		StopLoss:       stopLoss,
		ScoreModifier:  composite.SizeModifier,
		RegimeModifier: regimeMod,
		QtyStep:        rules.QtyStep,
	})
	if !sizing.OK {
		return fmt.Errorf("sizing rejected: %s", sizing.Reason)
	}

	if err := bot.deps.Executor.OpenPosition(symbol, side, sizing.Qty, stopLoss, takeProfit, sizing.Leverage); err != nil {
		return err
	}

	scoreJSON, _ := json.Marshal(composite.Components)
	featuresJSON := "{}"
	if vector != nil {
		if data, err := json.Marshal(vector); err == nil {
			featuresJSON = string(data)
		}
	}

	trade := models.Trade{
		ID:           fmt.Sprintf("%s-%d", symbol, now.UnixNano()),
		Symbol:       symbol,
		Side:         side,
		Qty:          decimal.NewFromFloat(sizing.Qty),
		RemainingQty: decimal.NewFromFloat(sizing.Qty),
		EntryPrice:   decimal.NewFromFloat(price),
		StopLoss:     decimal.NewFromFloat(stopLoss),
		TakeProfit:   decimal.NewFromFloat(takeProfit),
		Leverage:     sizing.Leverage,
		Status:       "OPEN",
		Mode:         mode.Name,
		Session:      analysis.CurrentSession(now).Name,
		SignalType:   signalType,
		ScoreTotal:   decimal.NewFromFloat(composite.Score),
		ScoreDetails: string(scoreJSON),
		Features:     featuresJSON,
		OpenedAt:     now,
	}
	if err := bot.deps.DB.Create(&trade).Error; err != nil {
		return fmt.Errorf("persist trade: %w", err)
	}

	bot.deps.Breaker.MarkEntry(symbol, now)
	bot.deps.Trailing.Register(symbol, side, price, stopLoss, atr)
	bot.deps.Partials.Register(symbol, side, price, stopLoss, sizing.Qty, rules.QtyStep, nil)
	bot.deps.Archive.SaveTradeFeatures(features.TradeFeatureDocument{
		TradeID:  trade.ID,
		Symbol:   symbol,
		Side:     side,
		Features: vector,
		Score:    composite.Score,
	})

	metrics.EntriesTotal.WithLabelValues(side).Inc()
	bot.logEvent("INFO", "ENTRY", symbol,
		fmt.Sprintf("%s %s qty=%v entry=%v sl=%v tp=%v score=%.1f signal=%s",
			side, symbol, sizing.Qty, price, stopLoss, takeProfit, composite.Score, signalType))
	bot.deps.Hub.Broadcast(stream.EventTrade, trade)
	return nil
}

// monitorCycle manages open positions: trailing stops, partial
// take-profits, simulated exits in dry-run and exchange sync otherwise
func (bot *Bot) monitorCycle() {
	var open []models.Trade
	if err := bot.deps.DB.Where("status = ?", "OPEN").Find(&open).Error; err != nil {
		log.Printf("Error loading open trades: %v", err)
		return
	}
	if len(open) == 0 {
		metrics.OpenPositions.Set(0)
		return
	}
	metrics.OpenPositions.Set(float64(len(open)))

	var livePositions map[string]marketdata.PositionInfo
	if !bot.deps.Executor.DryRun() && bot.deps.Client.HasCredentials() {
		if positions, err := bot.deps.Client.GetPositions(); err == nil {
			livePositions = make(map[string]marketdata.PositionInfo, len(positions))
			for _, p := range positions {
				livePositions[p.Symbol] = p
			}
		} else {
			metrics.ExchangeErrors.Inc()
		}
	}

	for i := range open {
		trade := &open[i]
		ticker, err := bot.deps.Client.GetTicker(trade.Symbol)
		if err != nil {
			metrics.ExchangeErrors.Inc()
			continue
		}
		price := ticker.LastPrice

		// Exchange closed the position (stop, target or liquidation)
		if livePositions != nil {
			if _, ok := livePositions[trade.Symbol]; !ok {
				bot.syncClosedTrade(trade)
				continue
			}
		}

		if bot.deps.Executor.DryRun() && bot.simulateExit(trade, price) {
			continue
		}

		// Partial take-profits before the trailing stop so the stop
		// protects the reduced position
		for _, fill := range bot.deps.Partials.Check(trade.Symbol, price) {
			if err := bot.deps.Executor.ClosePartial(trade.Symbol, trade.Side, fill.Qty); err != nil {
				log.Printf("Partial close failed for %s: %v", trade.Symbol, err)
				continue
			}
			bot.applyPartialFill(trade, fill, price)
		}

		if newStop, moved := bot.deps.Trailing.Update(trade.Symbol, price); moved {
			if err := bot.deps.Executor.UpdateStopLoss(trade.Symbol, newStop); err != nil {
				log.Printf("Stop update failed for %s: %v", trade.Symbol, err)
				continue
			}
			trade.StopLoss = decimal.NewFromFloat(newStop)
			bot.deps.DB.Model(trade).Update("stop_loss", trade.StopLoss)
		}
	}
}

// simulateExit checks stop and target against the latest price in
// dry-run mode. The stop is checked first, mirroring worst-case fills.
func (bot *Bot) simulateExit(trade *models.Trade, price float64) bool {
	stop, _ := trade.StopLoss.Float64()
	target, _ := trade.TakeProfit.Float64()

	if trade.Side == "LONG" {
		if price <= stop {
			bot.closeTrade(trade, stop, "SL")
			return true
		}
		if price >= target {
			bot.closeTrade(trade, target, "TP")
			return true
		}
	} else {
		if price >= stop {
			bot.closeTrade(trade, stop, "SL")
			return true
		}
		if price <= target {
			bot.closeTrade(trade, target, "TP")
			return true
		}
	}
	return false
}

// applyPartialFill books the realized slice of a partial take-profit
func (bot *Bot) applyPartialFill(trade *models.Trade, fill PartialFill, price float64) {
	entry, _ := trade.EntryPrice.Float64()
	var pnl float64
	if trade.Side == "LONG" {
		pnl = (price - entry) * fill.Qty
	} else {
		pnl = (entry - price) * fill.Qty
	}

	trade.PnL = trade.PnL.Add(decimal.NewFromFloat(pnl))
	trade.RemainingQty = decimal.NewFromFloat(bot.deps.Partials.Remaining(trade.Symbol))
	bot.deps.DB.Model(trade).Updates(map[string]interface{}{
		"pnl":           trade.PnL,
		"remaining_qty": trade.RemainingQty,
	})

	bot.logEvent("INFO", "PARTIAL_TP", trade.Symbol,
		fmt.Sprintf("closed %v at +%.0fR, pnl %+.2f", fill.Qty, fill.RMultiple, pnl))

	if trade.RemainingQty.IsZero() {
		bot.finalizeClose(trade, price, "PARTIAL")
	}
}

// closeTrade books the remaining quantity at the given exit price
func (bot *Bot) closeTrade(trade *models.Trade, exitPrice float64, reason string) {
	entry, _ := trade.EntryPrice.Float64()
	remaining, _ := trade.RemainingQty.Float64()

	var pnl float64
	if trade.Side == "LONG" {
		pnl = (exitPrice - entry) * remaining
	} else {
		pnl = (entry - exitPrice) * remaining
	}
	trade.PnL = trade.PnL.Add(decimal.NewFromFloat(pnl))
	bot.finalizeClose(trade, exitPrice, reason)
}

// syncClosedTrade reconciles a trade the exchange already closed
func (bot *Bot) syncClosedTrade(trade *models.Trade) {
	records, err := bot.deps.Client.GetClosedPnL(trade.OpenedAt, 50)
	if err != nil {
		metrics.ExchangeErrors.Inc()
		log.Printf("Closed PnL lookup failed for %s: %v", trade.Symbol, err)
		return
	}

	exitPrice, _ := trade.EntryPrice.Float64()
	pnl := 0.0
	found := false
	for _, r := range records {
		if r.Symbol == trade.Symbol {
			pnl += r.PnL
			exitPrice = r.ExitPrice
			found = true
		}
	}
	if !found {
		return
	}

	trade.PnL = decimal.NewFromFloat(pnl)
	bot.finalizeClose(trade, exitPrice, "SYNC")
}

// finalizeClose persists the exit, feeds the breaker and frees the
// exit managers
func (bot *Bot) finalizeClose(trade *models.Trade, exitPrice float64, reason string) {
	now := time.Now().UTC()
	entry, _ := trade.EntryPrice.Float64()
	stop, _ := trade.StopLoss.Float64()
	qty, _ := trade.Qty.Float64()
	pnl, _ := trade.PnL.Float64()

	trade.Status = "CLOSED"
	trade.ExitPrice = decimal.NewFromFloat(exitPrice)
	trade.ExitReason = reason
	trade.ClosedAt = &now
	trade.RemainingQty = decimal.Zero

	notional := entry * qty
	if notional > 0 {
		trade.PnLPercent = decimal.NewFromFloat(pnl / notional * 100)
	}
	riskAmount := math.Abs(entry-stop) * qty
	if riskAmount > 0 {
		trade.RMultiple = decimal.NewFromFloat(pnl / riskAmount)
	}

	if err := bot.deps.DB.Save(trade).Error; err != nil {
		log.Printf("Error closing trade %s: %v", trade.ID, err)
	}

	bot.deps.Breaker.RecordTrade(trade.Symbol, pnl, now)
	bot.deps.Trailing.Release(trade.Symbol)
	bot.deps.Partials.Release(trade.Symbol)

	rMultiple, _ := trade.RMultiple.Float64()
	bot.deps.Archive.MarkTradeOutcome(trade.ID, pnl, rMultiple)

	metrics.ExitsTotal.WithLabelValues(reason).Inc()
	metrics.DayPnL.Set(bot.deps.Breaker.Status().DayPnL)
	bot.logEvent("INFO", "EXIT", trade.Symbol,
		fmt.Sprintf("%s closed via %s at %v, pnl %+.2f", trade.Symbol, reason, exitPrice, pnl))
	bot.deps.Hub.Broadcast(stream.EventTrade, trade)
}

// Balance returns account equity: the exchange wallet when credentials
// exist, otherwise the paper balance adjusted by realized PnL
func (bot *Bot) Balance() (float64, error) {
	if bot.deps.Client.HasCredentials() && !bot.deps.Executor.DryRun() {
		wallet, err := bot.deps.Client.GetWalletBalance()
		if err != nil {
			return 0, err
		}
		metrics.Equity.Set(wallet.TotalEquity)
		return wallet.TotalEquity, nil
	}

	var result struct{ Total float64 }
	bot.deps.DB.Model(&models.Trade{}).
		Select("COALESCE(SUM(pnl), 0) as total").
		Where("status = ?", "CLOSED").
		Scan(&result)
	equity := bot.deps.PaperBalance + result.Total
	metrics.Equity.Set(equity)
	return equity, nil
}

// OpenTrades returns the open journal rows
func (bot *Bot) OpenTrades() []models.Trade {
	var open []models.Trade
	bot.deps.DB.Where("status = ?", "OPEN").Order("opened_at asc").Find(&open)
	return open
}

// DailyReset snapshots the balance into the circuit breaker at the UTC
// date change; wired to the scheduler
func (bot *Bot) DailyReset() {
	balance, err := bot.Balance()
	if err != nil {
		log.Printf("Daily reset balance fetch failed: %v", err)
		return
	}
	bot.deps.Breaker.ResetDaily(balance, time.Now().UTC())
	bot.logEvent("INFO", "DAILY_RESET", "", fmt.Sprintf("day start balance %.2f", balance))
}

// SnapshotEquity stores an equity curve point; wired to the scheduler
func (bot *Bot) SnapshotEquity() {
	balance, err := bot.Balance()
	if err != nil {
		log.Printf("Equity snapshot failed: %v", err)
		return
	}
	status := bot.deps.Breaker.Status()

	var openCount int64
	bot.deps.DB.Model(&models.Trade{}).Where("status = ?", "OPEN").Count(&openCount)

	snap := models.EquitySnapshot{
		Equity:    decimal.NewFromFloat(balance),
		Available: decimal.NewFromFloat(balance),
		DayPnL:    decimal.NewFromFloat(status.DayPnL),
		OpenCount: int(openCount),
		CreatedAt: time.Now().UTC(),
	}
	if err := bot.deps.DB.Create(&snap).Error; err != nil {
		log.Printf("Error saving equity snapshot: %v", err)
		return
	}
	bot.deps.Hub.Broadcast(stream.EventEquity, snap)
}

// logEvent writes an audit row; failures only log
func (bot *Bot) logEvent(level, kind, symbol, message string) {
	event := models.BotEvent{
		Level:     level,
		Kind:      kind,
		Symbol:    symbol,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := bot.deps.DB.Create(&event).Error; err != nil {
		log.Printf("Error saving bot event: %v", err)
	}
}
