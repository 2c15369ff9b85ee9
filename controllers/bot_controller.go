package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"titan_backend/models"
	"titan_backend/services/marketdata"
	"titan_backend/services/risk"
	"titan_backend/services/trading"
)

// BotController exposes bot lifecycle and live state
type BotController struct {
	db       *gorm.DB
	bot      *trading.Bot
	breaker  *risk.CircuitBreaker
	selector *marketdata.SymbolSelector
	client   *marketdata.Client
}

// NewBotController creates a new bot controller
func NewBotController(db *gorm.DB, bot *trading.Bot, breaker *risk.CircuitBreaker, selector *marketdata.SymbolSelector, client *marketdata.Client) *BotController {
	return &BotController{
		db:       db,
		bot:      bot,
		breaker:  breaker,
		selector: selector,
		client:   client,
	}
}

// Start starts the trading bot
// POST /api/start
func (bc *BotController) Start(c *gin.Context) {
	if err := bc.bot.Start(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bot started"})
}

// Stop stops the trading bot
// POST /api/stop
func (bc *BotController) Stop(c *gin.Context) {
	bc.bot.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "Bot stopped"})
}

// Status returns the bot's live state
// GET /api/status
func (bc *BotController) Status(c *gin.Context) {
	breakerStatus := bc.breaker.Status()
	_, lastScanAt := bc.bot.LastScan()

	open := bc.bot.OpenTrades()
	positions := make([]gin.H, 0, len(open))
	for _, trade := range open {
		entry, _ := trade.EntryPrice.Float64()
		qty, _ := trade.RemainingQty.Float64()
		pos := gin.H{
			"id":          trade.ID,
			"symbol":      trade.Symbol,
			"side":        trade.Side,
			"qty":         trade.RemainingQty,
			"entry_price": trade.EntryPrice,
			"stop_loss":   trade.StopLoss,
			"take_profit": trade.TakeProfit,
			"signal_type": trade.SignalType,
			"opened_at":   trade.OpenedAt,
		}
		if ticker, err := bc.client.GetTicker(trade.Symbol); err == nil {
			unrealized := (ticker.LastPrice - entry) * qty
			if trade.Side == "SHORT" {
				unrealized = (entry - ticker.LastPrice) * qty
			}
			pos["mark_price"] = ticker.LastPrice
			pos["unrealised_pnl"] = unrealized
		}
		positions = append(positions, pos)
	}

	c.JSON(http.StatusOK, gin.H{
		"is_running":   bc.bot.IsRunning(),
		"mode":         bc.bot.Mode().Name,
		"symbols":      bc.selector.Selected(),
		"last_scan_at": lastScanAt,
		"positions":    positions,
		"breaker":      breakerStatus,
	})
}

// Balance returns current account equity
// GET /api/balance
func (bc *BotController) Balance(c *gin.Context) {
	balance, err := bc.bot.Balance()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"equity":    balance,
		"day_pnl":   bc.breaker.Status().DayPnL,
		"timestamp": time.Now().UTC(),
	})
}

// Scan triggers an immediate scan cycle and returns the results
// POST /api/scan
func (bc *BotController) Scan(c *gin.Context) {
	results := bc.bot.ScanCycle()
	c.JSON(http.StatusOK, gin.H{"data": results})
}

// LastScan returns the cached results of the most recent cycle
// GET /api/scan
func (bc *BotController) LastScan(c *gin.Context) {
	results, at := bc.bot.LastScan()
	c.JSON(http.StatusOK, gin.H{
		"data":       results,
		"scanned_at": at,
	})
}

// Halt trips the circuit breaker manually
// POST /api/halt
func (bc *BotController) Halt(c *gin.Context) {
	bc.breaker.Halt()
	bc.logEvent("WARN", "CIRCUIT_BREAKER", "manual halt")
	c.JSON(http.StatusOK, gin.H{"message": "Trading halted"})
}

// Resume clears a manual halt
// POST /api/resume
func (bc *BotController) Resume(c *gin.Context) {
	bc.breaker.Resume()
	bc.logEvent("INFO", "CIRCUIT_BREAKER", "manual resume")
	c.JSON(http.StatusOK, gin.H{"message": "Trading resumed"})
}

func (bc *BotController) logEvent(level, kind, message string) {
	bc.db.Create(&models.BotEvent{
		Level:     level,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
}
