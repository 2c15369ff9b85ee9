package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade represents a position opened by the bot, from entry to close
type Trade struct {
	ID           string          `gorm:"primaryKey;size:64" json:"id"`
	Symbol       string          `gorm:"index" json:"symbol"`
	Side         string          `json:"side"` // LONG, SHORT
	Qty          decimal.Decimal `gorm:"type:decimal(20,8)" json:"qty"`
	RemainingQty decimal.Decimal `gorm:"type:decimal(20,8)" json:"remaining_qty"`
	EntryPrice   decimal.Decimal `gorm:"type:decimal(20,8)" json:"entry_price"`
	ExitPrice    decimal.Decimal `gorm:"type:decimal(20,8)" json:"exit_price"`
	StopLoss     decimal.Decimal `gorm:"type:decimal(20,8)" json:"stop_loss"`
	TakeProfit   decimal.Decimal `gorm:"type:decimal(20,8)" json:"take_profit"`
	Leverage     int             `json:"leverage"`
	Status       string          `gorm:"index" json:"status"` // OPEN, CLOSED
	PnL          decimal.Decimal `gorm:"type:decimal(20,8)" json:"pnl"`
	PnLPercent   decimal.Decimal `gorm:"type:decimal(10,4)" json:"pnl_percent"`
	RMultiple    decimal.Decimal `gorm:"type:decimal(10,4)" json:"r_multiple"`
	Mode         string          `json:"mode"`        // trade mode active at entry
	Session      string          `json:"session"`     // market session at entry
	SignalType   string          `json:"signal_type"` // SFP, FVG, ORDER_BLOCK, COMPOSITE
	ScoreTotal   decimal.Decimal `gorm:"type:decimal(10,4)" json:"score_total"`
	ScoreDetails string          `gorm:"type:jsonb" json:"score_details"` // per-component breakdown
	Features     string          `gorm:"type:jsonb" json:"features"`      // ML feature vector at entry
	ExitReason   string          `json:"exit_reason"`                     // SL, TP, TRAILING, PARTIAL, MANUAL, SYNC
	OpenedAt     time.Time       `gorm:"index" json:"opened_at"`
	ClosedAt     *time.Time      `json:"closed_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ScanResult records one symbol's outcome from a scan cycle
type ScanResult struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Symbol     string          `gorm:"index" json:"symbol"`
	Score      decimal.Decimal `gorm:"type:decimal(10,4)" json:"score"`
	Direction  string          `json:"direction"` // LONG, SHORT, NEUTRAL
	Strength   string          `json:"strength"`  // STRONG, MODERATE, WEAK, NONE
	Confidence decimal.Decimal `gorm:"type:decimal(5,4)" json:"confidence"`
	Components string          `gorm:"type:jsonb" json:"components"`
	Decision   string          `json:"decision"` // ENTERED, SKIPPED plus reason
	Price      decimal.Decimal `gorm:"type:decimal(20,8)" json:"price"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
}

// EquitySnapshot is a point on the account equity curve
type EquitySnapshot struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Equity    decimal.Decimal `gorm:"type:decimal(20,8)" json:"equity"`
	Available decimal.Decimal `gorm:"type:decimal(20,8)" json:"available"`
	DayPnL    decimal.Decimal `gorm:"type:decimal(20,8)" json:"day_pnl"`
	OpenCount int             `json:"open_count"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
}

// BotEvent is an audit log row for bot lifecycle and risk events
type BotEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `json:"level"`             // INFO, WARN, ERROR
	Kind      string    `gorm:"index" json:"kind"` // START, STOP, CIRCUIT_BREAKER, ENTRY, EXIT, ...
	Symbol    string    `json:"symbol"`
	Message   string    `json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Backtest represents a backtest run
type Backtest struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `json:"name"`
	Symbol         string          `json:"symbol"`
	Timeframe      string          `json:"timeframe"`
	Strategy       string          `json:"strategy"` // ema_crossover, rsi_reversal, composite
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	InitialCapital decimal.Decimal `gorm:"type:decimal(20,2)" json:"initial_capital"`
	FinalCapital   decimal.Decimal `gorm:"type:decimal(20,2)" json:"final_capital"`
	TotalReturn    decimal.Decimal `gorm:"type:decimal(15,4)" json:"total_return"`
	MaxDrawdown    decimal.Decimal `gorm:"type:decimal(15,4)" json:"max_drawdown"`
	SharpeRatio    decimal.Decimal `gorm:"type:decimal(10,4)" json:"sharpe_ratio"`
	TotalTrades    int             `json:"total_trades"`
	WinningTrades  int             `json:"winning_trades"`
	LosingTrades   int             `json:"losing_trades"`
	WinRate        decimal.Decimal `gorm:"type:decimal(10,4)" json:"win_rate"`
	AvgWin         decimal.Decimal `gorm:"type:decimal(15,4)" json:"avg_win"`
	AvgLoss        decimal.Decimal `gorm:"type:decimal(15,4)" json:"avg_loss"`
	ProfitFactor   decimal.Decimal `gorm:"type:decimal(10,4)" json:"profit_factor"`
	Results        string          `gorm:"type:jsonb" json:"results"` // Detailed results in JSON
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
}

// BacktestTrade represents individual trades in a backtest
type BacktestTrade struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	BacktestID uint            `gorm:"index" json:"backtest_id"`
	Backtest   Backtest        `gorm:"foreignKey:BacktestID" json:"backtest,omitempty"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"` // LONG, SHORT
	EntryTime  time.Time       `json:"entry_time"`
	ExitTime   time.Time       `json:"exit_time"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,8)" json:"qty"`
	EntryPrice decimal.Decimal `gorm:"type:decimal(20,8)" json:"entry_price"`
	ExitPrice  decimal.Decimal `gorm:"type:decimal(20,8)" json:"exit_price"`
	Commission decimal.Decimal `gorm:"type:decimal(15,8)" json:"commission"`
	PnL        decimal.Decimal `gorm:"type:decimal(15,8)" json:"pnl"`
	Signal     string          `json:"signal"`      // What triggered this trade
	ExitReason string          `json:"exit_reason"` // SL, TP, SIGNAL, END
	CreatedAt  time.Time       `json:"created_at"`
}

// MigrateTradingModels runs database migrations for trading-related models
func MigrateTradingModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Trade{},
		&ScanResult{},
		&EquitySnapshot{},
		&BotEvent{},
		&Backtest{},
		&BacktestTrade{},
	)
}
