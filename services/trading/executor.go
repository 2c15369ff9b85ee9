package trading

import (
	"fmt"
	"log"

	"titan_backend/services/marketdata"
)

// Executor places orders on the exchange. In dry-run mode orders are
// logged and acknowledged without touching the exchange.
type Executor struct {
	client *marketdata.Client
	dryRun bool
}

// NewExecutor creates an executor
func NewExecutor(client *marketdata.Client, dryRun bool) *Executor {
	return &Executor{client: client, dryRun: dryRun}
}

// DryRun reports whether the executor is simulating
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// OpenPosition sets leverage and places a market entry with protective
// stop loss and take profit attached
func (e *Executor) OpenPosition(symbol, side string, qty, stopLoss, takeProfit float64, leverage int) error {
	orderSide := "Buy"
	if side == "SHORT" {
		orderSide = "Sell"
	}

	if e.dryRun {
		log.Printf("[executor] DRY RUN open %s %s qty=%v sl=%v tp=%v x%d",
			side, symbol, qty, stopLoss, takeProfit, leverage)
		return nil
	}

	if err := e.client.SetLeverage(symbol, leverage); err != nil {
		return fmt.Errorf("set leverage %s: %w", symbol, err)
	}

	_, err := e.client.PlaceOrder(marketdata.OrderRequest{
		Symbol:     symbol,
		Side:       orderSide,
		OrderType:  "Market",
		Qty:        qty,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
	if err != nil {
		return fmt.Errorf("open %s %s: %w", side, symbol, err)
	}
	log.Printf("[executor] opened %s %s qty=%v sl=%v tp=%v x%d",
		side, symbol, qty, stopLoss, takeProfit, leverage)
	return nil
}

// ClosePartial reduces a position by qty with a market order
func (e *Executor) ClosePartial(symbol, side string, qty float64) error {
	// Closing a long sells, closing a short buys
	orderSide := "Sell"
	if side == "SHORT" {
		orderSide = "Buy"
	}

	if e.dryRun {
		log.Printf("[executor] DRY RUN close %v of %s %s", qty, side, symbol)
		return nil
	}

	_, err := e.client.PlaceOrder(marketdata.OrderRequest{
		Symbol:     symbol,
		Side:       orderSide,
		OrderType:  "Market",
		Qty:        qty,
		ReduceOnly: true,
	})
	if err != nil {
		return fmt.Errorf("close partial %s: %w", symbol, err)
	}
	log.Printf("[executor] closed %v of %s %s", qty, side, symbol)
	return nil
}

// UpdateStopLoss moves the protective stop of an open position
func (e *Executor) UpdateStopLoss(symbol string, stopLoss float64) error {
	if e.dryRun {
		log.Printf("[executor] DRY RUN move stop %s -> %v", symbol, stopLoss)
		return nil
	}
	if err := e.client.SetTradingStop(symbol, stopLoss, 0); err != nil {
		return fmt.Errorf("move stop %s: %w", symbol, err)
	}
	log.Printf("[executor] moved stop %s -> %v", symbol, stopLoss)
	return nil
}
