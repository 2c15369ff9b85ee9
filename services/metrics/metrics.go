package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the trading engine, exposed on /metrics.
var (
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "titan_scans_total",
		Help: "Completed scan cycles",
	})

	SymbolScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "titan_symbol_scans_total",
		Help: "Individual symbol evaluations",
	})

	EntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "titan_entries_total",
		Help: "Positions opened, by direction",
	}, []string{"side"})

	EntryRejectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "titan_entry_rejects_total",
		Help: "Entry candidates rejected, by reason",
	}, []string{"reason"})

	ExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "titan_exits_total",
		Help: "Positions closed, by reason",
	}, []string{"reason"})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "titan_open_positions",
		Help: "Currently open positions",
	})

	DayPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "titan_day_pnl",
		Help: "Realized PnL since the daily reset",
	})

	Equity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "titan_equity",
		Help: "Account equity",
	})

	CompositeScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "titan_composite_score",
		Help: "Latest composite score per symbol",
	}, []string{"symbol"})

	ExchangeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "titan_exchange_errors_total",
		Help: "Failed exchange API calls",
	})
)
