// Package scheduler runs the recurring background jobs: symbol universe
// refresh from 24h turnover, the daily circuit-breaker reset at the UTC
// date change, equity curve snapshots, candle persistence into the
// local market store and periodic data cleanup.
package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"titan_backend/models"
	"titan_backend/services/analysis"
	"titan_backend/services/marketdata"
	"titan_backend/services/marketstore"
	"titan_backend/services/trading"
)

// candle history kept in the local store
const storeRetention = 180 * 24 * time.Hour

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron     *gocron.Scheduler
	db       *gorm.DB
	bot      *trading.Bot
	selector *marketdata.SymbolSelector
	client   *marketdata.Client
	stream   *marketdata.TradeStream
	store    *marketstore.Store
	news     *analysis.NewsFilter
}

// NewScheduler creates a new scheduler instance
func NewScheduler(db *gorm.DB, bot *trading.Bot, selector *marketdata.SymbolSelector, client *marketdata.Client, tradeStream *marketdata.TradeStream, store *marketstore.Store, news *analysis.NewsFilter) *Scheduler {
	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		db:       db,
		bot:      bot,
		selector: selector,
		client:   client,
		stream:   tradeStream,
		store:    store,
		news:     news,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Refresh the symbol universe from 24h turnover every hour
	s.cron.Every(1).Hour().Do(func() {
		s.refreshSymbols()
	})

	// Reset the circuit breaker counters at the UTC date change
	s.cron.Every(1).Day().At("00:00").Do(func() {
		s.bot.DailyReset()
	})

	// Snapshot the equity curve every hour
	s.cron.Every(1).Hour().Do(func() {
		s.bot.SnapshotEquity()
	})

	// Persist recent candles into the local store every 15 minutes
	s.cron.Every(15).Minutes().Do(func() {
		s.persistCandles()
	})

	// Drop passed news events daily at 01:00
	s.cron.Every(1).Day().At("01:00").Do(func() {
		s.news.Prune(time.Now().UTC())
	})

	// Cleanup old data weekly on Sunday at 02:00
	s.cron.Every(1).Week().Sunday().At("02:00").Do(func() {
		s.cleanupOldData()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// refreshSymbols rebuilds the traded universe and points the trade
// stream at it
func (s *Scheduler) refreshSymbols() {
	symbols, err := s.selector.Refresh()
	if err != nil {
		log.Printf("Error refreshing symbol universe: %v", err)
		return
	}
	s.stream.SetSymbols(symbols)
	log.Printf("Symbol universe refreshed: %d symbols", len(symbols))
}

// persistCandles caches recent candles for every selected symbol so
// backtests can run without hitting the exchange
func (s *Scheduler) persistCandles() {
	if s.store == nil {
		return
	}

	saved := 0
	for _, symbol := range s.selector.Selected() {
		for _, timeframe := range []string{"15", "60", "240"} {
			candles, err := s.client.GetKlines(symbol, timeframe, 200)
			if err != nil {
				log.Printf("Error fetching candles for %s/%s: %v", symbol, timeframe, err)
				continue
			}
			if err := s.store.SaveCandles(symbol, timeframe, candles); err != nil {
				log.Printf("Error saving candles for %s/%s: %v", symbol, timeframe, err)
				continue
			}
			saved++
		}
	}
	log.Printf("Persisted candles for %d symbol/timeframe pairs", saved)
}

// cleanupOldData removes old rows to save storage
func (s *Scheduler) cleanupOldData() {
	log.Println("Cleaning up old data...")

	// Keep three months of scan results
	threeMonthsAgo := time.Now().UTC().AddDate(0, -3, 0)
	if err := s.db.Where("created_at < ?", threeMonthsAgo).Delete(&models.ScanResult{}).Error; err != nil {
		log.Printf("Error cleaning up old scan results: %v", err)
	}

	// Keep six months of audit events
	sixMonthsAgo := time.Now().UTC().AddDate(0, -6, 0)
	if err := s.db.Where("created_at < ?", sixMonthsAgo).Delete(&models.BotEvent{}).Error; err != nil {
		log.Printf("Error cleaning up old events: %v", err)
	}

	if s.store != nil {
		cutoff := time.Now().UTC().Add(-storeRetention)
		if removed, err := s.store.Prune(cutoff); err != nil {
			log.Printf("Error pruning candle store: %v", err)
		} else if removed > 0 {
			log.Printf("Pruned %d old candles", removed)
		}
	}

	log.Println("Cleanup completed")
}
