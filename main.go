package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"titan_backend/config"
	"titan_backend/middleware"
	"titan_backend/models"
	"titan_backend/routes"
	"titan_backend/scheduler"
	"titan_backend/services/analysis"
	"titan_backend/services/analytics"
	"titan_backend/services/backtesting"
	"titan_backend/services/features"
	"titan_backend/services/marketdata"
	"titan_backend/services/marketstore"
	"titan_backend/services/risk"
	"titan_backend/services/stream"
	"titan_backend/services/trading"
)

// dbInitialized tracks whether database has been successfully initialized.
// The /ready endpoint checks it from the request goroutines.
var dbInitialized bool
var dbInitMutex sync.RWMutex

func main() {
	log.Println("==============================================")
	log.Println("  Titan Trading Backend - Starting...")
	log.Println("==============================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Health endpoints go up first so the platform sees the service
	// while the database and exchange wiring happen in the background
	setupHealthEndpoints(router)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Initialize database and wire services in background
	var jobScheduler *scheduler.Scheduler
	var bot *trading.Bot
	var hub *stream.Hub
	var archive *features.Archive
	var store *marketstore.Store
	go func() {
		db, err := config.InitDB()
		if err != nil {
			log.Printf("ERROR: Database connection failed: %v", err)
			log.Println("Service will continue in limited mode (health check only)")
			return
		}

		log.Println("Running database migrations...")
		if err := models.MigrateTradingModels(db); err != nil {
			log.Printf("ERROR: Trading migration failed: %v", err)
		}
		if err := models.MigrateAdminModels(db); err != nil {
			log.Printf("ERROR: Admin migration failed: %v", err)
		}
		if err := models.SeedDefaultAdminUser(db); err != nil {
			log.Printf("Warning: Could not seed operator account: %v", err)
		}

		middleware.InitLoginRateLimiter()

		// Exchange access
		client := marketdata.NewClient(cfg.BybitBaseURL, cfg.BybitAPIKey, cfg.BybitAPISecret)
		selector := marketdata.NewSymbolSelector(client, cfg.MaxSymbols, cfg.DefaultSymbol)
		if _, err := selector.Refresh(); err != nil {
			log.Printf("Warning: Initial symbol refresh failed: %v", err)
		}
		tradeStream := marketdata.NewTradeStream(cfg.BybitWSURL)

		// Local candle cache for backtests
		store, err = marketstore.Open(cfg.MarketDBPath)
		if err != nil {
			log.Printf("Warning: Market store unavailable: %v", err)
			store = nil
		}

		// Feature archive and scoring model
		archive = features.NewArchive(cfg.MongoURI, cfg.MongoDBName)
		model := features.NewModel(cfg.MLWeightsPath)

		mode, err := trading.GetMode(cfg.TradeMode)
		if err != nil {
			log.Printf("Warning: %v, falling back to MODERATE", err)
			mode, _ = trading.GetMode("MODERATE")
		}

		breaker := risk.NewCircuitBreaker(risk.BreakerConfig{
			MaxDailyLossPct: cfg.MaxDailyLossPct,
			MaxDailyTrades:  cfg.MaxDailyTrades,
			LossStreakLimit: mode.LossStreakLimit,
		})
		analyticsService := analytics.NewService(db)
		hub = stream.NewHub()
		news := analysis.NewNewsFilter(30 * time.Minute)

		bot = trading.NewBot(trading.Deps{
			DB:        db,
			Client:    client,
			Selector:  selector,
			Stream:    tradeStream,
			Executor:  trading.NewExecutor(client, cfg.DryRun),
			Risk:      risk.NewManager(cfg.KellySizing),
			Breaker:   breaker,
			Trailing:  trading.NewTrailingManager(),
			Partials:  trading.NewPartialTPManager(),
			Flow:      analysis.NewOrderflowAnalyzer(),
			Sentiment: analysis.NewSentimentService(),
			News:      news,
			Analytics: analyticsService,
			Archive:   archive,
			Model:     model,
			Hub:       hub,

			Timeframe:    cfg.Timeframe,
			ScanInterval: time.Duration(cfg.ScanIntervalSec) * time.Second,
			PaperBalance: 1000,
		}, mode)
		bot.DailyReset()

		dbInitMutex.Lock()
		dbInitialized = true
		dbInitMutex.Unlock()

		routes.SetupRoutes(router, routes.Deps{
			DB:        db,
			Bot:       bot,
			Breaker:   breaker,
			Selector:  selector,
			Client:    client,
			Analytics: analyticsService,
			Engine:    backtesting.NewEngine(db, store, client),
			News:      news,
			Model:     model,
			Archive:   archive,
			Hub:       hub,
		})

		jobScheduler = scheduler.NewScheduler(db, bot, selector, client, tradeStream, store, news)
		go jobScheduler.Start()

		log.Println("Application fully initialized with database")
	}()

	gracefulShutdown(server, func() {
		if jobScheduler != nil {
			jobScheduler.Stop()
		}
		if bot != nil && bot.IsRunning() {
			bot.Stop()
		}
		if hub != nil {
			hub.Shutdown()
		}
		if archive != nil {
			archive.Close()
		}
		if store != nil {
			store.Close()
		}
	})
}

// setupHealthEndpoints sets up liveness and readiness probes
func setupHealthEndpoints(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Titan Trading Backend",
			"version": "1.0.0",
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		dbInitMutex.RLock()
		isDBReady := dbInitialized
		dbInitMutex.RUnlock()

		if !isDBReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database not connected",
			})
			return
		}

		sqlDB, err := config.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database connection error",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for probes to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown waits for a signal, then stops background services
// before shutting the HTTP server down
func gracefulShutdown(server *http.Server, stopServices func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	stopServices()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if config.DB != nil {
		sqlDB, err := config.DB.DB()
		if err == nil {
			sqlDB.Close()
			log.Println("Database connection closed")
		}
	}

	log.Println("Server shutdown completed")
}
