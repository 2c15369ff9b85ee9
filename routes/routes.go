package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"titan_backend/controllers"
	"titan_backend/middleware"
	"titan_backend/services/analysis"
	"titan_backend/services/analytics"
	"titan_backend/services/backtesting"
	"titan_backend/services/features"
	"titan_backend/services/marketdata"
	"titan_backend/services/risk"
	"titan_backend/services/stream"
	"titan_backend/services/trading"
)

// Deps carries the shared services the route handlers use
type Deps struct {
	DB        *gorm.DB
	Bot       *trading.Bot
	Breaker   *risk.CircuitBreaker
	Selector  *marketdata.SymbolSelector
	Client    *marketdata.Client
	Analytics *analytics.Service
	Engine    *backtesting.Engine
	News      *analysis.NewsFilter
	Model     *features.Model
	Archive   *features.Archive
	Hub       *stream.Hub
}

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, deps Deps) {
	authController := controllers.NewAuthController(deps.DB)
	botController := controllers.NewBotController(deps.DB, deps.Bot, deps.Breaker, deps.Selector, deps.Client)
	journalController := controllers.NewJournalController(deps.DB, deps.Analytics)
	configController := controllers.NewConfigController(deps.Bot, deps.News)
	mlController := controllers.NewMLController(deps.Model, deps.Archive)
	backtestController := controllers.NewBacktestController(deps.DB, deps.Engine)

	// Prometheus metrics sit outside the API group; the health probes
	// are registered at startup before the database comes up
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		// Authentication
		auth := api.Group("/auth")
		{
			auth.POST("/login", middleware.LoginRateLimitMiddleware(), authController.Login)
			auth.GET("/me", middleware.JWTAuthMiddleware(), authController.Me)
		}

		// Read-only dashboard surface
		api.GET("/status", botController.Status)
		api.GET("/balance", botController.Balance)
		api.GET("/scan", botController.LastScan)
		api.GET("/history", journalController.GetHistory)
		api.GET("/equity", journalController.GetEquity)
		api.GET("/analytics", journalController.GetAnalytics)
		api.GET("/events", journalController.GetEvents)
		api.GET("/config", configController.GetConfig)
		api.GET("/news", configController.GetNews)
		api.GET("/ml/status", mlController.Status)
		api.GET("/backtests", backtestController.GetBacktests)
		api.GET("/backtests/:id", backtestController.GetBacktest)

		// Realtime dashboard feed
		api.GET("/ws", deps.Hub.HandleWS)

		// Operator-only control surface
		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware())
		{
			protected.POST("/start", botController.Start)
			protected.POST("/stop", botController.Stop)
			protected.POST("/scan", botController.Scan)
			protected.POST("/halt", botController.Halt)
			protected.POST("/resume", botController.Resume)
			protected.PUT("/config", configController.UpdateConfig)
			protected.POST("/backtests", backtestController.RunBacktest)
			protected.POST("/ml/reload", mlController.Reload)

			// Calendar management is admin-only
			admin := protected.Group("")
			admin.Use(middleware.AdminRoleMiddleware())
			{
				admin.POST("/news", configController.AddNewsEvent)
			}
		}
	}
}
