package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"titan_backend/config"
	"titan_backend/services/analysis"
	"titan_backend/services/trading"
)

// ConfigController exposes runtime configuration and the news calendar
type ConfigController struct {
	bot  *trading.Bot
	news *analysis.NewsFilter
}

// NewConfigController creates a new config controller
func NewConfigController(bot *trading.Bot, news *analysis.NewsFilter) *ConfigController {
	return &ConfigController{bot: bot, news: news}
}

// GetConfig returns the active configuration
// GET /api/config
func (cc *ConfigController) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode":          cc.bot.Mode(),
		"modes":         trading.AllModes(),
		"dry_run":       config.AppConfig.DryRun,
		"timeframe":     config.AppConfig.Timeframe,
		"scan_interval": config.AppConfig.ScanIntervalSec,
		"max_symbols":   config.AppConfig.MaxSymbols,
		"kelly_sizing":  config.AppConfig.KellySizing,
	})
}

// UpdateConfig applies runtime configuration changes. Only the trade
// mode can change while the bot is live.
// PUT /api/config
func (cc *ConfigController) UpdateConfig(c *gin.Context) {
	var request struct {
		Mode string `json:"mode" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := cc.bot.SetMode(request.Mode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Configuration updated",
		"mode":    cc.bot.Mode(),
	})
}

// GetNews returns upcoming high-impact events
// GET /api/news
func (cc *ConfigController) GetNews(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": cc.news.Upcoming(time.Now().UTC())})
}

// AddNewsEvent registers a scheduled high-impact event
// POST /api/news
func (cc *ConfigController) AddNewsEvent(c *gin.Context) {
	var request struct {
		Name string    `json:"name" binding:"required"`
		Time time.Time `json:"time" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cc.news.AddEvent(request.Name, request.Time.UTC())
	c.JSON(http.StatusCreated, gin.H{"message": "Event added"})
}
