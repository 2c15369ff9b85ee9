package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"titan_backend/models"
	"titan_backend/services/analytics"
)

// JournalController serves the trade journal, equity curve and
// performance breakdowns
type JournalController struct {
	db        *gorm.DB
	analytics *analytics.Service
}

// NewJournalController creates a new journal controller
func NewJournalController(db *gorm.DB, analyticsService *analytics.Service) *JournalController {
	return &JournalController{db: db, analytics: analyticsService}
}

// GetHistory returns closed trades, newest first
// GET /api/history
func (jc *JournalController) GetHistory(c *gin.Context) {
	var trades []models.Trade

	status := c.DefaultQuery("status", "CLOSED")
	symbol := c.Query("symbol")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := jc.db.Model(&models.Trade{})
	if status != "" && status != "ALL" {
		query = query.Where("status = ?", status)
	}
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	var total int64
	query.Count(&total)

	err := query.Order("opened_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trades"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": trades,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetEquity returns the equity curve
// GET /api/equity
func (jc *JournalController) GetEquity(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 || days > 365 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var snapshots []models.EquitySnapshot
	err := jc.db.Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&snapshots).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch equity curve"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}

// GetAnalytics returns the performance summary grouped by signal type
// and session
// GET /api/analytics
func (jc *JournalController) GetAnalytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 || days > 365 {
		days = 30
	}

	summary, err := jc.analytics.Summarize(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute analytics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// GetEvents returns the audit log, newest first
// GET /api/events
func (jc *JournalController) GetEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var events []models.BotEvent
	query := jc.db.Order("created_at DESC").Limit(limit)
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}
