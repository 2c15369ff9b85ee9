package controllers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"titan_backend/models"
	"titan_backend/services/backtesting"
)

// BacktestController runs and serves backtests
type BacktestController struct {
	db     *gorm.DB
	engine *backtesting.Engine
}

// NewBacktestController creates a new backtest controller
func NewBacktestController(db *gorm.DB, engine *backtesting.Engine) *BacktestController {
	return &BacktestController{db: db, engine: engine}
}

// RunBacktest runs a backtest and returns the finished results
// POST /api/backtests
func (bc *BacktestController) RunBacktest(c *gin.Context) {
	var request struct {
		Symbol         string  `json:"symbol" binding:"required"`
		Timeframe      string  `json:"timeframe" binding:"required"`
		Strategy       string  `json:"strategy" binding:"required"`
		StartDate      string  `json:"start_date" binding:"required"`
		EndDate        string  `json:"end_date" binding:"required"`
		InitialCapital float64 `json:"initial_capital" binding:"required"`
		Commission     float64 `json:"commission"`
		RiskPct        float64 `json:"risk_pct"`
		MinRR          float64 `json:"min_rr"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := time.Parse("2006-01-02", request.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
		return
	}
	endDate, err := time.Parse("2006-01-02", request.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
		return
	}
	if !endDate.After(startDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End date must be after start date"})
		return
	}

	config := &backtesting.Config{
		Name:           fmt.Sprintf("%s %s %s", request.Symbol, request.Strategy, time.Now().UTC().Format("2006-01-02 15:04:05")),
		Symbol:         request.Symbol,
		Timeframe:      request.Timeframe,
		Strategy:       request.Strategy,
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: request.InitialCapital,
		Commission:     request.Commission,
		RiskPct:        request.RiskPct,
		MinRR:          request.MinRR,
	}

	backtest, err := bc.engine.Run(config)
	if err != nil {
		log.Printf("Backtest failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": backtest})
}

// GetBacktests returns all backtests, newest first
// GET /api/backtests
func (bc *BacktestController) GetBacktests(c *gin.Context) {
	var backtests []models.Backtest

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int64
	bc.db.Model(&models.Backtest{}).Count(&total)

	err := bc.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&backtests).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch backtests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": backtests,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetBacktest returns a single backtest with its trades
// GET /api/backtests/:id
func (bc *BacktestController) GetBacktest(c *gin.Context) {
	id := c.Param("id")

	var backtest models.Backtest
	if err := bc.db.First(&backtest, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Backtest not found"})
		return
	}

	var trades []models.BacktestTrade
	bc.db.Where("backtest_id = ?", id).Order("entry_time ASC").Find(&trades)

	c.JSON(http.StatusOK, gin.H{
		"data":   backtest,
		"trades": trades,
	})
}
