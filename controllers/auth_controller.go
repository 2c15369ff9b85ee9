package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"titan_backend/middleware"
	"titan_backend/models"
)

const tokenTTL = 24 * time.Hour

// AuthController handles operator authentication
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new auth controller
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Login authenticates an operator and returns a JWT
// POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.AdminUser
	err := ac.db.Where("username = ? AND is_active = ?", request.Username, true).First(&user).Error
	if err != nil || !user.CheckPassword(request.Password) {
		middleware.RecordLoginAttempt(c.ClientIP(), false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := middleware.IssueOperatorToken(user.ID, user.Username, user.Role, tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	middleware.RecordLoginAttempt(c.ClientIP(), true)
	now := time.Now().UTC()
	ac.db.Model(&user).Update("last_login_at", &now)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(tokenTTL.Seconds()),
		"user": gin.H{
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// Me returns the authenticated operator's identity
// GET /api/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	username, err := middleware.GetUsernameFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var user models.AdminUser
	if err := ac.db.Where("username = ?", username).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":      user.Username,
		"role":          user.Role,
		"last_login_at": user.LastLoginAt,
	})
}
