package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"titan_backend/services/features"
)

// MLController reports the state of the offline training pipeline
type MLController struct {
	model   *features.Model
	archive *features.Archive
}

// NewMLController creates a new ML controller
func NewMLController(model *features.Model, archive *features.Archive) *MLController {
	return &MLController{model: model, archive: archive}
}

// Status returns model availability and archive counts
// GET /api/ml/status
func (mc *MLController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"model":           mc.model.Status(),
		"archive":         mc.archive.ConnectionStatus(),
		"labeled_samples": mc.archive.LabeledCount(),
	})
}

// Reload re-reads the model weights from disk
// POST /api/ml/reload
func (mc *MLController) Reload(c *gin.Context) {
	if err := mc.model.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": mc.model.Status()})
}
