package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health returns the health status of the service, including whether
// the database answers.
func (h *HealthHandler) Health(c *gin.Context) {
	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error"
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   "ok",
		"database": dbStatus,
	})
}
