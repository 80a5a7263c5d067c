package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/engine"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	db     *gorm.DB       // Database handle pinged on each check.
	engine *engine.Engine // Dispatch engine whose queue depth is reported.
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(db *gorm.DB, eng *engine.Engine) *HealthHandler {
	return &HealthHandler{db: db, engine: eng}
}

// Check pings the database and reports dispatch queue utilization.
func (h *HealthHandler) Check(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"queue_utilization": h.engine.QueueUtilization(),
	})
}
