package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/harness"
)

// TestHandler exposes the authoring-time test/preview endpoint.
type TestHandler struct {
	harness *harness.Harness
	gateway entity.Gateway
	db      *gorm.DB
}

// NewTestHandler constructs a test handler.
func NewTestHandler(h *harness.Harness, gateway entity.Gateway, db *gorm.DB) *TestHandler {
	return &TestHandler{harness: h, gateway: gateway, db: db}
}

// testRunRequest is the test invocation payload.
type testRunRequest struct {
	RecordID string `json:"record_id"` // Concrete sample record; required for live runs.
	DryRun   *bool  `json:"dry_run"`   // Required so callers are explicit about side effects.
}

// Run executes a rule in preview or live mode against a sample record.
func (h *TestHandler) Run(c *gin.Context) {
	ruleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var body testRunRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.DryRun == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dry_run is required"})
		return
	}
	if !*body.DryRun && body.RecordID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "record_id is required when dry_run is false"})
		return
	}

	result, err := h.harness.Run(c.Request.Context(), ruleID, body.RecordID, *body.DryRun)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListSamples returns recent records of a model for the harness picker.
func (h *TestHandler) ListSamples(c *gin.Context) {
	model := c.Param("model")
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}
	samples, err := h.gateway.ListSampleRecords(c.Request.Context(), model, limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "entity layer unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": samples})
}
