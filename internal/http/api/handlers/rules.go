package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/models"
	"github.com/recruitflow/automation/internal/rulestore"
)

// RuleHandler serves read-only rule views and cache maintenance.
type RuleHandler struct {
	db    *gorm.DB        // Database handle for rule queries.
	rules rulestore.Store // Rule store whose cache can be invalidated.
}

// NewRuleHandler constructs a rule handler.
func NewRuleHandler(db *gorm.DB, rules rulestore.Store) *RuleHandler {
	return &RuleHandler{db: db, rules: rules}
}

// ruleListQuery defines filters for the rule listing view.
type ruleListQuery struct {
	Page     int    `form:"page,default=1"`   // Page number.
	Limit    int    `form:"limit,default=20"` // Page size.
	Model    string `form:"model"`            // Optional trigger model filter.
	IsActive *bool  `form:"is_active"`        // Optional active filter.
}

// List returns rules with their execution counters.
func (h *RuleHandler) List(c *gin.Context) {
	var q ruleListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.Rule{})
	if q.Model != "" {
		query = query.Where("trigger_model = ?", q.Model)
	}
	if q.IsActive != nil {
		query = query.Where("is_active = ?", *q.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count rules failed"})
		return
	}

	var rules []models.Rule
	err := query.
		Order("id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rules).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list rules failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rules": rules,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// InvalidateCache drops cached rule lookups so edits take effect immediately.
func (h *RuleHandler) InvalidateCache(c *gin.Context) {
	if err := h.rules.Invalidate(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalidate rule cache failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
