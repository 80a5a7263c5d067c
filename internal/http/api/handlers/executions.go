package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/models"
)

// ExecutionHandler serves the execution audit trail.
type ExecutionHandler struct {
	db *gorm.DB // Database handle for execution queries.
}

// NewExecutionHandler constructs an execution handler.
func NewExecutionHandler(db *gorm.DB) *ExecutionHandler {
	return &ExecutionHandler{db: db}
}

// executionListQuery defines filters for the per-rule history view.
type executionListQuery struct {
	Page   int    `form:"page,default=1"`   // Page number.
	Limit  int    `form:"limit,default=20"` // Page size.
	Status string `form:"status"`           // Optional status filter.
	IsTest *bool  `form:"is_test"`          // Optional test-traffic filter.
}

// ListForRule returns a rule's executions, newest first.
func (h *ExecutionHandler) ListForRule(c *gin.Context) {
	ruleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var q executionListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.Execution{}).Where("rule_id = ?", ruleID)
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.IsTest != nil {
		query = query.Where("is_test = ?", *q.IsTest)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count executions failed"})
		return
	}

	var executions []models.Execution
	errFind := query.
		Order("id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&executions).Error
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list executions failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"executions": executions,
		"total":      total,
		"page":       q.Page,
		"limit":      q.Limit,
	})
}

// Get returns one execution with its notifications and external emails.
func (h *ExecutionHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	var execution models.Execution
	errFind := h.db.WithContext(c.Request.Context()).
		Preload("Notifications").
		Preload("ExternalEmails").
		First(&execution, id).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load execution failed"})
		return
	}
	c.JSON(http.StatusOK, execution)
}
