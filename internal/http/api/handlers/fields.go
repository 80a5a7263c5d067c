package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/fields"
)

// FieldHandler exposes model field catalogs to rule authoring UIs.
type FieldHandler struct {
	gateway entity.Gateway // Entity service backing the catalogs.
}

// NewFieldHandler constructs a field handler.
func NewFieldHandler(gateway entity.Gateway) *FieldHandler {
	return &FieldHandler{gateway: gateway}
}

type fieldView struct {
	Name         string            `json:"name"`
	VerboseName  string            `json:"verbose_name"`
	Type         fields.FieldType  `json:"type"`
	Choices      []fields.Choice   `json:"choices,omitempty"`
	IsRelation   bool              `json:"is_relation"`
	RelatedModel string            `json:"related_model,omitempty"`
	Operators    []fields.Operator `json:"operators"`
}

// List returns a model's fields with the operators each field supports.
func (h *FieldHandler) List(c *gin.Context) {
	model := c.Param("model")
	if model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model is required"})
		return
	}

	catalog, err := h.gateway.ListFields(c.Request.Context(), model)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "load field catalog failed"})
		return
	}

	views := make([]fieldView, 0, len(catalog))
	for _, f := range catalog {
		views = append(views, fieldView{
			Name:         f.Name,
			VerboseName:  f.VerboseName,
			Type:         f.Type,
			Choices:      f.Choices,
			IsRelation:   f.IsRelation,
			RelatedModel: f.RelatedModel,
			Operators:    fields.OperatorsForField(f),
		})
	}
	c.JSON(http.StatusOK, gin.H{"model": model, "fields": views})
}
