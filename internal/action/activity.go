package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/models"
	"github.com/recruitflow/automation/internal/template"
)

// ActivityHandler appends a rendered activity-log entry to the triggering
// record.
type ActivityHandler struct {
	gateway entity.Gateway
}

// NewActivityHandler builds the handler.
func NewActivityHandler(gateway entity.Gateway) *ActivityHandler {
	return &ActivityHandler{gateway: gateway}
}

// Type implements Handler.
func (h *ActivityHandler) Type() models.ActionType { return models.ActionCreateActivity }

// Execute implements Handler.
func (h *ActivityHandler) Execute(ctx context.Context, req *Request, commit bool) (*Result, error) {
	cfg, err := Decode(req.Rule.ActionType, req.Rule.ActionConfig)
	if err != nil {
		return nil, err
	}
	activity := cfg.(*ActivityConfig)

	if strings.TrimSpace(activity.ActivityType) == "" {
		return nil, fmt.Errorf("action: activity_type is missing")
	}

	content := template.Render(activity.ContentTemplate, renderSnapshot(req.Record), req.Catalog)
	result := &Result{
		Preview: map[string]any{
			"activity_type": activity.ActivityType,
			"content":       content,
		},
	}
	if !commit {
		return result, nil
	}

	activityID, err := h.gateway.CreateActivity(ctx, req.Rule.TriggerModel, req.Record.ID, activity.ActivityType, content)
	if err != nil {
		return result, fmt.Errorf("action: append activity: %w", err)
	}
	result.Detail = map[string]any{"activity_id": activityID}
	return result, nil
}
