package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/recruitflow/automation/internal/models"
	"github.com/recruitflow/automation/internal/template"
	"github.com/recruitflow/automation/internal/util"
)

// WebhookHandler posts a rendered payload to an operator-configured URL.
// Non-2xx responses and transport errors fail the execution; there is no
// inline retry.
type WebhookHandler struct {
	client *resty.Client
}

// NewWebhookHandler builds the handler with a bounded request timeout.
func NewWebhookHandler(timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "recruitflow-automation/1.0"),
	}
}

// Type implements Handler.
func (h *WebhookHandler) Type() models.ActionType { return models.ActionSendWebhook }

// Execute implements Handler.
func (h *WebhookHandler) Execute(ctx context.Context, req *Request, commit bool) (*Result, error) {
	cfg, err := Decode(req.Rule.ActionType, req.Rule.ActionConfig)
	if err != nil {
		return nil, err
	}
	webhook := cfg.(*WebhookConfig)

	if strings.TrimSpace(webhook.URL) == "" {
		return nil, fmt.Errorf("action: webhook URL is missing")
	}
	if !WebhookMethods[webhook.Method] {
		return nil, fmt.Errorf("action: webhook method %q is not allowed", webhook.Method)
	}

	payload := template.Render(webhook.PayloadTemplate, renderSnapshot(req.Record), req.Catalog)

	result := &Result{
		Preview: map[string]any{
			"url":     webhook.URL,
			"method":  webhook.Method,
			"headers": webhook.Headers,
			"payload": payload,
		},
	}
	if !commit {
		return result, nil
	}

	request := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(webhook.Headers).
		SetBody(payload)

	log.Debugf("rule %d: %s %s", req.Rule.ID, webhook.Method, util.MaskURL(webhook.URL))
	started := time.Now()
	resp, err := request.Execute(webhook.Method, webhook.URL)
	elapsed := time.Since(started).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("action: webhook call failed after %dms: %w", elapsed, err)
	}

	result.Detail = map[string]any{
		"status_code":      resp.StatusCode(),
		"response_time_ms": elapsed,
	}
	if resp.IsError() {
		return result, fmt.Errorf("action: webhook returned status %d", resp.StatusCode())
	}
	return result, nil
}
