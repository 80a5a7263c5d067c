// Package action implements the four rule action handlers. Each handler has
// exactly one declared side effect and runs the same code path for previews
// and live firings, guarded by a commit flag.
package action

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/recruitflow/automation/internal/models"
)

// Config is the decoded variant action configuration. Exactly one concrete
// payload struct exists per action type; Decode picks it by the rule's
// action_type so adding a kind forces every switch in this package to grow.
type Config interface {
	actionConfig()
}

// WebhookMethods allowed for send_webhook.
var WebhookMethods = map[string]bool{"POST": true, "PUT": true, "PATCH": true}

// WebhookConfig is the payload for send_webhook.
type WebhookConfig struct {
	URL             string            `json:"url"`              // Target URL.
	Method          string            `json:"method"`           // POST, PUT or PATCH.
	Headers         map[string]string `json:"headers"`          // Extra request headers.
	PayloadTemplate string            `json:"payload_template"` // Body template with {{field}} placeholders.
}

// NotificationConfig is the payload for send_notification. When the rule
// references a notification template, the template supplies title/body and
// the config may still override channel and recipient type.
type NotificationConfig struct {
	Channel       models.NotificationChannel `json:"channel"`                  // email, in_app or both.
	RecipientType string                     `json:"recipient_type"`           // Resolved by the entity layer.
	TitleTemplate string                     `json:"title_template,omitempty"` // Title template.
	BodyTemplate  string                     `json:"body_template,omitempty"`  // Body template.
}

// Field update targets.
const (
	TargetSelf    = "self"
	TargetRelated = "related"
)

// Field update value types.
const (
	ValueStatic    = "static"
	ValueTemplate  = "template"
	ValueCopyField = "copy_field"
)

// FieldUpdateConfig is the payload for update_field.
type FieldUpdateConfig struct {
	Target        string `json:"target"`                   // self or related.
	RelatedModel  string `json:"related_model,omitempty"`  // Declared related model for target=related.
	RelationField string `json:"relation_field,omitempty"` // FK field resolving the link for target=related.
	Field         string `json:"field"`                    // Field to write.
	Value         string `json:"value"`                    // Literal, template, or source field name per ValueType.
	ValueType     string `json:"value_type"`               // static, template or copy_field.
}

// ActivityConfig is the payload for create_activity.
type ActivityConfig struct {
	ActivityType    string `json:"activity_type"`    // Activity kind label.
	ContentTemplate string `json:"content_template"` // Entry content template.
}

func (*WebhookConfig) actionConfig()      {}
func (*NotificationConfig) actionConfig() {}
func (*FieldUpdateConfig) actionConfig()  {}
func (*ActivityConfig) actionConfig()     {}

// Decode parses a rule's action_config JSON into the payload struct for its
// action type.
func Decode(actionType models.ActionType, raw []byte) (Config, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch actionType {
	case models.ActionSendWebhook:
		var cfg WebhookConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("action: parse webhook config: %w", err)
		}
		if cfg.Method == "" {
			cfg.Method = "POST"
		}
		cfg.Method = strings.ToUpper(cfg.Method)
		return &cfg, nil
	case models.ActionSendNotification:
		var cfg NotificationConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("action: parse notification config: %w", err)
		}
		return &cfg, nil
	case models.ActionUpdateField:
		var cfg FieldUpdateConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("action: parse field update config: %w", err)
		}
		if cfg.Target == "" {
			cfg.Target = TargetSelf
		}
		if cfg.ValueType == "" {
			cfg.ValueType = ValueStatic
		}
		return &cfg, nil
	case models.ActionCreateActivity:
		var cfg ActivityConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("action: parse activity config: %w", err)
		}
		return &cfg, nil
	default:
		return nil, fmt.Errorf("action: unknown action type %q", actionType)
	}
}
