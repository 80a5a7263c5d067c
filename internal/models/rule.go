package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// TriggerType identifies the event class that makes a rule eligible to fire.
type TriggerType string

// Trigger types. Model-bound types require a trigger model; signal, manual
// and view_action require a signal name instead.
const (
	TriggerModelCreated  TriggerType = "model_created"
	TriggerModelUpdated  TriggerType = "model_updated"
	TriggerModelDeleted  TriggerType = "model_deleted"
	TriggerStageChanged  TriggerType = "stage_changed"
	TriggerStatusChanged TriggerType = "status_changed"
	TriggerFieldChanged  TriggerType = "field_changed"
	TriggerScheduled     TriggerType = "scheduled"
	TriggerSignal        TriggerType = "signal"
	TriggerManual        TriggerType = "manual"
	TriggerViewAction    TriggerType = "view_action"
)

// IsModelRequired reports whether the trigger type binds to an entity model.
func IsModelRequired(t TriggerType) bool {
	switch t {
	case TriggerSignal, TriggerManual, TriggerViewAction:
		return false
	default:
		return true
	}
}

// KnownTriggerType reports whether t is part of the trigger taxonomy.
func KnownTriggerType(t TriggerType) bool {
	switch t {
	case TriggerModelCreated, TriggerModelUpdated, TriggerModelDeleted,
		TriggerStageChanged, TriggerStatusChanged, TriggerFieldChanged,
		TriggerScheduled, TriggerSignal, TriggerManual, TriggerViewAction:
		return true
	}
	return false
}

// ActionType identifies the single side-effecting operation a rule performs.
type ActionType string

// Action types.
const (
	ActionSendWebhook      ActionType = "send_webhook"
	ActionSendNotification ActionType = "send_notification"
	ActionUpdateField      ActionType = "update_field"
	ActionCreateActivity   ActionType = "create_activity"
)

// KnownActionType reports whether t is a supported action type.
func KnownActionType(t ActionType) bool {
	switch t {
	case ActionSendWebhook, ActionSendNotification, ActionUpdateField, ActionCreateActivity:
		return true
	}
	return false
}

// ScheduleOffsetType orients the schedule offset relative to the datetime field.
type ScheduleOffsetType string

// Schedule offset orientations.
const (
	OffsetBefore ScheduleOffsetType = "before"
	OffsetAfter  ScheduleOffsetType = "after"
)

// ScheduleConfig is required exactly when the trigger type is scheduled.
type ScheduleConfig struct {
	DatetimeField string             `json:"datetime_field"` // Datetime field on the trigger model.
	OffsetHours   int                `json:"offset_hours"`   // Offset magnitude in hours (1-720).
	OffsetType    ScheduleOffsetType `json:"offset_type"`    // before or after the field value.
}

// Rule is a persisted trigger+condition+action declaration.
type Rule struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	Name        string `gorm:"type:text;not null" json:"name"`       // Rule name.
	Description string `gorm:"type:text" json:"description"`         // Operator-facing description.

	TriggerType  TriggerType `gorm:"type:text;not null;index" json:"trigger_type"` // Trigger class.
	TriggerModel string      `gorm:"type:text;index" json:"trigger_model"`         // Entity model for model-bound triggers.
	SignalName   string      `gorm:"type:text;index" json:"signal_name"`           // Named event for signal/manual/view_action.

	TriggerConditions datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"trigger_conditions"` // Ordered condition list JSON.
	ScheduleConfig    datatypes.JSON `gorm:"type:jsonb" json:"schedule_config,omitempty"`                // Schedule config JSON, scheduled triggers only.

	ActionType   ActionType     `gorm:"type:text;not null" json:"action_type"`                  // Action kind.
	ActionConfig datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"action_config"` // Variant action payload JSON.

	NotificationTemplateID *uint64 `gorm:"index" json:"notification_template_id,omitempty"` // Optional template reference for send_notification.

	// A column default would make gorm omit an explicit false on insert, so
	// the value is always written and defaulting is left to the caller.
	IsActive bool `gorm:"not null;index" json:"is_active"` // Whether the rule participates in matching.

	TotalExecutions int64      `gorm:"not null;default:0" json:"total_executions"` // Lifetime execution count.
	TotalSuccess    int64      `gorm:"not null;default:0" json:"total_success"`    // Lifetime success count.
	TotalFailed     int64      `gorm:"not null;default:0" json:"total_failed"`     // Lifetime failure count.
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`                // Most recent firing time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last update timestamp.
}

// Schedule parses the rule's schedule configuration. Returns nil when the
// rule carries none.
func (r *Rule) Schedule() (*ScheduleConfig, error) {
	if len(r.ScheduleConfig) == 0 {
		return nil, nil
	}
	var cfg ScheduleConfig
	if err := json.Unmarshal(r.ScheduleConfig, &cfg); err != nil {
		return nil, fmt.Errorf("rule %d: parse schedule config: %w", r.ID, err)
	}
	return &cfg, nil
}

// Rule validation errors.
var (
	ErrTriggerModelRequired = errors.New("trigger_model is required for this trigger type")
	ErrSignalNameRequired   = errors.New("signal_name is required for this trigger type")
	ErrModelSignalExclusive = errors.New("exactly one of trigger_model and signal_name must be set")
	ErrScheduleRequired     = errors.New("schedule_config is required for scheduled triggers")
	ErrScheduleForbidden    = errors.New("schedule_config is only valid for scheduled triggers")
)

// Validate enforces the trigger invariants: exactly one of trigger_model and
// signal_name is populated per the trigger type, and schedule_config is
// present iff the trigger is scheduled.
func (r *Rule) Validate() error {
	if !KnownTriggerType(r.TriggerType) {
		return fmt.Errorf("unknown trigger_type %q", r.TriggerType)
	}
	if !KnownActionType(r.ActionType) {
		return fmt.Errorf("unknown action_type %q", r.ActionType)
	}

	model := strings.TrimSpace(r.TriggerModel)
	signal := strings.TrimSpace(r.SignalName)
	if IsModelRequired(r.TriggerType) {
		if model == "" {
			return ErrTriggerModelRequired
		}
		if signal != "" {
			return ErrModelSignalExclusive
		}
	} else {
		if signal == "" {
			return ErrSignalNameRequired
		}
		if model != "" {
			return ErrModelSignalExclusive
		}
	}

	if r.TriggerType == TriggerScheduled {
		cfg, err := r.Schedule()
		if err != nil {
			return err
		}
		if cfg == nil {
			return ErrScheduleRequired
		}
		if strings.TrimSpace(cfg.DatetimeField) == "" {
			return fmt.Errorf("schedule_config.datetime_field is required")
		}
		if cfg.OffsetHours < 1 || cfg.OffsetHours > 720 {
			return fmt.Errorf("schedule_config.offset_hours must be between 1 and 720")
		}
		if cfg.OffsetType != OffsetBefore && cfg.OffsetType != OffsetAfter {
			return fmt.Errorf("schedule_config.offset_type must be before or after")
		}
	} else if len(r.ScheduleConfig) > 0 && string(r.ScheduleConfig) != "null" {
		return ErrScheduleForbidden
	}

	return nil
}
