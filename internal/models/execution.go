package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExecutionStatus is the lifecycle state of one rule firing attempt.
type ExecutionStatus string

// Execution statuses. An execution is created running and transitions exactly
// once to a terminal state; rows are immutable afterwards and never deleted
// by the engine itself.
const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionSkipped ExecutionStatus = "skipped"
)

// Skip reasons recorded on skipped executions.
const (
	SkipNoRecipients = "no_recipients"
)

// Execution is the audit record of one attempt to fire a rule.
type Execution struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	RuleID uint64 `gorm:"not null;index" json:"rule_id"`            // Owning rule.
	Rule   Rule   `gorm:"foreignKey:RuleID" json:"rule,omitempty"` // Rule relation.

	Status ExecutionStatus `gorm:"type:text;not null;index" json:"status"` // Lifecycle state.
	IsTest bool            `gorm:"not null;default:false;index" json:"is_test"` // Marks test-harness traffic.

	TriggerType     TriggerType `gorm:"type:text;not null" json:"trigger_type"` // Trigger class at fire time.
	TriggerModel    string      `gorm:"type:text" json:"trigger_model"`         // Entity model, when model-bound.
	TriggerObjectID string      `gorm:"type:text;index" json:"trigger_object_id"` // Triggering record ID.

	// ScheduleSlot is the persisted idempotency key (rule x record x slot)
	// for scheduled firings. Null for non-scheduled triggers; the unique
	// index is what makes overlapping scheduler ticks safe.
	ScheduleSlot *string `gorm:"type:text;uniqueIndex" json:"schedule_slot,omitempty"`

	TriggeredBy *uint64        `json:"triggered_by,omitempty"`                       // Invoking user, absent for system triggers.
	TriggerData datatypes.JSON `gorm:"type:jsonb" json:"trigger_data,omitempty"`     // Field snapshot at fire time.
	ActionType  ActionType     `gorm:"type:text;not null" json:"action_type"`        // Action kind executed.
	ResultData  datatypes.JSON `gorm:"type:jsonb" json:"result_data,omitempty"`      // Handler outcome payload.

	StartedAt    time.Time  `gorm:"not null" json:"started_at"`            // Selection time.
	CompletedAt  *time.Time `json:"completed_at,omitempty"`                // Terminal transition time.
	DurationMs   int64      `gorm:"not null;default:0" json:"duration_ms"` // Wall time in milliseconds.
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"` // Present iff status is failed.
	SkipReason   string     `gorm:"type:text" json:"skip_reason,omitempty"`   // Present iff status is skipped.

	Notifications  []Notification  `gorm:"foreignKey:ExecutionID" json:"notifications,omitempty"`   // In-app notifications created.
	ExternalEmails []ExternalEmail `gorm:"foreignKey:ExecutionID" json:"external_emails,omitempty"` // Outbound emails attempted.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
}
