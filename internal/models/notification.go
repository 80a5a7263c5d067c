package models

import "time"

// NotificationChannel selects delivery surfaces for send_notification.
type NotificationChannel string

// Notification channels.
const (
	ChannelEmail NotificationChannel = "email"
	ChannelInApp NotificationChannel = "in_app"
	ChannelBoth  NotificationChannel = "both"
)

// InApp reports whether the channel includes in-app delivery.
func (c NotificationChannel) InApp() bool {
	return c == ChannelInApp || c == ChannelBoth
}

// Email reports whether the channel includes email delivery.
func (c NotificationChannel) Email() bool {
	return c == ChannelEmail || c == ChannelBoth
}

// Notification is an in-app notification row created by a send_notification
// action for one resolved recipient user.
type Notification struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	ExecutionID uint64 `gorm:"not null;index" json:"execution_id"` // Owning execution.
	RuleID      uint64 `gorm:"not null;index" json:"rule_id"`      // Owning rule.

	UserID uint64 `gorm:"not null;index" json:"user_id"` // Recipient user.
	Title  string `gorm:"type:text" json:"title"`        // Rendered title.
	Body   string `gorm:"type:text" json:"body"`         // Rendered body.

	IsRead bool `gorm:"not null;default:false" json:"is_read"` // Read flag, mutated by the frontend.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
}

// ExternalEmail delivery statuses. Per-recipient failure is recorded here and
// does not fail the owning execution.
const (
	EmailSent   = "sent"
	EmailFailed = "failed"
)

// ExternalEmail records one outbound email delivery attempt for a recipient
// that resolved to a bare address rather than a platform user.
type ExternalEmail struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	ExecutionID uint64 `gorm:"not null;index" json:"execution_id"` // Owning execution.
	RuleID      uint64 `gorm:"not null;index" json:"rule_id"`      // Owning rule.

	Address string `gorm:"type:text;not null" json:"address"` // Recipient address.
	Subject string `gorm:"type:text" json:"subject"`          // Rendered subject.
	Body    string `gorm:"type:text" json:"body"`             // Rendered body.

	Status       string     `gorm:"type:text;not null" json:"status"`         // sent or failed.
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"` // Delivery error, when failed.
	SentAt       *time.Time `json:"sent_at,omitempty"`                        // Delivery time, when sent.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
}

// NotificationTemplate is the referenced rendering source for
// send_notification rules. Authoring and storage belong to the notification
// layer; the engine only reads rows.
type NotificationTemplate struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	Name    string              `gorm:"type:text;not null" json:"name"` // Template name.
	Channel NotificationChannel `gorm:"type:text" json:"channel"`       // Default channel, overridable by the rule.
	Title   string              `gorm:"type:text" json:"title"`         // Title template.
	Body    string              `gorm:"type:text" json:"body"`          // Body template.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last update timestamp.
}
