// Package entity defines the boundary contract between the automation engine
// and the platform's entity storage layer. The engine never owns entity data;
// it reads snapshots, writes single fields and resolves recipients through a
// Gateway.
package entity

import (
	"context"
	"errors"
	"time"

	"github.com/recruitflow/automation/internal/fields"
)

// Record is an entity record snapshot keyed by field name.
type Record struct {
	ID       string         `json:"id"`       // Record identifier.
	Snapshot map[string]any `json:"snapshot"` // Field name to current value.
}

// SampleRecord is a record reference offered to the test harness.
type SampleRecord struct {
	ID      string `json:"id"`      // Record identifier.
	Display string `json:"display"` // Human-readable label.
}

// Recipient is one resolved notification target: either a platform user or
// an external email address.
type Recipient struct {
	UserID *uint64 `json:"user_id,omitempty"` // Platform user, when resolved to one.
	Email  string  `json:"email,omitempty"`   // Bare address for external recipients.
	Name   string  `json:"name,omitempty"`    // Display name.
}

// Relation lookup errors surfaced by RelatedRecord.
var (
	ErrNoRelated        = errors.New("entity: relation resolves to no record")
	ErrAmbiguousRelated = errors.New("entity: relation resolves to multiple records")
	ErrRecordNotFound   = errors.New("entity: record not found")
)

// Gateway is the set of entity-layer operations the engine consumes. All
// implementations must be safe for concurrent use.
type Gateway interface {
	// ListFields returns the field catalog for a model.
	ListFields(ctx context.Context, model string) ([]fields.ModelField, error)

	// RelatedModel resolves the target model of a relation field.
	RelatedModel(ctx context.Context, model, field string) (string, error)

	// GetRecord fetches a record snapshot.
	GetRecord(ctx context.Context, model, id string) (*Record, error)

	// RelatedRecord follows a to-one relation field off a record. Returns
	// ErrNoRelated when the link is null and ErrAmbiguousRelated when the
	// relation matches more than one record.
	RelatedRecord(ctx context.Context, model, id, relationField string) (relatedModel string, record *Record, err error)

	// UpdateField writes a single field value on a record.
	UpdateField(ctx context.Context, model, id, field string, value any) error

	// ListSampleRecords returns recent records for the test harness picker.
	ListSampleRecords(ctx context.Context, model string, limit int) ([]SampleRecord, error)

	// DueRecords returns records whose datetime field falls inside [from, to),
	// bounded by limit. Used by the scheduler scan.
	DueRecords(ctx context.Context, model, datetimeField string, from, to time.Time, limit int) ([]Record, error)

	// ResolveRecipients maps a recipient type (e.g. "assigned_user",
	// "company_admin") to zero or more concrete recipients for a record.
	ResolveRecipients(ctx context.Context, recipientType, model string, record *Record) ([]Recipient, error)

	// SendEmail delivers one email to an address.
	SendEmail(ctx context.Context, to, subject, body string) error

	// CreateActivity appends an activity-log entry against a record and
	// returns the new entry's identifier.
	CreateActivity(ctx context.Context, model, id, activityType, content string) (string, error)
}
