// Package engine runs the trigger evaluation, condition matching and action
// execution pipeline. Every trigger origin (entity mutation, named signal,
// scheduler tick, manual broadcast) is normalized into an Envelope so there
// is a single matching entry point.
package engine

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the envelope origin class.
type Kind string

// Envelope kinds.
const (
	KindModelEvent Kind = "model_event"
	KindSignal     Kind = "signal"
	KindScheduled  Kind = "scheduled"
	KindManual     Kind = "manual"
)

// ModelEvent is the mutation class of a model_event envelope.
type ModelEvent string

// Model events.
const (
	EventCreated ModelEvent = "created"
	EventUpdated ModelEvent = "updated"
	EventDeleted ModelEvent = "deleted"
)

// Envelope is the normalized internal representation of one incoming trigger
// event.
type Envelope struct {
	ID   string `json:"id"`   // Unique envelope ID.
	Kind Kind   `json:"kind"` // Origin class.

	Model       string         `json:"model,omitempty"`        // Entity model for model events.
	Event       ModelEvent     `json:"event,omitempty"`        // Mutation class for model events.
	ObjectID    string         `json:"object_id,omitempty"`    // Triggering record ID.
	OldSnapshot map[string]any `json:"old_snapshot,omitempty"` // Pre-mutation field values.
	NewSnapshot map[string]any `json:"new_snapshot,omitempty"` // Post-mutation field values.

	SignalName string `json:"signal_name,omitempty"` // Named event for signal/manual envelopes.

	RuleID       uint64 `json:"rule_id,omitempty"`       // Target rule for scheduled envelopes.
	ScheduleSlot string `json:"schedule_slot,omitempty"` // Idempotency key for scheduled envelopes.

	TriggeredBy *uint64   `json:"triggered_by,omitempty"` // Invoking user, absent for system triggers.
	OccurredAt  time.Time `json:"occurred_at"`            // Event time.
}

// NewEnvelope allocates an envelope with an ID and timestamp.
func NewEnvelope(kind Kind) *Envelope {
	return &Envelope{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
	}
}

// Snapshot returns the field values conditions and templates should see:
// the post-mutation state, or the final pre-deletion state for deletions.
func (e *Envelope) Snapshot() map[string]any {
	if e.Event == EventDeleted || len(e.NewSnapshot) == 0 {
		if e.OldSnapshot != nil {
			return e.OldSnapshot
		}
	}
	if e.NewSnapshot != nil {
		return e.NewSnapshot
	}
	return map[string]any{}
}
