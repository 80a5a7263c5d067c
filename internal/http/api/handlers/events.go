package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/recruitflow/automation/internal/engine"
)

// EventHandler ingests trigger envelopes from the platform backend.
type EventHandler struct {
	engine *engine.Engine
}

// NewEventHandler constructs an event handler.
func NewEventHandler(eng *engine.Engine) *EventHandler {
	return &EventHandler{engine: eng}
}

// ingestEventRequest is the inbound trigger envelope payload.
type ingestEventRequest struct {
	Kind        string         `json:"kind"`                   // model_event, signal, manual.
	Model       string         `json:"model,omitempty"`        // Entity model for model events.
	Event       string         `json:"event,omitempty"`        // created, updated or deleted.
	ObjectID    string         `json:"object_id,omitempty"`    // Triggering record ID.
	OldSnapshot map[string]any `json:"old_snapshot,omitempty"` // Pre-mutation values.
	NewSnapshot map[string]any `json:"new_snapshot,omitempty"` // Post-mutation values.
	SignalName  string         `json:"signal_name,omitempty"`  // Named event for signal/manual.
	TriggeredBy *uint64        `json:"triggered_by,omitempty"` // Invoking user, when any.
}

// Ingest validates the envelope and hands it to the dispatch queue. The
// caller is never held up by action execution; a full queue is surfaced as
// backpressure.
func (h *EventHandler) Ingest(c *gin.Context) {
	var body ingestEventRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var env *engine.Envelope
	switch engine.Kind(body.Kind) {
	case engine.KindModelEvent:
		if strings.TrimSpace(body.Model) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "model is required for model events"})
			return
		}
		event := engine.ModelEvent(body.Event)
		if event != engine.EventCreated && event != engine.EventUpdated && event != engine.EventDeleted {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event must be created, updated or deleted"})
			return
		}
		if strings.TrimSpace(body.ObjectID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "object_id is required for model events"})
			return
		}
		env = engine.NewEnvelope(engine.KindModelEvent)
		env.Model = body.Model
		env.Event = event
		env.ObjectID = body.ObjectID
		env.OldSnapshot = body.OldSnapshot
		env.NewSnapshot = body.NewSnapshot
	case engine.KindSignal, engine.KindManual:
		if strings.TrimSpace(body.SignalName) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "signal_name is required"})
			return
		}
		env = engine.NewEnvelope(engine.Kind(body.Kind))
		env.SignalName = body.SignalName
		env.ObjectID = body.ObjectID
		env.NewSnapshot = body.NewSnapshot
	case engine.KindScheduled:
		// Scheduled envelopes are engine-originated only.
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled envelopes cannot be ingested"})
		return
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown envelope kind"})
		return
	}
	env.TriggeredBy = body.TriggeredBy

	if !h.engine.ProcessAsync(env) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "dispatch queue full"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"envelope_id": env.ID})
}
