package action

import (
	"context"
	"fmt"
	"time"

	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/fields"
	"github.com/recruitflow/automation/internal/models"
)

// Request carries everything a handler needs for one rule firing.
type Request struct {
	Rule        *models.Rule                  // The matched rule.
	Record      *entity.Record                // Triggering record; may be synthetic for previews.
	Catalog     map[string]fields.ModelField  // Field catalog of the trigger model.
	ExecutionID uint64                        // Owning execution row; zero for dry runs.
	TriggeredBy *uint64                       // Invoking user, when any.
}

// Result is the uniform handler outcome. Preview is always populated with the
// rendered would-be payload; Detail only after a committed side effect.
type Result struct {
	Preview    map[string]any `json:"preview"`               // Rendered action payload.
	Detail     map[string]any `json:"detail,omitempty"`      // Committed side-effect outcome.
	Skipped    bool           `json:"skipped,omitempty"`     // True when nothing was there to do.
	SkipReason string         `json:"skip_reason,omitempty"` // e.g. no_recipients.
}

// Handler executes one action kind. When commit is false the handler renders
// the full result but performs no side effect; previews and live firings
// never diverge because there is no second code path.
type Handler interface {
	Type() models.ActionType
	Execute(ctx context.Context, req *Request, commit bool) (*Result, error)
}

// Registry holds one handler per action type.
type Registry struct {
	handlers map[models.ActionType]Handler
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[models.ActionType]Handler)}
}

// Register adds a handler, replacing any previous one for the same type.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Type()] = h
}

// Get returns the handler for an action type.
func (r *Registry) Get(t models.ActionType) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("action: no handler registered for %q", t)
	}
	return h, nil
}

// renderSnapshot clones the record snapshot and adds the built-in "today"
// and "now" placeholders when the record does not shadow them.
func renderSnapshot(rec *entity.Record) map[string]any {
	now := time.Now().UTC()
	out := make(map[string]any, len(rec.Snapshot)+2)
	for k, v := range rec.Snapshot {
		out[k] = v
	}
	if _, ok := out["today"]; !ok {
		out["today"] = now.Format("2006-01-02")
	}
	if _, ok := out["now"]; !ok {
		out["now"] = now.Format(time.RFC3339)
	}
	return out
}
