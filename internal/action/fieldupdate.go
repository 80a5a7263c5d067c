package action

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/fields"
	"github.com/recruitflow/automation/internal/models"
	"github.com/recruitflow/automation/internal/template"
)

// FieldUpdateHandler writes one field on the triggering record or on a
// to-one related record. A null or ambiguous relation is a configuration
// error, never a partial write.
type FieldUpdateHandler struct {
	gateway entity.Gateway
}

// NewFieldUpdateHandler builds the handler.
func NewFieldUpdateHandler(gateway entity.Gateway) *FieldUpdateHandler {
	return &FieldUpdateHandler{gateway: gateway}
}

// Type implements Handler.
func (h *FieldUpdateHandler) Type() models.ActionType { return models.ActionUpdateField }

// Execute implements Handler.
func (h *FieldUpdateHandler) Execute(ctx context.Context, req *Request, commit bool) (*Result, error) {
	cfg, err := Decode(req.Rule.ActionType, req.Rule.ActionConfig)
	if err != nil {
		return nil, err
	}
	update := cfg.(*FieldUpdateConfig)

	if strings.TrimSpace(update.Field) == "" {
		return nil, fmt.Errorf("action: update_field field is missing")
	}

	targetModel := req.Rule.TriggerModel
	targetRecord := req.Record
	targetCatalog := req.Catalog
	snapshot := renderSnapshot(req.Record)

	switch update.Target {
	case TargetSelf:
		// Write on the triggering record itself.
	case TargetRelated:
		if strings.TrimSpace(update.RelationField) == "" {
			return nil, fmt.Errorf("action: update_field target=related requires relation_field")
		}
		relatedModel, related, errRel := h.gateway.RelatedRecord(ctx, req.Rule.TriggerModel, req.Record.ID, update.RelationField)
		if errRel != nil {
			switch {
			case errors.Is(errRel, entity.ErrNoRelated):
				return nil, fmt.Errorf("action: relation %q on %s %s resolves to no record", update.RelationField, req.Rule.TriggerModel, req.Record.ID)
			case errors.Is(errRel, entity.ErrAmbiguousRelated):
				return nil, fmt.Errorf("action: relation %q on %s %s resolves to multiple records", update.RelationField, req.Rule.TriggerModel, req.Record.ID)
			default:
				return nil, fmt.Errorf("action: resolve relation %q: %w", update.RelationField, errRel)
			}
		}
		if update.RelatedModel != "" && update.RelatedModel != relatedModel {
			return nil, fmt.Errorf("action: relation %q links to %s, rule declares %s", update.RelationField, relatedModel, update.RelatedModel)
		}
		targetModel = relatedModel
		targetRecord = related

		relatedFields, errFields := h.gateway.ListFields(ctx, relatedModel)
		if errFields != nil {
			return nil, fmt.Errorf("action: list fields of %s: %w", relatedModel, errFields)
		}
		targetCatalog = fields.ByName(relatedFields)

		// Templates keep resolving against the triggering record first;
		// related values fill the gaps.
		for k, v := range related.Snapshot {
			if _, ok := snapshot[k]; !ok {
				snapshot[k] = v
			}
		}
	default:
		return nil, fmt.Errorf("action: unknown update_field target %q", update.Target)
	}

	targetField, ok := targetCatalog[update.Field]
	if !ok {
		return nil, fmt.Errorf("action: field %q does not exist on %s", update.Field, targetModel)
	}

	var newValue any
	switch update.ValueType {
	case ValueStatic:
		newValue = coerceStatic(targetField, update.Value)
	case ValueTemplate:
		newValue = template.Render(update.Value, snapshot, req.Catalog)
	case ValueCopyField:
		source, exists := req.Record.Snapshot[update.Value]
		if !exists {
			return nil, fmt.Errorf("action: copy_field source %q is not on the triggering record", update.Value)
		}
		newValue = source
	default:
		return nil, fmt.Errorf("action: unknown value_type %q", update.ValueType)
	}

	result := &Result{
		Preview: map[string]any{
			"target_model": targetModel,
			"record_id":    targetRecord.ID,
			"field":        update.Field,
			"new_value":    newValue,
		},
	}
	if !commit {
		return result, nil
	}

	if errWrite := h.gateway.UpdateField(ctx, targetModel, targetRecord.ID, update.Field, newValue); errWrite != nil {
		return result, fmt.Errorf("action: write %s.%s on %s: %w", targetModel, update.Field, targetRecord.ID, errWrite)
	}
	result.Detail = map[string]any{
		"target_model": targetModel,
		"record_id":    targetRecord.ID,
		"field":        update.Field,
		"new_value":    newValue,
	}
	return result, nil
}

// coerceStatic converts a literal config value to the target field's domain.
// Values that do not parse are passed through verbatim and left to the entity
// layer's own validation.
func coerceStatic(field fields.ModelField, value string) any {
	trimmed := strings.TrimSpace(value)
	switch {
	case field.Type == fields.TypeBoolean:
		if b, err := strconv.ParseBool(trimmed); err == nil {
			return b
		}
	case field.Type == fields.TypeInteger:
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n
		}
	case field.Type.IsNumeric():
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	}
	return value
}
