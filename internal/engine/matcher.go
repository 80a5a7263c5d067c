package engine

import (
	"fmt"

	"github.com/recruitflow/automation/internal/condition"
	"github.com/recruitflow/automation/internal/fields"
	"github.com/recruitflow/automation/internal/models"
)

// Stage and status tracking fields. stage_changed and status_changed watch
// these well-known entity fields.
const (
	stageField  = "stage"
	statusField = "status"
)

// Matches reports whether the envelope's taxonomy matches the rule: trigger
// type correspondence plus model or signal-name equality. Conditions are
// evaluated separately.
func Matches(env *Envelope, rule *models.Rule, conds []condition.Condition) bool {
	switch env.Kind {
	case KindScheduled:
		return rule.TriggerType == models.TriggerScheduled && env.RuleID == rule.ID
	case KindManual:
		return rule.TriggerType == models.TriggerManual && env.SignalName == rule.SignalName
	case KindSignal:
		// View actions arrive as signal envelopes named after the action.
		if rule.TriggerType != models.TriggerSignal && rule.TriggerType != models.TriggerViewAction {
			return false
		}
		return env.SignalName == rule.SignalName
	case KindModelEvent:
		if !models.IsModelRequired(rule.TriggerType) || rule.TriggerType == models.TriggerScheduled {
			return false
		}
		if env.Model != rule.TriggerModel {
			return false
		}
		switch rule.TriggerType {
		case models.TriggerModelCreated:
			return env.Event == EventCreated
		case models.TriggerModelUpdated:
			return env.Event == EventUpdated
		case models.TriggerModelDeleted:
			return env.Event == EventDeleted
		case models.TriggerStageChanged:
			return env.Event == EventUpdated && fieldChanged(env, stageField)
		case models.TriggerStatusChanged:
			return env.Event == EventUpdated && fieldChanged(env, statusField)
		case models.TriggerFieldChanged:
			return env.Event == EventUpdated && anyConditionFieldChanged(env, conds)
		}
	}
	return false
}

// fieldChanged reports whether a field differs between the old and new
// snapshots.
func fieldChanged(env *Envelope, field string) bool {
	oldValue, oldOK := env.OldSnapshot[field]
	newValue, newOK := env.NewSnapshot[field]
	if !oldOK && !newOK {
		return false
	}
	return fmt.Sprintf("%v", oldValue) != fmt.Sprintf("%v", newValue)
}

// anyConditionFieldChanged gates field_changed rules on the fields their
// conditions reference; with no conditions, any field change qualifies.
func anyConditionFieldChanged(env *Envelope, conds []condition.Condition) bool {
	if len(conds) == 0 {
		return anyFieldChanged(env)
	}
	for _, c := range conds {
		if fieldChanged(env, c.Field) {
			return true
		}
	}
	return false
}

func anyFieldChanged(env *Envelope) bool {
	for name := range env.NewSnapshot {
		if fieldChanged(env, name) {
			return true
		}
	}
	for name := range env.OldSnapshot {
		if _, ok := env.NewSnapshot[name]; !ok {
			return true
		}
	}
	return false
}

// EffectiveSnapshot is the condition-evaluation view of the envelope. For
// stage_changed rules it adds stage_from/stage_to keys holding the old and
// new stage values so rules can filter on the transition endpoints.
func EffectiveSnapshot(env *Envelope, rule *models.Rule) map[string]any {
	base := env.Snapshot()
	if rule.TriggerType != models.TriggerStageChanged {
		return base
	}
	out := make(map[string]any, len(base)+2)
	for k, v := range base {
		out[k] = v
	}
	out["stage_from"] = env.OldSnapshot[stageField]
	out["stage_to"] = env.NewSnapshot[stageField]
	return out
}

// EffectiveCatalog mirrors EffectiveSnapshot on the field-metadata side:
// stage_from/stage_to inherit the stage field's type and choices so operator
// legality holds for transition filters.
func EffectiveCatalog(catalog map[string]fields.ModelField, rule *models.Rule) map[string]fields.ModelField {
	if rule.TriggerType != models.TriggerStageChanged {
		return catalog
	}
	stage, ok := catalog[stageField]
	if !ok {
		return catalog
	}
	out := make(map[string]fields.ModelField, len(catalog)+2)
	for k, v := range catalog {
		out[k] = v
	}
	from := stage
	from.Name = "stage_from"
	to := stage
	to.Name = "stage_to"
	out["stage_from"] = from
	out["stage_to"] = to
	return out
}
