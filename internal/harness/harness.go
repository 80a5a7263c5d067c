// Package harness runs rules against a chosen or synthetic record for
// authoring-time testing. It reuses the engine's exact action path; the only
// thing it decides is whether the side effect commits.
package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/condition"
	"github.com/recruitflow/automation/internal/engine"
	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/fields"
	"github.com/recruitflow/automation/internal/models"
)

// TestResult is the ephemeral outcome of one harness run. Never persisted;
// the live-test Execution row is the durable trace.
type TestResult struct {
	Status            string         `json:"status"`                      // success, failed, skipped or preview.
	Executed          bool           `json:"executed"`                    // True only for live tests.
	DryRun            bool           `json:"dry_run"`                     // True for previews.
	ConditionsMatched bool           `json:"conditions_matched"`          // Whether the rule's conditions held.
	Preview           map[string]any `json:"preview,omitempty"`           // Rendered would-be action payload.
	ExecutionResult   map[string]any `json:"execution_result,omitempty"`  // Handler outcome, live tests only.
	ExecutionID       *uint64        `json:"execution_id,omitempty"`      // Audit row, live tests only.
	ErrorMessage      string         `json:"error_message,omitempty"`     // Present when status is failed.
}

// Harness drives test and preview runs.
type Harness struct {
	db     *gorm.DB
	engine *engine.Engine
}

// New builds a harness sharing the engine's handlers and recorder.
func New(db *gorm.DB, eng *engine.Engine) *Harness {
	return &Harness{db: db, engine: eng}
}

// Run executes a rule against recordID (or a synthetic sample when empty and
// dry-run). Dry runs build the full rendered payload with no side effect.
// Live runs require a concrete record, execute the real handler and record
// an Execution flagged is_test.
func (h *Harness) Run(ctx context.Context, ruleID uint64, recordID string, dryRun bool) (*TestResult, error) {
	var rule models.Rule
	if err := h.db.WithContext(ctx).First(&rule, ruleID).Error; err != nil {
		return nil, fmt.Errorf("harness: rule %d: %w", ruleID, err)
	}

	catalog := map[string]fields.ModelField{}
	if rule.TriggerModel != "" {
		list, err := h.engine.Gateway().ListFields(ctx, rule.TriggerModel)
		if err != nil {
			return nil, fmt.Errorf("harness: fields of %s: %w", rule.TriggerModel, err)
		}
		catalog = fields.ByName(list)
	}

	record, err := h.resolveRecord(ctx, &rule, catalog, recordID, dryRun)
	if err != nil {
		return nil, err
	}

	conds, err := condition.Decode(rule.TriggerConditions)
	if err != nil {
		return nil, fmt.Errorf("harness: rule %d: parse conditions: %w", ruleID, err)
	}
	matched := condition.EvaluateAll(conds, catalog, record.Snapshot)

	result := &TestResult{DryRun: dryRun, ConditionsMatched: matched}

	if dryRun {
		preview, execErr := h.engine.ExecuteAction(ctx, &rule, record, catalog, nil, false)
		if execErr != nil {
			result.Status = string(models.ExecutionFailed)
			result.ErrorMessage = execErr.Error()
			return result, nil
		}
		result.Preview = preview.Preview
		if preview.Skipped {
			result.Status = string(models.ExecutionSkipped)
		} else {
			result.Status = "preview"
		}
		return result, nil
	}

	// Live test: same pipeline tail as a production firing, flagged is_test
	// so dashboards can separate the traffic.
	env := engine.NewEnvelope(envelopeKind(rule.TriggerType))
	env.Model = rule.TriggerModel
	env.SignalName = rule.SignalName
	env.ObjectID = record.ID
	env.NewSnapshot = record.Snapshot

	exec, err := h.engine.Recorder().Begin(ctx, &rule, env, record.Snapshot, true, nil)
	if err != nil {
		return nil, fmt.Errorf("harness: begin test execution: %w", err)
	}
	actionResult, execErr := h.engine.ExecuteAction(ctx, &rule, record, catalog, exec, true)
	h.engine.RecordOutcome(ctx, exec, actionResult, execErr)

	result.Executed = true
	result.Status = string(exec.Status)
	result.ExecutionID = &exec.ID
	result.ErrorMessage = exec.ErrorMessage
	if actionResult != nil {
		result.Preview = actionResult.Preview
		result.ExecutionResult = actionResult.Detail
	}
	return result, nil
}

func (h *Harness) resolveRecord(ctx context.Context, rule *models.Rule, catalog map[string]fields.ModelField, recordID string, dryRun bool) (*entity.Record, error) {
	if strings.TrimSpace(recordID) != "" {
		record, err := h.engine.Gateway().GetRecord(ctx, rule.TriggerModel, recordID)
		if err != nil {
			return nil, fmt.Errorf("harness: record %s/%s: %w", rule.TriggerModel, recordID, err)
		}
		return record, nil
	}
	if !dryRun {
		return nil, fmt.Errorf("harness: a record_id is required to run live")
	}
	return SyntheticRecord(catalog), nil
}

// SyntheticRecord fabricates a sample record from the field catalog so a
// preview works before any real data exists.
func SyntheticRecord(catalog map[string]fields.ModelField) *entity.Record {
	snapshot := make(map[string]any, len(catalog))
	now := time.Now().UTC()
	for name, field := range catalog {
		switch {
		case field.HasChoices():
			snapshot[name] = field.Choices[0].Value
		case field.Type == fields.TypeBoolean:
			snapshot[name] = true
		case field.Type == fields.TypeInteger:
			snapshot[name] = 42
		case field.Type.IsNumeric():
			snapshot[name] = 42.5
		case field.Type == fields.TypeDate:
			snapshot[name] = now.Format("2006-01-02")
		case field.Type == fields.TypeDatetime:
			snapshot[name] = now.Format(time.RFC3339)
		case field.Type == fields.TypeRelation:
			snapshot[name] = nil
		default:
			snapshot[name] = "Sample " + field.VerboseName
		}
	}
	return &entity.Record{ID: "sample", Snapshot: snapshot}
}

func envelopeKind(t models.TriggerType) engine.Kind {
	switch t {
	case models.TriggerSignal, models.TriggerViewAction:
		return engine.KindSignal
	case models.TriggerManual:
		return engine.KindManual
	case models.TriggerScheduled:
		return engine.KindScheduled
	default:
		return engine.KindModelEvent
	}
}
