package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/action"
	"github.com/recruitflow/automation/internal/models"
)

// ErrDuplicateSlot reports that a scheduled firing was already recorded for
// the same rule/record/slot. Callers treat it as "already fired", not as a
// failure.
var ErrDuplicateSlot = errors.New("engine: schedule slot already executed")

// Recorder persists the execution audit trail and maintains the per-rule
// aggregate counters. Counter updates are SQL expression increments so
// concurrent firings of one rule never lose updates to read-modify-write.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder builds a recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// DB exposes the underlying handle for history queries.
func (r *Recorder) DB() *gorm.DB { return r.db }

// Begin creates the execution row in running state the instant a rule is
// selected for firing, bumps total_executions and stamps last_triggered_at.
// For scheduled firings slot carries the persisted idempotency key; a
// duplicate slot returns ErrDuplicateSlot without recording anything.
func (r *Recorder) Begin(ctx context.Context, rule *models.Rule, env *Envelope, snapshot map[string]any, isTest bool, slot *string) (*models.Execution, error) {
	triggerData, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal trigger data: %w", err)
	}

	exec := &models.Execution{
		RuleID:          rule.ID,
		Status:          models.ExecutionRunning,
		IsTest:          isTest,
		TriggerType:     rule.TriggerType,
		TriggerModel:    rule.TriggerModel,
		TriggerObjectID: env.ObjectID,
		ScheduleSlot:    slot,
		TriggeredBy:     env.TriggeredBy,
		TriggerData:     triggerData,
		ActionType:      rule.ActionType,
		StartedAt:       time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(exec).Error; err != nil {
		if slot != nil && isUniqueViolation(err) {
			return nil, ErrDuplicateSlot
		}
		return nil, fmt.Errorf("engine: create execution: %w", err)
	}

	now := exec.StartedAt
	if err := r.db.WithContext(ctx).Model(&models.Rule{}).Where("id = ?", rule.ID).
		UpdateColumns(map[string]any{
			"total_executions":  gorm.Expr("total_executions + 1"),
			"last_triggered_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("engine: bump execution counter: %w", err)
	}
	return exec, nil
}

// Success transitions the execution to its terminal success state. The
// counter only moves when this call won the terminal transition.
func (r *Recorder) Success(ctx context.Context, exec *models.Execution, result *action.Result) error {
	applied, err := r.finish(ctx, exec, models.ExecutionSuccess, result, "", "")
	if err != nil || !applied {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.Rule{}).Where("id = ?", exec.RuleID).
		UpdateColumn("total_success", gorm.Expr("total_success + 1")).Error
}

// Fail transitions the execution to its terminal failed state. The counter
// only moves when this call won the terminal transition.
func (r *Recorder) Fail(ctx context.Context, exec *models.Execution, result *action.Result, cause error) error {
	message := "execution failed"
	if cause != nil {
		message = cause.Error()
	}
	applied, err := r.finish(ctx, exec, models.ExecutionFailed, result, message, "")
	if err != nil || !applied {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.Rule{}).Where("id = ?", exec.RuleID).
		UpdateColumn("total_failed", gorm.Expr("total_failed + 1")).Error
}

// Skip transitions the execution to its terminal skipped state. Skips do not
// count against total_failed.
func (r *Recorder) Skip(ctx context.Context, exec *models.Execution, result *action.Result, reason string) error {
	_, err := r.finish(ctx, exec, models.ExecutionSkipped, result, "", reason)
	return err
}

func (r *Recorder) finish(ctx context.Context, exec *models.Execution, status models.ExecutionStatus, result *action.Result, errorMessage, skipReason string) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":       status,
		"completed_at": now,
		"duration_ms":  now.Sub(exec.StartedAt).Milliseconds(),
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	if skipReason != "" {
		updates["skip_reason"] = skipReason
	}
	if result != nil {
		payload := map[string]any{"preview": result.Preview}
		if result.Detail != nil {
			payload["detail"] = result.Detail
		}
		data, err := json.Marshal(payload)
		if err == nil {
			updates["result_data"] = data
		}
	}

	// The running state transitions exactly once; the status guard keeps a
	// terminal row immutable even under a racing double-finish, and a lost
	// race reports zero rows so the caller leaves the counters alone.
	res := r.db.WithContext(ctx).Model(&models.Execution{}).
		Where("id = ? AND status = ?", exec.ID, models.ExecutionRunning).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("engine: finish execution %d: %w", exec.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	exec.Status = status
	exec.CompletedAt = &now
	exec.ErrorMessage = errorMessage
	exec.SkipReason = skipReason
	return true, nil
}

// isUniqueViolation matches postgres and sqlite unique-index errors.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
