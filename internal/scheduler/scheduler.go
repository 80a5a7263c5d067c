// Package scheduler turns scheduled rules into trigger envelopes. It is the
// only pipeline component that originates events instead of reacting to
// them; everything downstream of the envelope is the normal engine path.
package scheduler

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/recruitflow/automation/internal/engine"
	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/models"
	"github.com/recruitflow/automation/internal/rulestore"
)

const (
	defaultInterval   = 2 * time.Minute
	defaultBatchLimit = 500
)

// Scheduler periodically scans scheduled rules for records whose target time
// has entered the tick window. Duplicate firings across overlapping ticks or
// restarts are prevented by the schedule-slot idempotency key the recorder
// persists, not by volatile state here.
type Scheduler struct {
	rules      rulestore.Store
	gateway    entity.Gateway
	engine     *engine.Engine
	interval   time.Duration
	batchLimit int
}

// New builds a scheduler. Zero interval and batchLimit use defaults.
func New(rules rulestore.Store, gateway entity.Gateway, eng *engine.Engine, interval time.Duration, batchLimit int) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}
	return &Scheduler{
		rules:      rules,
		gateway:    gateway,
		engine:     eng,
		interval:   interval,
		batchLimit: batchLimit,
	}
}

// Start launches the tick loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
	log.Infof("scheduler started (interval=%s batch=%d)", s.interval, s.batchLimit)
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.Tick(ctx, time.Now().UTC())
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// Tick scans every active scheduled rule once. The window looks back two
// intervals so a slow or skipped tick cannot lose records; overlap is safe
// because the slot key dedupes.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	rules, err := s.rules.ActiveScheduled(ctx)
	if err != nil {
		log.WithError(err).Error("scheduler: load scheduled rules")
		return
	}
	windowStart := now.Add(-2 * s.interval)
	for i := range rules {
		if ctx.Err() != nil {
			return
		}
		s.scanRule(ctx, &rules[i], windowStart, now)
	}
}

func (s *Scheduler) scanRule(ctx context.Context, rule *models.Rule, from, to time.Time) {
	cfg, err := rule.Schedule()
	if err != nil || cfg == nil {
		log.Warnf("scheduler: rule %d has no usable schedule config", rule.ID)
		return
	}

	// target = datetime_field - offset (before) or + offset (after); the
	// records due in [from, to) are those whose datetime field lies in the
	// window shifted the opposite way.
	offset := time.Duration(cfg.OffsetHours) * time.Hour
	shift := offset
	if cfg.OffsetType == models.OffsetAfter {
		shift = -offset
	}
	records, err := s.gateway.DueRecords(ctx, rule.TriggerModel, cfg.DatetimeField, from.Add(shift), to.Add(shift), s.batchLimit)
	if err != nil {
		log.WithError(err).Errorf("scheduler: rule %d: scan %s.%s", rule.ID, rule.TriggerModel, cfg.DatetimeField)
		return
	}

	for i := range records {
		record := &records[i]
		target, ok := targetTime(record.Snapshot[cfg.DatetimeField], cfg)
		if !ok {
			log.Warnf("scheduler: rule %d record %s: unparsable %s", rule.ID, record.ID, cfg.DatetimeField)
			continue
		}

		env := engine.NewEnvelope(engine.KindScheduled)
		env.Model = rule.TriggerModel
		env.ObjectID = record.ID
		env.NewSnapshot = record.Snapshot
		env.RuleID = rule.ID
		env.ScheduleSlot = SlotKey(rule.ID, record.ID, target)
		if !s.engine.ProcessAsync(env) {
			// Queue full: the next tick retries, the slot key dedupes.
			log.Warnf("scheduler: rule %d record %s deferred, queue full", rule.ID, record.ID)
			return
		}
	}
}

// SlotKey is the persisted idempotency key for one rule x record x schedule
// slot. The target time is truncated to the minute so recomputation after a
// restart lands on the same key.
func SlotKey(ruleID uint64, recordID string, target time.Time) string {
	return fmt.Sprintf("%d:%s:%s", ruleID, recordID, target.UTC().Truncate(time.Minute).Format(time.RFC3339))
}

func targetTime(raw any, cfg *models.ScheduleConfig) (time.Time, bool) {
	base, ok := parseTime(raw)
	if !ok {
		return time.Time{}, false
	}
	offset := time.Duration(cfg.OffsetHours) * time.Hour
	if cfg.OffsetType == models.OffsetBefore {
		return base.Add(-offset), true
	}
	return base.Add(offset), true
}

func parseTime(raw any) (time.Time, bool) {
	switch t := raw.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
