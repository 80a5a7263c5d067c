package engine

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/recruitflow/automation/internal/action"
	"github.com/recruitflow/automation/internal/condition"
	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/fields"
	"github.com/recruitflow/automation/internal/models"
	"github.com/recruitflow/automation/internal/rulestore"
)

// Options bound the dispatch queue.
type Options struct {
	QueueDepth int // Envelope queue capacity.
	Workers    int // Concurrent envelope workers.
}

func (o Options) withDefaults() Options {
	if o.QueueDepth <= 0 {
		o.QueueDepth = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	return o
}

// Engine owns the trigger pipeline: envelopes go onto a bounded dispatch
// queue so the originating request is never held up by action execution, and
// each matching rule fires as an independent concurrent unit of work.
type Engine struct {
	gateway  entity.Gateway
	rules    rulestore.Store
	registry *action.Registry
	recorder *Recorder

	queue   chan *Envelope
	workers int
	wg      sync.WaitGroup

	mu             sync.Mutex
	stopped        bool // Intake refused; set on shutdown.
	queueClosed    bool
	cancelDispatch context.CancelFunc
}

// New builds an engine. Start must be called before dispatching envelopes.
func New(gateway entity.Gateway, rules rulestore.Store, registry *action.Registry, recorder *Recorder, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		gateway:  gateway,
		rules:    rules,
		registry: registry,
		recorder: recorder,
		queue:    make(chan *Envelope, opts.QueueDepth),
		workers:  opts.Workers,
	}
}

// Start launches the envelope workers. ctx cancellation stops intake only;
// envelopes already queued are still delivered, the queue closes in Drain.
// Workers dispatch on their own context so the backlog survives the run
// context's cancellation.
func (e *Engine) Start(ctx context.Context) {
	dispatchCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancelDispatch = cancel
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		e.stopped = true
		e.mu.Unlock()
	}()

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for env := range e.queue {
				e.processEnvelope(dispatchCtx, env)
			}
		}()
	}
	log.Infof("engine started (workers=%d queue=%d)", e.workers, cap(e.queue))
}

// ProcessAsync enqueues an envelope without blocking. Returns false when the
// queue is full or the engine is shutting down; callers surface that as
// backpressure, the engine never drops silently.
func (e *Engine) ProcessAsync(env *Envelope) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		log.Warnf("engine: shutting down, envelope %s rejected", env.ID)
		return false
	}
	select {
	case e.queue <- env:
		return true
	default:
		log.Warnf("engine: queue full, envelope %s rejected", env.ID)
		return false
	}
}

// ProcessSync runs an envelope through the pipeline on the caller's
// goroutine. Used by the manual-trigger path where the caller wants the
// outcome inline.
func (e *Engine) ProcessSync(ctx context.Context, env *Envelope) {
	e.processEnvelope(ctx, env)
}

// Drain stops intake, closes the queue and waits for the workers to finish
// the backlog. The wait is bounded by ctx; on expiry in-flight dispatch is
// cancelled and Drain reports false.
func (e *Engine) Drain(ctx context.Context) bool {
	e.mu.Lock()
	e.stopped = true
	if !e.queueClosed {
		e.queueClosed = true
		close(e.queue)
	}
	cancel := e.cancelDispatch
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		<-done
		return false
	}
}

// QueueUtilization returns queued/capacity in [0,1].
func (e *Engine) QueueUtilization() float64 {
	if cap(e.queue) == 0 {
		return 0
	}
	return float64(len(e.queue)) / float64(cap(e.queue))
}

// candidateTypes maps a model event to the trigger types it can satisfy.
func candidateTypes(event ModelEvent) []models.TriggerType {
	switch event {
	case EventCreated:
		return []models.TriggerType{models.TriggerModelCreated}
	case EventUpdated:
		return []models.TriggerType{
			models.TriggerModelUpdated,
			models.TriggerStageChanged,
			models.TriggerStatusChanged,
			models.TriggerFieldChanged,
		}
	case EventDeleted:
		return []models.TriggerType{models.TriggerModelDeleted}
	}
	return nil
}

func (e *Engine) processEnvelope(ctx context.Context, env *Envelope) {
	rules, catalog, err := e.candidates(ctx, env)
	if err != nil {
		log.WithError(err).Errorf("engine: envelope %s: load candidates", env.ID)
		return
	}
	if len(rules) == 0 {
		return
	}

	// Matching rules evaluate and execute concurrently with no cross-rule
	// ordering; a failure in one must never reach another.
	var wg sync.WaitGroup
	for i := range rules {
		rule := rules[i]
		conds, errConds := condition.Decode(rule.TriggerConditions)
		if errConds != nil {
			log.WithError(errConds).Warnf("engine: rule %d has malformed conditions, not firing", rule.ID)
			continue
		}
		if !Matches(env, &rule, conds) {
			continue
		}
		if !condition.EvaluateAll(conds, EffectiveCatalog(catalog, &rule), EffectiveSnapshot(env, &rule)) {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.fireRule(ctx, &rule, env, catalog)
		}()
	}
	wg.Wait()
}

// candidates loads the rules the envelope could match plus the trigger
// model's field catalog.
func (e *Engine) candidates(ctx context.Context, env *Envelope) ([]models.Rule, map[string]fields.ModelField, error) {
	switch env.Kind {
	case KindModelEvent:
		types := candidateTypes(env.Event)
		if types == nil {
			return nil, nil, nil
		}
		rules, err := e.rules.ActiveForModel(ctx, env.Model, types)
		if err != nil {
			return nil, nil, err
		}
		catalog, err := e.catalogFor(ctx, env.Model)
		if err != nil {
			return nil, nil, err
		}
		return rules, catalog, nil
	case KindScheduled:
		rule, err := e.rules.Get(ctx, env.RuleID)
		if err != nil {
			return nil, nil, err
		}
		if !rule.IsActive || rule.TriggerType != models.TriggerScheduled {
			return nil, nil, nil
		}
		catalog, err := e.catalogFor(ctx, rule.TriggerModel)
		if err != nil {
			return nil, nil, err
		}
		return []models.Rule{*rule}, catalog, nil
	case KindSignal:
		rules, err := e.rules.ActiveForSignal(ctx, env.SignalName,
			[]models.TriggerType{models.TriggerSignal, models.TriggerViewAction})
		return rules, map[string]fields.ModelField{}, err
	case KindManual:
		rules, err := e.rules.ActiveForSignal(ctx, env.SignalName,
			[]models.TriggerType{models.TriggerManual})
		return rules, map[string]fields.ModelField{}, err
	}
	return nil, nil, nil
}

func (e *Engine) catalogFor(ctx context.Context, model string) (map[string]fields.ModelField, error) {
	if model == "" {
		return map[string]fields.ModelField{}, nil
	}
	list, err := e.gateway.ListFields(ctx, model)
	if err != nil {
		return nil, err
	}
	return fields.ByName(list), nil
}

// fireRule is one independent unit of work: record running, execute the
// action, record the terminal outcome. All failures stay local to this
// execution.
func (e *Engine) fireRule(ctx context.Context, rule *models.Rule, env *Envelope, catalog map[string]fields.ModelField) {
	var slot *string
	if env.Kind == KindScheduled && env.ScheduleSlot != "" {
		slot = &env.ScheduleSlot
	}

	snapshot := env.Snapshot()
	exec, err := e.recorder.Begin(ctx, rule, env, snapshot, false, slot)
	if err != nil {
		if errors.Is(err, ErrDuplicateSlot) {
			log.Debugf("engine: rule %d slot %s already fired", rule.ID, env.ScheduleSlot)
			return
		}
		log.WithError(err).Errorf("engine: rule %d: begin execution", rule.ID)
		return
	}

	record := &entity.Record{ID: env.ObjectID, Snapshot: snapshot}
	result, execErr := e.ExecuteAction(ctx, rule, record, catalog, exec, true)
	e.recordOutcome(ctx, exec, result, execErr)
}

// ExecuteAction dispatches to the rule's action handler. Exported for the
// test harness, which runs the same path with its own execution row (live
// test) or commit=false (dry run).
func (e *Engine) ExecuteAction(ctx context.Context, rule *models.Rule, record *entity.Record, catalog map[string]fields.ModelField, exec *models.Execution, commit bool) (*action.Result, error) {
	handler, err := e.registry.Get(rule.ActionType)
	if err != nil {
		return nil, err
	}
	req := &action.Request{
		Rule:    rule,
		Record:  record,
		Catalog: catalog,
	}
	if exec != nil {
		req.ExecutionID = exec.ID
		req.TriggeredBy = exec.TriggeredBy
	}
	return handler.Execute(ctx, req, commit)
}

// RecordOutcome writes the terminal state for an execution given the handler
// result. Exported for the harness.
func (e *Engine) RecordOutcome(ctx context.Context, exec *models.Execution, result *action.Result, execErr error) {
	e.recordOutcome(ctx, exec, result, execErr)
}

func (e *Engine) recordOutcome(ctx context.Context, exec *models.Execution, result *action.Result, execErr error) {
	switch {
	case execErr != nil:
		if err := e.recorder.Fail(ctx, exec, result, execErr); err != nil {
			log.WithError(err).Errorf("engine: execution %d: record failure", exec.ID)
		}
		log.WithError(execErr).Warnf("engine: rule %d execution %d failed", exec.RuleID, exec.ID)
	case result != nil && result.Skipped:
		if err := e.recorder.Skip(ctx, exec, result, result.SkipReason); err != nil {
			log.WithError(err).Errorf("engine: execution %d: record skip", exec.ID)
		}
	default:
		if err := e.recorder.Success(ctx, exec, result); err != nil {
			log.WithError(err).Errorf("engine: execution %d: record success", exec.ID)
		}
	}
}

// Recorder exposes the execution recorder for collaborators that share it.
func (e *Engine) Recorder() *Recorder { return e.recorder }

// Gateway exposes the entity gateway for collaborators that share it.
func (e *Engine) Gateway() entity.Gateway { return e.gateway }
