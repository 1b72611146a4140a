package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/meshflow/agent"
	"github.com/hupe1980/meshflow/catalog"
	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/logging"
	"github.com/hupe1980/meshflow/metrics"
)

// DefaultMaxSteps bounds a run whose descriptor and context set no limit.
// Zero keeps runs unbounded.
const DefaultMaxSteps = 0

// Options configure an Engine.
type Options struct {
	// MaxSteps applies when neither the descriptor nor the context sets one.
	MaxSteps int
	// Timeout applies when the descriptor sets none (0 = no run deadline).
	Timeout time.Duration
	// AgentOptions are passed to every executor call.
	AgentOptions agent.Options
	Hooks        Hooks
	// Store keeps record snapshots. Defaults to an in-memory store.
	Store   RecordStore
	Logger  logging.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

// Engine drives workflow runs over a catalog and an agent executor. Many runs
// may proceed concurrently; each run's context is owned by the goroutine
// driving it.
type Engine struct {
	catalog  *catalog.Catalog
	executor *agent.Executor

	maxSteps     int
	timeout      time.Duration
	agentOptions agent.Options
	hooks        Hooks
	store        RecordStore
	logger       logging.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New creates an engine resolving agent ids through cat and running them
// with exec.
func New(cat *catalog.Catalog, exec *agent.Executor, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxSteps: DefaultMaxSteps,
		Store:    NewInMemoryRecordStore(),
		Logger:   logging.NoOpLogger{},
		Tracer:   otel.Tracer("github.com/hupe1980/meshflow/engine"),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = NewInMemoryRecordStore()
	}

	return &Engine{
		catalog:      cat,
		executor:     exec,
		maxSteps:     opts.MaxSteps,
		timeout:      opts.Timeout,
		agentOptions: opts.AgentOptions,
		hooks:        opts.Hooks,
		store:        opts.Store,
		logger:       logging.OrNoOp(opts.Logger),
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
		active:       make(map[string]context.CancelFunc),
	}
}

// Catalog returns the catalog used to resolve agent ids.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Executor returns the agent executor.
func (e *Engine) Executor() *agent.Executor { return e.executor }

// Run is a handle on a started workflow run.
type Run struct {
	id   string
	done chan struct{}
	rec  *Record
}

// ID returns the record id.
func (r *Run) ID() string { return r.id }

// Done is closed once the run reached a terminal status.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes and returns its frozen record.
func (r *Run) Wait() *Record {
	<-r.done
	return r.rec.Clone()
}

// Start validates desc and launches the run in the background. ec is copied;
// the caller's context is never mutated. The returned error covers invalid
// descriptors only: every other failure ends up on the record.
func (e *Engine) Start(ctx context.Context, desc Descriptor, ec *core.ExecutionContext) (*Run, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	rec := newRecord(desc)
	if err := e.store.Save(rec); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.active[rec.ID] = cancel
	e.mu.Unlock()

	run := &Run{id: rec.ID, done: make(chan struct{}), rec: rec}

	go func() {
		defer close(run.done)
		defer func() {
			e.mu.Lock()
			delete(e.active, rec.ID)
			e.mu.Unlock()
			cancel()
		}()

		e.run(runCtx, rec, ec)
	}()

	return run, nil
}

// Execute runs desc to a terminal status and returns the frozen record.
func (e *Engine) Execute(ctx context.Context, desc Descriptor, ec *core.ExecutionContext) (*Record, error) {
	run, err := e.Start(ctx, desc, ec)
	if err != nil {
		return nil, err
	}
	return run.Wait(), nil
}

// Cancel requests a cooperative stop of a running record. The stop is
// observed before the next step; the record then ends failed with
// core.ErrCancelled. Cancel reports whether the record was running.
func (e *Engine) Cancel(recordID string) bool {
	e.mu.Lock()
	cancel, ok := e.active[recordID]
	e.mu.Unlock()

	if ok {
		e.logger.Info("workflow.cancel", "record", recordID)
		cancel()
	}
	return ok
}

// Active returns the ids of records currently running.
func (e *Engine) Active() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	return ids
}

// Record returns a snapshot of the record with the given id.
func (e *Engine) Record(id string) (*Record, error) {
	return e.store.Get(id)
}

// Records returns snapshots of every known record, oldest first.
func (e *Engine) Records() ([]*Record, error) {
	return e.store.List()
}

// run drives one record from pending to a terminal status.
func (e *Engine) run(ctx context.Context, rec *Record, ec *core.ExecutionContext) {
	desc := rec.Descriptor

	ctx, span := e.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.id", desc.ID),
		attribute.String("workflow.record", rec.ID),
		attribute.String("workflow.topology", rec.Topology),
	))
	defer span.End()

	owned := ec.Clone()
	if owned == nil {
		owned = core.NewExecutionContext("")
	}

	r := &runState{
		engine:   e,
		rec:      rec,
		ec:       owned,
		maxSteps: e.resolveMaxSteps(desc, owned),
		deadline: e.resolveDeadline(ctx, desc, owned),
	}
	if !r.deadline.IsZero() {
		owned.Limits.Deadline = r.deadline
	}
	owned.Limits.MaxSteps = r.maxSteps
	rec.MaxSteps = r.maxSteps
	rec.Context = owned

	var logger logging.Logger
	if sl, ok := e.logger.(*logging.StructuredLogger); ok {
		logger = sl.WithRun(desc.ID, rec.ID)
	} else {
		logger = logging.With(e.logger, "workflow", desc.ID, "record", rec.ID)
	}
	r.logger = logger

	rec.StartedAt = time.Now().UTC()
	r.transition(StatusRunning)
	logger.Info("workflow.run.start",
		"topology", rec.Topology,
		"max_steps", r.maxSteps,
		"deadline", r.deadline,
	)

	r.dispatch(ctx)

	e.metrics.ObserveWorkflow(rec.Topology, string(rec.Status), rec.Duration())

	span.SetAttributes(
		attribute.String("workflow.status", string(rec.Status)),
		attribute.Int("workflow.steps", rec.Steps),
	)
	if rec.err != nil {
		span.RecordError(rec.err)
		span.SetStatus(codes.Error, rec.err.Error())
	}

	if sl, ok := logger.(*logging.StructuredLogger); ok {
		sl.LogWorkflowExecution(rec.Topology, string(rec.Status), rec.Steps, rec.Duration(), rec.err)
	} else {
		logger.Info("workflow.run.complete",
			"status", rec.Status,
			"stop_reason", rec.StopReason,
			"steps", rec.Steps,
			"duration_ms", rec.Duration().Milliseconds(),
			"error", rec.Error,
		)
	}
}

func (e *Engine) resolveMaxSteps(desc Descriptor, ec *core.ExecutionContext) int {
	switch {
	case desc.MaxSteps > 0:
		return desc.MaxSteps
	case ec.Limits.MaxSteps > 0:
		return ec.Limits.MaxSteps
	case e.maxSteps > 0:
		return e.maxSteps
	case desc.Topology.Kind() == TopologyEvaluatorOptimizer:
		return DefaultEvaluatorRounds
	}
	return 0
}

func (e *Engine) resolveDeadline(ctx context.Context, desc Descriptor, ec *core.ExecutionContext) time.Time {
	timeout := desc.Timeout
	if timeout == 0 {
		timeout = e.timeout
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d := ec.Limits.Deadline; !d.IsZero() && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

// dispatch selects the topology driver. The switch is exhaustive over the
// closed Topology set.
func (r *runState) dispatch(ctx context.Context) {
	switch t := r.rec.Descriptor.Topology.(type) {
	case Sequential:
		r.runSequential(ctx, t)
	case Parallel:
		r.runParallel(ctx, t)
	case Routing:
		r.runRouting(ctx, t)
	case EvaluatorOptimizer:
		r.runEvaluatorOptimizer(ctx, t)
	default:
		r.fail(fmt.Errorf("unsupported topology %T", t))
	}
}

// runState is the mutable state of one run, touched only by its driving
// goroutine.
type runState struct {
	engine   *Engine
	rec      *Record
	ec       *core.ExecutionContext
	maxSteps int
	deadline time.Time
	logger   logging.Logger
}

func (r *runState) transition(to Status) {
	from := r.rec.Status
	r.rec.Status = to
	if to.Terminal() {
		r.rec.FinishedAt = time.Now().UTC()
	}
	r.snapshot()
	r.engine.hooks.onStatus(r.rec.ID, from, to)
}

func (r *runState) snapshot() {
	if err := r.engine.store.Save(r.rec); err != nil {
		r.logger.Warn("workflow.record.save_failed", "record", r.rec.ID, "error", err)
	}
}

// checkpoint runs before every step. An elapsed run deadline wins over an
// external stop.
func (r *runState) checkpoint(ctx context.Context) error {
	if r.deadlineExpired() {
		return core.ErrTimeout
	}
	if ctx.Err() != nil {
		return core.FromContext(ctx)
	}
	return nil
}

func (r *runState) deadlineExpired() bool {
	return !r.deadline.IsZero() && !time.Now().Before(r.deadline)
}

// budgetExhausted reports whether the next step must be refused.
func (r *runState) budgetExhausted() bool {
	return r.maxSteps > 0 && r.rec.Steps >= r.maxSteps
}

// resolve looks up every id before any agent runs.
func (r *runState) resolve(ids ...string) ([]core.AgentDefinition, error) {
	defs := make([]core.AgentDefinition, 0, len(ids))
	for _, id := range ids {
		def, err := r.engine.catalog.Get(id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (r *runState) agentOptions() agent.Options {
	return r.engine.agentOptions
}

// execute runs one agent against the owned context.
func (r *runState) execute(ctx context.Context, def core.AgentDefinition) core.AgentExecutionResult {
	r.engine.hooks.beforeAgent(ctx, r.rec.ID, def)
	return r.engine.executor.Execute(ctx, def, r.ec, r.agentOptions())
}

// commit appends res to the record and its turns to the owned context.
func (r *runState) commit(ctx context.Context, res core.AgentExecutionResult) {
	r.rec.Results = append(r.rec.Results, res)
	r.ec.Append(res.Turns...)
	r.snapshot()
	r.engine.hooks.afterAgent(ctx, r.rec.ID, res)
}

// step counts one committed unit of topology progress.
func (r *runState) step() {
	r.rec.Steps++
}

// shouldStop evaluates the stop predicate after a committed step.
func (r *runState) shouldStop() bool {
	pred := r.rec.Descriptor.StopWhen
	return pred != nil && pred(r.rec.Steps, r.rec.Results)
}

func (r *runState) complete() {
	r.transition(StatusCompleted)
}

func (r *runState) stop(reason StopReason) {
	r.rec.StopReason = reason
	r.transition(StatusStopped)
}

// fail ends the run with err, classifying run timeouts as timed_out.
func (r *runState) fail(err error) {
	r.rec.err = err
	r.rec.Error = err.Error()

	if errors.Is(err, core.ErrTimeout) && r.deadlineExpired() {
		r.transition(StatusTimedOut)
		return
	}
	r.transition(StatusFailed)
}

// failAgent aborts the run after an error-terminal agent result.
func (r *runState) failAgent(res core.AgentExecutionResult) {
	r.fail(fmt.Errorf("agent %s: %w", res.AgentID, res.Err()))
}

// beforeStep runs the checkpoint and the step budget check. It returns false
// when the run has ended.
func (r *runState) beforeStep(ctx context.Context) bool {
	if err := r.checkpoint(ctx); err != nil {
		r.fail(err)
		return false
	}
	if r.budgetExhausted() {
		r.stop(ReasonMaxSteps)
		return false
	}
	return true
}
