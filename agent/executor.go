package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/logging"
	"github.com/hupe1980/meshflow/metrics"
	"github.com/hupe1980/meshflow/model"
	"github.com/hupe1980/meshflow/tool"
)

// Executor runs agent definitions against a Completion Gateway. It holds no
// per-run state and is safe for concurrent use.
type Executor struct {
	gateway  model.Gateway
	tools    *tool.Registry
	defaults Options
	logger   logging.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewExecutor creates an executor bound to gw.
func NewExecutor(gw model.Gateway, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := defaultExecutorOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry()
	}
	if opts.Defaults.MaxSteps == 0 {
		opts.Defaults.MaxSteps = DefaultMaxSteps
	}

	return &Executor{
		gateway:  gw,
		tools:    opts.Tools,
		defaults: opts.Defaults,
		logger:   logging.OrNoOp(opts.Logger),
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
	}
}

// Gateway returns the gateway the executor calls.
func (e *Executor) Gateway() model.Gateway { return e.gateway }

// Tools returns the tool registry used to resolve definition tool names.
func (e *Executor) Tools() *tool.Registry { return e.tools }

// Defaults returns the executor-wide default options.
func (e *Executor) Defaults() Options { return e.defaults }

// run carries the mutable state of one Execute call.
type run struct {
	def      core.AgentDefinition
	ec       *core.ExecutionContext
	opts     Options
	deadline time.Time
	limiter  *core.StepLimiter
	result   core.AgentExecutionResult
}

// Execute runs def to completion against ec. It never returns an error:
// failures are captured on the result's terminal reason and error.
func (e *Executor) Execute(ctx context.Context, def core.AgentDefinition, ec *core.ExecutionContext, opts Options) core.AgentExecutionResult {
	if ec == nil {
		ec = core.NewExecutionContext("")
	}
	opts = opts.merge(e.defaults)

	ctx, span := e.startSpan(ctx, def)
	defer span.End()

	r := &run{
		def:      def,
		ec:       ec,
		opts:     opts,
		deadline: effectiveDeadline(ctx, opts.Timeout, ec.Limits.Deadline),
		limiter:  core.NewStepLimiter(opts.MaxSteps),
		result: core.AgentExecutionResult{
			AgentID:  def.ID,
			Metadata: core.ExecutionMetadata{StartedAt: time.Now().UTC()},
		},
	}

	e.logger.Debug("agent.execute.start", "agent", def.ID, "max_steps", opts.MaxSteps, "streaming", opts.Streaming)

	err := e.safeLoop(ctx, r)

	r.result.Metadata.Steps = r.limiter.Count()
	r.result.Metadata.Duration = time.Since(r.result.Metadata.StartedAt)
	r.result.Metadata.TerminalReason = core.ReasonFor(err)
	if err != nil {
		r.result.SetErr(&core.AgentError{AgentID: def.ID, Reason: r.result.Metadata.TerminalReason, Err: err})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		r.result.Output = structuredOutput(r.result.Text())
	}

	span.SetAttributes(
		attribute.String("agent.terminal_reason", string(r.result.Metadata.TerminalReason)),
		attribute.Int("agent.steps", r.result.Metadata.Steps),
		attribute.Int("agent.tool_calls", r.result.Metadata.ToolCalls),
	)
	e.metrics.ObserveAgent(def.ID, string(r.result.Metadata.TerminalReason), r.result.Metadata.Duration)

	level := e.logger.Info
	if err != nil {
		level = e.logger.Warn
	}
	level("agent.execute.complete",
		"agent", def.ID,
		"terminal_reason", r.result.Metadata.TerminalReason,
		"steps", r.result.Metadata.Steps,
		"tool_calls", r.result.Metadata.ToolCalls,
		"duration_ms", r.result.Metadata.Duration.Milliseconds(),
		"error", r.result.Error,
	)

	return r.result
}

// safeLoop converts panics (from gateways or tools) into gateway errors.
func (e *Executor) safeLoop(ctx context.Context, r *run) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("agent.execute.panic", "agent", r.def.ID, "recover", rec, "stack", string(debug.Stack()))
			err = core.NewGatewayError(e.gateway.Info().Provider, "panic", fmt.Errorf("recovered: %v", rec))
		}
	}()
	return e.loop(ctx, r)
}

func (e *Executor) loop(ctx context.Context, r *run) error {
	tools, err := e.resolveTools(r.def)
	if err != nil {
		return err
	}

	instructions, err := renderInstructions(r.def, r.ec)
	if err != nil {
		return err
	}

	for {
		if err := r.checkpoint(ctx); err != nil {
			return err
		}
		if err := r.limiter.Increment(); err != nil {
			return err
		}

		step := r.limiter.Count()
		r.opts.Progress.Emit(core.Progress{Kind: core.ProgressStepStarted, AgentID: r.def.ID, Step: step, TotalSteps: r.opts.MaxSteps})

		req := buildRequest(r.def, r.ec, r.result.Turns, instructions, tools, r.opts)

		resp, err := e.call(ctx, r, req)
		if err != nil {
			return err
		}

		r.result.Metadata.Usage.Add(resp.Usage)

		turn := resp.Turn.Clone()
		turn.Role = core.RoleAssistant
		turn.Author = r.def.ID
		if turn.ID == "" {
			turn.ID = core.NewID()
		}
		if turn.Timestamp.IsZero() {
			turn.Timestamp = time.Now().UTC()
		}
		r.result.Turns = append(r.result.Turns, turn)

		calls := turn.FunctionCalls()
		if len(calls) > 0 {
			toolTurn := e.runTools(ctx, r, calls)
			r.result.Turns = append(r.result.Turns, toolTurn)
		}

		r.opts.Progress.Emit(core.Progress{Kind: core.ProgressStepCompleted, AgentID: r.def.ID, Step: step, TotalSteps: r.opts.MaxSteps, MessageID: resp.ID})

		if len(calls) == 0 {
			return nil
		}
	}
}

// checkpoint is evaluated before every round trip: an elapsed deadline wins
// over an external cancellation.
func (r *run) checkpoint(ctx context.Context) error {
	if !r.deadline.IsZero() && !time.Now().Before(r.deadline) {
		return core.ErrTimeout
	}
	if err := ctx.Err(); err != nil {
		return core.FromContext(ctx)
	}
	return nil
}

// callContext detaches the gateway call from cancellation while keeping the
// deadline: an in-flight call is bounded but never interrupted by a stop.
func (r *run) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx := context.WithoutCancel(ctx)
	if r.deadline.IsZero() {
		return context.WithCancel(callCtx)
	}
	return context.WithDeadline(callCtx, r.deadline)
}

func (e *Executor) call(ctx context.Context, r *run, req model.Request) (*model.Response, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	done := e.metrics.GatewayCallStarted()
	defer done()

	var (
		resp *model.Response
		err  error
	)

	if r.opts.Streaming {
		var events <-chan model.StreamEvent
		events, err = e.gateway.Stream(callCtx, req)
		if err == nil {
			resp, err = model.Collect(callCtx, events, func(messageID, delta string) {
				r.opts.Progress.Emit(core.Progress{
					Kind:       core.ProgressDelta,
					AgentID:    r.def.ID,
					Step:       r.limiter.Count(),
					TotalSteps: r.opts.MaxSteps,
					MessageID:  messageID,
					Delta:      delta,
				})
			})
		}
	} else {
		resp, err = e.gateway.Complete(callCtx, req)
	}

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", core.ErrTimeout, err)
		}
		var gwErr *core.GatewayError
		if errors.As(err, &gwErr) || errors.Is(err, core.ErrTimeout) || errors.Is(err, core.ErrCancelled) {
			return nil, err
		}
		return nil, core.NewGatewayError(e.gateway.Info().Provider, "complete", err)
	}
	if resp == nil {
		return nil, core.NewGatewayError(e.gateway.Info().Provider, "complete", errors.New("empty response"))
	}

	return resp, nil
}

func (e *Executor) startSpan(ctx context.Context, def core.AgentDefinition) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return e.tracer.Start(ctx, "agent.execute", trace.WithAttributes(
		attribute.String("agent.id", def.ID),
		attribute.String("agent.name", def.DisplayName()),
	))
}

func effectiveDeadline(ctx context.Context, timeout time.Duration, limit time.Time) time.Time {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if !limit.IsZero() && (deadline.IsZero() || limit.Before(deadline)) {
		deadline = limit
	}
	return deadline
}
