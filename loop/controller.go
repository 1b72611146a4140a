package loop

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/logging"
	"github.com/hupe1980/meshflow/metrics"
)

// DefaultMaxIterations applies when Config.MaxIterations is not positive.
const DefaultMaxIterations = 10

// ErrorAction tells the controller how to proceed after a failed iteration.
type ErrorAction int

const (
	// Stop ends the loop with StopReason error.
	Stop ErrorAction = iota
	// Continue classifies the failure as retryable; the next iteration runs.
	Continue
)

// StopReason explains why a loop ended.
type StopReason string

const (
	ReasonPredicate     StopReason = "predicate"
	ReasonMaxIterations StopReason = "max_iterations"
	ReasonTimeout       StopReason = "timeout"
	ReasonStopped       StopReason = "stopped"
	ReasonError         StopReason = "error"
	ReasonCancelled     StopReason = "cancelled"
)

// Config bounds and observes a loop. Callbacks run synchronously on the
// goroutine calling Run.
type Config struct {
	MaxIterations int
	// MinIterations suppresses StopWhen until that many iterations ran.
	MinIterations int
	// TotalTimeout bounds the loop including in-flight iterations.
	TotalTimeout time.Duration
	// Interval is the pause between iterations.
	Interval time.Duration

	StopWhen    func(iteration int, results []Result) bool
	OnIteration func(iteration int, res Result)
	OnComplete  func(state State)
	// OnError classifies a failed iteration (default Stop).
	OnError func(iteration int, err error) ErrorAction

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// State is a snapshot of a loop run.
type State struct {
	Iteration  int                    `json:"iteration"`
	StartedAt  time.Time              `json:"started_at"`
	Running    bool                   `json:"running"`
	Stopped    bool                   `json:"stopped"`
	Results    []Result               `json:"results"`
	Elapsed    time.Duration          `json:"elapsed"`
	StopReason StopReason             `json:"stop_reason,omitempty"`
	Context    *core.ExecutionContext `json:"context,omitempty"`
	Err        error                  `json:"-"`
}

// Controller drives a single loop run. Stop and State are safe to call from
// any goroutine at any time.
type Controller struct {
	cfg    Config
	logger logging.Logger

	stopOnce sync.Once
	stopCh   chan struct{}

	mu    sync.Mutex
	state State
}

// New creates a controller.
func New(cfg Config) *Controller {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MinIterations > cfg.MaxIterations {
		cfg.MinIterations = cfg.MaxIterations
	}
	return &Controller{
		cfg:    cfg,
		logger: logging.OrNoOp(cfg.Logger),
		stopCh: make(chan struct{}),
	}
}

// Stop requests the loop to end before its next iteration. Calling it more
// than once, or before Run, is fine.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		c.state.Stopped = true
		c.mu.Unlock()
		c.logger.Info("loop.stop.requested")
	})
}

func (c *Controller) stopRequested() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Results = slices.Clone(c.state.Results)
	s.Context = c.state.Context.Clone()
	if s.Running {
		s.Elapsed = time.Since(s.StartedAt)
	}
	return s
}

func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

// Run repeats unit until one of the end conditions holds and returns the
// final state. ec is copied; the loop appends every iteration's turns to its
// own copy, which is returned as State.Context.
func (c *Controller) Run(ctx context.Context, unit Unit, ec *core.ExecutionContext) State {
	owned := ec.Clone()
	if owned == nil {
		owned = core.NewExecutionContext("")
	}

	start := time.Now()
	var deadline time.Time
	if c.cfg.TotalTimeout > 0 {
		deadline = start.Add(c.cfg.TotalTimeout)
	}

	c.update(func(s *State) {
		s.StartedAt = start.UTC()
		s.Running = true
		s.Context = owned
	})

	c.logger.Info("loop.start",
		"unit", unit.Name(),
		"max_iterations", c.cfg.MaxIterations,
		"min_iterations", c.cfg.MinIterations,
		"total_timeout", c.cfg.TotalTimeout,
	)

	reason, err := c.loop(ctx, unit, owned, deadline)

	c.update(func(s *State) {
		s.Running = false
		s.Elapsed = time.Since(start)
		s.StopReason = reason
		s.Err = err
	})
	final := c.State()

	level := c.logger.Info
	if err != nil {
		level = c.logger.Warn
	}
	level("loop.complete",
		"unit", unit.Name(),
		"iterations", final.Iteration,
		"stop_reason", reason,
		"elapsed_ms", final.Elapsed.Milliseconds(),
		"error", err,
	)

	if c.cfg.OnComplete != nil {
		c.cfg.OnComplete(final)
	}
	return final
}

func (c *Controller) loop(ctx context.Context, unit Unit, owned *core.ExecutionContext, deadline time.Time) (StopReason, error) {
	expired := func() bool { return !deadline.IsZero() && !time.Now().Before(deadline) }

	for iteration := 0; ; {
		if c.stopRequested() {
			return ReasonStopped, nil
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ReasonTimeout, core.FromContext(ctx)
			}
			return ReasonCancelled, core.FromContext(ctx)
		}
		if expired() {
			return ReasonTimeout, core.ErrTimeout
		}
		if iteration >= c.cfg.MaxIterations {
			return ReasonMaxIterations, nil
		}

		iteration++
		c.logger.Debug("loop.iteration.start", "unit", unit.Name(), "iteration", iteration)

		iterCtx := owned.Clone()
		if !deadline.IsZero() && (iterCtx.Limits.Deadline.IsZero() || deadline.Before(iterCtx.Limits.Deadline)) {
			iterCtx.Limits.Deadline = deadline
		}

		res := unit.Run(ctx, iterCtx)
		res.Iteration = iteration

		var results []Result
		c.update(func(s *State) {
			s.Iteration = iteration
			owned.Append(res.Turns...)
			s.Results = append(s.Results, res)
			results = slices.Clone(s.Results)
		})
		c.cfg.Metrics.ObserveLoopIteration(res.Failed())

		if c.cfg.OnIteration != nil {
			c.cfg.OnIteration(iteration, res)
		}

		if res.Failed() {
			if expired() && errors.Is(res.Err, core.ErrTimeout) {
				return ReasonTimeout, res.Err
			}
			action := Stop
			if c.cfg.OnError != nil {
				action = c.cfg.OnError(iteration, res.Err)
			}
			if action != Continue {
				return ReasonError, res.Err
			}
			c.logger.Warn("loop.iteration.failed", "unit", unit.Name(), "iteration", iteration, "error", res.Err)
		}

		if iteration >= c.cfg.MinIterations && c.cfg.StopWhen != nil && c.cfg.StopWhen(iteration, results) {
			return ReasonPredicate, nil
		}

		if c.cfg.Interval > 0 && iteration < c.cfg.MaxIterations {
			c.wait(ctx, deadline)
		}
	}
}

// wait pauses for the configured interval, cut short by Stop, ctx or the
// loop deadline.
func (c *Controller) wait(ctx context.Context, deadline time.Time) {
	d := c.cfg.Interval
	if !deadline.IsZero() {
		if remaining := time.Until(deadline); remaining < d {
			d = max(remaining, 0)
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-c.stopCh:
	case <-ctx.Done():
	}
}
