package agent

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/logging"
	"github.com/hupe1980/meshflow/metrics"
	"github.com/hupe1980/meshflow/tool"
)

// DefaultMaxSteps bounds the gateway round trips of one execution when
// neither the call nor the executor configures a limit.
const DefaultMaxSteps = 10

// Options configure a single Execute / ExecuteParallel call. Zero values fall
// back to the executor defaults.
type Options struct {
	// MaxSteps bounds gateway round trips (tool-call loop).
	MaxSteps int
	// Timeout bounds the wall-clock time of one agent execution.
	Timeout time.Duration
	// MaxConcurrency caps in-flight agents in ExecuteParallel (0 = unbounded).
	MaxConcurrency int
	// Streaming selects Gateway.Stream over Gateway.Complete.
	Streaming bool
	// Progress receives notifications synchronously. With ExecuteParallel the
	// sink is invoked from several goroutines and must be safe for that.
	Progress core.ProgressSink
	// Model overrides the gateway default when the definition has no preference.
	Model string
	// MaxHistoryTurns trims the context turns handed to the gateway (0 = all).
	MaxHistoryTurns int
	Temperature     *float64
	MaxTokens       int64
}

// merge fills zero fields of o from defaults.
func (o Options) merge(defaults Options) Options {
	if o.MaxSteps == 0 {
		o.MaxSteps = defaults.MaxSteps
	}
	if o.Timeout == 0 {
		o.Timeout = defaults.Timeout
	}
	if o.MaxConcurrency == 0 {
		o.MaxConcurrency = defaults.MaxConcurrency
	}
	if !o.Streaming {
		o.Streaming = defaults.Streaming
	}
	if o.Progress == nil {
		o.Progress = defaults.Progress
	}
	if o.Model == "" {
		o.Model = defaults.Model
	}
	if o.MaxHistoryTurns == 0 {
		o.MaxHistoryTurns = defaults.MaxHistoryTurns
	}
	if o.Temperature == nil {
		o.Temperature = defaults.Temperature
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = defaults.MaxTokens
	}
	return o
}

// ExecutorOptions configure an Executor.
type ExecutorOptions struct {
	// Tools resolves tool names declared by agent definitions.
	Tools *tool.Registry
	// Defaults apply to every call whose Options leave a field zero.
	Defaults Options
	Logger   logging.Logger
	Metrics  *metrics.Metrics
	Tracer   trace.Tracer
}

func defaultExecutorOptions() ExecutorOptions {
	return ExecutorOptions{
		Tools:    tool.NewRegistry(),
		Defaults: Options{MaxSteps: DefaultMaxSteps},
		Logger:   logging.NoOpLogger{},
		Tracer:   otel.Tracer("github.com/hupe1980/meshflow/agent"),
	}
}
