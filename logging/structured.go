package logging

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"time"
)

// StructuredLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods. It is cheap to copy via With* methods.
type StructuredLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	workflow  string
	runID     string
}

// LoggerConfig configures construction of a StructuredLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout, CustomAttrs: map[string]any{}}
}

// NewLogger builds a StructuredLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *StructuredLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	ctx := make(map[string]any, len(cfg.CustomAttrs))
	maps.Copy(ctx, cfg.CustomAttrs)

	return &StructuredLogger{logger: slog.New(handler), level: cfg.Level, context: ctx, component: cfg.Component}
}

// NewSlogLogger creates a new StructuredLogger with the specified level and format.
func NewSlogLogger(level LogLevel, format string, addSource bool) *StructuredLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *StructuredLogger) clone() *StructuredLogger {
	nl := *l
	nl.context = maps.Clone(l.context)
	if nl.context == nil {
		nl.context = map[string]any{}
	}
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *StructuredLogger) WithContext(key string, value any) *StructuredLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (executor, engine, loop, etc.).
func (l *StructuredLogger) WithComponent(c string) *StructuredLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithRun attaches workflow and run (record) identifiers.
func (l *StructuredLogger) WithRun(workflowID, runID string) *StructuredLogger {
	nl := l.clone()
	nl.workflow = workflowID
	nl.runID = runID
	return nl
}

func (l *StructuredLogger) baseArgs() []any {
	args := make([]any, 0, 2*(len(l.context)+3))
	if l.component != "" {
		args = append(args, "component", l.component)
	}
	if l.workflow != "" {
		args = append(args, "workflow_id", l.workflow)
	}
	if l.runID != "" {
		args = append(args, "run_id", l.runID)
	}
	for k, v := range l.context {
		args = append(args, k, v)
	}
	return args
}

func (l *StructuredLogger) log(level slog.Level, msg string, args ...any) {
	if level < slogLevel(l.level) {
		return
	}
	l.logger.Log(context.Background(), level, msg, append(l.baseArgs(), args...)...)
}

// Debug logs at debug level.
func (l *StructuredLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l *StructuredLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *StructuredLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l *StructuredLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func outcome(ok bool, args []any, err error) (slog.Level, []any) {
	args = append(args, "success", ok)
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if !ok {
		return slog.LevelError, args
	}
	return slog.LevelInfo, args
}

// LogToolCall records execution details for a tool invocation.
func (l *StructuredLogger) LogToolCall(tool string, dur time.Duration, success bool, err error) {
	level, args := outcome(success, []any{"tool_name", tool, "duration", dur}, err)
	l.log(level, "tool.call.complete", args...)
}

// LogAgentExecution records how one agent invocation ended.
func (l *StructuredLogger) LogAgentExecution(agentID, terminalReason string, steps int, dur time.Duration, err error) {
	level, args := outcome(err == nil, []any{
		"agent_id", agentID,
		"terminal_reason", terminalReason,
		"step_count", steps,
		"duration", dur,
	}, err)
	l.log(level, "agent.execute.complete", args...)
}

// LogWorkflowExecution records aggregate workflow run metrics.
func (l *StructuredLogger) LogWorkflowExecution(topology, status string, steps int, dur time.Duration, err error) {
	level, args := outcome(err == nil, []any{
		"topology", topology,
		"status", status,
		"step_count", steps,
		"duration", dur,
	}, err)
	l.log(level, "workflow.run.complete", args...)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *StructuredLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Info("operation.complete", "operation", op, "duration", time.Since(start)) }
}
