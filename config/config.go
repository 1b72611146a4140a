// Package config loads meshflow settings from a YAML file and MESHFLOW_
// environment variables and converts them into component options.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/meshflow/agent"
	"github.com/hupe1980/meshflow/engine"
	"github.com/hupe1980/meshflow/logging"
	"github.com/hupe1980/meshflow/loop"
)

// Supported gateway providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
	// ProviderLangChain serves a local Ollama model through langchaingo.
	ProviderLangChain = "langchain"
)

// Config is the root configuration.
type Config struct {
	Executor ExecutorConfig `koanf:"executor"`
	Engine   EngineConfig   `koanf:"engine"`
	Loop     LoopConfig     `koanf:"loop"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Log      LogConfig      `koanf:"log"`
}

// ExecutorConfig holds agent executor defaults.
type ExecutorConfig struct {
	MaxSteps        int           `koanf:"max_steps"`
	Timeout         time.Duration `koanf:"timeout"`
	MaxConcurrency  int           `koanf:"max_concurrency"`
	MaxHistoryTurns int           `koanf:"max_history_turns"`
	Streaming       bool          `koanf:"streaming"`
}

// EngineConfig holds workflow engine defaults.
type EngineConfig struct {
	MaxSteps int           `koanf:"max_steps"`
	Timeout  time.Duration `koanf:"timeout"`
}

// LoopConfig holds loop controller defaults.
type LoopConfig struct {
	MaxIterations int           `koanf:"max_iterations"`
	MinIterations int           `koanf:"min_iterations"`
	TotalTimeout  time.Duration `koanf:"total_timeout"`
	Interval      time.Duration `koanf:"interval"`
}

// GatewayConfig selects and tunes the completion gateway.
type GatewayConfig struct {
	Provider    string  `koanf:"provider"`
	Model       string  `koanf:"model"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int64   `koanf:"max_tokens"`
	// RateLimit is the allowed calls per second (0 disables limiting).
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Backend is slog or zap.
	Backend string `koanf:"backend"`
}

// Validate rejects negative limits and unknown enum values.
func (c *Config) Validate() error {
	var errs []error

	nonNegative := func(name string, v int64) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	nonNegative("executor.max_steps", int64(c.Executor.MaxSteps))
	nonNegative("executor.timeout", int64(c.Executor.Timeout))
	nonNegative("executor.max_concurrency", int64(c.Executor.MaxConcurrency))
	nonNegative("executor.max_history_turns", int64(c.Executor.MaxHistoryTurns))
	nonNegative("engine.max_steps", int64(c.Engine.MaxSteps))
	nonNegative("engine.timeout", int64(c.Engine.Timeout))
	nonNegative("loop.max_iterations", int64(c.Loop.MaxIterations))
	nonNegative("loop.min_iterations", int64(c.Loop.MinIterations))
	nonNegative("loop.total_timeout", int64(c.Loop.TotalTimeout))
	nonNegative("loop.interval", int64(c.Loop.Interval))
	nonNegative("gateway.max_tokens", c.Gateway.MaxTokens)
	nonNegative("gateway.burst", int64(c.Gateway.Burst))

	if c.Loop.MaxIterations > 0 && c.Loop.MinIterations > c.Loop.MaxIterations {
		errs = append(errs, errors.New("loop.min_iterations exceeds loop.max_iterations"))
	}
	if c.Gateway.RateLimit < 0 {
		errs = append(errs, errors.New("gateway.rate_limit must not be negative"))
	}

	switch c.Gateway.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	case ProviderLangChain:
		if c.Gateway.Model == "" {
			errs = append(errs, errors.New("gateway.model is required for the langchain provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown gateway.provider %q", c.Gateway.Provider))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	switch c.Log.Backend {
	case "slog", "zap":
	default:
		errs = append(errs, fmt.Errorf("unknown log.backend %q", c.Log.Backend))
	}

	return errors.Join(errs...)
}

// AgentOptions returns the per-call executor defaults.
func (c *Config) AgentOptions() agent.Options {
	return agent.Options{
		MaxSteps:        c.Executor.MaxSteps,
		Timeout:         c.Executor.Timeout,
		MaxConcurrency:  c.Executor.MaxConcurrency,
		MaxHistoryTurns: c.Executor.MaxHistoryTurns,
		Streaming:       c.Executor.Streaming,
	}
}

// ExecutorOptions returns an option for agent.NewExecutor applying the
// executor section. Fields outside that section are left untouched.
func (c *Config) ExecutorOptions() func(o *agent.ExecutorOptions) {
	defaults := c.AgentOptions()
	return func(o *agent.ExecutorOptions) {
		o.Defaults = defaults
	}
}

// EngineOptions returns an option for engine.New applying the engine section.
func (c *Config) EngineOptions() func(o *engine.Options) {
	maxSteps, timeout := c.Engine.MaxSteps, c.Engine.Timeout
	return func(o *engine.Options) {
		o.MaxSteps = maxSteps
		o.Timeout = timeout
	}
}

// LoopConfig returns a loop.Config carrying the loop section's limits.
// Callbacks are left for the caller to set.
func (c *Config) LoopConfig() loop.Config {
	return loop.Config{
		MaxIterations: c.Loop.MaxIterations,
		MinIterations: c.Loop.MinIterations,
		TotalTimeout:  c.Loop.TotalTimeout,
		Interval:      c.Loop.Interval,
	}
}
