// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the executor, engine and loop controller use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping a zap.Logger
//   - StructuredLogger with contextual cloning helpers and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - With for binding fields (run id, unit name) to any Logger
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(cat, exec, func(o *engine.Options) { o.Logger = logger })
//
// Messages are dotted event names ("agent.execute.start") followed by
// key/value pairs.
package logging
