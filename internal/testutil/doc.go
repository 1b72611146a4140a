// Package testutil contains fake gateways and fluent builders used across
// tests: an echo gateway, a per-agent scripted gateway, an instrumented
// gateway that records peak concurrency, and builders for turns and
// execution contexts. They are not intended for production usage.
package testutil
