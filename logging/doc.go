// Package logging provides a minimal logging interface and adapters for scenariomesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the engine and observers use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - NewLogger for json, text or colourised "pretty" console output
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "pretty", false)
//	runner := engine.New(invoker, func(o *engine.Options) { o.Logger = logger })
package logging
