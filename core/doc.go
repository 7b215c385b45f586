// Package core provides the foundational domain types and interfaces used by
// scenariomesh. It defines:
//
//   - Plans (ordered, linear sequences of AgentStep values)
//   - ExecutionResult records produced once per attempted step
//   - State, the accumulating key/value context threaded between steps
//   - AgentInvoker, the capability the engine calls to execute a step
//   - Observer, the per-step notification sink
//   - The error taxonomy shared by the engine, retry policy and adapters
//
// The package intentionally keeps implementation concerns (retry timing,
// scheduling, concrete LLM clients) out of scope, exposing small interfaces so
// callers can plug in custom invokers and observers.
package core
