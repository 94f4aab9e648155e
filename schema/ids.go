package schema

// RunID identifies a single top-level Runner.Run invocation.
type RunID string

// StepID identifies one LLM-call-plus-tool-execution turn within a run.
type StepID string

// SpanID identifies a tracing span nested inside a step (an LLM call, a tool
// execution). Distinct spans under the same StepID let an Observer or Tracer
// correlate concurrent tool calls issued from a single turn.
type SpanID string
