package llmstream

// EventKind discriminates the variants of a StreamEvent.
type EventKind string

// Stream event kinds
const (
	// EventContentDelta is an incremental fragment of the primary answer.
	EventContentDelta EventKind = "content_delta"

	// EventToolCallDelta is an incremental fragment of a tool invocation.
	EventToolCallDelta EventKind = "tool_call_delta"

	// EventThinkingDelta is an incremental fragment of a thinking channel
	// (structurally separate from the answer, e.g. Anthropic thinking blocks).
	EventThinkingDelta EventKind = "thinking_delta"

	// EventReasoningDelta is an incremental fragment of a reasoning channel
	// (e.g. reasoning_content on OpenAI-compatible endpoints).
	EventReasoningDelta EventKind = "reasoning_delta"

	// EventUsageUpdate is a cumulative token-count report from the provider.
	EventUsageUpdate EventKind = "usage_update"

	// EventStreamStart marks the beginning of a stream and carries metadata.
	EventStreamStart EventKind = "stream_start"

	// EventStreamEnd marks normal termination and carries terminal data
	// (finish reason, final usage if the provider attaches one).
	EventStreamEnd EventKind = "stream_end"

	// EventError is a terminal failure. No events follow it.
	EventError EventKind = "error"
)

// StreamEvent is one normalized event in a streaming response, produced by a
// provider's frame converter and consumed by the Accumulator or the caller.
// Events are immutable once produced; only the fields relevant to Kind are
// populated.
type StreamEvent struct {
	Kind EventKind

	// Text carries the delta for content/thinking/reasoning events.
	Text string

	// Index is the provider's choice index for content deltas, when reported.
	Index *int

	// ToolCall carries the fragment for tool_call_delta events.
	ToolCall *ToolCallDelta

	// Usage carries the counters for usage_update events.
	Usage *Usage

	// Metadata carries stream identity for stream_start events.
	Metadata *StreamMetadata

	// Response carries terminal information for stream_end events.
	// Only FinishReason, Usage, ID and Model are populated here; the full
	// aggregate comes from the Accumulator.
	Response *Response

	// Err carries the failure for error events.
	Err error
}

// IsTerminal reports whether no further events may follow this one.
func (e StreamEvent) IsTerminal() bool {
	return e.Kind == EventStreamEnd || e.Kind == EventError
}

// ToolCallDelta is an incremental fragment of a tool invocation.
//
// Routing policy: fragments are keyed by ID when the provider supplies one
// (Anthropic resolves the ID from the opening block, OpenAI sends it on the
// first fragment); dialects without stable IDs key by Index instead. The
// Accumulator applies the same policy uniformly, see Accumulator.Apply.
type ToolCallDelta struct {
	// ID is the provider's call id, empty if the dialect has not supplied
	// one for this fragment.
	ID string

	// Index is the positional index of the call, when the dialect reports
	// one (OpenAI-compatible tool_calls[].index, Ollama array position).
	Index *int

	// Name is a fragment of the tool name, appended in arrival order.
	Name string

	// Arguments is a fragment of the raw JSON arguments, appended in
	// arrival order. Not validated incrementally.
	Arguments string
}

// StreamMetadata identifies a stream, sent once at stream start when the
// provider announces it (e.g. Anthropic message_start).
type StreamMetadata struct {
	// ID is the provider's response id.
	ID string

	// Model is the model serving the stream (may differ from the request
	// if the provider aliases model names).
	Model string

	// Provider is the dialect name that produced the stream.
	Provider string
}
