package llmstream

// ToolCall is a finalized tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider's call id, or the positional key the Accumulator
	// assigned when the dialect supplies none.
	ID string `json:"id"`

	// Name is the tool name.
	Name string `json:"name"`

	// Arguments is the raw JSON argument string, reassembled from deltas.
	// It is not validated or executed here.
	Arguments string `json:"arguments"`
}

// Response is the aggregate result of one generation, produced either by a
// provider's non-streaming path or by Accumulator.Finalize. Both paths yield
// the same shape so downstream code can treat them interchangeably.
type Response struct {
	// ID is the provider's response id, if reported.
	ID string `json:"id,omitempty"`

	// Model is the model that served the request.
	Model string `json:"model,omitempty"`

	// Provider is the dialect that produced the response.
	Provider string `json:"provider,omitempty"`

	// Content is the primary answer text.
	Content string `json:"content"`

	// Thinking is the thinking side channel, empty when the model exposed none.
	Thinking string `json:"thinking,omitempty"`

	// Reasoning is the reasoning side channel, empty when the model exposed none.
	Reasoning string `json:"reasoning,omitempty"`

	// ToolCalls are the finalized tool invocations in arrival order.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Usage holds the last-known token counters.
	Usage *Usage `json:"usage,omitempty"`

	// FinishReason is the normalized stop cause, nil if the stream ended
	// without reporting one.
	FinishReason *FinishReason `json:"finish_reason,omitempty"`

	// Incomplete marks a response assembled from a stream that terminated
	// with an error. The fields hold whatever arrived before the failure;
	// callers decide whether partial output is usable.
	Incomplete bool `json:"incomplete,omitempty"`
}
