package llmstream

// FinishKind is the closed set of normalized stop causes.
type FinishKind string

const (
	// FinishStop is natural completion.
	FinishStop FinishKind = "stop"

	// FinishLength means the token limit was reached.
	FinishLength FinishKind = "length"

	// FinishToolCalls means the model requested one or more tool calls.
	FinishToolCalls FinishKind = "tool_calls"

	// FinishContentFilter means the provider filtered the output.
	FinishContentFilter FinishKind = "content_filter"

	// FinishOther covers provider strings with no canonical mapping; the
	// original string is preserved in FinishReason.Raw.
	FinishOther FinishKind = "other"
)

// FinishReason is a normalized stop cause. Raw keeps the provider's original
// string when Kind is FinishOther.
type FinishReason struct {
	Kind FinishKind
	Raw  string
}

func (r FinishReason) String() string {
	if r.Kind == FinishOther && r.Raw != "" {
		return r.Raw
	}
	return string(r.Kind)
}

// NormalizeFinishReason maps a provider finish/stop string onto the closed
// FinishKind set. It understands the spellings used by OpenAI-compatible
// endpoints ("stop", "length", ...), Anthropic ("end_turn", "max_tokens",
// "tool_use") and Ollama ("stop", "length"). Anything unrecognized maps to
// FinishOther with the original string preserved.
func NormalizeFinishReason(s string) FinishReason {
	switch s {
	case "stop", "end_turn", "done":
		return FinishReason{Kind: FinishStop}
	case "length", "max_tokens":
		return FinishReason{Kind: FinishLength}
	case "tool_calls", "tool_use", "function_call":
		return FinishReason{Kind: FinishToolCalls}
	case "content_filter", "refusal":
		return FinishReason{Kind: FinishContentFilter}
	default:
		return FinishReason{Kind: FinishOther, Raw: s}
	}
}
