package llmstream

// Usage holds token counters as reported by the provider. Counts are the
// provider's own cumulative values; TotalTokens is never re-derived locally
// once the provider has reported it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// ReasoningTokens counts tokens spent on reasoning, when the provider
	// breaks them out (OpenAI completion_tokens_details).
	ReasoningTokens *int `json:"reasoning_tokens,omitempty"`

	// CachedTokens counts prompt tokens served from the provider's cache.
	CachedTokens *int `json:"cached_tokens,omitempty"`
}

// Merge folds a newer usage report into u. Provider counts are cumulative,
// so each field is replaced when the newer report carries it and kept
// otherwise; nothing is summed. A zero counter is treated as absent because
// providers omit fields they have not measured yet.
func (u *Usage) Merge(other *Usage) {
	if other == nil {
		return
	}
	if other.PromptTokens != 0 {
		u.PromptTokens = other.PromptTokens
	}
	if other.CompletionTokens != 0 {
		u.CompletionTokens = other.CompletionTokens
	}
	if other.TotalTokens != 0 {
		u.TotalTokens = other.TotalTokens
	}
	if other.ReasoningTokens != nil {
		u.ReasoningTokens = other.ReasoningTokens
	}
	if other.CachedTokens != nil {
		u.CachedTokens = other.CachedTokens
	}
}

// Clone returns a deep copy of u, or nil for a nil receiver.
func (u *Usage) Clone() *Usage {
	if u == nil {
		return nil
	}
	out := *u
	if u.ReasoningTokens != nil {
		v := *u.ReasoningTokens
		out.ReasoningTokens = &v
	}
	if u.CachedTokens != nil {
		v := *u.CachedTokens
		out.CachedTokens = &v
	}
	return &out
}
