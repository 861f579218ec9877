package ollama

import (
	json "github.com/goccy/go-json"

	llmstream "github.com/lumenlabs/lumen-llm-go"
)

// chatChunk is one streamed object from /api/chat. The final chunk has
// done:true and carries the evaluation counters; earlier chunks carry
// message deltas.
type chatChunk struct {
	Model   string `json:"model"`
	Message *struct {
		Role      string         `json:"role"`
		Content   string         `json:"content"`
		Thinking  string         `json:"thinking"`
		ToolCalls []wireToolCall `json:"tool_calls"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

func usageFromChunk(chunk *chatChunk) *llmstream.Usage {
	if chunk.PromptEvalCount == 0 && chunk.EvalCount == 0 {
		return nil
	}
	return &llmstream.Usage{
		PromptTokens:     chunk.PromptEvalCount,
		CompletionTokens: chunk.EvalCount,
		TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
	}
}

// converter translates chat chunks into unified events. Ollama delivers
// tool calls whole rather than as fragments, so each one becomes a single
// delta carrying the complete argument object.
type converter struct {
	model  string
	done   bool
	finish *llmstream.FinishReason
	calls  int
}

func newConverter(model string) *converter {
	return &converter{model: model}
}

func (c *converter) ConvertFrame(payload []byte) (llmstream.StreamEvent, bool, error) {
	var chunk chatChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return llmstream.StreamEvent{}, false, &llmstream.ParseError{
			Provider: llmstream.ProviderOllama.String(),
			Message:  "decode stream chunk",
			Raw:      append([]byte(nil), payload...),
			Err:      err,
		}
	}

	if chunk.Error != "" {
		perr := &llmstream.ProviderError{
			Provider: llmstream.ProviderOllama.String(),
			Message:  chunk.Error,
			Err:      llmstream.ErrProviderUnavailable,
		}
		return llmstream.StreamEvent{Kind: llmstream.EventError, Err: perr}, true, nil
	}
	if chunk.Model != "" {
		c.model = chunk.Model
	}

	if chunk.Done {
		c.done = true
		if chunk.DoneReason != "" {
			fr := llmstream.NormalizeFinishReason(chunk.DoneReason)
			c.finish = &fr
		}
		if usage := usageFromChunk(&chunk); usage != nil {
			return llmstream.StreamEvent{Kind: llmstream.EventUsageUpdate, Usage: usage}, true, nil
		}
		return llmstream.StreamEvent{}, false, nil
	}

	if chunk.Message == nil {
		return llmstream.StreamEvent{}, false, nil
	}
	if chunk.Message.Content != "" {
		return llmstream.StreamEvent{Kind: llmstream.EventContentDelta, Text: chunk.Message.Content}, true, nil
	}
	if chunk.Message.Thinking != "" {
		return llmstream.StreamEvent{Kind: llmstream.EventThinkingDelta, Text: chunk.Message.Thinking}, true, nil
	}
	if len(chunk.Message.ToolCalls) > 0 {
		tc := chunk.Message.ToolCalls[0]
		idx := c.calls
		c.calls++
		return llmstream.StreamEvent{
			Kind: llmstream.EventToolCallDelta,
			ToolCall: &llmstream.ToolCallDelta{
				Index:     &idx,
				Name:      tc.Function.Name,
				Arguments: string(tc.Function.Arguments),
			},
		}, true, nil
	}
	return llmstream.StreamEvent{}, false, nil
}

func (c *converter) Done() bool { return c.done }

func (c *converter) EndEvent() (llmstream.StreamEvent, bool) {
	finish := c.finish
	if finish == nil {
		finish = &llmstream.FinishReason{Kind: llmstream.FinishStop}
	}
	return llmstream.StreamEvent{
		Kind: llmstream.EventStreamEnd,
		Response: &llmstream.Response{
			Model:        c.model,
			Provider:     llmstream.ProviderOllama.String(),
			FinishReason: finish,
		},
	}, true
}
