package openai

import (
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	llmstream "github.com/lumenlabs/lumen-llm-go"
)

// chat.completion.chunk wire format

type chatChunk struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *wireUsage    `json:"usage"`
}

type chunkChoice struct {
	Index        *int       `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Content          *string         `json:"content"`
	ReasoningContent *string         `json:"reasoning_content"`
	Reasoning        *string         `json:"reasoning"`
	ToolCalls        []toolCallChunk `json:"tool_calls"`
}

type toolCallChunk struct {
	Index    *int          `json:"index"`
	ID       string        `json:"id"`
	Function functionChunk `json:"function"`
}

type functionChunk struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireUsage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

func usageFromWire(u *wireUsage) *llmstream.Usage {
	if u == nil {
		return nil
	}
	out := &llmstream.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.PromptTokensDetails != nil && u.PromptTokensDetails.CachedTokens != 0 {
		v := u.PromptTokensDetails.CachedTokens
		out.CachedTokens = &v
	}
	if u.CompletionTokensDetails != nil && u.CompletionTokensDetails.ReasoningTokens != 0 {
		v := u.CompletionTokensDetails.ReasoningTokens
		out.ReasoningTokens = &v
	}
	return out
}

// converter maps chat.completion.chunk frames onto normalized events.
//
// Tool-call routing: OpenAI sends the call id on the first fragment of a
// call and identifies later fragments by tool_calls[].index, so fragments
// carry both and the accumulator keys by id once seen, by index otherwise.
//
// A finish_reason chunk produces no event of its own: the reason is recorded
// and delivered on the stream_end event, because usage still follows it when
// stream_options.include_usage is on.
type converter struct {
	provider string
	id       string
	model    string
	finish   *llmstream.FinishReason
}

func newConverter(provider string) *converter {
	return &converter{provider: provider}
}

func (c *converter) ConvertFrame(payload []byte) (llmstream.StreamEvent, bool, error) {
	// Provider-reported errors arrive as {"error": {...}} on the open stream.
	if msg := gjson.GetBytes(payload, "error.message"); msg.Exists() {
		err := &llmstream.ProviderError{
			Provider: c.provider,
			Code:     gjson.GetBytes(payload, "error.type").String(),
			Message:  msg.String(),
			Err:      llmstream.ErrProviderUnavailable,
		}
		return llmstream.StreamEvent{Kind: llmstream.EventError, Err: err}, true, nil
	}

	var chunk chatChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return llmstream.StreamEvent{}, false, &llmstream.ParseError{
			Provider: c.provider,
			Message:  "decode stream chunk",
			Raw:      append([]byte(nil), payload...),
			Err:      err,
		}
	}

	if chunk.ID != "" {
		c.id = chunk.ID
	}
	if chunk.Model != "" {
		c.model = chunk.Model
	}

	// The usage chunk is dedicated: choices is empty when it arrives.
	if chunk.Usage != nil {
		return llmstream.StreamEvent{Kind: llmstream.EventUsageUpdate, Usage: usageFromWire(chunk.Usage)}, true, nil
	}
	if len(chunk.Choices) == 0 {
		return llmstream.StreamEvent{}, false, nil
	}

	choice := chunk.Choices[0]
	if choice.FinishReason != nil && *choice.FinishReason != "" {
		fr := llmstream.NormalizeFinishReason(*choice.FinishReason)
		c.finish = &fr
	}

	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		return llmstream.StreamEvent{
			Kind:  llmstream.EventContentDelta,
			Text:  *choice.Delta.Content,
			Index: choice.Index,
		}, true, nil
	}
	if r := deltaReasoning(choice.Delta); r != "" {
		return llmstream.StreamEvent{Kind: llmstream.EventReasoningDelta, Text: r}, true, nil
	}
	if len(choice.Delta.ToolCalls) > 0 {
		tc := choice.Delta.ToolCalls[0]
		return llmstream.StreamEvent{
			Kind: llmstream.EventToolCallDelta,
			ToolCall: &llmstream.ToolCallDelta{
				ID:        tc.ID,
				Index:     tc.Index,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}, true, nil
	}

	// Role-only opener, finish-only chunk, or other structural frame.
	return llmstream.StreamEvent{}, false, nil
}

func deltaReasoning(d chunkDelta) string {
	if d.ReasoningContent != nil && *d.ReasoningContent != "" {
		return *d.ReasoningContent
	}
	if d.Reasoning != nil && *d.Reasoning != "" {
		return *d.Reasoning
	}
	return ""
}

// Done is always false: this dialect terminates via the [DONE] sentinel or
// source EOF, both handled by the pipeline.
func (c *converter) Done() bool { return false }

// EndEvent closes the stream with the recorded finish reason. Providers that
// close the connection without a finish_reason chunk default to stop.
func (c *converter) EndEvent() (llmstream.StreamEvent, bool) {
	finish := c.finish
	if finish == nil {
		finish = &llmstream.FinishReason{Kind: llmstream.FinishStop}
	}
	return llmstream.StreamEvent{
		Kind: llmstream.EventStreamEnd,
		Response: &llmstream.Response{
			ID:           c.id,
			Model:        c.model,
			Provider:     c.provider,
			FinishReason: finish,
		},
	}, true
}
