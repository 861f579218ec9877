package anthropic

import (
	json "github.com/goccy/go-json"

	llmstream "github.com/lumenlabs/lumen-llm-go"
)

type wireUsage struct {
	InputTokens         int  `json:"input_tokens"`
	OutputTokens        int  `json:"output_tokens"`
	CacheReadTokens     *int `json:"cache_read_input_tokens"`
	CacheCreationTokens *int `json:"cache_creation_input_tokens"`
}

func usageFromWire(u *wireUsage) *llmstream.Usage {
	if u == nil {
		return nil
	}
	out := &llmstream.Usage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.InputTokens + u.OutputTokens,
		CachedTokens:     u.CacheReadTokens,
	}
	return out
}

// streamEvent covers every event type the Messages API emits. Only the
// fields relevant to each type are populated.
type streamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		ID    string     `json:"id"`
		Model string     `json:"model"`
		Usage *wireUsage `json:"usage"`
	} `json:"message"`
	Index        int `json:"index"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	Usage *wireUsage `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// converter translates Messages API stream events into unified events.
// Tool call ids arrive once in content_block_start, so block indexes are
// mapped to ids for the input_json_delta frames that follow.
type converter struct {
	meta        llmstream.StreamMetadata
	blockToCall map[int]string
	prompt      int
	finish      *llmstream.FinishReason
}

func newConverter() *converter {
	return &converter{blockToCall: map[int]string{}}
}

func (c *converter) ConvertFrame(payload []byte) (llmstream.StreamEvent, bool, error) {
	var ev streamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return llmstream.StreamEvent{}, false, &llmstream.ParseError{
			Provider: llmstream.ProviderAnthropic.String(),
			Message:  "decode stream event",
			Raw:      append([]byte(nil), payload...),
			Err:      err,
		}
	}

	switch ev.Type {
	case "message_start":
		if ev.Message != nil {
			c.meta = llmstream.StreamMetadata{
				ID:       ev.Message.ID,
				Model:    ev.Message.Model,
				Provider: llmstream.ProviderAnthropic.String(),
			}
			if ev.Message.Usage != nil {
				c.prompt = ev.Message.Usage.InputTokens
			}
		}
		meta := c.meta
		return llmstream.StreamEvent{Kind: llmstream.EventStreamStart, Metadata: &meta}, true, nil

	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			c.blockToCall[ev.Index] = ev.ContentBlock.ID
			idx := ev.Index
			return llmstream.StreamEvent{
				Kind: llmstream.EventToolCallDelta,
				ToolCall: &llmstream.ToolCallDelta{
					ID:    ev.ContentBlock.ID,
					Index: &idx,
					Name:  ev.ContentBlock.Name,
				},
			}, true, nil
		}
		return llmstream.StreamEvent{}, false, nil

	case "content_block_delta":
		if ev.Delta == nil {
			return llmstream.StreamEvent{}, false, nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return llmstream.StreamEvent{Kind: llmstream.EventContentDelta, Text: ev.Delta.Text}, true, nil
		case "thinking_delta":
			return llmstream.StreamEvent{Kind: llmstream.EventThinkingDelta, Text: ev.Delta.Thinking}, true, nil
		case "input_json_delta":
			idx := ev.Index
			return llmstream.StreamEvent{
				Kind: llmstream.EventToolCallDelta,
				ToolCall: &llmstream.ToolCallDelta{
					ID:        c.blockToCall[ev.Index],
					Index:     &idx,
					Arguments: ev.Delta.PartialJSON,
				},
			}, true, nil
		}
		// signature_delta and future delta types carry nothing we surface.
		return llmstream.StreamEvent{}, false, nil

	case "message_delta":
		if ev.Delta != nil && ev.Delta.StopReason != "" {
			fr := llmstream.NormalizeFinishReason(ev.Delta.StopReason)
			c.finish = &fr
		}
		if ev.Usage != nil {
			usage := &llmstream.Usage{
				PromptTokens:     c.prompt,
				CompletionTokens: ev.Usage.OutputTokens,
				TotalTokens:      c.prompt + ev.Usage.OutputTokens,
				CachedTokens:     ev.Usage.CacheReadTokens,
			}
			return llmstream.StreamEvent{Kind: llmstream.EventUsageUpdate, Usage: usage}, true, nil
		}
		return llmstream.StreamEvent{}, false, nil

	case "message_stop":
		end, _ := c.EndEvent()
		return end, true, nil

	case "error":
		code, msg := "", "stream error"
		if ev.Error != nil {
			code, msg = ev.Error.Type, ev.Error.Message
		}
		perr := &llmstream.ProviderError{
			Provider: llmstream.ProviderAnthropic.String(),
			Code:     code,
			Message:  msg,
			Err:      sentinelForErrorType(code),
		}
		return llmstream.StreamEvent{Kind: llmstream.EventError, Err: perr}, true, nil
	}

	// ping and unrecognized event types.
	return llmstream.StreamEvent{}, false, nil
}

func (c *converter) Done() bool { return false }

func (c *converter) EndEvent() (llmstream.StreamEvent, bool) {
	finish := c.finish
	if finish == nil {
		finish = &llmstream.FinishReason{Kind: llmstream.FinishStop}
	}
	meta := c.meta
	return llmstream.StreamEvent{
		Kind: llmstream.EventStreamEnd,
		Response: &llmstream.Response{
			ID:           meta.ID,
			Model:        meta.Model,
			Provider:     llmstream.ProviderAnthropic.String(),
			FinishReason: finish,
		},
	}, true
}

func sentinelForErrorType(code string) error {
	switch code {
	case "authentication_error", "permission_error":
		return llmstream.ErrInvalidAPIKey
	case "rate_limit_error":
		return llmstream.ErrRateLimited
	case "invalid_request_error", "not_found_error":
		return llmstream.ErrInvalidRequest
	case "overloaded_error", "api_error":
		return llmstream.ErrProviderUnavailable
	}
	return llmstream.ErrProviderUnavailable
}
