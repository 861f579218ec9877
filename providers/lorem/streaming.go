package lorem

import (
	json "github.com/goccy/go-json"

	llmstream "github.com/lumenlabs/lumen-llm-go"
)

// wireFrame is the synthetic SSE payload shape. Exactly one of the field
// groups is set per frame.
type wireFrame struct {
	Delta    string           `json:"delta,omitempty"`
	Thinking string           `json:"thinking,omitempty"`
	ToolID   string           `json:"tool_id,omitempty"`
	ToolName string           `json:"tool_name,omitempty"`
	ToolArgs string           `json:"tool_args,omitempty"`
	Usage    *llmstream.Usage `json:"usage,omitempty"`
	Finish   string           `json:"finish,omitempty"`
}

type converter struct {
	model  string
	finish *llmstream.FinishReason
	calls  int
	seen   map[string]int
}

func newConverter(model string) *converter {
	return &converter{model: model, seen: map[string]int{}}
}

func (c *converter) indexFor(id string) *int {
	if idx, ok := c.seen[id]; ok {
		return &idx
	}
	idx := c.calls
	c.calls++
	c.seen[id] = idx
	return &idx
}

func (c *converter) ConvertFrame(payload []byte) (llmstream.StreamEvent, bool, error) {
	var frame wireFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return llmstream.StreamEvent{}, false, &llmstream.ParseError{
			Provider: llmstream.ProviderLorem.String(),
			Message:  "decode stream frame",
			Raw:      append([]byte(nil), payload...),
			Err:      err,
		}
	}

	switch {
	case frame.Delta != "":
		return llmstream.StreamEvent{Kind: llmstream.EventContentDelta, Text: frame.Delta}, true, nil
	case frame.Thinking != "":
		return llmstream.StreamEvent{Kind: llmstream.EventThinkingDelta, Text: frame.Thinking}, true, nil
	case frame.ToolID != "":
		return llmstream.StreamEvent{
			Kind: llmstream.EventToolCallDelta,
			ToolCall: &llmstream.ToolCallDelta{
				ID:        frame.ToolID,
				Index:     c.indexFor(frame.ToolID),
				Name:      frame.ToolName,
				Arguments: frame.ToolArgs,
			},
		}, true, nil
	case frame.Usage != nil:
		return llmstream.StreamEvent{Kind: llmstream.EventUsageUpdate, Usage: frame.Usage}, true, nil
	case frame.Finish != "":
		fr := llmstream.NormalizeFinishReason(frame.Finish)
		c.finish = &fr
		return llmstream.StreamEvent{}, false, nil
	}
	return llmstream.StreamEvent{}, false, nil
}

func (c *converter) Done() bool { return false }

func (c *converter) EndEvent() (llmstream.StreamEvent, bool) {
	finish := c.finish
	if finish == nil {
		finish = &llmstream.FinishReason{Kind: llmstream.FinishStop}
	}
	return llmstream.StreamEvent{
		Kind: llmstream.EventStreamEnd,
		Response: &llmstream.Response{
			Model:        c.model,
			Provider:     llmstream.ProviderLorem.String(),
			FinishReason: finish,
		},
	}, true
}
