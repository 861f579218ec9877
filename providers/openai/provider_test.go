package openai

import (
	"testing"

	"github.com/tidwall/gjson"

	llmstream "github.com/lumenlabs/lumen-llm-go"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestProvider_Name(t *testing.T) {
	if got := New("k").Name(); got != "openai" {
		t.Errorf("Name = %q, want openai", got)
	}
	if got := New("k", WithName("openrouter")).Name(); got != "openrouter" {
		t.Errorf("Name = %q, want openrouter", got)
	}
}

func TestBuildRequestBody(t *testing.T) {
	req := &llmstream.Request{
		Model: "gpt-4o-mini",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleSystem, Content: "be brief"},
			{Role: llmstream.RoleUser, Content: "hi"},
		},
		Params: &llmstream.Params{
			Temperature: floatPtr(0.2),
			MaxTokens:   intPtr(64),
			Stop:        []string{"END"},
		},
		Tools: []llmstream.Tool{
			{Name: "search", Description: "find things", Parameters: map[string]any{"type": "object"}},
		},
	}

	body, err := buildRequestBody(req, false)
	if err != nil {
		t.Fatalf("buildRequestBody failed: %v", err)
	}
	if got := gjson.GetBytes(body, "model").String(); got != "gpt-4o-mini" {
		t.Errorf("model = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.#").Int(); got != 2 {
		t.Errorf("messages count = %d, want 2", got)
	}
	if got := gjson.GetBytes(body, "messages.0.role").String(); got != "system" {
		t.Errorf("messages.0.role = %q", got)
	}
	if got := gjson.GetBytes(body, "temperature").Float(); got != 0.2 {
		t.Errorf("temperature = %v", got)
	}
	if got := gjson.GetBytes(body, "max_tokens").Int(); got != 64 {
		t.Errorf("max_tokens = %d", got)
	}
	if got := gjson.GetBytes(body, "tools.0.function.name").String(); got != "search" {
		t.Errorf("tool name = %q", got)
	}
	if gjson.GetBytes(body, "stream").Exists() {
		t.Errorf("stream flag present on non-streaming request")
	}
}

func TestBuildRequestBody_StreamFlags(t *testing.T) {
	req := &llmstream.Request{
		Model: "gpt-4o-mini",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleUser, Content: "hi"},
		},
	}

	body, err := buildRequestBody(req, true)
	if err != nil {
		t.Fatalf("buildRequestBody failed: %v", err)
	}
	if !gjson.GetBytes(body, "stream").Bool() {
		t.Errorf("stream = false, want true")
	}
	if !gjson.GetBytes(body, "stream_options.include_usage").Bool() {
		t.Errorf("stream_options.include_usage = false, want true")
	}
}

func TestBuildRequestBody_ToolHistory(t *testing.T) {
	req := &llmstream.Request{
		Model: "gpt-4o-mini",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleUser, Content: "weather?"},
			{Role: llmstream.RoleAssistant, ToolCalls: []llmstream.ToolCall{
				{ID: "call_1", Name: "get_weather", Arguments: `{"city":"NYC"}`},
			}},
			{Role: llmstream.RoleTool, Content: "sunny", ToolCallID: "call_1"},
		},
	}

	body, err := buildRequestBody(req, false)
	if err != nil {
		t.Fatalf("buildRequestBody failed: %v", err)
	}
	if got := gjson.GetBytes(body, "messages.1.tool_calls.0.id").String(); got != "call_1" {
		t.Errorf("assistant tool call id = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.1.tool_calls.0.function.arguments").String(); got != `{"city":"NYC"}` {
		t.Errorf("arguments = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.2.tool_call_id").String(); got != "call_1" {
		t.Errorf("tool message tool_call_id = %q", got)
	}
}
