package ollama

import (
	"testing"

	"github.com/tidwall/gjson"

	llmstream "github.com/lumenlabs/lumen-llm-go"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestBuildRequestBody(t *testing.T) {
	req := &llmstream.Request{
		Model: "llama3.2",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleSystem, Content: "be brief"},
			{Role: llmstream.RoleUser, Content: "hi"},
		},
		Params: &llmstream.Params{
			Temperature: floatPtr(0.7),
			MaxTokens:   intPtr(128),
		},
	}

	body, err := buildRequestBody(req, true)
	if err != nil {
		t.Fatalf("buildRequestBody failed: %v", err)
	}
	if got := gjson.GetBytes(body, "model").String(); got != "llama3.2" {
		t.Errorf("model = %q", got)
	}
	if !gjson.GetBytes(body, "stream").Bool() {
		t.Errorf("stream = false, want true")
	}
	if got := gjson.GetBytes(body, "options.temperature").Float(); got != 0.7 {
		t.Errorf("options.temperature = %v", got)
	}
	// MaxTokens maps onto Ollama's num_predict option.
	if got := gjson.GetBytes(body, "options.num_predict").Int(); got != 128 {
		t.Errorf("options.num_predict = %d", got)
	}
}

func TestBuildRequestBody_StreamDisabled(t *testing.T) {
	req := &llmstream.Request{
		Model: "llama3.2",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleUser, Content: "hi"},
		},
	}
	body, err := buildRequestBody(req, false)
	if err != nil {
		t.Fatalf("buildRequestBody failed: %v", err)
	}
	// Ollama defaults to streaming, so stream:false must be explicit.
	res := gjson.GetBytes(body, "stream")
	if !res.Exists() || res.Bool() {
		t.Errorf("stream = %v, want explicit false", res)
	}
}
