package lorem

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	llmstream "github.com/lumenlabs/lumen-llm-go"
)

func intPtr(i int) *int { return &i }

func TestProvider_Name(t *testing.T) {
	p := New()
	if p.Name() != "lorem" {
		t.Errorf("Name = %q, want lorem", p.Name())
	}
}

func TestProvider_SupportsModel(t *testing.T) {
	p := New()
	tests := []struct {
		model string
		want  bool
	}{
		{"lorem-fast", true},
		{"lorem-thinking", true},
		{"lorem-cutoff", true},
		{"gpt-4o", false},
		{"claude-sonnet-4-0", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := p.SupportsModel(tt.model); got != tt.want {
				t.Errorf("SupportsModel(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestProvider_GenerateResponse(t *testing.T) {
	p := New()
	resp, err := p.GenerateResponse(context.Background(), &llmstream.Request{
		Model: "lorem-fast",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleUser, Content: "hello there"},
		},
		Params: &llmstream.Params{MaxTokens: intPtr(50)},
	})
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if resp.Content == "" {
		t.Errorf("Content is empty")
	}
	if resp.Usage == nil || resp.Usage.CompletionTokens == 0 {
		t.Errorf("Usage = %+v, want completion tokens", resp.Usage)
	}
	if resp.FinishReason == nil || resp.FinishReason.Kind != llmstream.FinishStop {
		t.Errorf("FinishReason = %v, want stop", resp.FinishReason)
	}
}

func TestProvider_GenerateResponse_InvalidModel(t *testing.T) {
	p := New()
	_, err := p.GenerateResponse(context.Background(), &llmstream.Request{Model: "gpt-4o"})
	if !errors.Is(err, llmstream.ErrInvalidModel) {
		t.Errorf("err = %v, want ErrInvalidModel", err)
	}
}

func TestProvider_StreamResponse(t *testing.T) {
	p := New()
	stream, err := p.StreamResponse(context.Background(), &llmstream.Request{
		Model: "lorem-fast",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleUser, Content: "stream please"},
		},
		Params: &llmstream.Params{MaxTokens: intPtr(30)},
	})
	if err != nil {
		t.Fatalf("StreamResponse failed: %v", err)
	}
	defer stream.Close()

	var content strings.Builder
	var sawUsage, sawEnd bool
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		switch ev.Kind {
		case llmstream.EventContentDelta:
			content.WriteString(ev.Text)
		case llmstream.EventUsageUpdate:
			sawUsage = true
		case llmstream.EventStreamEnd:
			sawEnd = true
		}
	}
	if content.Len() == 0 {
		t.Errorf("no content deltas received")
	}
	if !sawUsage {
		t.Errorf("no usage event received")
	}
	if !sawEnd {
		t.Errorf("no stream_end event received")
	}
}

func TestProvider_StreamResponse_CollectMatchesGenerateShape(t *testing.T) {
	p := New()
	req := &llmstream.Request{
		Model: "lorem-cutoff",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleUser, Content: "short please"},
		},
		Params: &llmstream.Params{MaxTokens: intPtr(40)},
	}

	stream, err := p.StreamResponse(context.Background(), req)
	if err != nil {
		t.Fatalf("StreamResponse failed: %v", err)
	}
	resp, err := llmstream.Collect(context.Background(), stream)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if resp.Content == "" {
		t.Errorf("collected Content is empty")
	}
	if resp.FinishReason == nil || resp.FinishReason.Kind != llmstream.FinishLength {
		t.Errorf("FinishReason = %v, want length for cutoff model", resp.FinishReason)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens == 0 {
		t.Errorf("Usage = %+v, want populated totals", resp.Usage)
	}
}

func TestProvider_StreamResponse_ToolCalls(t *testing.T) {
	p := New()
	req := &llmstream.Request{
		Model: "lorem-fast",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleUser, Content: "use the tool"},
		},
		Params: &llmstream.Params{MaxTokens: intPtr(10)},
		Tools: []llmstream.Tool{
			{Name: "search", Parameters: map[string]any{"type": "object"}},
		},
	}

	stream, err := p.StreamResponse(context.Background(), req)
	if err != nil {
		t.Fatalf("StreamResponse failed: %v", err)
	}
	resp, err := llmstream.Collect(context.Background(), stream)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "toolu_search" || tc.Name != "search" {
		t.Errorf("tool call = %+v", tc)
	}
	// Arguments were streamed as fragments; the accumulator must
	// reassemble a valid JSON object.
	if !strings.HasPrefix(tc.Arguments, "{") || !strings.HasSuffix(tc.Arguments, "}") {
		t.Errorf("Arguments = %q, want reassembled JSON object", tc.Arguments)
	}
}
