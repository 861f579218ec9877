// Package lorem is a synthetic provider that generates lorem ipsum output.
// It needs no API key and exists for development and testing. Streaming
// responses are rendered as an in-memory SSE byte stream and fed through
// the same decoding pipeline the network providers use, so consumers
// exercise the full path.
package lorem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	loremgen "github.com/bozaro/golorem"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	llmstream "github.com/lumenlabs/lumen-llm-go"
	"github.com/lumenlabs/lumen-llm-go/streamio"
)

const defaultMaxTokens = 256

// Provider generates mock responses. Model names select behavior:
// "lorem-thinking" adds a thinking section, "lorem-cutoff" simulates a
// length-limited response, anything starting with "lorem-" works.
type Provider struct {
	generator *loremgen.Lorem
	log       zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger enables debug logging for this provider's streams.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// New creates the synthetic provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		generator: loremgen.New(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the dialect name.
func (p *Provider) Name() string { return llmstream.ProviderLorem.String() }

// SupportsModel accepts models starting with "lorem-".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

func maxTokensFor(req *llmstream.Request) int {
	if req.Params != nil && req.Params.MaxTokens != nil {
		return *req.Params.MaxTokens
	}
	return defaultMaxTokens
}

// generateWords produces roughly n words of lorem ipsum.
func (p *Provider) generateWords(n int) string {
	var sb strings.Builder
	count := 0
	for count < n {
		sentence := p.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")
		count += len(strings.Fields(sentence))
	}
	words := strings.Fields(sb.String())
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func estimateTokens(messages []llmstream.Message) int {
	total := 0
	for _, m := range messages {
		total += len(strings.Fields(m.Content))
	}
	return total
}

func mockToolArguments(t llmstream.Tool) map[string]any {
	if len(t.Parameters) > 0 {
		return map[string]any{"query": "lorem ipsum dolor"}
	}
	return map[string]any{"input": "mock input for " + t.Name}
}

// GenerateResponse produces a complete mock response.
func (p *Provider) GenerateResponse(ctx context.Context, req *llmstream.Request) (*llmstream.Response, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("lorem: model %q: %w", req.Model, llmstream.ErrInvalidModel)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxTokens := maxTokensFor(req)
	cutoff := strings.Contains(req.Model, "cutoff")
	words := maxTokens
	if words > 200 {
		words = 200
	}
	text := p.generateWords(words)

	out := &llmstream.Response{
		Model:    req.Model,
		Provider: p.Name(),
		Content:  text,
		Usage: &llmstream.Usage{
			PromptTokens:     estimateTokens(req.Messages),
			CompletionTokens: len(strings.Fields(text)),
		},
	}
	out.Usage.TotalTokens = out.Usage.PromptTokens + out.Usage.CompletionTokens
	if strings.Contains(req.Model, "thinking") {
		out.Thinking = p.generateWords(20)
	}
	for _, t := range req.Tools {
		args, err := json.Marshal(mockToolArguments(t))
		if err != nil {
			return nil, fmt.Errorf("lorem: marshal tool input: %w", err)
		}
		out.ToolCalls = append(out.ToolCalls, llmstream.ToolCall{
			ID:        "toolu_" + t.Name,
			Name:      t.Name,
			Arguments: string(args),
		})
	}
	finish := llmstream.FinishReason{Kind: llmstream.FinishStop}
	if cutoff {
		finish = llmstream.FinishReason{Kind: llmstream.FinishLength}
	}
	out.FinishReason = &finish
	return out, nil
}

// StreamResponse renders the mock response as SSE frames and returns a
// stream over them.
func (p *Provider) StreamResponse(ctx context.Context, req *llmstream.Request) (*llmstream.Stream, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("lorem: model %q: %w", req.Model, llmstream.ErrInvalidModel)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := p.renderSSE(req)
	if err != nil {
		return nil, err
	}
	rc := io.NopCloser(bytes.NewReader(body))
	dec := streamio.NewSSEDecoder(rc)
	return llmstream.NewStream(p.Name(), rc, dec, newConverter(req.Model), p.log), nil
}

// renderSSE builds the full wire transcript for a request: word deltas,
// optional thinking deltas, fragmented tool call arguments, one usage
// frame, a finish frame and the [DONE] sentinel.
func (p *Provider) renderSSE(req *llmstream.Request) ([]byte, error) {
	var buf bytes.Buffer
	writeFrame := func(f wireFrame) error {
		payload, err := json.Marshal(f)
		if err != nil {
			return err
		}
		buf.WriteString("data: ")
		buf.Write(payload)
		buf.WriteString("\n\n")
		return nil
	}

	maxTokens := maxTokensFor(req)
	words := maxTokens
	if words > 200 {
		words = 200
	}
	cutoff := strings.Contains(req.Model, "cutoff")
	if cutoff && words > 10 {
		words = 10
	}

	if strings.Contains(req.Model, "thinking") {
		for _, w := range strings.Fields(p.generateWords(20)) {
			if err := writeFrame(wireFrame{Thinking: w + " "}); err != nil {
				return nil, err
			}
		}
	}

	text := p.generateWords(words)
	for _, w := range strings.Fields(text) {
		if err := writeFrame(wireFrame{Delta: w + " "}); err != nil {
			return nil, err
		}
	}

	for _, t := range req.Tools {
		id := "toolu_" + t.Name
		if err := writeFrame(wireFrame{ToolID: id, ToolName: t.Name}); err != nil {
			return nil, err
		}
		args, err := json.Marshal(mockToolArguments(t))
		if err != nil {
			return nil, err
		}
		// Split arguments mid-token to mimic fragmented provider output.
		for _, part := range splitFragments(string(args), 8) {
			if err := writeFrame(wireFrame{ToolID: id, ToolArgs: part}); err != nil {
				return nil, err
			}
		}
	}

	completion := len(strings.Fields(text))
	prompt := estimateTokens(req.Messages)
	if err := writeFrame(wireFrame{Usage: &llmstream.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}}); err != nil {
		return nil, err
	}

	finish := "stop"
	if cutoff {
		finish = "length"
	}
	if err := writeFrame(wireFrame{Finish: finish}); err != nil {
		return nil, err
	}
	buf.WriteString("data: [DONE]\n\n")
	return buf.Bytes(), nil
}

func splitFragments(s string, size int) []string {
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
