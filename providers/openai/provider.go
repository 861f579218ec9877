// Package openai implements the OpenAI-compatible chat completions dialect.
// With a custom base URL it also serves OpenRouter, Groq and xAI style
// endpoints, which speak the same SSE wire format.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	llmstream "github.com/lumenlabs/lumen-llm-go"
	"github.com/lumenlabs/lumen-llm-go/streamio"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider talks to an OpenAI-compatible chat completions endpoint.
type Provider struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at a compatible endpoint
// (e.g. https://openrouter.ai/api/v1).
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithName overrides the dialect name reported in events and errors, for
// compatible endpoints that are not OpenAI itself.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithLogger enables debug logging for this provider's streams.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// New creates a provider for the given API key. The default HTTP client has
// no overall timeout: streaming responses stay open for the lifetime of the
// generation and callers bound them with a context deadline instead.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		name:       llmstream.ProviderOpenAI.String(),
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the dialect name.
func (p *Provider) Name() string { return p.name }

// SupportsModel accepts any non-empty model id; compatible endpoints host
// arbitrary model catalogs, so validation is left to the server.
func (p *Provider) SupportsModel(model string) bool { return model != "" }

// chat completions wire request

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string      `json:"type"`
	Function wireToolDef `json:"function"`
}

type wireToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Tools       []wireTool    `json:"tools,omitempty"`
}

// buildRequestBody serializes the unified request. Streaming flags are set
// on the serialized body so the wire struct stays identical for both paths.
func buildRequestBody(req *llmstream.Request, stream bool) ([]byte, error) {
	wire := chatRequest{Model: req.Model}
	for _, m := range req.Messages {
		cm := chatMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, wireToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: wireFunction{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		wire.Messages = append(wire.Messages, cm)
	}
	if req.Params != nil {
		wire.Temperature = req.Params.Temperature
		wire.TopP = req.Params.TopP
		wire.MaxTokens = req.Params.MaxTokens
		wire.Stop = req.Params.Stop
	}
	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, wireTool{
			Type:     "function",
			Function: wireToolDef{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	if stream {
		if body, err = sjson.SetBytes(body, "stream", true); err != nil {
			return nil, err
		}
		if body, err = sjson.SetBytes(body, "stream_options.include_usage", true); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (p *Provider) newHTTPRequest(ctx context.Context, body []byte, stream bool) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

// handleErrorResponse maps a non-200 response onto the shared error taxonomy.
func (p *Provider) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 32*1024))
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &llmstream.ProviderError{
		Provider:   p.name,
		StatusCode: resp.StatusCode,
		Code:       gjson.GetBytes(body, "error.type").String(),
		Message:    msg,
		Err:        llmstream.SentinelForStatus(resp.StatusCode),
	}
}

// chat completions wire response (non-streaming)

type chatCompletion struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content          string         `json:"content"`
			ReasoningContent string         `json:"reasoning_content"`
			ToolCalls        []wireToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage"`
}

// GenerateResponse performs the single-shot request.
func (p *Provider) GenerateResponse(ctx context.Context, req *llmstream.Request) (*llmstream.Response, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("%s: model %q: %w", p.name, req.Model, llmstream.ErrInvalidModel)
	}
	body, err := buildRequestBody(req, false)
	if err != nil {
		return nil, err
	}
	httpReq, err := p.newHTTPRequest(ctx, body, false)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", p.name, err)
	}
	var completion chatCompletion
	if err := json.Unmarshal(raw, &completion); err != nil {
		return nil, &llmstream.ParseError{Provider: p.name, Message: "decode completion", Raw: raw, Err: err}
	}

	out := &llmstream.Response{
		ID:       completion.ID,
		Model:    completion.Model,
		Provider: p.name,
		Usage:    usageFromWire(completion.Usage),
	}
	if len(completion.Choices) > 0 {
		choice := completion.Choices[0]
		out.Content = choice.Message.Content
		out.Reasoning = choice.Message.ReasoningContent
		for _, tc := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, llmstream.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if choice.FinishReason != "" {
			fr := llmstream.NormalizeFinishReason(choice.FinishReason)
			out.FinishReason = &fr
		}
	}
	return out, nil
}

// StreamResponse issues the streaming request and wires up the pipeline.
func (p *Provider) StreamResponse(ctx context.Context, req *llmstream.Request) (*llmstream.Stream, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("%s: model %q: %w", p.name, req.Model, llmstream.ErrInvalidModel)
	}
	body, err := buildRequestBody(req, true)
	if err != nil {
		return nil, err
	}
	httpReq, err := p.newHTTPRequest(ctx, body, true)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, p.handleErrorResponse(resp)
	}

	dec := streamio.NewSSEDecoder(resp.Body)
	return llmstream.NewStream(p.name, resp.Body, dec, newConverter(p.name), p.log), nil
}
