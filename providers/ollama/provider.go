// Package ollama implements the Ollama chat API dialect. Ollama streams one
// JSON object per chunk rather than SSE frames, and signals termination with
// a done:true field instead of a sentinel payload.
package ollama

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	llmstream "github.com/lumenlabs/lumen-llm-go"
	"github.com/lumenlabs/lumen-llm-go/streamio"
)

const defaultBaseURL = "http://localhost:11434"

// Provider talks to a local or remote Ollama server.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at a non-default Ollama server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithLogger enables debug logging for this provider's streams.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// New creates a provider. Ollama needs no API key.
func New(opts ...Option) *Provider {
	p := &Provider{
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
func (p *Provider) Name() string { return llmstream.ProviderOllama.String() }

// SupportsModel accepts any model name; the server decides what it can run.
func (p *Provider) SupportsModel(model string) bool { return model != "" }

// chat API wire request

type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type wireOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *wireOptions  `json:"options,omitempty"`
	Tools    []wireTool    `json:"tools,omitempty"`
}

func buildRequestBody(req *llmstream.Request, stream bool) ([]byte, error) {
	wire := chatRequest{
		Model:  req.Model,
		Stream: stream,
	}
	for _, m := range req.Messages {
		wm := wireMessage{Role: string(m.Role), Content: m.Content}
		for _, tc := range m.ToolCalls {
			args := json.RawMessage(tc.Arguments)
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				Function: wireFunctionCall{Name: tc.Name, Arguments: args},
			})
		}
		wire.Messages = append(wire.Messages, wm)
	}
	if req.Params != nil {
		wire.Options = &wireOptions{
			Temperature: req.Params.Temperature,
			TopP:        req.Params.TopP,
			NumPredict:  req.Params.MaxTokens,
			Stop:        req.Params.Stop,
		}
	}
	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}
	return body, nil
}

func (p *Provider) newHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func (p *Provider) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 32*1024))
	msg := gjson.GetBytes(body, "error").String()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &llmstream.ProviderError{
		Provider:   p.Name(),
		StatusCode: resp.StatusCode,
		Message:    msg,
		Err:        llmstream.SentinelForStatus(resp.StatusCode),
	}
}

// GenerateResponse performs the single-shot request with stream disabled.
func (p *Provider) GenerateResponse(ctx context.Context, req *llmstream.Request) (*llmstream.Response, error) {
	body, err := buildRequestBody(req, false)
	if err != nil {
		return nil, err
	}
	httpReq, err := p.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: read response: %w", err)
	}
	var wire chatChunk
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &llmstream.ParseError{Provider: p.Name(), Message: "decode response", Raw: raw, Err: err}
	}

	out := &llmstream.Response{
		Model:    wire.Model,
		Provider: p.Name(),
		Usage:    usageFromChunk(&wire),
	}
	if wire.Message != nil {
		out.Content = wire.Message.Content
		out.Thinking = wire.Message.Thinking
		for _, tc := range wire.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, llmstream.ToolCall{
				Name:      tc.Function.Name,
				Arguments: string(tc.Function.Arguments),
			})
		}
	}
	if wire.DoneReason != "" {
		fr := llmstream.NormalizeFinishReason(wire.DoneReason)
		out.FinishReason = &fr
	}
	return out, nil
}

// StreamResponse issues the streaming request. The response body is a
// sequence of JSON objects, so the pipeline uses the JSON value decoder
// instead of the SSE decoder.
func (p *Provider) StreamResponse(ctx context.Context, req *llmstream.Request) (*llmstream.Stream, error) {
	body, err := buildRequestBody(req, true)
	if err != nil {
		return nil, err
	}
	httpReq, err := p.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, p.handleErrorResponse(resp)
	}

	dec := streamio.NewJSONValueDecoder(resp.Body)
	return llmstream.NewStream(p.Name(), resp.Body, dec, newConverter(req.Model), p.log), nil
}
