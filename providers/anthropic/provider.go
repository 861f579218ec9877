// Package anthropic implements the Anthropic Messages API dialect, including
// its block-structured SSE streaming format and extended thinking channel.
package anthropic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	llmstream "github.com/lumenlabs/lumen-llm-go"
	"github.com/lumenlabs/lumen-llm-go/streamio"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

// Provider talks to the Anthropic Messages API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API endpoint (proxies, test servers).
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

// New creates a provider for the given API key.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
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
func (p *Provider) Name() string { return llmstream.ProviderAnthropic.String() }

// SupportsModel accepts Claude model ids.
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// Messages API wire request

type wireContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type wireMessage struct {
	Role    string             `json:"role"`
	Content []wireContentBlock `json:"content"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type messagesRequest struct {
	Model         string        `json:"model"`
	MaxTokens     int           `json:"max_tokens"`
	System        string        `json:"system,omitempty"`
	Messages      []wireMessage `json:"messages"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Tools         []wireTool    `json:"tools,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
}

// buildRequestBody translates the unified request. System messages move to
// the dedicated system field; assistant tool calls and tool results become
// the block shapes the Messages API expects.
func buildRequestBody(req *llmstream.Request, stream bool) ([]byte, error) {
	wire := messagesRequest{
		Model:     req.Model,
		MaxTokens: defaultMaxTokens,
		Stream:    stream,
	}
	for _, m := range req.Messages {
		switch m.Role {
		case llmstream.RoleSystem:
			wire.System = m.Content
		case llmstream.RoleTool:
			wire.Messages = append(wire.Messages, wireMessage{
				Role: "user",
				Content: []wireContentBlock{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Content,
				}},
			})
		default:
			wm := wireMessage{Role: string(m.Role)}
			if m.Content != "" {
				wm.Content = append(wm.Content, wireContentBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				input := json.RawMessage(tc.Arguments)
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				wm.Content = append(wm.Content, wireContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: input,
				})
			}
			wire.Messages = append(wire.Messages, wm)
		}
	}
	if req.Params != nil {
		wire.Temperature = req.Params.Temperature
		wire.TopP = req.Params.TopP
		if req.Params.MaxTokens != nil {
			wire.MaxTokens = *req.Params.MaxTokens
		}
		wire.StopSequences = req.Params.Stop
	}
	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, wireTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}
	return body, nil
}

func (p *Provider) newHTTPRequest(ctx context.Context, body []byte, stream bool) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

func (p *Provider) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 32*1024))
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &llmstream.ProviderError{
		Provider:   p.Name(),
		StatusCode: resp.StatusCode,
		Code:       gjson.GetBytes(body, "error.type").String(),
		Message:    msg,
		Err:        llmstream.SentinelForStatus(resp.StatusCode),
	}
}

// Messages API wire response (non-streaming)

type messagesResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type     string          `json:"type"`
		Text     string          `json:"text"`
		Thinking string          `json:"thinking"`
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Input    json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string     `json:"stop_reason"`
	Usage      *wireUsage `json:"usage"`
}

// GenerateResponse performs the single-shot request.
func (p *Provider) GenerateResponse(ctx context.Context, req *llmstream.Request) (*llmstream.Response, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("anthropic: model %q: %w", req.Model, llmstream.ErrInvalidModel)
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
		return nil, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: read response: %w", err)
	}
	var wire messagesResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &llmstream.ParseError{Provider: p.Name(), Message: "decode response", Raw: raw, Err: err}
	}

	out := &llmstream.Response{
		ID:       wire.ID,
		Model:    wire.Model,
		Provider: p.Name(),
		Usage:    usageFromWire(wire.Usage),
	}
	var content, thinking strings.Builder
	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "thinking":
			thinking.WriteString(block.Thinking)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, llmstream.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}
	out.Content = content.String()
	out.Thinking = thinking.String()
	if wire.StopReason != "" {
		fr := llmstream.NormalizeFinishReason(wire.StopReason)
		out.FinishReason = &fr
	}
	return out, nil
}

// StreamResponse issues the streaming request and wires up the pipeline.
func (p *Provider) StreamResponse(ctx context.Context, req *llmstream.Request) (*llmstream.Stream, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("anthropic: model %q: %w", req.Model, llmstream.ErrInvalidModel)
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
		return nil, fmt.Errorf("anthropic: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, p.handleErrorResponse(resp)
	}

	dec := streamio.NewSSEDecoder(resp.Body)
	return llmstream.NewStream(p.Name(), resp.Body, dec, newConverter(), p.log), nil
}
