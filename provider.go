// Package llmstream normalizes streaming LLM responses: provider dialects
// decode their wire frames into one canonical event sequence, and an
// accumulator folds that sequence into a final aggregate response.
package llmstream

import "context"

// Provider is the interface every dialect implements. A provider translates
// the unified request into its wire format, and its streaming path feeds the
// shared pipeline (streamio decoder + FrameConverter) so all dialects expose
// the same event sequence and failure model.
type Provider interface {
	// GenerateResponse performs the single-shot, non-streaming request and
	// builds the aggregate response from one JSON body. The result is
	// shape-compatible with what Collect produces for the same request.
	GenerateResponse(ctx context.Context, req *Request) (*Response, error)

	// StreamResponse issues a streaming request and returns the live
	// pipeline. The caller owns the stream and must consume it with Recv
	// (or Events/Collect) and Close it; dropping it without Close leaks
	// the connection until GC.
	StreamResponse(ctx context.Context, req *Request) (*Stream, error)

	// Name returns the dialect name ("openai", "anthropic", "ollama", "lorem").
	Name() string

	// SupportsModel reports whether the provider accepts the given model id.
	SupportsModel(model string) bool
}
