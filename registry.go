package llmstream

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderID represents a unique provider identifier.
// Using a typed constant prevents typos and provides compile-time safety.
type ProviderID string

// Known provider identifiers
const (
	// ProviderOpenAI is any OpenAI-compatible chat completions endpoint
	// (OpenAI itself, OpenRouter, Groq, xAI).
	ProviderOpenAI ProviderID = "openai"

	// ProviderAnthropic is Anthropic's Messages API
	ProviderAnthropic ProviderID = "anthropic"

	// ProviderOllama is a local Ollama server (JSON value-per-chunk dialect)
	ProviderOllama ProviderID = "ollama"

	// ProviderLorem is the offline synthetic provider for testing
	ProviderLorem ProviderID = "lorem"
)

// String returns the string representation of the provider ID
func (p ProviderID) String() string {
	return string(p)
}

// IsValid returns true if the provider ID is a known provider
func (p ProviderID) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderLorem:
		return true
	default:
		return false
	}
}

// Registry maps provider names to constructed Provider instances. It is safe
// for concurrent use; registration normally happens once at startup.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderID]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[ProviderID]Provider)}
}

// Register adds or replaces a provider under its own name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[ProviderID(p.Name())] = p
}

// Get returns the provider registered under id.
func (r *Registry) Get(id ProviderID) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("llmstream: no provider registered for %q", id)
	}
	return p, nil
}

// Names returns the registered provider ids, sorted.
func (r *Registry) Names() []ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderID, 0, len(r.providers))
	for id := range r.providers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
