// Package provider presents one generation API over interchangeable
// LLM backends with fixed-order fallback and usage accounting.
package provider

import "context"

// Backend names form a closed set; selection is an explicit ordering list
// derived from configuration, never per-request routing.
const (
	BackendOpenAI     = "openai"
	BackendOpenRouter = "openrouter"
)

// ChatRequest is a provider-neutral chat completion request.
type ChatRequest struct {
	System    string
	User      string
	Model     string // empty = backend default
	MaxTokens int    // 0 = backend default
}

// Usage holds token counts reported by a backend for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// ChatResponse is a provider-neutral chat completion response.
type ChatResponse struct {
	Content string
	Model   string // model that actually served the request
	Usage   Usage
}

// ModelInfo is one entry of a backend's model catalog.
type ModelInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// GenerationBackend is implemented by each concrete provider client.
type GenerationBackend interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// UsageEntry is what the gateway hands to the accounting sink after a
// successful backend call.
type UsageEntry struct {
	Kind             string // article | image | comment
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}

// UsageSink receives one entry per successful provider call. Implementations
// must tolerate being called from overlapping trigger invocations.
type UsageSink interface {
	Record(ctx context.Context, entry UsageEntry)
}
