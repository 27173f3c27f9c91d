package provider

import "github.com/inkdrift/inkdrift/internal/config"

// BuildOrder resolves the configured provider mode into the fixed backend
// ordering the gateway iterates. Auto mode is openai then openrouter; there
// is no health-based or adaptive reordering.
func BuildOrder(cfg *config.Config) []GenerationBackend {
	oa := NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	or := NewOpenRouterBackend(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)

	switch cfg.ProviderMode {
	case config.ProviderOpenAI:
		return []GenerationBackend{oa}
	case config.ProviderOpenRouter:
		return []GenerationBackend{or}
	default:
		return []GenerationBackend{oa, or}
	}
}

// BuildImageBackend resolves the image-provider setting to a single backend.
func BuildImageBackend(cfg *config.Config) GenerationBackend {
	switch cfg.ImageProvider {
	case config.ProviderOpenRouter:
		return NewOpenRouterBackend(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	default:
		return NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
}
