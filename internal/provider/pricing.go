package provider

// ModelPricing contains per-token pricing for a model.
// Prices are in USD per million tokens.
type ModelPricing struct {
	PromptPrice     float64
	CompletionPrice float64
}

// modelPricing holds hardcoded pricing for the models we route to. Unknown
// models fall back to a conservative default so cost is never recorded as
// zero for a paid call.
var modelPricing = map[string]ModelPricing{
	// OpenAI direct
	"gpt-4o":        {PromptPrice: 2.50, CompletionPrice: 10.00},
	"gpt-4o-mini":   {PromptPrice: 0.15, CompletionPrice: 0.60},
	"gpt-4-turbo":   {PromptPrice: 10.00, CompletionPrice: 30.00},
	"gpt-3.5-turbo": {PromptPrice: 0.50, CompletionPrice: 1.50},

	// Via OpenRouter
	"openai/gpt-4o":                     {PromptPrice: 2.50, CompletionPrice: 10.00},
	"openai/gpt-4o-mini":                {PromptPrice: 0.15, CompletionPrice: 0.60},
	"anthropic/claude-3.5-sonnet":       {PromptPrice: 3.00, CompletionPrice: 15.00},
	"anthropic/claude-3-haiku":          {PromptPrice: 0.25, CompletionPrice: 1.25},
	"google/gemini-flash-1.5":           {PromptPrice: 0.075, CompletionPrice: 0.30},
	"meta-llama/llama-3.1-70b-instruct": {PromptPrice: 0.52, CompletionPrice: 0.75},
	"meta-llama/llama-3.1-8b-instruct":  {PromptPrice: 0.055, CompletionPrice: 0.055},
	"mistralai/mistral-small":           {PromptPrice: 0.20, CompletionPrice: 0.60},
}

// defaultPricing covers models missing from the table.
var defaultPricing = ModelPricing{PromptPrice: 1.00, CompletionPrice: 3.00}

// CalculateCost derives the USD cost of one call from token counts.
func CalculateCost(model string, usage Usage) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		pricing = defaultPricing
	}
	return pricing.PromptPrice*float64(usage.PromptTokens)/1_000_000 +
		pricing.CompletionPrice*float64(usage.CompletionTokens)/1_000_000
}

// imageCostUSD is the flat per-image cost recorded for image generation.
// Token accounting does not apply to image calls.
const imageCostUSD = 0.04
