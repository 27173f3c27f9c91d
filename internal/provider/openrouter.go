package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterBackend implements GenerationBackend against the OpenRouter
// chat-completions API. OpenRouter routes text only; image requests report
// unsupported so the gateway's image path never selects it by accident.
type OpenRouterBackend struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

var _ GenerationBackend = (*OpenRouterBackend)(nil)

// NewOpenRouterBackend builds the backend from credentials.
func NewOpenRouterBackend(apiKey, model string) *OpenRouterBackend {
	if model == "" {
		model = "openai/gpt-4o-mini"
	}
	return &OpenRouterBackend{
		apiKey:       apiKey,
		baseURL:      openRouterBaseURL,
		defaultModel: model,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (b *OpenRouterBackend) Name() string { return BackendOpenRouter }

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterChatRequest struct {
	Model     string              `json:"model"`
	Messages  []openRouterMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

type openRouterChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat sends a system+user chat completion request.
func (b *OpenRouterBackend) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("openrouter: API key not configured")
	}

	model := req.Model
	if model == "" {
		model = b.defaultModel
	}

	body, err := json.Marshal(openRouterChatRequest{
		Model: model,
		Messages: []openRouterMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	httpReq.Header.Set("X-Title", "inkdrift")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter: status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp openRouterChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("openrouter: unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: empty choices")
	}

	servedModel := chatResp.Model
	if servedModel == "" {
		servedModel = model
	}

	return &ChatResponse{
		Content: chatResp.Choices[0].Message.Content,
		Model:   servedModel,
		Usage: Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
		},
	}, nil
}

// GenerateImage is not supported by OpenRouter in this engine.
func (b *OpenRouterBackend) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return nil, fmt.Errorf("openrouter: image generation not supported")
}

// ListModels queries the OpenRouter catalog.
func (b *OpenRouterBackend) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter: status %d: %s", resp.StatusCode, string(respBody))
	}

	var catalog struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &catalog); err != nil {
		return nil, fmt.Errorf("openrouter: unmarshal catalog: %w", err)
	}

	out := make([]ModelInfo, 0, len(catalog.Data))
	for _, m := range catalog.Data {
		label := m.Name
		if label == "" {
			label = m.ID
		}
		out = append(out, ModelInfo{ID: m.ID, Label: label})
	}
	return out, nil
}
