package provider

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend implements GenerationBackend using the official openai-go
// SDK (chat completions, image generation, model catalog).
type OpenAIBackend struct {
	client       openai.Client
	defaultModel string
}

var _ GenerationBackend = (*OpenAIBackend)(nil)

// NewOpenAIBackend builds the backend from credentials. baseURL may be empty
// to use the public API.
func NewOpenAIBackend(apiKey, model, baseURL string) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIBackend{
		client:       openai.NewClient(opts...),
		defaultModel: model,
	}
}

func (b *OpenAIBackend) Name() string { return BackendOpenAI }

// Chat sends a system+user chat completion request.
func (b *OpenAIBackend) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = b.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}

	return &ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// GenerateImage renders one illustration and returns the raw bytes.
func (b *OpenAIBackend) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := b.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModelDallE3,
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		Size:           openai.ImageGenerateParamsSize1792x1024,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai: empty image response")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai: decode image payload: %w", err)
	}
	return raw, nil
}

// ListModels returns the account's model catalog.
func (b *OpenAIBackend) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := b.client.Models.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, ModelInfo{ID: m.ID, Label: m.ID})
	}
	return out, nil
}
