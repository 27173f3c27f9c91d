package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name  string
	resp  *ChatResponse
	err   error
	image []byte
	calls int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeBackend) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{ID: f.name + "-model", Label: f.name}}, nil
}

type captureSink struct {
	entries []UsageEntry
}

func (c *captureSink) Record(ctx context.Context, entry UsageEntry) {
	c.entries = append(c.entries, entry)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func articleJSON(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(ArticleDraft{
		Title:   "On Tea",
		Excerpt: "A short piece about tea.",
		Body:    "Tea is good.",
		Summary: "Tea appreciation.",
	})
	require.NoError(t, err)
	return string(raw)
}

func TestGatewayFallbackOrder(t *testing.T) {
	first := &fakeBackend{name: BackendOpenAI, err: fmt.Errorf("rate limited")}
	second := &fakeBackend{name: BackendOpenRouter, resp: &ChatResponse{
		Content: articleJSON(t),
		Model:   "openai/gpt-4o-mini",
		Usage:   Usage{PromptTokens: 100, CompletionTokens: 500},
	}}
	sink := &captureSink{}

	g := NewGateway(GatewayOptions{
		Order:  []GenerationBackend{first, second},
		Sink:   sink,
		Logger: testLogger(),
	})

	draft := g.GenerateArticle(context.Background(), "write about tea", "sys", "")
	require.NotNil(t, draft)
	assert.Equal(t, "On Tea", draft.Title)

	assert.Equal(t, 1, first.calls, "first backend is tried first")
	assert.Equal(t, 1, second.calls)

	// Exactly one usage record, attributed to the backend that served.
	require.Len(t, sink.entries, 1)
	assert.Equal(t, BackendOpenRouter, sink.entries[0].Provider)
	assert.Equal(t, "article", sink.entries[0].Kind)
	assert.Equal(t, 100, sink.entries[0].PromptTokens)
	assert.Greater(t, sink.entries[0].CostUSD, 0.0)
}

func TestGatewayEmptyContentIsAMiss(t *testing.T) {
	first := &fakeBackend{name: BackendOpenAI, resp: &ChatResponse{Content: "   "}}
	second := &fakeBackend{name: BackendOpenRouter, resp: &ChatResponse{Content: articleJSON(t)}}
	sink := &captureSink{}

	g := NewGateway(GatewayOptions{
		Order:  []GenerationBackend{first, second},
		Sink:   sink,
		Logger: testLogger(),
	})

	draft := g.GenerateArticle(context.Background(), "p", "s", "")
	require.NotNil(t, draft)
	assert.Equal(t, 1, second.calls)
	assert.Len(t, sink.entries, 1)
}

func TestGatewayAllBackendsFail(t *testing.T) {
	first := &fakeBackend{name: BackendOpenAI, err: fmt.Errorf("down")}
	second := &fakeBackend{name: BackendOpenRouter, err: fmt.Errorf("also down")}
	sink := &captureSink{}

	g := NewGateway(GatewayOptions{
		Order:  []GenerationBackend{first, second},
		Sink:   sink,
		Logger: testLogger(),
	})

	assert.Nil(t, g.GenerateArticle(context.Background(), "p", "s", ""))
	assert.Empty(t, sink.entries, "failed calls must not be billed")
	assert.Empty(t, g.GenerateComment(context.Background(), "ctx"))
}

func TestDecodeArticleLadder(t *testing.T) {
	t.Run("strict json", func(t *testing.T) {
		draft := decodeArticle(`{"title":"A","body":"B","summary":"S"}`)
		require.NotNil(t, draft)
		assert.Equal(t, "A", draft.Title)
		assert.Equal(t, "B", draft.Body)
	})

	t.Run("fenced json", func(t *testing.T) {
		raw := "Here you go:\n```json\n{\"title\":\"A\",\"body\":\"B\"}\n```\nEnjoy."
		draft := decodeArticle(raw)
		require.NotNil(t, draft)
		assert.Equal(t, "A", draft.Title)
		assert.Equal(t, "B", draft.Body)
	})

	t.Run("braces inside string values", func(t *testing.T) {
		raw := `prose {"title":"A","body":"code: {not a brace} done"} trailing`
		draft := decodeArticle(raw)
		require.NotNil(t, draft)
		assert.Equal(t, "code: {not a brace} done", draft.Body)
	})

	t.Run("plain text becomes body", func(t *testing.T) {
		draft := decodeArticle("Just an essay with no JSON at all.")
		require.NotNil(t, draft)
		assert.Empty(t, draft.Title)
		assert.Equal(t, "Just an essay with no JSON at all.", draft.Body)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, decodeArticle("   "))
	})
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONObject(`x {"a":1} y`))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSONObject(`{"a":{"b":2}}`))
	assert.Equal(t, `{"a":"\"}"}`, extractJSONObject(`{"a":"\"}"}`))
	assert.Empty(t, extractJSONObject("no object here"))
	assert.Empty(t, extractJSONObject(`{"never":"closed"`))
}

func TestSanitizeNickname(t *testing.T) {
	assert.Equal(t, "CoffeeFan42", SanitizeNickname("Coffee-Fan_42!"))
	assert.Equal(t, "Читатель", SanitizeNickname("Читатель"))
	assert.Equal(t, "", SanitizeNickname("!!! ***"))

	long := SanitizeNickname("abcdefghijklmnopqrstuvwxyz")
	assert.Equal(t, 18, len([]rune(long)))
}

func TestSuggestInternalLinksFiltersAndCaps(t *testing.T) {
	candidates := []LinkSuggestion{
		{URL: "/posts/a", Title: "A"},
		{URL: "/posts/b", Title: "B"},
		{URL: "/posts/c", Title: "C"},
		{URL: "/posts/d", Title: "D"},
	}
	// Provider returns five suggestions, one outside the candidate set and
	// one with an empty anchor.
	content := `[
		{"anchor":"alpha","url":"/posts/a","title":"A"},
		{"anchor":"evil","url":"https://spam.example","title":"Spam"},
		{"anchor":"","url":"/posts/b","title":"B"},
		{"anchor":"bravo","url":"/posts/b","title":"B"},
		{"anchor":"charlie","url":"/posts/c","title":"C"},
		{"anchor":"delta","url":"/posts/d","title":"D"}
	]`
	backend := &fakeBackend{name: BackendOpenAI, resp: &ChatResponse{Content: content}}

	g := NewGateway(GatewayOptions{Order: []GenerationBackend{backend}, Logger: testLogger()})
	out := g.SuggestInternalLinks(context.Background(), "body", candidates, nil)

	require.Len(t, out, maxLinkSuggestions)
	assert.Equal(t, "/posts/a", out[0].URL)
	assert.Equal(t, "/posts/b", out[1].URL)
	assert.Equal(t, "/posts/c", out[2].URL)
}

func TestSuggestInternalLinksProseWrappedArray(t *testing.T) {
	candidates := []LinkSuggestion{{URL: "/posts/a", Title: "A"}}
	backend := &fakeBackend{name: BackendOpenAI, resp: &ChatResponse{
		Content: "Sure! Here they are:\n[{\"anchor\":\"alpha\",\"url\":\"/posts/a\",\"title\":\"A\"}]\nDone.",
	}}

	g := NewGateway(GatewayOptions{Order: []GenerationBackend{backend}, Logger: testLogger()})
	out := g.SuggestInternalLinks(context.Background(), "body", candidates, []string{"alpha"})

	require.Len(t, out, 1)
	assert.Equal(t, "alpha", out[0].Anchor)
}

func TestGenerateImageRecordsFlatCost(t *testing.T) {
	backend := &fakeBackend{name: BackendOpenAI, image: []byte{0x89, 0x50}}
	sink := &captureSink{}

	g := NewGateway(GatewayOptions{
		Order:        []GenerationBackend{backend},
		ImageBackend: backend,
		Sink:         sink,
		Logger:       testLogger(),
	})

	data := g.GenerateImage(context.Background(), "On Tea", "editorial")
	require.NotEmpty(t, data)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "image", sink.entries[0].Kind)
	assert.Equal(t, imageCostUSD, sink.entries[0].CostUSD)
	assert.Zero(t, sink.entries[0].PromptTokens)
}

func TestCalculateCost(t *testing.T) {
	// 1M prompt tokens of gpt-4o-mini is $0.15.
	got := CalculateCost("gpt-4o-mini", Usage{PromptTokens: 1_000_000})
	assert.InDelta(t, 0.15, got, 1e-9)

	got = CalculateCost("gpt-4o-mini", Usage{PromptTokens: 200_000, CompletionTokens: 100_000})
	assert.InDelta(t, 0.15*0.2+0.60*0.1, got, 1e-9)

	// Unknown models use the conservative default, never zero.
	got = CalculateCost("mystery-model", Usage{PromptTokens: 1000, CompletionTokens: 1000})
	assert.InDelta(t, (1.00+3.00)/1000, got, 1e-9)
}
