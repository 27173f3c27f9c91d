package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// ArticleDraft is the decoded article payload from a provider. Zero-value
// fields are filled in by the orchestrator (slug from title, excerpt from
// body) before persistence.
type ArticleDraft struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Body    string `json:"body"`
	Summary string `json:"summary"`
}

// LinkSuggestion is one internal-link anchor proposed by a provider.
type LinkSuggestion struct {
	Anchor string `json:"anchor"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// maxLinkSuggestions caps link output regardless of what a provider returns.
const maxLinkSuggestions = 3

// Gateway fans generation requests out to backends in a fixed order and
// returns the first usable result. A nil result with nil error means
// "generation unavailable this cycle"; callers must not treat it as fatal.
type Gateway struct {
	order        []GenerationBackend // fallback order, fixed at construction
	imageBackend GenerationBackend   // single backend, no fallback chain
	sink         UsageSink
	logger       *slog.Logger
}

// GatewayOptions wires the gateway's collaborators.
type GatewayOptions struct {
	Order        []GenerationBackend
	ImageBackend GenerationBackend
	Sink         UsageSink
	Logger       *slog.Logger
}

// NewGateway builds a gateway over an ordered backend list.
func NewGateway(opts GatewayOptions) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		order:        opts.Order,
		imageBackend: opts.ImageBackend,
		sink:         opts.Sink,
		logger:       logger.With("component", "provider.gateway"),
	}
}

// chat runs the fallback iteration: each backend is tried in order, any
// error is logged and treated as a miss. Returns nil when all backends fail.
func (g *Gateway) chat(ctx context.Context, kind string, req ChatRequest) *ChatResponse {
	for _, backend := range g.order {
		resp, err := backend.Chat(ctx, req)
		if err != nil {
			g.logger.Warn("provider call failed, trying next",
				"provider", backend.Name(), "kind", kind, "error", err.Error())
			continue
		}
		if strings.TrimSpace(resp.Content) == "" {
			g.logger.Warn("provider returned empty content, trying next",
				"provider", backend.Name(), "kind", kind)
			continue
		}
		g.record(ctx, kind, backend.Name(), resp)
		return resp
	}
	return nil
}

func (g *Gateway) record(ctx context.Context, kind, providerName string, resp *ChatResponse) {
	if g.sink == nil {
		return
	}
	g.sink.Record(ctx, UsageEntry{
		Kind:             kind,
		Provider:         providerName,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		CostUSD:          CalculateCost(resp.Model, resp.Usage),
	})
}

// GenerateArticle asks the backends for a structured article. The response
// is decoded with a three-step ladder: strict JSON, then the first balanced
// {...} substring, then the raw text as the body. Returns nil when no
// backend yields usable content.
func (g *Gateway) GenerateArticle(ctx context.Context, prompt, systemPrompt, modelOverride string) *ArticleDraft {
	resp := g.chat(ctx, "article", ChatRequest{
		System: systemPrompt,
		User:   prompt,
		Model:  modelOverride,
	})
	if resp == nil {
		return nil
	}
	return decodeArticle(resp.Content)
}

// decodeArticle applies the decode ladder to raw provider output.
func decodeArticle(raw string) *ArticleDraft {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var draft ArticleDraft
	if err := json.Unmarshal([]byte(raw), &draft); err == nil && draft.Body != "" {
		return &draft
	}

	if obj := extractJSONObject(raw); obj != "" {
		draft = ArticleDraft{}
		if err := json.Unmarshal([]byte(obj), &draft); err == nil && draft.Body != "" {
			return &draft
		}
	}

	// Last resort: the whole response is the body.
	return &ArticleDraft{Body: raw}
}

// extractJSONObject returns the first balanced {...} substring, respecting
// string literals and escapes so braces inside values don't break matching.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// GenerateComment produces a short reader comment for the given article
// context. Returns "" when all backends fail.
func (g *Gateway) GenerateComment(ctx context.Context, articleContext string) string {
	resp := g.chat(ctx, "comment", ChatRequest{
		System: "You write short, casual blog comments. One or two sentences, " +
			"first person, no greetings, no hashtags, plain text only.",
		User:      "Write a reader comment reacting to this article:\n\n" + articleContext,
		MaxTokens: 120,
	})
	if resp == nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Content), `"`))
}

// GenerateNickname produces a commenter nickname. The output is stripped to
// letters and digits and truncated to 18 runes. Returns "" on miss.
func (g *Gateway) GenerateNickname(ctx context.Context, hint string) string {
	resp := g.chat(ctx, "comment", ChatRequest{
		System: "You invent plausible internet nicknames. Reply with the " +
			"nickname only, one word, no quotes.",
		User:      "Invent a nickname for a blog commenter. " + hint,
		MaxTokens: 16,
	})
	if resp == nil {
		return ""
	}
	return SanitizeNickname(resp.Content)
}

// SanitizeNickname keeps Latin and Cyrillic letters plus digits and cuts the
// result to 18 runes.
func SanitizeNickname(raw string) string {
	var b strings.Builder
	count := 0
	for _, r := range raw {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			(r >= 0x0400 && r <= 0x04FF) // Cyrillic block
		if !ok {
			continue
		}
		b.WriteRune(r)
		count++
		if count == 18 {
			break
		}
	}
	return b.String()
}

// SuggestInternalLinks asks a provider to pick up to three anchors strictly
// from the candidate URL set. Suggestions pointing outside the set are
// discarded; output never exceeds three entries.
func (g *Gateway) SuggestInternalLinks(ctx context.Context, articleBody string, candidates []LinkSuggestion, keywordHints []string) []LinkSuggestion {
	if len(candidates) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Pick up to 3 internal links to weave into the article below. ")
	sb.WriteString("Choose URLs ONLY from this candidate list:\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "- %s (%s)\n", c.URL, c.Title)
	}
	if len(keywordHints) > 0 {
		sb.WriteString("Prefer anchors touching these keywords: ")
		sb.WriteString(strings.Join(keywordHints, ", "))
		sb.WriteString("\n")
	}
	sb.WriteString("\nReply with a JSON array of {\"anchor\",\"url\",\"title\"} objects.\n\nArticle:\n")
	sb.WriteString(articleBody)

	resp := g.chat(ctx, "article", ChatRequest{
		System:    "You are an SEO assistant. Reply with JSON only.",
		User:      sb.String(),
		MaxTokens: 400,
	})
	if resp == nil {
		return nil
	}

	var suggestions []LinkSuggestion
	content := resp.Content
	if err := json.Unmarshal([]byte(content), &suggestions); err != nil {
		// Providers occasionally wrap the array in prose or fences.
		start := strings.IndexByte(content, '[')
		end := strings.LastIndexByte(content, ']')
		if start < 0 || end <= start {
			return nil
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &suggestions); err != nil {
			return nil
		}
	}

	allowed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		allowed[c.URL] = true
	}

	out := make([]LinkSuggestion, 0, maxLinkSuggestions)
	for _, s := range suggestions {
		if !allowed[s.URL] || strings.TrimSpace(s.Anchor) == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxLinkSuggestions {
			break
		}
	}
	return out
}

// GenerateImage renders an illustration via the configured image backend.
// No fallback chain: a miss is a miss for this cycle.
func (g *Gateway) GenerateImage(ctx context.Context, title, style string) []byte {
	if g.imageBackend == nil {
		return nil
	}

	prompt := fmt.Sprintf("Illustration for a blog article titled %q. Style: %s. No text in the image.", title, style)
	raw, err := g.imageBackend.GenerateImage(ctx, prompt)
	if err != nil {
		g.logger.Warn("image generation failed",
			"provider", g.imageBackend.Name(), "error", err.Error())
		return nil
	}

	if g.sink != nil {
		g.sink.Record(ctx, UsageEntry{
			Kind:     "image",
			Provider: g.imageBackend.Name(),
			Model:    "dall-e-3",
			CostUSD:  imageCostUSD,
		})
	}
	return raw
}

// ListModels returns the catalog of the named backend.
func (g *Gateway) ListModels(ctx context.Context, providerName string) ([]ModelInfo, error) {
	for _, backend := range g.order {
		if backend.Name() == providerName {
			return backend.ListModels(ctx)
		}
	}
	return nil, fmt.Errorf("unknown provider: %s", providerName)
}
