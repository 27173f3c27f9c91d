package orchestrator

import (
	"fmt"
	"strings"

	"github.com/inkdrift/inkdrift/internal/provider"
)

// InjectLinks weaves accepted link suggestions into the body. Only the first
// occurrence of each anchor is linked — literal match first, then
// case-insensitive. Anchors that never match are appended in a trailing
// further-reading line rather than silently dropped.
func InjectLinks(body string, suggestions []provider.LinkSuggestion) string {
	var unmatched []provider.LinkSuggestion

	for _, s := range suggestions {
		anchor := strings.TrimSpace(s.Anchor)
		if anchor == "" {
			continue
		}
		linked := fmt.Sprintf("[%s](%s)", anchor, s.URL)

		if idx := strings.Index(body, anchor); idx >= 0 {
			body = body[:idx] + linked + body[idx+len(anchor):]
			continue
		}

		// ASCII-only fold: strings.ToLower can change a rune's byte width
		// (Turkish dotted I), which would skew the offsets used to slice body.
		if idx := strings.Index(lowerASCII(body), lowerASCII(anchor)); idx >= 0 {
			original := body[idx : idx+len(anchor)]
			body = body[:idx] + fmt.Sprintf("[%s](%s)", original, s.URL) + body[idx+len(anchor):]
			continue
		}

		unmatched = append(unmatched, s)
	}

	if len(unmatched) > 0 {
		var sb strings.Builder
		sb.WriteString(body)
		sb.WriteString("\n\n**Further reading:** ")
		for i, s := range unmatched {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "[%s](%s)", s.Anchor, s.URL)
		}
		body = sb.String()
	}

	return body
}

// lowerASCII folds A-Z only, leaving every other rune and its byte width
// intact, so indexes into the folded string are valid in the original.
func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
