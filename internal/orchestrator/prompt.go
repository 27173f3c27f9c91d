package orchestrator

import (
	"fmt"
	"strings"

	"github.com/inkdrift/inkdrift/internal/content"
)

const defaultSystemPrompt = "You are a seasoned blog author. Reply with a single JSON object " +
	`{"title","excerpt","body","summary"} and nothing else. The body is markdown.`

// synthesizePrompt builds the user prompt for autonomous generation from
// site context and the configured word bounds.
func (o *Orchestrator) synthesizePrompt(pc content.PromptContext) string {
	var sb strings.Builder

	sb.WriteString("Write a new blog article.\n")
	fmt.Fprintf(&sb, "- Length: between %d and %d words.\n", o.cfg.WordCountMin, o.cfg.WordCountMax)
	if o.cfg.Tone != "" {
		fmt.Fprintf(&sb, "- Tone: %s.\n", o.cfg.Tone)
	}

	if len(pc.Categories) > 0 {
		fmt.Fprintf(&sb, "- Pick a topic fitting one of the site's categories: %s.\n",
			strings.Join(pc.Categories, ", "))
	}

	if len(pc.RecentSummaries) > 0 {
		sb.WriteString("- Do not repeat these recently covered topics:\n")
		for _, s := range pc.RecentSummaries {
			fmt.Fprintf(&sb, "  - %s\n", s)
		}
	}

	sb.WriteString("- The summary field is 2-3 sentences for internal use.\n")
	sb.WriteString("- The excerpt field is one enticing sentence for listings.\n")
	return sb.String()
}
