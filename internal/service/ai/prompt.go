package ai

import (
	"fmt"
	"strings"

	"github.com/exhaai/exha-chat/backend/internal/model/profile"
)

// extraRules are appended to every system prompt, per profile id.
var extraRules = map[string][]string{
	"ark": {
		"Prefer short paragraphs and markdown lists when listing steps.",
		"Use fenced code blocks with a language tag for code.",
	},
}

// BuildSystemPrompt creates the system prompt for a profile.
func BuildSystemPrompt(p profile.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a friendly and helpful AI assistant chatting with a user in a web browser.\n", p.Name)
	b.WriteString("Answer clearly and concisely. Replies are rendered as ")
	switch p.Format {
	case profile.FormatPlain:
		b.WriteString("plain text, so do not use markdown.")
	default:
		b.WriteString("markdown.")
	}

	if rules := extraRules[p.ID]; len(rules) > 0 {
		b.WriteString("\n\nRules:\n- ")
		b.WriteString(strings.Join(rules, "\n- "))
	}
	return b.String()
}
