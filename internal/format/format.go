// Package format turns backend replies into HTML fragments for the browser.
package format

import (
	"fmt"
	"html"
	"strings"

	"github.com/exhaai/exha-chat/backend/internal/model/profile"
)

// Formatter renders reply text as an HTML fragment.
type Formatter interface {
	Format(text string) string
}

// ForMode returns the formatter for a profile format mode.
func ForMode(mode string) (Formatter, error) {
	switch mode {
	case profile.FormatBasic:
		return Basic{}, nil
	case profile.FormatMarkdown, "":
		return NewMarkdown(), nil
	case profile.FormatPlain:
		return Plain{}, nil
	default:
		return nil, fmt.Errorf("unknown format mode %q", mode)
	}
}

// Plain escapes the text and keeps its line breaks.
type Plain struct{}

func (Plain) Format(text string) string {
	text = normalizeNewlines(strings.TrimSpace(text))
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
