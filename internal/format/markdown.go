package format

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown renders CommonMark + GFM with single newlines kept as <br>.
// Raw HTML in the reply is not passed through.
type Markdown struct {
	md goldmark.Markdown
}

func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

func (m *Markdown) Format(text string) string {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(normalizeNewlines(text)), &buf); err != nil {
		// goldmark only fails on writer errors; fall back to escaped text.
		return Plain{}.Format(text)
	}
	return strings.TrimSpace(buf.String())
}
