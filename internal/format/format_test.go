package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exhaai/exha-chat/backend/internal/model/profile"
)

func TestBasicFormat(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"bold", "Hello **world**", "Hello <strong>world</strong>"},
		{"underscore bold", "__loud__ voice", "<strong>loud</strong> voice"},
		{"italic", "*hi* and snake_case_name", "<em>hi</em> and snake_case_name"},
		{"underscore italic", "a _soft_ word", "a <em>soft</em> word"},
		{"strike", "~~old~~ new", "<del>old</del> new"},
		{"escapes html", "<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"escapes quotes", `it's "fine"`, "it&#39;s &#34;fine&#34;"},
		{"line breaks", "line1\r\nline2", "line1<br>line2"},
		{"heading", "# Title\nBody", "<h1>Title</h1>Body"},
		{"heading with bold", "## **Big**", "<h2><strong>Big</strong></h2>"},
		{"rule", "above\n---\nbelow", "above<hr>below"},
		{"bullet list", "Intro:\n- a\n- b", "Intro:<ul><li>a</li><li>b</li></ul>"},
		{"star list is not italic", "* one\n* two", "<ul><li>one</li><li>two</li></ul>"},
		{"ordered list", "1. first\n2. second", "<ol><li>first</li><li>second</li></ol>"},
		{
			"inline code is escaped and untouched",
			"Use `a **b** <c>`",
			"Use <code>a **b** &lt;c&gt;</code>",
		},
		{
			"fenced code",
			"```go\nfmt.Println(1 < 2)\n```",
			`<pre><code class="language-go">fmt.Println(1 &lt; 2)</code></pre>`,
		},
		{
			"fenced code between text",
			"text\n```\n**x**\n```\nmore",
			"text<pre><code>**x**</code></pre>more",
		},
		{
			"link",
			"See [Go](https://go.dev/doc_x_y)",
			`See <a href="https://go.dev/doc_x_y" target="_blank" rel="noopener noreferrer">Go</a>`,
		},
		{"non http link stays text", "[x](javascript:alert(1))", "[x](javascript:alert(1))"},
		{
			"link text keeps emphasis",
			"[**b** and ~~c~~](https://x.y)",
			`<a href="https://x.y" target="_blank" rel="noopener noreferrer"><strong>b</strong> and <del>c</del></a>`,
		},
		{
			"placeholder runes in input are dropped",
			"literal \uE000B0\uE001 then\n```\ncode\n```",
			"literal B0 then<pre><code>code</code></pre>",
		},
		{"lone placeholder rune", "a\uE001b\uE000", "ab"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Basic{}.Format(tc.in))
		})
	}
}

func TestMarkdownFormat(t *testing.T) {
	md := NewMarkdown()

	assert.Equal(t, "<p><strong>hi</strong></p>", md.Format("**hi**"))
	assert.Equal(t, "<p>a<br>\nb</p>", md.Format("a\nb"))
	assert.Equal(t, "<p><del>gone</del></p>", md.Format("~~gone~~"))

	out := md.Format("<b>x</b>")
	assert.Contains(t, out, "raw HTML omitted")
	assert.NotContains(t, out, "<b>")

	list := md.Format("- a\n- b")
	assert.Contains(t, list, "<ul>")
	assert.Contains(t, list, "<li>a</li>")
}

func TestPlainFormat(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt;<br>c", Plain{}.Format("a <b>\nc\n"))
}

func TestForMode(t *testing.T) {
	f, err := ForMode(profile.FormatBasic)
	require.NoError(t, err)
	assert.IsType(t, Basic{}, f)

	f, err = ForMode(profile.FormatPlain)
	require.NoError(t, err)
	assert.IsType(t, Plain{}, f)

	f, err = ForMode(profile.FormatMarkdown)
	require.NoError(t, err)
	assert.IsType(t, &Markdown{}, f)

	_, err = ForMode("fancy")
	assert.Error(t, err)
}
