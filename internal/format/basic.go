package format

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Placeholders wrap lifted fragments so later substitutions cannot touch
// them. Both runes are in the private use area and survive html escaping.
// They are stripped from the input so only lifted fragments carry them.
const (
	slotOpen  = "\uE000"
	slotClose = "\uE001"
)

var slotStripper = strings.NewReplacer(slotOpen, "", slotClose, "")

const matchTimeout = time.Second

func compile(expr string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, opts)
	re.MatchTimeout = matchTimeout
	return re
}

var (
	fencedCodeRe = compile("```([\\w+#-]*)[ \\t]*\\n?([\\s\\S]*?)```", regexp2.None)
	inlineCodeRe = compile("`([^`\\n]+)`", regexp2.None)
	linkRe       = compile(`\[([^\]\n]+)\]\((https?://[^\s)]+)\)`, regexp2.None)
	ruleRe       = compile(`^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`, regexp2.Multiline)
	headingRe    = compile(`^(#{1,6})[ \t]+(.+?)[ \t]*$`, regexp2.Multiline)
	boldStarRe   = compile(`\*\*(?=\S)(.+?)(?<=\S)\*\*`, regexp2.None)
	boldUnderRe  = compile(`__(?=\S)(.+?)(?<=\S)__`, regexp2.None)
	italStarRe   = compile(`(?<![*\w])\*(?=\S)([^*\n]+?)(?<=\S)\*(?![*\w])`, regexp2.None)
	italUnderRe  = compile(`(?<![_\w])_(?=\S)([^_\n]+?)(?<=\S)_(?![_\w])`, regexp2.None)
	strikeRe     = compile(`~~(?=\S)(.+?)(?<=\S)~~`, regexp2.None)
	bulletListRe = compile(`(?:^[ \t]*[-*+][ \t]+.+\n?)+`, regexp2.Multiline)
	orderListRe  = compile(`(?:^[ \t]*\d+\.[ \t]+.+\n?)+`, regexp2.Multiline)
	listMarkRe   = compile(`^[ \t]*(?:[-*+]|\d+\.)[ \t]+`, regexp2.None)
	blockEndRe   = compile(`(</h[1-6]>|</ul>|</ol>|<hr>|`+slotOpen+`B\d+`+slotClose+`)\n`, regexp2.None)
	blockStartRe = compile(`\n(<h[1-6]>|<ul>|<ol>|<hr>|`+slotOpen+`B\d+`+slotClose+`)`, regexp2.None)
)

// Basic formats a reply with a fixed sequence of regular-expression
// substitutions: code is lifted out first, the rest is escaped, then inline
// and block markdown constructs are rewritten one after another.
type Basic struct{}

func (Basic) Format(text string) string {
	out, err := newBasicRun().format(text)
	if err != nil {
		return Plain{}.Format(text)
	}
	return out
}

type basicRun struct {
	slots []string
}

func newBasicRun() *basicRun {
	return &basicRun{}
}

// lift stores fragment and returns the placeholder standing in for it.
// kind is B for block fragments and I for inline ones.
func (r *basicRun) lift(kind byte, fragment string) string {
	r.slots = append(r.slots, fragment)
	return slotOpen + string(kind) + strconv.Itoa(len(r.slots)-1) + slotClose
}

func (r *basicRun) restore(text string) string {
	for i := len(r.slots) - 1; i >= 0; i-- {
		for _, kind := range []string{"B", "I"} {
			text = strings.ReplaceAll(text, slotOpen+kind+strconv.Itoa(i)+slotClose, r.slots[i])
		}
	}
	return text
}

func (r *basicRun) format(text string) (string, error) {
	text = strings.TrimSpace(slotStripper.Replace(normalizeNewlines(text)))
	if text == "" {
		return "", nil
	}

	steps := []func(string) (string, error){
		r.liftFencedCode,
		escape,
		r.liftInlineCode,
		r.liftLinks,
		replace(ruleRe, "<hr>"),
		headings,
		emphasis,
		list(bulletListRe, "ul"),
		list(orderListRe, "ol"),
		replace(blockEndRe, "$1"),
		replace(blockStartRe, "$1"),
		lineBreaks,
	}

	var err error
	for _, step := range steps {
		if text, err = step(text); err != nil {
			return "", err
		}
	}

	return r.restore(text), nil
}

var emphasisSteps = []func(string) (string, error){
	replace(boldStarRe, "<strong>$1</strong>"),
	replace(boldUnderRe, "<strong>$1</strong>"),
	replace(italStarRe, "<em>$1</em>"),
	replace(italUnderRe, "<em>$1</em>"),
	replace(strikeRe, "<del>$1</del>"),
}

func emphasis(text string) (string, error) {
	var err error
	for _, step := range emphasisSteps {
		if text, err = step(text); err != nil {
			return "", err
		}
	}
	return text, nil
}

func replace(re *regexp2.Regexp, replacement string) func(string) (string, error) {
	return func(text string) (string, error) {
		return re.Replace(text, replacement, -1, -1)
	}
}

func escape(text string) (string, error) {
	return html.EscapeString(text), nil
}

func lineBreaks(text string) (string, error) {
	return strings.ReplaceAll(text, "\n", "<br>"), nil
}

func (r *basicRun) liftFencedCode(text string) (string, error) {
	return fencedCodeRe.ReplaceFunc(text, func(m regexp2.Match) string {
		lang := m.GroupByNumber(1).String()
		code := html.EscapeString(strings.TrimRight(m.GroupByNumber(2).String(), "\n"))
		if lang == "" {
			return r.lift('B', "<pre><code>"+code+"</code></pre>")
		}
		return r.lift('B', fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, html.EscapeString(lang), code))
	}, -1, -1)
}

// liftInlineCode runs after escaping, so the captured text is already safe.
func (r *basicRun) liftInlineCode(text string) (string, error) {
	return inlineCodeRe.ReplaceFunc(text, func(m regexp2.Match) string {
		return r.lift('I', "<code>"+m.GroupByNumber(1).String()+"</code>")
	}, -1, -1)
}

// liftLinks lifts the whole anchor, so the link text gets its emphasis here.
func (r *basicRun) liftLinks(text string) (string, error) {
	var inner error
	out, err := linkRe.ReplaceFunc(text, func(m regexp2.Match) string {
		label, err := emphasis(m.GroupByNumber(1).String())
		if err != nil {
			inner = err
			return m.String()
		}
		return r.lift('I', fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`,
			m.GroupByNumber(2).String(), label))
	}, -1, -1)
	if err != nil {
		return "", err
	}
	return out, inner
}

func headings(text string) (string, error) {
	return headingRe.ReplaceFunc(text, func(m regexp2.Match) string {
		level := len(m.GroupByNumber(1).String())
		return fmt.Sprintf("<h%d>%s</h%d>", level, m.GroupByNumber(2).String(), level)
	}, -1, -1)
}

func list(re *regexp2.Regexp, tag string) func(string) (string, error) {
	return func(text string) (string, error) {
		var inner error
		out, err := re.ReplaceFunc(text, func(m regexp2.Match) string {
			var b strings.Builder
			b.WriteString("<" + tag + ">")
			for _, line := range strings.Split(strings.TrimRight(m.String(), "\n"), "\n") {
				item, err := listMarkRe.Replace(line, "", -1, 1)
				if err != nil {
					inner = err
					return m.String()
				}
				b.WriteString("<li>" + strings.TrimSpace(item) + "</li>")
			}
			b.WriteString("</" + tag + ">")
			return b.String()
		}, -1, -1)
		if err != nil {
			return "", err
		}
		return out, inner
	}
}
