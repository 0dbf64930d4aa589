// Package render turns raw model text into display markup.
//
// The output is a fragment meant to be placed inside a right-to-left
// container. Math is emitted as escaped TeX inside left-to-right isolated
// spans for a client-side typesetter.
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	codeMark = "C"
	mathMark = "M"
)

var (
	fencePattern    = regexp.MustCompile("```([A-Za-z0-9_+#.-]*)\n([\\s\\S]*?)```")
	blockMathRegex  = regexp.MustCompile(`\$\$([\s\S]+?)\$\$`)
	inlineMathRegex = regexp.MustCompile(`\$([^$\n]+?)\$`)
	boldPattern     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	citationPattern = regexp.MustCompile("(?i)\\[([^\\]\x00]+?\\.(pdf|txt|jpg|jpeg|png|md))(?:(,\\s*)([^\\]\x00]+))?\\]")
	slotPattern     = regexp.MustCompile("\x00([" + codeMark + mathMark + "])([0-9]+)\x00")
)

// escaper leaves apostrophes alone so citation details such as "עמ' 4"
// come out as written.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escape(s string) string {
	return escaper.Replace(s)
}

type Renderer struct {
	highlight bool
	style     string
}

type Option func(*Renderer)

// WithHighlighting renders code blocks through chroma using the named
// style. Highlighted code is split into token spans.
func WithHighlighting(style string) Option {
	return func(r *Renderer) {
		r.highlight = true
		r.style = style
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// markupVersion changes whenever the produced markup changes shape.
const markupVersion = "2"

// Fingerprint identifies the markup this renderer produces for a given
// text. Cached output is only valid under the same fingerprint.
func (r *Renderer) Fingerprint() string {
	if !r.highlight {
		return "v" + markupVersion
	}
	return "v" + markupVersion + "+hl:" + r.style
}

var plain = New()

// Render renders text with the plain renderer.
func Render(text string) string {
	return plain.Render(text)
}

type codeBlock struct {
	lang string
	code string
}

type pass struct {
	r     *Renderer
	codes []codeBlock
	maths []string
}

// Render is pure and safe on any prefix of a message, so it can run on
// every streaming snapshot.
func (r *Renderer) Render(text string) string {
	p := &pass{r: r}

	// NUL is reserved for slot markers.
	out := strings.ReplaceAll(text, "\x00", "")
	out = p.extractCode(out)
	out = escape(out)
	out = p.substituteMath(out)
	out = boldPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = strings.ReplaceAll(out, "\n", "<br/>")
	out = citationPattern.ReplaceAllStringFunc(out, citationBadge)
	return p.reinject(out)
}

func (p *pass) extractCode(text string) string {
	return fencePattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := fencePattern.FindStringSubmatch(m)
		p.codes = append(p.codes, codeBlock{lang: sub[1], code: sub[2]})
		return slot(codeMark, len(p.codes)-1)
	})
}

func (p *pass) substituteMath(text string) string {
	text = blockMathRegex.ReplaceAllStringFunc(text, func(m string) string {
		tex := blockMathRegex.FindStringSubmatch(m)[1]
		if !validTeX(tex) {
			return m
		}
		p.maths = append(p.maths, fmt.Sprintf(
			`<span class="math-block" dir="ltr" style="direction: ltr; unicode-bidi: isolate; display: block; text-align: center;">%s</span>`,
			texContent(tex)))
		return slot(mathMark, len(p.maths)-1)
	})
	return inlineMathRegex.ReplaceAllStringFunc(text, func(m string) string {
		tex := inlineMathRegex.FindStringSubmatch(m)[1]
		if !validTeX(tex) {
			return m
		}
		p.maths = append(p.maths, fmt.Sprintf(
			`<span class="math-inline" dir="ltr" style="direction: ltr; unicode-bidi: isolate; display: inline-block;">%s</span>`,
			texContent(tex)))
		return slot(mathMark, len(p.maths)-1)
	})
}

func (p *pass) reinject(text string) string {
	return slotPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := slotPattern.FindStringSubmatch(m)
		idx, err := strconv.Atoi(sub[2])
		if err != nil {
			return ""
		}
		switch sub[1] {
		case codeMark:
			if idx < len(p.codes) {
				return p.r.codeHTML(p.codes[idx])
			}
		case mathMark:
			if idx < len(p.maths) {
				return p.maths[idx]
			}
		}
		return ""
	})
}

func (r *Renderer) codeHTML(block codeBlock) string {
	lang := block.lang
	label := lang
	if label == "" {
		label = "code"
	}
	body := escape(block.code)
	if r.highlight {
		if highlighted, ok := highlight(block.code, lang, r.style); ok {
			body = highlighted
		}
	}
	var sb strings.Builder
	sb.WriteString(`<div class="code-block" dir="ltr" style="direction: ltr; unicode-bidi: isolate;">`)
	sb.WriteString(fmt.Sprintf(`<div class="code-lang">%s</div>`, escape(label)))
	if lang != "" {
		sb.WriteString(fmt.Sprintf(`<pre><code class="language-%s">`, escape(lang)))
	} else {
		sb.WriteString(`<pre><code>`)
	}
	sb.WriteString(body)
	sb.WriteString(`</code></pre></div>`)
	return sb.String()
}

func citationBadge(m string) string {
	sub := citationPattern.FindStringSubmatch(m)
	label := sub[1]
	if sub[4] != "" {
		label += sub[3] + sub[4]
	}
	return fmt.Sprintf(`<span class="citation-badge">%s</span>`, label)
}

func slot(kind string, idx int) string {
	return "\x00" + kind + strconv.Itoa(idx) + "\x00"
}

// texContent trims the formula and hides dollar signs from later passes.
// The text is already HTML-escaped at this point.
func texContent(tex string) string {
	return strings.ReplaceAll(strings.TrimSpace(tex), "$", "&#36;")
}

// validTeX rejects formulas a typesetter would fail on: empty input,
// unbalanced braces and a dangling backslash.
func validTeX(tex string) bool {
	if strings.TrimSpace(tex) == "" {
		return false
	}
	depth := 0
	for i := 0; i < len(tex); i++ {
		switch tex[i] {
		case '\\':
			if i == len(tex)-1 {
				return false
			}
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
