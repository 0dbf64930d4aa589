package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHebrewMathAndCitation(t *testing.T) {
	out := Render("ל-$a^2+b^2=c^2$ יש פתרון [geo.pdf, עמ' 4]")

	assert.Equal(t,
		`ל-<span class="math-inline" dir="ltr" style="direction: ltr; unicode-bidi: isolate; display: inline-block;">a^2+b^2=c^2</span>`+
			` יש פתרון <span class="citation-badge">geo.pdf, עמ' 4</span>`,
		out)
}

func TestRenderKeepsCodeVerbatim(t *testing.T) {
	code := "if a < b && m[\"k\"] > 0 { x := \"$y$ [notes.pdf] **z**\" }\n"
	out := Render("נסה את זה:\n```go\n" + code + "```\nסוף")

	assert.Contains(t, out, `<pre><code class="language-go">`+
		`if a &lt; b &amp;&amp; m[&quot;k&quot;] &gt; 0 { x := &quot;$y$ [notes.pdf] **z**&quot; }`+"\n"+
		`</code></pre>`)
	assert.Contains(t, out, `<div class="code-lang">go</div>`)
	assert.Contains(t, out, `dir="ltr"`)
	assert.NotContains(t, out, "math-inline")
	assert.NotContains(t, out, "citation-badge")
	assert.NotContains(t, out, "<strong>")
	assert.True(t, strings.HasPrefix(out, "נסה את זה:<br/>"))
	assert.True(t, strings.HasSuffix(out, "</div><br/>סוף"))
}

func TestRenderCodeWithoutLanguage(t *testing.T) {
	out := Render("```\nx = 1\n```")
	assert.Equal(t,
		`<div class="code-block" dir="ltr" style="direction: ltr; unicode-bidi: isolate;"><div class="code-lang">code</div><pre><code>x = 1`+"\n"+`</code></pre></div>`,
		out)
}

func TestRenderLeavesMalformedInputLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unterminated dollar", "המחיר הוא $5 בלבד", "המחיר הוא $5 בלבד"},
		{"unterminated fence", "```python\nprint(1)", "```python<br/>print(1)"},
		{"unsupported citation", "ראה [slides.pptx, עמ' 2]", "ראה [slides.pptx, עמ' 2]"},
		{"unbalanced braces", "נוסחה $\\frac{a}{b$ שבורה", "נוסחה $\\frac{a}{b$ שבורה"},
		{"dangling backslash", "$x\\$", "$x\\$"},
		{"html is escaped", "<b>x</b> & y", "&lt;b&gt;x&lt;/b&gt; &amp; y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestRenderBlockMathAndBold(t *testing.T) {
	out := Render("**משפט:**\n$$\\int_0^1 x\\,dx = \\frac{1}{2}$$")
	assert.Equal(t,
		`<strong>משפט:</strong><br/>`+
			`<span class="math-block" dir="ltr" style="direction: ltr; unicode-bidi: isolate; display: block; text-align: center;">\int_0^1 x\,dx = \frac{1}{2}</span>`,
		out)
}

func TestRenderCitationCaseInsensitive(t *testing.T) {
	out := Render("[Scan.PNG]")
	assert.Equal(t, `<span class="citation-badge">Scan.PNG</span>`, out)
}

func TestRenderCitationKeepsSeparator(t *testing.T) {
	assert.Equal(t, `<span class="citation-badge">geo.pdf,עמ' 4</span>`, Render("[geo.pdf,עמ' 4]"))
	assert.Equal(t, `<span class="citation-badge">geo.pdf,  סעיף 2</span>`, Render("[geo.pdf,  סעיף 2]"))
}

func TestRenderCitationNeverSpansCode(t *testing.T) {
	out := Render("[see ```\ncode $x$\n``` notes.pdf]")
	assert.NotContains(t, out, "citation-badge")
	assert.Contains(t, out, `<div class="code-block"`)
	assert.Contains(t, out, "code $x$\n</code></pre>")
	assert.True(t, strings.HasPrefix(out, "[see "))
	assert.True(t, strings.HasSuffix(out, " notes.pdf]"))
}

func TestRenderEveryPrefix(t *testing.T) {
	final := "להלן **סיכום**:\n$$E=mc^2$$ ו-$a_{i}$ [physics.pdf, עמ' 12]\n```js\nconst s = `$x$`;\n```\nסוף [notes.md]"
	runes := []rune(final)
	for i := 0; i <= len(runes); i++ {
		prefix := string(runes[:i])
		require.NotPanics(t, func() {
			out := Render(prefix)
			assert.Equal(t, out, Render(prefix))
		}, "prefix %d", i)
	}
}

func TestRenderStripsSlotMarkersFromInput(t *testing.T) {
	out := Render("a\x00C0\x00b")
	assert.Equal(t, "aC0b", out)
}

func TestRenderWithHighlighting(t *testing.T) {
	r := New(WithHighlighting("monokai"))
	out := r.Render("```go\nfunc main() { if a < b {} }\n```")

	assert.Contains(t, out, `<div class="code-lang">go</div>`)
	assert.Contains(t, out, `<span class="`)
	assert.NotContains(t, out, "a < b")
}

func TestFingerprintTracksHighlighting(t *testing.T) {
	assert.Equal(t, New().Fingerprint(), New().Fingerprint())
	assert.NotEqual(t, New().Fingerprint(), New(WithHighlighting("monokai")).Fingerprint())
	assert.NotEqual(t, New(WithHighlighting("monokai")).Fingerprint(), New(WithHighlighting("github")).Fingerprint())
}

func TestPreservesMarkers(t *testing.T) {
	original := "לפי [geo.pdf, עמ' 4] מתקיים $a^2+b^2=c^2$."
	assert.True(t, PreservesMarkers(original, "כפי שמופיע ב-[geo.pdf, עמ' 4], מתקיים $a^2+b^2=c^2$ תמיד."))
	assert.False(t, PreservesMarkers(original, "לפי [geo.pdf] מתקיים $a^2+b^2=c^2$."))
	assert.False(t, PreservesMarkers(original, "לפי [geo.pdf, עמ' 4] מתקיים a^2+b^2=c^2."))
	assert.True(t, PreservesMarkers("טקסט רגיל", "טקסט אחר"))
}
