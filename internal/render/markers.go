package render

import "strings"

// Markers lists the citation brackets and math spans of text, outside
// fenced code, exactly as written.
func Markers(text string) []string {
	text = fencePattern.ReplaceAllString(strings.ReplaceAll(text, "\x00", ""), "")
	out := blockMathRegex.FindAllString(text, -1)
	text = blockMathRegex.ReplaceAllString(text, "")
	out = append(out, inlineMathRegex.FindAllString(text, -1)...)
	out = append(out, citationPattern.FindAllString(text, -1)...)
	return out
}

// PreservesMarkers reports whether every marker of original appears in
// rewritten at least as many times.
func PreservesMarkers(original, rewritten string) bool {
	want := make(map[string]int)
	for _, m := range Markers(original) {
		want[m]++
	}
	if len(want) == 0 {
		return true
	}
	got := make(map[string]int)
	for _, m := range Markers(rewritten) {
		got[m]++
	}
	for m, n := range want {
		if got[m] < n {
			return false
		}
	}
	return true
}
