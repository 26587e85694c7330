package search

import (
	"strings"
	"unicode/utf8"
)

// Snippet returns up to maxRunes runes of content centred on the first
// case-insensitive occurrence of term, with "..." marking cut ends. Without a
// hit it returns the leading maxRunes runes.
func Snippet(content, term string, maxRunes int) string {
	runes := []rune(content)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return content
	}
	start := 0
	if term != "" {
		if idx := strings.Index(strings.ToLower(content), strings.ToLower(term)); idx >= 0 {
			// ToLower can change byte lengths, so map the byte offset through the lowered string.
			hit := utf8.RuneCountInString(strings.ToLower(content)[:idx])
			start = hit - (maxRunes-utf8.RuneCountInString(term))/2
		}
	}
	if start < 0 {
		start = 0
	}
	if start+maxRunes > len(runes) {
		start = len(runes) - maxRunes
	}
	out := string(runes[start : start+maxRunes])
	if start > 0 {
		out = "..." + out
	}
	if start+maxRunes < len(runes) {
		out += "..."
	}
	return out
}
