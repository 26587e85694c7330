package indexer

import (
	"strings"
	"unicode"
)

// invisible strips the marks PDF exports of party programs leave inside words.
var invisible = strings.NewReplacer(
	"\u00ad", "", // soft hyphen
	"\u200b", "", // zero-width space
	"\ufeff", "",
)

// Preprocess drops invisible hyphenation marks and collapses every run of
// whitespace, including line breaks inside a paragraph, to one space.
func Preprocess(text string) string {
	text = strings.TrimSpace(invisible.Replace(text))
	var b strings.Builder
	b.Grow(len(text))
	pending := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			pending = true
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
