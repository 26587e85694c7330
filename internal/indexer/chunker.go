// Package indexer turns debate transcripts and party manifestos into records
// and upserts them into the index.
package indexer

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits extracted text into passages on blank-line boundaries.
// Lengths are counted in characters.
type Chunker struct {
	minFragment int
	maxChunk    int
}

// NewChunker creates a chunker that drops fragments shorter than minFragment
// and closes a passage once adding a fragment would reach maxChunk.
func NewChunker(minFragment, maxChunk int) *Chunker {
	return &Chunker{
		minFragment: minFragment,
		maxChunk:    maxChunk,
	}
}

// Fragments returns the blank-line separated fragments of text that survive
// the noise filter, whitespace-normalised and in source order.
func (c *Chunker) Fragments(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	raw := strings.Split(text, "\n\n")
	frags := make([]string, 0, len(raw))
	for _, r := range raw {
		f := Preprocess(r)
		if utf8.RuneCountInString(f) < c.minFragment {
			continue
		}
		frags = append(frags, f)
	}
	return frags
}

// Chunk greedily packs fragments into passages. A fragment that alone
// exceeds the limit becomes its own passage and is never split.
func (c *Chunker) Chunk(text string) []string {
	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)
	for _, f := range c.Fragments(text) {
		n := utf8.RuneCountInString(f)
		if bufLen == 0 {
			buf.WriteString(f)
			bufLen = n
			continue
		}
		if bufLen+n < c.maxChunk {
			buf.WriteByte(' ')
			buf.WriteString(f)
			bufLen += n + 1
			continue
		}
		chunks = append(chunks, buf.String())
		buf.Reset()
		buf.WriteString(f)
		bufLen = n
	}
	if bufLen > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}
