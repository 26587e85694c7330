package e2e

import (
	"strings"
	"testing"

	"github.com/hyperjump/kabbel/internal/extract"
)

func TestProgramFile_extractable(t *testing.T) {
	e := extract.NewExtractor()
	paragraphs := ProgramParagraphs("MP", "klimat & miljö", 3)
	for _, ext := range ProgramExtensions {
		t.Run(ext, func(t *testing.T) {
			content, err := ProgramFile(ext, paragraphs)
			if err != nil {
				t.Fatalf("ProgramFile: %v", err)
			}
			got, err := e.ExtractBytes(content, ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			blocks := strings.Split(got, "\n\n")
			if len(blocks) != len(paragraphs) {
				t.Fatalf("blocks = %d, want %d: %q", len(blocks), len(paragraphs), got)
			}
			for i, p := range paragraphs {
				if blocks[i] != p {
					t.Errorf("block %d = %q, want %q", i, blocks[i], p)
				}
			}
		})
	}
}

func TestProgramFile_unknownExtension(t *testing.T) {
	if _, err := ProgramFile(".xlsx", []string{"x"}); err == nil {
		t.Error("expected error for unsupported fixture type")
	}
}
