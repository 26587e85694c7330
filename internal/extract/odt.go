package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
)

const odtContentPath = "content.xml"

// odtBlock matches paragraphs and headings in document order; spans inside them are kept.
var odtBlock = regexp.MustCompile(`(?s)<text:(?:p|h)(?:\s[^>]*[^/>])?>(.*?)</text:(?:p|h)>`)

// extractODT extracts paragraphs and headings from an OpenDocument text file.
func extractODT(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract ODT: not a zip: %w", err)
	}
	contentXML, err := readZipEntry(zr, odtContentPath)
	if err != nil {
		return "", fmt.Errorf("extract ODT: %w", err)
	}
	if contentXML == nil {
		return "", fmt.Errorf("extract ODT: %s not found", odtContentPath)
	}
	blocks := odtBlock.FindAllStringSubmatch(string(contentXML), -1)
	paragraphs := make([]string, len(blocks))
	for i, b := range blocks {
		paragraphs[i] = innerText(b[1])
	}
	return joinParagraphs(paragraphs), nil
}
