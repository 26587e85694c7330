package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"
)

// ProgramExtensions are the program formats generated here. PDF is left out:
// there is no minimal PDF with extractable text that is small enough to inline.
var ProgramExtensions = []string{".txt", ".md", ".docx", ".odt"}

// ProgramParagraphs returns paragraphs long enough to survive fragment filtering.
func ProgramParagraphs(party, topic string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s vill driva en politik för %s, punkt %d i partiprogrammet som antogs av kongressen.", party, topic, i+1)
	}
	return out
}

// ProgramFile renders paragraphs as a minimal file of the given extension.
func ProgramFile(ext string, paragraphs []string) ([]byte, error) {
	switch ext {
	case ".txt", ".md":
		return []byte(strings.Join(paragraphs, "\n\n")), nil
	case ".docx":
		return zipFile("word/document.xml", docxXML(paragraphs))
	case ".odt":
		return zipFile("content.xml", odtXML(paragraphs))
	default:
		return nil, fmt.Errorf("no fixture for %s", ext)
	}
}

func docxXML(paragraphs []string) string {
	var b strings.Builder
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		// Two runs per paragraph, as Word tends to split them.
		half := len(p) / 2
		for half < len(p) && p[half] != ' ' {
			half++
		}
		fmt.Fprintf(&b, `<w:p><w:r><w:t>%s</w:t></w:r><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
			html.EscapeString(p[:half]), html.EscapeString(p[half:]))
	}
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func odtXML(paragraphs []string) string {
	var b strings.Builder
	b.WriteString(`<office:document-content><office:body><office:text>`)
	for i, p := range paragraphs {
		tag := "p"
		if i == 0 {
			tag = "h"
		}
		fmt.Fprintf(&b, `<text:%s text:style-name="P1">%s</text:%s>`, tag, html.EscapeString(p), tag)
	}
	b.WriteString(`</office:text></office:body></office:document-content>`)
	return b.String()
}

func zipFile(name, content string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
