package models

import "fmt"

// PassageKind identifies which retrieval pass produced a passage.
type PassageKind string

const (
	KindProgram PassageKind = "program"
	KindDebate  PassageKind = "debate"
	KindExtra   PassageKind = "extra"
)

// Labels attached to passages by the retrieval passes.
const (
	LabelProgram = "OFFICIELLT PARTIPROGRAM"
	LabelExtra   = "RELEVANT EXTRA"
)

// DebateLabel returns the label for passages from the per-year debate pass.
func DebateLabel(year string) string {
	return "DEBATT " + year
}

// Passage is one labelled retrieval hit ready to be placed in a context payload.
type Passage struct {
	DocumentID string      `json:"document_id"`
	DocID      string      `json:"dok_id,omitempty"`
	Kind       PassageKind `json:"kind"`
	Label      string      `json:"label"`
	RecordType string      `json:"record_type"`
	Date       string      `json:"date,omitempty"`
	Speaker    string      `json:"speaker,omitempty"`
	Party      string      `json:"party,omitempty"`
	Text       string      `json:"text"`
}

// NewPassage builds a passage from a record returned by the given pass.
func NewPassage(rec *Record, kind PassageKind, label string) Passage {
	return Passage{
		DocumentID: rec.ID,
		DocID:      rec.Metadata.DocID,
		Kind:       kind,
		Label:      label,
		RecordType: rec.Metadata.Type,
		Date:       rec.Metadata.Date,
		Speaker:    rec.Metadata.Speaker,
		Party:      rec.Metadata.Party,
		Text:       rec.Text,
	}
}

// SourceID identifies the document the passage was cut from: the Riksdag
// dok_id when known, otherwise the record ID.
func (p Passage) SourceID() string {
	if p.DocID != "" {
		return p.DocID
	}
	return p.DocumentID
}

// IsProgram reports whether the passage is manifesto material, either because
// the program pass produced it or because the underlying record is a program record.
func (p Passage) IsProgram() bool {
	return p.Kind == KindProgram || p.RecordType == TypeProgram
}

// String renders the passage as "[date] label speaker (party): text".
func (p Passage) String() string {
	date := p.Date
	if date == "" {
		date = "Okänt"
	}
	speaker := p.Speaker
	if speaker == "" {
		speaker = "Okänd"
	}
	party := p.Party
	if party == "" {
		party = "?"
	}
	return fmt.Sprintf("[%s] %s %s (%s): %s", date, p.Label, speaker, party, p.Text)
}
