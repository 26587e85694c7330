// Package models defines core data structures for records, intents, passages, and answers.
package models

import "strconv"

// Record types stored in Metadata.Type.
const (
	TypeProgram = "program"
	TypeDebate  = "debatt"
)

// UnknownParty is used when a party code cannot be derived from the source.
const UnknownParty = "OKÄNT"

// Metadata keys as they appear in filters and in serialized records.
const (
	KeyType     = "typ"
	KeyParty    = "parti"
	KeyYear     = "år"
	KeyDate     = "datum"
	KeySource   = "källa"
	KeyDocID    = "dok_id"
	KeySpeaker  = "talare"
	KeyNumber   = "nummer"
	KeyHeading  = "rubrik"
	KeyRebuttal = "replik"
)

// MetadataKeys lists every metadata key in a stable order.
var MetadataKeys = []string{
	KeyType, KeyParty, KeyYear, KeyDate, KeySource,
	KeyDocID, KeySpeaker, KeyNumber, KeyHeading, KeyRebuttal,
}

// Record is the atomic indexed unit: one passage of a manifesto or one debate speech.
type Record struct {
	ID       string   `json:"id" db:"id"`
	Text     string   `json:"text" db:"text"`
	Metadata Metadata `json:"metadata"`
}

// Metadata holds the fixed set of fields attached to a record.
// Type decides which optional fields are populated: program records carry
// Source, debate records carry Date, Speaker, Heading and Rebuttal.
type Metadata struct {
	Type     string `json:"typ" db:"typ"`
	Party    string `json:"parti" db:"parti"`
	Year     string `json:"år" db:"ar"`
	Date     string `json:"datum,omitempty" db:"datum"`
	Source   string `json:"källa,omitempty" db:"kalla"`
	DocID    string `json:"dok_id" db:"dok_id"`
	Speaker  string `json:"talare,omitempty" db:"talare"`
	Number   int    `json:"nummer" db:"nummer"`
	Heading  string `json:"rubrik,omitempty" db:"rubrik"`
	Rebuttal string `json:"replik,omitempty" db:"replik"`
}

// Value returns the string form of the field stored under key.
// The second result is false when key is not a metadata key.
func (m Metadata) Value(key string) (string, bool) {
	switch key {
	case KeyType:
		return m.Type, true
	case KeyParty:
		return m.Party, true
	case KeyYear:
		return m.Year, true
	case KeyDate:
		return m.Date, true
	case KeySource:
		return m.Source, true
	case KeyDocID:
		return m.DocID, true
	case KeySpeaker:
		return m.Speaker, true
	case KeyNumber:
		return strconv.Itoa(m.Number), true
	case KeyHeading:
		return m.Heading, true
	case KeyRebuttal:
		return m.Rebuttal, true
	}
	return "", false
}

// Map returns the metadata as a key/value map using the serialized key names.
func (m Metadata) Map() map[string]string {
	out := make(map[string]string, len(MetadataKeys))
	for _, k := range MetadataKeys {
		v, _ := m.Value(k)
		out[k] = v
	}
	return out
}

// IsMetadataKey reports whether key names a metadata field.
func IsMetadataKey(key string) bool {
	_, ok := Metadata{}.Value(key)
	return ok
}

// Match is a record returned from a ranked query together with its fused score.
type Match struct {
	Record *Record `json:"record"`
	Score  float64 `json:"score"`
}
