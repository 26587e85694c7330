package models

// PartyCount is the number of matching records for one party.
type PartyCount struct {
	Party string `json:"party"`
	Count int    `json:"count"`
}

// Statistics is the exact lexical occurrence count per party over a year range.
// Counts holds every known party, sorted by count descending.
type Statistics struct {
	Terms     []string     `json:"terms"`
	StartYear int          `json:"start_year"`
	EndYear   int          `json:"end_year"`
	Counts    []PartyCount `json:"counts"`
	Scanned   int          `json:"scanned"`
	Matched   int          `json:"matched"`
}

// CountFor returns the count for party, or 0 if the party is not present.
func (s *Statistics) CountFor(party string) int {
	for _, c := range s.Counts {
		if c.Party == party {
			return c.Count
		}
	}
	return 0
}

// AnswerStatus describes how a question was resolved.
type AnswerStatus string

const (
	StatusAnswered   AnswerStatus = "answered"
	StatusIrrelevant AnswerStatus = "irrelevant"
	StatusNoData     AnswerStatus = "no_data"
)

// Answer is the result of running one question through the pipeline.
type Answer struct {
	ID         string       `json:"id"`
	Question   string       `json:"question"`
	Intent     Intent       `json:"intent"`
	Fallback   bool         `json:"fallback_intent"`
	Status     AnswerStatus `json:"status"`
	Statistics *Statistics  `json:"statistics,omitempty"`
	Sources    []Passage    `json:"sources,omitempty"`
	Years      string       `json:"years,omitempty"`
	Text       string       `json:"text,omitempty"`
}
