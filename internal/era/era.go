// Package era annotates records with coalition and opposition era labels
// derived from a speech date and the speaker's party.
package era

import "strings"

const (
	openStart = "0000-00-00"
	openEnd   = "9999-99-99"
)

// Rule tags records dated within [Start, End] whose party is in Parties.
// Dates are ISO strings compared lexicographically; an empty bound is open.
type Rule struct {
	Description string   `yaml:"description" json:"description"`
	Start       string   `yaml:"start" json:"start"`
	End         string   `yaml:"end" json:"end"`
	Parties     []string `yaml:"parties" json:"parties"`
	Label       string   `yaml:"label" json:"label"`
}

func (r Rule) matches(date, party string) bool {
	start, end := r.Start, r.End
	if start == "" {
		start = openStart
	}
	if end == "" {
		end = openEnd
	}
	if date < start || date > end {
		return false
	}
	for _, p := range r.Parties {
		if p == party {
			return true
		}
	}
	return false
}

// DefaultRules returns the built-in era table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Description: "Tidölaget (Regeringen + SD efter 2022)",
			Start:       "2022-10-18",
			End:         "2030-01-01",
			Parties:     []string{"M", "KD", "L", "SD"},
			Label:       "[Tidölaget, Regeringsunderlaget, Tidöavtalet]",
		},
		{
			Description: "Oppositionen (Efter 2022)",
			Start:       "2022-10-18",
			End:         "2030-01-01",
			Parties:     []string{"S", "V", "MP", "C"},
			Label:       "[Oppositionen, De rödgröna]",
		},
		{
			Description: "Januariavtalet (S+MP+C+L under förra mandaten)",
			Start:       "2019-01-01",
			End:         "2021-06-21",
			Parties:     []string{"S", "MP", "C", "L"},
			Label:       "[Januariavtalet, JÖK]",
		},
		{
			Description: "Alliansen (Historiskt)",
			Start:       "2006-10-06",
			End:         "2014-10-03",
			Parties:     []string{"M", "C", "L", "KD"},
			Label:       "[Alliansen, Borgerliga regeringen]",
		},
	}
}

// Tagger holds an immutable copy of an era table.
type Tagger struct {
	rules []Rule
}

// NewTagger copies rules so later changes to the caller's slice do not affect tagging.
func NewTagger(rules []Rule) *Tagger {
	cp := make([]Rule, len(rules))
	for i, r := range rules {
		r.Parties = append([]string(nil), r.Parties...)
		cp[i] = r
	}
	return &Tagger{rules: cp}
}

// Rules returns a copy of the tagger's table.
func (t *Tagger) Rules() []Rule {
	return NewTagger(t.rules).rules
}

// Suffix returns the labels of every rule matching date and party, in table
// order, each preceded by a space. It returns "" when date or party is empty
// or no rule matches.
func (t *Tagger) Suffix(date, party string) string {
	if t == nil || date == "" || party == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range t.rules {
		if r.matches(date, party) {
			b.WriteByte(' ')
			b.WriteString(r.Label)
		}
	}
	return b.String()
}
