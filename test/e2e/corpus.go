// Package e2e provides end-to-end tests over a synthetic Riksdag corpus.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Speech is one line of the synthetic debate export, in the JSONL layout the ingestor reads.
type Speech struct {
	DocID   string `json:"dok_id"`
	Number  int    `json:"nummer"`
	Speaker string `json:"talare"`
	Party   string `json:"parti"`
	Date    string `json:"datum"`
	Heading string `json:"rubrik"`
	Text    string `json:"text"`
}

// Corpus holds generated speeches and the exact per-party counts of speeches
// that mention the tracked term, per year.
type Corpus struct {
	Speeches []Speech
	Term     string
	Mentions map[string]map[int]int
	Parties  []string
	Years    []int
}

// topicSentences are neutral fillers; none contains the tracked term.
var topicSentences = []string{
	"Skolan behöver fler behöriga lärare i hela landet.",
	"Vi vill sänka skatten för vanliga löntagare.",
	"Försvaret måste stärkas efter det säkerhetspolitiska läget.",
	"Vården ska finnas nära patienterna även på landsbygden.",
	"Bostadsbyggandet har stannat av i storstäderna.",
}

// BuildCorpus generates speechesPerYear speeches for every party and year.
// For party i and year y, exactly (i+y)%4 of them mention "klimat".
func BuildCorpus(parties []string, years []int, speechesPerYear int) *Corpus {
	c := &Corpus{
		Term:     "klimat",
		Mentions: make(map[string]map[int]int, len(parties)),
		Parties:  parties,
		Years:    years,
	}
	doc := 0
	for i, party := range parties {
		c.Mentions[party] = make(map[int]int, len(years))
		for _, year := range years {
			mentions := min((i+year)%4, speechesPerYear)
			c.Mentions[party][year] = mentions
			doc++
			docID := fmt.Sprintf("H%02d%04d", doc%100, year)
			for n := 0; n < speechesPerYear; n++ {
				text := topicSentences[(i+n)%len(topicSentences)]
				heading := "Allmänpolitisk debatt"
				if n < mentions {
					text = fmt.Sprintf("Klimatomställningen är avgörande, sa %s om klimat och jobb.", party)
					heading = "Klimatpolitik"
				}
				c.Speeches = append(c.Speeches, Speech{
					DocID:   docID,
					Number:  n + 1,
					Speaker: fmt.Sprintf("Ledamot %s%d", party, n+1),
					Party:   party,
					Date:    fmt.Sprintf("%d-%02d-%02d", year, 1+n%12, 1+n%28),
					Heading: heading,
					Text:    text,
				})
			}
		}
	}
	return c
}

// JSONL renders the corpus as a JSON Lines export.
func (c *Corpus) JSONL() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, s := range c.Speeches {
		if err := enc.Encode(s); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ExpectedCount is the number of a party's speeches in [start, end] that mention the term.
func (c *Corpus) ExpectedCount(party string, start, end int) int {
	total := 0
	for year, n := range c.Mentions[party] {
		if year >= start && year <= end {
			total += n
		}
	}
	return total
}

// YearStrings returns the corpus years as strings.
func (c *Corpus) YearStrings() []string {
	out := make([]string, len(c.Years))
	for i, y := range c.Years {
		out[i] = strconv.Itoa(y)
	}
	return out
}
