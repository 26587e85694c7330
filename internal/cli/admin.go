package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/search"
)

const (
	compareCandidates = 100
	compareShown      = 3
	compareRadius     = 1
	wordSearchLimit   = 20
	snippetRunes      = 300
)

// Querier runs ranked queries against the index.
type Querier interface {
	Query(ctx context.Context, texts []string, k int, filter models.Filter) ([][]models.Match, error)
}

// Getter returns every record matching a filter.
type Getter interface {
	Get(ctx context.Context, filter models.Filter) ([]*models.Record, error)
}

// Hit is one record found by an admin search with a snippet around the match.
type Hit struct {
	Record  *models.Record `json:"record"`
	Snippet string         `json:"snippet"`
}

// CompareResult holds a party's statements on a topic near two points in time.
type CompareResult struct {
	Party      string `json:"party"`
	Topic      string `json:"topic"`
	StartYear  int    `json:"start_year"`
	EndYear    int    `json:"end_year"`
	EarlyTotal int    `json:"early_total"`
	LateTotal  int    `json:"late_total"`
	Early      []Hit  `json:"early"`
	Late       []Hit  `json:"late"`
}

// recordYear prefers the year of datum and falls back to år.
func recordYear(m models.Metadata) (int, bool) {
	s := m.Year
	if len(m.Date) >= 4 {
		s = m.Date[:4]
	}
	y, err := strconv.Atoi(s)
	return y, err == nil
}

func within(a, b int) bool {
	d := a - b
	return d >= -compareRadius && d <= compareRadius
}

// Compare queries the party's records on topic and buckets the hits whose year
// lies within one year of startYear or endYear. A hit can land in both buckets.
func Compare(ctx context.Context, q Querier, party, topic string, startYear, endYear int) (*CompareResult, error) {
	party = strings.ToUpper(strings.TrimSpace(party))
	res := &CompareResult{Party: party, Topic: topic, StartYear: startYear, EndYear: endYear}
	matches, err := q.Query(ctx, []string{topic}, compareCandidates, models.Eq{Key: models.KeyParty, Value: party})
	if err != nil {
		return nil, fmt.Errorf("compare query: %w", err)
	}
	if len(matches) == 0 {
		return res, nil
	}
	for _, m := range matches[0] {
		year, ok := recordYear(m.Record.Metadata)
		if !ok {
			continue
		}
		hit := Hit{Record: m.Record, Snippet: search.Snippet(m.Record.Text, topic, snippetRunes)}
		if within(year, startYear) {
			res.EarlyTotal++
			if len(res.Early) < compareShown {
				res.Early = append(res.Early, hit)
			}
		}
		if within(year, endYear) {
			res.LateTotal++
			if len(res.Late) < compareShown {
				res.Late = append(res.Late, hit)
			}
		}
	}
	return res, nil
}

// WordSearch scans every record of year for word in the text or in any
// metadata value. It stops after twenty hits.
func WordSearch(ctx context.Context, g Getter, word, year, party string) ([]Hit, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, fmt.Errorf("word is required")
	}
	party = strings.ToUpper(strings.TrimSpace(party))
	records, err := g.Get(ctx, models.Eq{Key: models.KeyYear, Value: year})
	if err != nil {
		return nil, err
	}
	var hits []Hit
	for _, r := range records {
		if party != "" && r.Metadata.Party != party {
			continue
		}
		if !strings.Contains(strings.ToLower(r.Text), word) && !metadataContains(r.Metadata, word) {
			continue
		}
		hits = append(hits, Hit{Record: r, Snippet: search.Snippet(r.Text, word, snippetRunes)})
		if len(hits) >= wordSearchLimit {
			break
		}
	}
	return hits, nil
}

func metadataContains(m models.Metadata, word string) bool {
	for _, v := range m.Map() {
		if strings.Contains(strings.ToLower(v), word) {
			return true
		}
	}
	return false
}

// WriteCompare writes both buckets of a comparison.
func WriteCompare(w io.Writer, r *CompareResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, r)
	}
	fmt.Fprintf(w, "%s om %q\n\n", r.Party, r.Topic)
	fmt.Fprintf(w, "--- Runt %d (%d st) ---\n", r.StartYear, r.EarlyTotal)
	writeCompareBucket(w, r.Early)
	fmt.Fprintf(w, "\n--- Runt %d (%d st) ---\n", r.EndYear, r.LateTotal)
	writeCompareBucket(w, r.Late)
	return nil
}

func writeCompareBucket(w io.Writer, hits []Hit) {
	for _, h := range hits {
		m := h.Record.Metadata
		fmt.Fprintf(w, "ID: %s | Datum: %s | Talare: %s\n   %q\n\n", h.Record.ID, m.Date, m.Speaker, h.Snippet)
	}
}
