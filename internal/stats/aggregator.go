// Package stats counts, per party, how many records mention any of a set of terms.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/pkg/utils"
	"go.uber.org/zap"
)

// Getter returns every record matching a filter.
type Getter interface {
	Get(ctx context.Context, filter models.Filter) ([]*models.Record, error)
}

// Aggregator computes exact lexical statistics over a closed set of parties.
type Aggregator struct {
	index   Getter
	parties []string
	logger  *zap.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// NewAggregator returns an aggregator counting over parties, in the given order.
func NewAggregator(index Getter, parties []string, opts ...Option) *Aggregator {
	a := &Aggregator{index: index, parties: append([]string(nil), parties...)}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = utils.OrNop(a.logger)
	return a
}

// Aggregate fetches every record in the inclusive year range and counts, for
// each party, the records whose text contains at least one term
// (case-insensitive substring). Parties outside the closed set are ignored.
// Counts are sorted descending; ties keep party-set order. An invalid year
// range returns an error wrapping models.ErrInvalidYearRange.
func (a *Aggregator) Aggregate(ctx context.Context, terms []string, startYear, endYear int) (*models.Statistics, error) {
	if startYear > endYear {
		startYear, endYear = endYear, startYear
	}
	if err := models.ValidateYearRange(startYear, endYear); err != nil {
		return nil, err
	}
	records, err := a.index.Get(ctx, models.In{Key: models.KeyYear, Values: models.YearRange(startYear, endYear)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records for statistics: %w", err)
	}

	needles := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			needles = append(needles, strings.ToLower(t))
		}
	}

	counts := make(map[string]int, len(a.parties))
	for _, p := range a.parties {
		counts[p] = 0
	}
	matched := 0
	for _, rec := range records {
		party := strings.ToUpper(rec.Metadata.Party)
		if _, known := counts[party]; !known {
			continue
		}
		if containsAny(strings.ToLower(rec.Text), needles) {
			counts[party]++
			matched++
		}
	}

	out := make([]models.PartyCount, len(a.parties))
	for i, p := range a.parties {
		out[i] = models.PartyCount{Party: p, Count: counts[p]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	a.logger.Debug("statistics aggregated",
		zap.Strings("terms", needles),
		zap.Int("start_year", startYear),
		zap.Int("end_year", endYear),
		zap.Int("scanned", len(records)),
		zap.Int("matched", matched))

	return &models.Statistics{
		Terms:     terms,
		StartYear: startYear,
		EndYear:   endYear,
		Counts:    out,
		Scanned:   len(records),
		Matched:   matched,
	}, nil
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// Summary renders statistics as the block handed to the model: a heading
// naming the terms followed by one "PARTY: n anföranden" line per party.
func Summary(s *models.Statistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "STATISTIK ÖVER SÖKORD (%s):", strings.Join(s.Terms, ", "))
	for _, c := range s.Counts {
		fmt.Fprintf(&b, "\n%s: %d anföranden", c.Party, c.Count)
	}
	return b.String()
}
