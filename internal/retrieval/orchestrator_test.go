package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	texts  []string
	k      int
	filter models.Filter
}

type fakeQuerier struct {
	calls   []call
	respond func(c call) ([][]models.Match, error)
}

func (f *fakeQuerier) Query(ctx context.Context, texts []string, k int, filter models.Filter) ([][]models.Match, error) {
	c := call{texts: texts, k: k, filter: filter}
	f.calls = append(f.calls, c)
	if f.respond == nil {
		return make([][]models.Match, len(texts)), nil
	}
	return f.respond(c)
}

func retrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{TotalBudget: 60, OverfillReserve: 10, ProgramPerParty: 2}
}

func record(id, typ, date string) *models.Record {
	return &models.Record{ID: id, Text: "text " + id, Metadata: models.Metadata{Type: typ, Date: date, Party: "V"}}
}

func matches(recs ...*models.Record) []models.Match {
	out := make([]models.Match, len(recs))
	for i, r := range recs {
		out[i] = models.Match{Record: r, Score: 1}
	}
	return out
}

func TestPerYearQuota(t *testing.T) {
	tests := []struct {
		budget, reserve, years, want int
	}{
		{60, 10, 1, 50},
		{60, 10, 5, 10},
		{60, 10, 15, 3},
		{60, 10, 100, 1},
		{60, 10, 0, 1},
		{5, 10, 2, 1},
	}
	for _, tt := range tests {
		if got := PerYearQuota(tt.budget, tt.reserve, tt.years); got != tt.want {
			t.Errorf("PerYearQuota(%d, %d, %d) = %d, want %d", tt.budget, tt.reserve, tt.years, got, tt.want)
		}
	}
}

func TestRetrieve_passes(t *testing.T) {
	q := &fakeQuerier{}
	o := NewOrchestrator(q, retrievalConfig())
	intent := models.Intent{
		NeedProgram: true, Parties: []string{"V", "S"},
		StartYear: 2021, EndYear: 2022,
		SearchWords: []string{"klimat", "miljö"}, TopicProgram: "klimatpolitik",
	}
	got := o.Retrieve(context.Background(), intent)
	assert.Empty(t, got)

	years := []string{"2021", "2022"}
	want := []call{
		{[]string{"klimatpolitik"}, 2, models.And{
			models.Eq{Key: models.KeyParty, Value: "V"},
			models.Eq{Key: models.KeyType, Value: models.TypeProgram},
			models.In{Key: models.KeyYear, Values: years},
		}},
		{[]string{"klimatpolitik"}, 2, models.And{
			models.Eq{Key: models.KeyParty, Value: "S"},
			models.Eq{Key: models.KeyType, Value: models.TypeProgram},
			models.In{Key: models.KeyYear, Values: years},
		}},
		{[]string{"klimat", "miljö"}, 25, models.And{
			models.Eq{Key: models.KeyYear, Value: "2021"},
			models.Eq{Key: models.KeyType, Value: models.TypeDebate},
			models.In{Key: models.KeyParty, Values: []string{"V", "S"}},
		}},
		{[]string{"klimat", "miljö"}, 25, models.And{
			models.Eq{Key: models.KeyYear, Value: "2022"},
			models.Eq{Key: models.KeyType, Value: models.TypeDebate},
			models.In{Key: models.KeyParty, Values: []string{"V", "S"}},
		}},
		{[]string{"klimat", "miljö"}, 60, models.In{Key: models.KeyYear, Values: years}},
	}
	assert.Equal(t, want, q.calls)
}

func TestRetrieve_skipsProgramPass(t *testing.T) {
	tests := []struct {
		name   string
		intent models.Intent
	}{
		{"no parties", models.Intent{NeedProgram: true, StartYear: 2020, EndYear: 2020, SearchWords: []string{"x"}}},
		{"not needed", models.Intent{Parties: []string{"V"}, StartYear: 2020, EndYear: 2020, SearchWords: []string{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{}
			NewOrchestrator(q, retrievalConfig()).Retrieve(context.Background(), tt.intent)
			require.Len(t, q.calls, 2)
			assert.Equal(t, 50, q.calls[0].k)
		})
	}
}

func TestRetrieve_noPartyFilterWithoutParties(t *testing.T) {
	q := &fakeQuerier{}
	NewOrchestrator(q, retrievalConfig()).Retrieve(context.Background(),
		models.Intent{StartYear: 2020, EndYear: 2020, SearchWords: []string{"x"}})
	assert.Equal(t, models.And{
		models.Eq{Key: models.KeyYear, Value: "2020"},
		models.Eq{Key: models.KeyType, Value: models.TypeDebate},
	}, q.calls[0].filter)
}

func TestRetrieve_topicFallback(t *testing.T) {
	q := &fakeQuerier{}
	NewOrchestrator(q, retrievalConfig()).Retrieve(context.Background(),
		models.Intent{StartYear: 2020, EndYear: 2020, TopicProgram: "skola"})
	assert.Equal(t, []string{"skola"}, q.calls[0].texts)
}

func TestRetrieve_dedupPerLabel(t *testing.T) {
	a := record("a", models.TypeDebate, "2021-01-01")
	b := record("b", models.TypeDebate, "2021-02-01")
	q := &fakeQuerier{respond: func(c call) ([][]models.Match, error) {
		// Both search words hit a; the overfill pass returns a and b again.
		return [][]models.Match{matches(a, b), matches(a)}, nil
	}}
	got := NewOrchestrator(q, retrievalConfig()).Retrieve(context.Background(),
		models.Intent{StartYear: 2021, EndYear: 2021, SearchWords: []string{"x", "y"}})

	var keys []string
	for _, p := range got {
		keys = append(keys, p.DocumentID+"|"+p.Label)
	}
	assert.Equal(t, []string{
		"a|DEBATT 2021", "b|DEBATT 2021",
		"a|RELEVANT EXTRA", "b|RELEVANT EXTRA",
	}, keys)
	assert.Equal(t, 58, q.calls[1].k)
	assert.Equal(t, models.KindExtra, got[2].Kind)
}

func TestRetrieve_dedupBySourceDocument(t *testing.T) {
	speech := func(id string) *models.Record {
		r := record(id, models.TypeDebate, "2021-03-01")
		r.Metadata.DocID = "H901123"
		return r
	}
	a, b, c := speech("H901123-1"), speech("H901123-2"), speech("H901123-3")
	other := record("H902-1", models.TypeDebate, "2021-03-02")
	q := &fakeQuerier{respond: func(call) ([][]models.Match, error) {
		return [][]models.Match{matches(a, b, c, other)}, nil
	}}
	got := NewOrchestrator(q, retrievalConfig()).Retrieve(context.Background(),
		models.Intent{StartYear: 2021, EndYear: 2021, SearchWords: []string{"x"}})

	var keys []string
	for _, p := range got {
		keys = append(keys, p.SourceID()+"|"+p.Label)
	}
	assert.Equal(t, []string{
		"H901123|DEBATT 2021", "H902-1|DEBATT 2021",
		"H901123|RELEVANT EXTRA", "H902-1|RELEVANT EXTRA",
	}, keys)
	assert.Equal(t, "H901123-1", got[0].DocumentID, "first speech of the document wins")
}

func TestRetrieve_failedQueryIsEmpty(t *testing.T) {
	a := record("a", models.TypeDebate, "2021-01-01")
	q := &fakeQuerier{respond: func(c call) ([][]models.Match, error) {
		if and, ok := c.filter.(models.And); ok && and[0] == (models.Eq{Key: models.KeyYear, Value: "2021"}) {
			return nil, errors.New("index down")
		}
		return [][]models.Match{matches(a)}, nil
	}}
	got := NewOrchestrator(q, retrievalConfig()).Retrieve(context.Background(),
		models.Intent{StartYear: 2021, EndYear: 2022, SearchWords: []string{"x"}})
	require.Len(t, q.calls, 3)
	require.Len(t, got, 2)
	assert.Equal(t, "DEBATT 2022", got[0].Label)
	assert.Equal(t, models.LabelExtra, got[1].Label)
}

func TestRetrieve_noOverfillWhenBudgetMet(t *testing.T) {
	q := &fakeQuerier{respond: func(c call) ([][]models.Match, error) {
		recs := make([]*models.Record, c.k)
		for i := range recs {
			recs[i] = record(fmt.Sprintf("r%d-%v", i, c.filter), models.TypeDebate, "2020-01-01")
		}
		return [][]models.Match{matches(recs...)}, nil
	}}
	got := NewOrchestrator(q, retrievalConfig()).Retrieve(context.Background(),
		models.Intent{StartYear: 2020, EndYear: 2021, SearchWords: []string{"x"}})
	// Two years of 25 plus a 10-passage overfill.
	assert.Len(t, got, 60)
	assert.Equal(t, 10, q.calls[2].k)

	q.calls = nil
	got = NewOrchestrator(q, config.RetrievalConfig{TotalBudget: 60, OverfillReserve: 0}).Retrieve(context.Background(),
		models.Intent{StartYear: 2020, EndYear: 2021, SearchWords: []string{"x"}})
	assert.Len(t, got, 60)
	assert.Len(t, q.calls, 2, "overfill pass should not run once the budget is met")
}
