package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/retrieval"
	"github.com/hyperjump/kabbel/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memIndex answers Get by filter and Query by case-insensitive substring.
type memIndex struct {
	records []*models.Record
}

func (m *memIndex) Get(ctx context.Context, filter models.Filter) ([]*models.Record, error) {
	var out []*models.Record
	for _, r := range m.records {
		if models.MatchFilter(filter, r.Metadata) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memIndex) Query(ctx context.Context, texts []string, k int, filter models.Filter) ([][]models.Match, error) {
	out := make([][]models.Match, len(texts))
	for i, text := range texts {
		for _, r := range m.records {
			if len(out[i]) == k {
				break
			}
			if models.MatchFilter(filter, r.Metadata) && strings.Contains(strings.ToLower(r.Text), strings.ToLower(text)) {
				out[i] = append(out[i], models.Match{Record: r, Score: 1})
			}
		}
	}
	return out, nil
}

type fakeClassifier struct {
	intent models.Intent
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, question string) (models.Intent, error) {
	return f.intent, f.err
}

type fakeGenerator struct {
	system, user string
	calls        int
	err          error
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.user = system, user
	return "analys", f.err
}

func corpus() *memIndex {
	debate := func(id, party, date, text string) *models.Record {
		return &models.Record{ID: id, Text: text, Metadata: models.Metadata{
			Type: models.TypeDebate, Party: party, Year: date[:4], Date: date, Speaker: "Talare " + id,
		}}
	}
	return &memIndex{records: []*models.Record{
		debate("d1", "V", "2021-02-01", "Klimatet kräver handling."),
		debate("d2", "V", "2022-03-01", "Mer klimat och miljö."),
		debate("d3", "S", "2022-04-01", "Skolan först."),
		{ID: "prog_V_2022_0", Text: "PARTIPROGRAM (V, 2022): En rättvis klimatomställning.", Metadata: models.Metadata{
			Type: models.TypeProgram, Party: "V", Year: "2022", Source: "V_2022.pdf",
		}},
	}}
}

func newTestEngine(c Classifier, g Generator) *Engine {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	idx := corpus()
	return NewEngine(c, g,
		retrieval.NewOrchestrator(idx, cfg.Retrieval),
		retrieval.NewWindow(cfg.Window),
		stats.NewAggregator(idx, cfg.PartyCodes()),
		WithBackground("BAKGRUND: test"),
		WithClock(func() time.Time { return time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC) }),
	)
}

func TestAsk_context(t *testing.T) {
	g := &fakeGenerator{}
	c := &fakeClassifier{intent: models.Intent{
		IsRelevant: true, NeedProgram: true, Parties: []string{"v"},
		StartYear: 2021, EndYear: 2022, SearchWords: []string{"klimat"}, TopicProgram: "klimat",
	}}
	ans, err := newTestEngine(c, g).Ask(context.Background(), "Vad tycker V om klimatet?")
	require.NoError(t, err)

	assert.NotEmpty(t, ans.ID)
	assert.Equal(t, models.StatusAnswered, ans.Status)
	assert.Equal(t, "analys", ans.Text)
	assert.Equal(t, []string{"V"}, ans.Intent.Parties)
	require.NotEmpty(t, ans.Sources)
	assert.Equal(t, models.LabelProgram, ans.Sources[0].Label)
	assert.Equal(t, models.LabelExtra, ans.Sources[1].Label, "program records from the overfill pass stay with the programs")
	assert.Equal(t, "d2", ans.Sources[2].DocumentID, "debates follow programs, newest first")
	assert.Equal(t, "2021, 2022", ans.Years)

	assert.Contains(t, g.system, "BÖRJA med officiell linje")
	assert.Contains(t, g.system, "BAKGRUND: test")
	assert.Contains(t, g.user, "TIDSPERIODER I DATAN: 2021, 2022")
	assert.Contains(t, g.user, `ANVÄNDARENS FRÅGA: "Vad tycker V om klimatet?"`)
	assert.Contains(t, g.user, "[2022-03-01] DEBATT 2022 Talare d2 (V): Mer klimat och miljö.")
}

func TestAsk_statistics(t *testing.T) {
	g := &fakeGenerator{}
	c := &fakeClassifier{intent: models.Intent{
		IsRelevant: true, NeedStatistics: true,
		StartYear: 2021, EndYear: 2022, SearchWords: []string{"klimat"},
	}}
	ans, err := newTestEngine(c, g).Ask(context.Background(), "Vem pratar mest om klimat?")
	require.NoError(t, err)
	require.NotNil(t, ans.Statistics)
	assert.Equal(t, 3, ans.Statistics.CountFor("V"))
	assert.Equal(t, "2021-2022", ans.Years)
	assert.Contains(t, g.system, "Analysera statistiken")
	assert.Contains(t, g.user, "STATISTIK ÖVER SÖKORD (klimat):\nV: 3 anföranden")
}

func TestAsk_noData(t *testing.T) {
	tests := []struct {
		name   string
		intent models.Intent
	}{
		{"statistics out of range", models.Intent{IsRelevant: true, NeedStatistics: true, StartYear: 1990, EndYear: 1991, SearchWords: []string{"x"}}},
		{"no passages", models.Intent{IsRelevant: true, StartYear: 2021, EndYear: 2022, SearchWords: []string{"kärnkraft"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGenerator{}
			ans, err := newTestEngine(&fakeClassifier{intent: tt.intent}, g).Ask(context.Background(), "q")
			require.NoError(t, err)
			assert.Equal(t, models.StatusNoData, ans.Status)
			assert.Zero(t, g.calls)
		})
	}
}

func TestAsk_irrelevant(t *testing.T) {
	g := &fakeGenerator{}
	ans, err := newTestEngine(&fakeClassifier{intent: models.Intent{IsRelevant: false}}, g).Ask(context.Background(), "Bästa pizzan?")
	require.NoError(t, err)
	assert.Equal(t, models.StatusIrrelevant, ans.Status)
	assert.Zero(t, g.calls)
}

func TestAsk_classifierFallback(t *testing.T) {
	g := &fakeGenerator{}
	ans, err := newTestEngine(&fakeClassifier{err: errors.New("bad json")}, g).Ask(context.Background(), "klimat")
	require.NoError(t, err)
	assert.True(t, ans.Fallback)
	assert.True(t, ans.Intent.IsRelevant)
	assert.Equal(t, 2022, ans.Intent.StartYear)
	assert.Equal(t, 2023, ans.Intent.EndYear)
	assert.Equal(t, models.StatusAnswered, ans.Status)
	assert.Contains(t, g.system, "BÖRJA med officiell linje")
}

func TestAsk_unboundedYearsFallBack(t *testing.T) {
	g := &fakeGenerator{}
	c := &fakeClassifier{intent: models.Intent{IsRelevant: true, StartYear: 1, EndYear: 500001, SearchWords: []string{"klimat"}}}
	ans, err := newTestEngine(c, g).Ask(context.Background(), "klimat")
	require.NoError(t, err)
	assert.True(t, ans.Fallback)
	assert.Equal(t, 2022, ans.Intent.StartYear)
	assert.Equal(t, 2023, ans.Intent.EndYear)
}

func TestAsk_generationError(t *testing.T) {
	g := &fakeGenerator{err: errors.New("quota")}
	c := &fakeClassifier{intent: models.Intent{IsRelevant: true, StartYear: 2022, EndYear: 2022, SearchWords: []string{"skolan"}}}
	ans, err := newTestEngine(c, g).Ask(context.Background(), "Skolan?")
	require.Error(t, err)
	require.NotNil(t, ans)
	assert.NotEmpty(t, ans.Sources)
	assert.Empty(t, ans.Text)
	assert.Contains(t, g.system, "Fokusera på debatterna")
}

func TestAsk_emptyQuestion(t *testing.T) {
	_, err := newTestEngine(&fakeClassifier{}, &fakeGenerator{}).Ask(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestSystemPrompt_withoutBackground(t *testing.T) {
	p := SystemPrompt(ModeDebate, "  ")
	assert.True(t, strings.HasSuffix(p, "3. Avsluta med en kort sammanfattning.\n"))
}
