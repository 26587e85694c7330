package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kabbel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func fixedClassifier(c Completer) *Classifier {
	cl := NewClassifier(c, 2022)
	cl.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return cl
}

func TestClassifier_Classify(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n" + `{
		"is_relevant": true,
		"need_statistics": true,
		"partier": ["v", "S"],
		"start_year": 2024,
		"end_year": 2020,
		"need_program": false,
		"search_word_debate": ["klimat", " "],
		"topic_program": "klimat"
	}` + "\n```"}
	got, err := fixedClassifier(fc).Classify(context.Background(), "Vem pratar mest om klimat?")
	require.NoError(t, err)

	assert.Equal(t, models.Intent{
		IsRelevant:     true,
		NeedStatistics: true,
		Parties:        []string{"V", "S"},
		StartYear:      2020,
		EndYear:        2024,
		SearchWords:    []string{"klimat"},
		TopicProgram:   "klimat",
	}, got)
	assert.Contains(t, fc.system, "end_year 2025")
	assert.Equal(t, "Analysera denna fråga: Vem pratar mest om klimat?", fc.user)
}

func TestClassifier_defaults(t *testing.T) {
	fc := &fakeCompleter{reply: `{"is_relevant": true}`}
	got, err := fixedClassifier(fc).Classify(context.Background(), "Hur ser S på skolan?")
	require.NoError(t, err)
	assert.Equal(t, 2022, got.StartYear)
	assert.Equal(t, 2025, got.EndYear)
	assert.Equal(t, []string{"Hur ser S på skolan?"}, got.SearchWords)
	assert.Equal(t, "Hur ser S på skolan?", got.TopicProgram)
	assert.False(t, got.NeedProgram)
	assert.Empty(t, got.Parties)
}

func TestClassifier_errors(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{"transport", &fakeCompleter{err: errors.New("timeout")}},
		{"not json", &fakeCompleter{reply: "Jag kan inte svara på det."}},
		{"wrong shape", &fakeCompleter{reply: `{"start_year": "snart"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixedClassifier(tt.fc).Classify(context.Background(), "q")
			assert.ErrorIs(t, err, ErrClassification)
		})
	}
}

func TestParseIntent_yearRange(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		ok    bool
	}{
		{"huge span", `{"is_relevant": true, "start_year": -500000, "end_year": 1}`, false},
		{"too long", `{"is_relevant": true, "start_year": 1900, "end_year": 2024}`, false},
		{"zero end", `{"is_relevant": true, "start_year": 2020, "end_year": 0}`, false},
		{"irrelevant ignores years", `{"is_relevant": false, "start_year": 0, "end_year": 0}`, true},
		{"within bounds", `{"is_relevant": true, "start_year": 1990, "end_year": 2024}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIntent(tt.reply, "q", 2022, 2025)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, models.ErrInvalidYearRange)

			_, err = fixedClassifier(&fakeCompleter{reply: tt.reply}).Classify(context.Background(), "q")
			assert.ErrorIs(t, err, ErrClassification)
		})
	}
}

func TestFallbackIntent(t *testing.T) {
	got := FallbackIntent("  Vad tycker V om vargen? ", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), 2022)
	assert.True(t, got.IsRelevant)
	assert.True(t, got.NeedProgram)
	assert.False(t, got.NeedStatistics)
	assert.Empty(t, got.Parties)
	assert.Equal(t, 2022, got.StartYear)
	assert.Equal(t, 2026, got.EndYear)
	assert.Equal(t, []string{"Vad tycker V om vargen?"}, got.SearchWords)
	assert.Equal(t, "Vad tycker V om vargen?", got.TopicProgram)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{}`, StripCodeFence("  {}  "))
}

func TestClassifierPrompt(t *testing.T) {
	p := ClassifierPrompt(2031)
	assert.Equal(t, 3, strings.Count(p, "2031"))
	assert.NotContains(t, p, "%!")
}

func TestGenerator(t *testing.T) {
	fc := &fakeCompleter{reply: "  Svaret.\n"}
	got, err := NewGenerator(fc).Generate(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "Svaret.", got)
	assert.Equal(t, "sys", fc.system)

	_, err = NewGenerator(&fakeCompleter{err: errors.New("down")}).Generate(context.Background(), "s", "u")
	assert.Error(t, err)
}
