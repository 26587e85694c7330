// Package answer runs a question through classification, statistics or
// retrieval, and generation.
package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kabbel/internal/llm"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/retrieval"
	"github.com/hyperjump/kabbel/internal/stats"
	"github.com/hyperjump/kabbel/pkg/utils"
	"go.uber.org/zap"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Classifier maps a question to an intent.
type Classifier interface {
	Classify(ctx context.Context, question string) (models.Intent, error)
}

// Generator writes the answer from a system instruction and user content.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Engine answers questions.
type Engine struct {
	classifier       Classifier
	generator        Generator
	orchestrator     *retrieval.Orchestrator
	window           *retrieval.Window
	stats            *stats.Aggregator
	background       string
	defaultStartYear int
	now              func() time.Time
	logger           *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithBackground sets the political background appended to the instructions.
func WithBackground(text string) Option {
	return func(e *Engine) { e.background = text }
}

// WithDefaultStartYear sets the start year of the fallback intent.
func WithDefaultStartYear(year int) Option {
	return func(e *Engine) { e.defaultStartYear = year }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires an engine.
func NewEngine(
	classifier Classifier,
	generator Generator,
	orchestrator *retrieval.Orchestrator,
	window *retrieval.Window,
	aggregator *stats.Aggregator,
	opts ...Option,
) *Engine {
	e := &Engine{
		classifier:       classifier,
		generator:        generator,
		orchestrator:     orchestrator,
		window:           window,
		stats:            aggregator,
		defaultStartYear: 2022,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Classify returns the intent for question, or the fallback intent (with
// fallback set) when classification fails or yields an unusable year range.
func (e *Engine) Classify(ctx context.Context, question string) (intent models.Intent, fallback bool) {
	intent, err := e.classifier.Classify(ctx, question)
	if err == nil {
		intent.Normalize()
		if intent.IsRelevant {
			err = intent.Validate()
		}
	}
	if err != nil {
		e.logger.Warn("classification failed, using fallback intent", zap.Error(err))
		return llm.FallbackIntent(question, e.now(), e.defaultStartYear), true
	}
	return intent, false
}

// Context retrieves and windows passages for intent and renders the payload.
func (e *Engine) Context(ctx context.Context, intent models.Intent) ([]models.Passage, string) {
	intent.Normalize()
	selected := e.window.Select(e.orchestrator.Retrieve(ctx, intent))
	return selected, e.window.Payload(selected)
}

// Statistics counts term occurrences per party over the year range.
func (e *Engine) Statistics(ctx context.Context, terms []string, startYear, endYear int) (*models.Statistics, error) {
	return e.stats.Aggregate(ctx, terms, startYear, endYear)
}

// Ask answers question. Irrelevant questions and empty data ranges return an
// Answer with the corresponding status and no model call. A generation
// failure is returned as an error together with the partial answer.
func (e *Engine) Ask(ctx context.Context, question string) (*models.Answer, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	ans := &models.Answer{ID: uuid.NewString(), Question: question}
	logger := e.logger.With(zap.String("request_id", ans.ID))

	ans.Intent, ans.Fallback = e.Classify(ctx, question)
	intent := ans.Intent
	logger.Info("question classified",
		zap.Bool("relevant", intent.IsRelevant),
		zap.Bool("statistics", intent.NeedStatistics),
		zap.Bool("program", intent.NeedProgram),
		zap.Strings("parties", intent.Parties),
		zap.Int("start_year", intent.StartYear),
		zap.Int("end_year", intent.EndYear),
		zap.Bool("fallback", ans.Fallback))

	if !intent.IsRelevant {
		ans.Status = models.StatusIrrelevant
		return ans, nil
	}

	var (
		mode    Mode
		payload string
	)
	switch {
	case intent.NeedStatistics:
		mode = ModeStatistics
		st, err := e.stats.Aggregate(ctx, intent.SearchWords, intent.StartYear, intent.EndYear)
		if err != nil {
			return ans, err
		}
		ans.Statistics = st
		if st.Scanned == 0 {
			ans.Status = models.StatusNoData
			return ans, nil
		}
		payload = stats.Summary(st)
	default:
		mode = ModeDebate
		if intent.NeedProgram {
			mode = ModeProgram
		}
		ans.Sources, payload = e.Context(ctx, intent)
		if len(ans.Sources) == 0 {
			logger.Info("no passages found")
			ans.Status = models.StatusNoData
			return ans, nil
		}
	}

	ans.Years = retrieval.Years(ans.Sources, intent.StartYear, intent.EndYear)
	text, err := e.generator.Generate(ctx, SystemPrompt(mode, e.background), UserPrompt(ans.Years, question, payload))
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		return ans, fmt.Errorf("failed to generate answer: %w", err)
	}
	ans.Text = text
	ans.Status = models.StatusAnswered
	logger.Info("question answered", zap.Int("sources", len(ans.Sources)), zap.String("years", ans.Years))
	return ans, nil
}
